package tts

import (
	"context"
	"time"

	"github.com/nganlinh4/voicepipe/internal/audio"
	"github.com/nganlinh4/voicepipe/internal/logger"
)

// runWorker 拉取 worker 主循环：等待工作项、过期短路、按配置的
// 合成方式分发。所有失败都是非致命的，以 End 收尾后继续循环。
func (m *Manager) runWorker(idx int) {
	defer m.wg.Done()

	// 错峰启动，避免多个 worker 同时建连
	time.Sleep(100 * time.Millisecond)

	logger.Debugf("[tts] worker %d 已启动", idx)
	for {
		item, ok := m.nextWork()
		if !ok {
			logger.Debugf("[tts] worker %d 退出", idx)
			return
		}
		// 退避在事件流关闭之后消化，失败不会把播放端卡在通道上
		if backoff := m.handleRequest(item); backoff > 0 {
			time.Sleep(backoff)
		}
	}
}

// handleRequest 处理一个请求并保证事件流以恰好一个 End 终止。
// End 的投递是尽力而为的，通道关闭对播放端同样是终止信号。
// 失败路径返回需要的退避时长，由调用方在 End 之后执行。
func (m *Manager) handleRequest(item workItem) (backoff time.Duration) {
	defer func() {
		select {
		case item.events <- AudioEvent{End: true}:
		default:
		}
		close(item.events)
	}()

	// 出队即过期：不发一个字节网络请求，直接以 End 结束
	if m.stale(item.req.Generation) {
		return 0
	}

	method := m.cfg.TTS.Method
	switch method {
	case "gemini":
		return m.fetchGemini(item)
	case "translate":
		m.fetchTranslate(item)
	default:
		eng, ok := m.engines[method]
		if !ok {
			logger.Errorf("[tts] 合成方式 %s 没有已注册的引擎", method)
			return time.Second
		}
		m.fetchOneShot(item, eng)
	}
	return 0
}

// fetchGemini 流式路径：建连、协商、发文本、循环读音频转发给播放端。
// 失败时返回退避时长，由调用方在事件流关闭之后执行。
func (m *Manager) fetchGemini(item workItem) time.Duration {
	gc := m.cfg.TTS.Gemini
	if gc.APIKey == "" {
		logger.Warn("[tts] 未配置 Gemini API Key")
		m.notifier.ClearLoading(item.req.ContextID)
		m.notifier.ClearState(item.req.ContextID)
		return time.Second
	}

	client, err := dialGemini(gc.APIKey)
	if err != nil {
		logger.Warnf("[tts] 建连失败: %v", err)
		m.notifier.ClearState(item.req.ContextID)
		return 3 * time.Second
	}
	defer client.close()

	languageInstruction := InstructionForText(item.req.Text, m.cfg.TTS.LanguageConditions)
	if err := client.sendSetup(gc.Model, gc.Voice, m.cfg.TTS.Speed, languageInstruction); err != nil {
		logger.Warnf("[tts] 发送协商消息失败: %v", err)
		m.notifier.ClearState(item.req.ContextID)
		return 2 * time.Second
	}

	ok := client.waitSetupComplete(10*time.Second, func() bool {
		return m.stale(item.req.Generation) || m.stopped.Load()
	})
	if !ok {
		if !m.stale(item.req.Generation) {
			logger.Warnf("[tts] 等待协商确认超时 (session=%s)", client.session)
		}
		m.notifier.ClearState(item.req.ContextID)
		return 0
	}

	if err := client.sendText(item.req.Text); err != nil {
		logger.Warnf("[tts] 发送文本失败: %v", err)
		m.notifier.ClearState(item.req.ContextID)
		return 0
	}

	// 读循环：每轮短超时以便及时响应打断，距上次数据超过 30s 放弃
	lastData := time.Now()
	gotAny := false

	for {
		if m.stale(item.req.Generation) || m.stopped.Load() {
			return 0
		}
		if time.Since(lastData) > 30*time.Second {
			logger.Warnf("[tts] 读超时 (session=%s)", client.session)
			break
		}

		data, closed, err := client.readMessage(time.Second)
		if err != nil {
			logger.Warnf("[tts] 读消息失败 (session=%s): %v", client.session, err)
			break
		}
		if closed {
			break
		}
		if data == nil {
			continue
		}
		lastData = time.Now()

		if pcm := parseAudioData(data); len(pcm) > 0 {
			gotAny = true
			if !m.deliver(item, AudioEvent{Data: pcm}) {
				return 0
			}
		}
		if isTurnComplete(data) {
			break
		}
	}

	if !gotAny {
		m.notifier.ClearState(item.req.ContextID)
	}
	return 0
}

// fetchOneShot 一次性路径：引擎整段合成后转为 24kHz s16le，再分块
// 带间隔地推给播放端，让播放可以先于整段结束开始。
func (m *Manager) fetchOneShot(item workItem, eng Engine) {
	ctx, cancel := m.staleContext(item.req.Generation)
	defer cancel()

	samples, rate, err := eng.Synthesize(ctx, item.req.Text)
	if err != nil {
		if ctx.Err() == nil {
			logger.Warnf("[tts] 合成失败: %v", err)
		}
		m.notifier.ClearState(item.req.ContextID)
		return
	}

	pcm := audio.Float32ToInt16(samples)
	pcm = audio.ResampleLinear(pcm, rate, SourceSampleRate)
	m.streamChunks(item, audio.Int16ToBytes(pcm))
}

// streamChunks 将整段 PCM 按固定大小分块投递，块间加一个小间隔。
func (m *Manager) streamChunks(item workItem, data []byte) {
	for off := 0; off < len(data); off += chunkSize {
		if m.stale(item.req.Generation) || m.stopped.Load() {
			return
		}
		end := off + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if !m.deliver(item, AudioEvent{Data: data[off:end]}) {
			return
		}
		time.Sleep(chunkPacing * time.Millisecond)
	}
}

// staleContext 返回一个在请求过期或流水线终止时自动取消的 context，
// 用于向一次性引擎传递协作式取消。
func (m *Manager) staleContext(gen uint64) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.done:
				cancel()
				return
			case <-ticker.C:
				if m.stale(gen) {
					cancel()
					return
				}
			}
		}
	}()
	return ctx, cancel
}
