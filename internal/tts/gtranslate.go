package tts

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/nganlinh4/voicepipe/internal/audio"
	"github.com/nganlinh4/voicepipe/internal/logger"
)

// translate 备用的一次性 HTTP 合成端点。
const translateEndpoint = "https://translate.google.com/translate_tts"

var translateHTTP = &http.Client{Timeout: 15 * time.Second}

// retryDelays 翻译接口的重试间隔。
var retryDelays = []time.Duration{
	200 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
}

// fetchTranslate 备用路径：语言检测、带重试地下载 MP3、解码、合成单
// 声道、重采样到 24kHz，再分块推给播放端。
func (m *Manager) fetchTranslate(item workItem) {
	u := translateURL(item.req.Text, item.req.IsRealtime, m.cfg.TTS.Speed)

	mp3Data := m.downloadWithRetry(item, u)
	if mp3Data == nil {
		m.notifier.ClearState(item.req.ContextID)
		return
	}

	if m.stale(item.req.Generation) {
		return
	}

	pcm, rate, err := decodeMP3Mono(mp3Data)
	if err != nil {
		logger.Warnf("[tts] MP3 解码失败: %v", err)
		m.notifier.ClearState(item.req.ContextID)
		return
	}

	pcm = audio.ResampleLinear(pcm, rate, SourceSampleRate)
	m.streamChunks(item, audio.Int16ToBytes(pcm))
}

// translateURL 构造翻译接口的抓取地址。
// 实时请求固定按原速请求音频，变速交给播放端；非实时的 Slow 档位
// 映射为接口的 0.3 倍速参数。
func translateURL(text string, isRealtime bool, speedTier string) string {
	apiSpeed := 1.0
	if !isRealtime && speedTier == "Slow" {
		apiSpeed = 0.3
	}
	return fmt.Sprintf("%s?ie=UTF-8&q=%s&tl=%s&client=tw-ob&ttsspeed=%v",
		translateEndpoint, url.QueryEscape(text), TargetLangCode(text), apiSpeed)
}

// downloadWithRetry 带固定退避地下载音频，每次尝试前检查过期。
// 全部失败返回 nil。
func (m *Manager) downloadWithRetry(item workItem, u string) []byte {
	for attempt, delay := range retryDelays {
		if m.stale(item.req.Generation) || m.stopped.Load() {
			return nil
		}

		data, err := m.downloadOnce(u)
		if err == nil && len(data) > 0 {
			return data
		}
		if err != nil {
			logger.Debugf("[tts] translate 下载失败（第 %d 次）: %v", attempt+1, err)
		}

		if attempt < len(retryDelays)-1 {
			time.Sleep(delay)
		}
	}
	logger.Warn("[tts] translate 下载重试全部失败")
	return nil
}

func (m *Manager) downloadOnce(u string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := translateHTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// decodeMP3Mono 解码 MP3 为单声道 int16 PCM，返回样本与采样率。
// go-mp3 固定输出交错立体声 16bit LE。
func decodeMP3Mono(data []byte) ([]int16, int, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("创建解码器失败: %w", err)
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("读取 PCM 失败: %w", err)
	}

	return audio.StereoToMono(audio.BytesToInt16(raw)), decoder.SampleRate(), nil
}
