package tts

import (
	"math"
	"time"

	"github.com/nganlinh4/voicepipe/internal/audio"
	"github.com/nganlinh4/voicepipe/internal/logger"
)

// runPlayer 播放线程主循环：严格按 FIFO 逐个完整消费播放任务，
// 同一时刻只有一个任务出声。
func (m *Manager) runPlayer() {
	defer m.wg.Done()

	// 时间拉伸器跨任务复用，每个新任务开始前重置会话状态
	stretcher := audio.NewStretcher(SourceSampleRate)

	logger.Debug("[tts] 播放线程已启动")
	for {
		job, ok := m.nextPlayback()
		if !ok {
			logger.Debug("[tts] 播放线程退出")
			return
		}
		m.playJob(job, stretcher)
	}
}

// playJob 消费一个任务的事件流直到 End 或过期。
// 状态推进：等首块（清加载指示）-> 流式播放 -> 排空或硬切断。
// 阻塞接收带周期性唤醒，打断发生在两次事件之间也能及时感知。
func (m *Manager) playJob(job playbackJob, stretcher *audio.Stretcher) {
	m.activeID.Store(job.id)
	defer m.activeID.Store(0)

	stretcher.Reset()
	loadingCleared := false

	for {
		if m.stopped.Load() {
			return
		}
		if m.stale(job.generation) {
			m.abortJob(job)
			return
		}

		select {
		case ev, ok := <-job.events:
			if !ok || ev.End {
				if m.stale(job.generation) {
					m.out.Flush()
				} else {
					m.drainOutput(job.generation)
				}
				m.notifier.ClearState(job.ctxID)
				return
			}

			if m.stale(job.generation) {
				m.abortJob(job)
				return
			}
			if !loadingCleared {
				loadingCleared = true
				m.notifier.ClearLoading(job.ctxID)
			}
			m.playChunk(ev.Data, job.isRealtime, stretcher)

		case <-m.done:
			return

		case <-time.After(200 * time.Millisecond):
			// 仅用于回到循环顶部重查过期与终止
		}
	}
}

// abortJob 硬切断：同步清空输出缓冲并清理上下文状态。
func (m *Manager) abortJob(job playbackJob) {
	m.out.Flush()
	m.notifier.ClearState(job.ctxID)
}

// playChunk 将一块 PCM 按当前有效语速拉伸、升采样后送入输出缓冲。
func (m *Manager) playChunk(data []byte, isRealtime bool, stretcher *audio.Stretcher) {
	samples := audio.BytesToInt16(data)
	if len(samples) == 0 {
		return
	}

	speed := m.effectiveSpeed(isRealtime)
	ratio := float64(speed) / 100.0

	// 接近原速直接透传，省 CPU 也避免误差累积
	if math.Abs(ratio-1.0) >= 0.05 {
		samples = stretcher.Stretch(samples, ratio)
		if len(samples) == 0 {
			return
		}
	}

	m.out.Write(audio.UpsampleDouble(samples))
}

// effectiveSpeed 计算当前有效语速百分比。
// 非实时任务恒为 100。实时任务在基准语速上按上游积压数量自动追赶，
// 变化时通知观察者。
func (m *Manager) effectiveSpeed(isRealtime bool) int {
	if !isRealtime {
		return 100
	}

	rc := m.cfg.Realtime
	speed := rc.BaseSpeed

	if rc.CatchupEnabled() {
		if n := m.pendingPlayback(); n > 0 {
			boost := n * rc.BoostPerItem
			if boost > rc.BoostCap {
				boost = rc.BoostCap
			}
			speed += boost
		}
	}
	if speed > rc.MaxSpeed {
		speed = rc.MaxSpeed
	}

	if old := m.lastSpeed.Swap(int64(speed)); old != int64(speed) {
		logger.Debugf("[tts] 实时语速调整: %d%% -> %d%%", old, speed)
		if m.onSpeedChange != nil {
			m.onSpeedChange(speed)
		}
	}
	return speed
}

// drainOutput 阻塞等待输出缓冲排空，再留一小段硬件余量。
// 期间过期或终止则立即硬切断返回。
func (m *Manager) drainOutput(gen uint64) {
	for m.out.Pending() > 0 {
		if m.stopped.Load() || m.stale(gen) {
			m.out.Flush()
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
}
