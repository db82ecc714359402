package tts

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/nganlinh4/voicepipe/internal/audio"
	"github.com/nganlinh4/voicepipe/internal/config"
	"github.com/nganlinh4/voicepipe/internal/logger"
)

// workItem 工作队列元素：请求与向播放端投递事件的通道。
type workItem struct {
	req    QueuedRequest
	events chan AudioEvent
}

// playbackJob 播放队列元素，由播放线程严格按入队顺序消费。
type playbackJob struct {
	events     chan AudioEvent
	ctxID      int64
	id         uint64
	generation uint64
	isRealtime bool
}

// Manager 是流水线的顶层协调者：持有工作队列、播放队列、打断代数
// 和公开 API。通过 NewManager 显式构造并注入依赖，不使用全局单例。
//
// 取消是协作式的：打断只递增代数并清空队列，所有阻塞循环每轮重新
// 比较代数，过期的工作自行放弃，绝不强杀线程。
type Manager struct {
	cfg      *config.Config
	notifier StateNotifier
	out      *audio.Output

	workMu    sync.Mutex
	workCond  *sync.Cond
	workQueue []workItem

	playMu    sync.Mutex
	playCond  *sync.Cond
	playQueue []playbackJob

	generation atomic.Uint64
	requestID  atomic.Uint64

	ready    atomic.Bool
	stopped  atomic.Bool
	done     chan struct{}
	doneOnce sync.Once
	wg       sync.WaitGroup

	// engines 一次性合成引擎，按配置的 method 名索引。
	engines map[string]Engine

	// onSpeedChange 实时语速变化时的观察者回调。
	onSpeedChange func(percent int)
	lastSpeed     atomic.Int64

	// activeID 播放线程正在处理的请求 ID，IsSpeaking 的尽力而为依据。
	activeID atomic.Uint64
}

// NewManager 创建管理器。notifier 为 nil 时使用空实现；
// out 可以为 nil（或降级实例），此时只走流程不出声。
func NewManager(cfg *config.Config, notifier StateNotifier, out *audio.Output) *Manager {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	m := &Manager{
		cfg:      cfg,
		notifier: notifier,
		out:      out,
		done:     make(chan struct{}),
		engines:  make(map[string]Engine),
	}
	m.workCond = sync.NewCond(&m.workMu)
	m.playCond = sync.NewCond(&m.playMu)
	m.lastSpeed.Store(int64(cfg.Realtime.BaseSpeed))
	return m
}

// SetOutput 注入播放设备，必须在 Start 之前调用。
// 设备的代数回调依赖管理器，所以两者分两步接线。
func (m *Manager) SetOutput(out *audio.Output) {
	m.out = out
}

// RegisterEngine 注册一个一次性合成引擎，method 与配置中的值对应。
func (m *Manager) RegisterEngine(method string, e Engine) {
	m.engines[method] = e
}

// SetSpeedObserver 注册实时语速变化回调，必须在 Start 之前调用。
func (m *Manager) SetSpeedObserver(fn func(percent int)) {
	m.onSpeedChange = fn
}

// Start 启动 1 个播放线程和 N 个拉取 worker。
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.runPlayer()

	for i := 0; i < m.cfg.TTS.Workers; i++ {
		m.wg.Add(1)
		go m.runWorker(i)
	}

	m.ready.Store(true)
	logger.Infof("[tts] 流水线已启动 (method=%s, workers=%d)", m.cfg.TTS.Method, m.cfg.TTS.Workers)
}

// Generation 返回当前打断代数。音频回调用它独立检测打断。
func (m *Manager) Generation() uint64 {
	return m.generation.Load()
}

// IsReady 返回流水线是否已启动。仅供参考，不保证后端可达。
func (m *Manager) IsReady() bool {
	return m.ready.Load()
}

// Speak 追加一次朗读请求，按 FIFO 顺序排队播放，返回请求 ID。
// 调用方视角永不失败，过载通过打断时清空队列处理。
func (m *Manager) Speak(text string, ctxID int64) uint64 {
	return m.enqueue(text, ctxID, false, m.generation.Load())
}

// SpeakRealtime 追加一次实时播报请求：播放时使用基准语速并参与
// 自动追赶。返回请求 ID。
func (m *Manager) SpeakRealtime(text string, ctxID int64) uint64 {
	return m.enqueue(text, ctxID, true, m.generation.Load())
}

// SpeakInterrupt 打断当前朗读：递增代数使所有在途任务过期、清空
// 两个队列，然后以新代数入队唯一的新请求。返回后不会再有旧音频
// 开始播放，在途任务通过代数比较自行退出。
func (m *Manager) SpeakInterrupt(text string, ctxID int64) uint64 {
	newGen := m.generation.Add(1)
	m.clearQueues()
	return m.enqueue(text, ctxID, false, newGen)
}

// Stop 立即静音：递增代数并清空两个队列，不入队新请求。
func (m *Manager) Stop() {
	m.generation.Add(1)
	m.clearQueues()
	m.playCond.Broadcast()
}

// StopIfActive 停止指定请求。当前实现不按请求细分，等价于 Stop。
func (m *Manager) StopIfActive(id uint64) {
	m.Stop()
}

// IsSpeaking 尽力而为地判断指定请求是否正在播放，可能漏报。
func (m *Manager) IsSpeaking(id uint64) bool {
	return id != 0 && m.activeID.Load() == id
}

// Shutdown 终止流水线：置终止标记、递增代数并唤醒所有等待者，
// 等待全部 worker 和播放线程退出。
func (m *Manager) Shutdown() {
	m.stopped.Store(true)
	m.generation.Add(1)
	m.doneOnce.Do(func() { close(m.done) })
	m.workCond.Broadcast()
	m.playCond.Broadcast()
	m.wg.Wait()
	m.ready.Store(false)
	logger.Info("[tts] 流水线已停止")
}

// enqueue 同时加入工作队列和播放队列并各唤醒一个等待者。
func (m *Manager) enqueue(text string, ctxID int64, isRealtime bool, gen uint64) uint64 {
	id := m.requestID.Add(1)
	events := make(chan AudioEvent, eventBuffer)

	m.workMu.Lock()
	m.workQueue = append(m.workQueue, workItem{
		req: QueuedRequest{
			Request: Request{
				ID:         id,
				Text:       text,
				ContextID:  ctxID,
				IsRealtime: isRealtime,
			},
			Generation: gen,
		},
		events: events,
	})
	m.workMu.Unlock()
	m.workCond.Signal()

	m.playMu.Lock()
	m.playQueue = append(m.playQueue, playbackJob{
		events:     events,
		ctxID:      ctxID,
		id:         id,
		generation: gen,
		isRealtime: isRealtime,
	})
	m.playMu.Unlock()
	m.playCond.Signal()

	return id
}

// clearQueues 丢弃两个队列中的全部待处理项。
// 在途 worker 对失去消费者的通道的投递会因代数检查而停止。
func (m *Manager) clearQueues() {
	m.workMu.Lock()
	m.workQueue = nil
	m.workMu.Unlock()

	m.playMu.Lock()
	m.playQueue = nil
	m.playMu.Unlock()
}

// stale 判断代数是否已过期。
func (m *Manager) stale(gen uint64) bool {
	return gen < m.generation.Load()
}

// nextWork 阻塞等待下一个工作项，终止时返回 false。
func (m *Manager) nextWork() (workItem, bool) {
	m.workMu.Lock()
	defer m.workMu.Unlock()
	for len(m.workQueue) == 0 && !m.stopped.Load() {
		m.workCond.Wait()
	}
	if m.stopped.Load() {
		return workItem{}, false
	}
	item := m.workQueue[0]
	m.workQueue = m.workQueue[1:]
	return item, true
}

// nextPlayback 阻塞等待下一个播放任务，终止时返回 false。
func (m *Manager) nextPlayback() (playbackJob, bool) {
	m.playMu.Lock()
	defer m.playMu.Unlock()
	for len(m.playQueue) == 0 && !m.stopped.Load() {
		m.playCond.Wait()
	}
	if m.stopped.Load() {
		return playbackJob{}, false
	}
	job := m.playQueue[0]
	m.playQueue = m.playQueue[1:]
	return job, true
}

// pendingPlayback 返回播放队列长度，自动追赶的依据。
func (m *Manager) pendingPlayback() int {
	m.playMu.Lock()
	defer m.playMu.Unlock()
	return len(m.playQueue)
}

// deliver 向播放端投递一个事件。通道满时短暂等待并轮询过期与终止，
// 投递成功返回 true，过期或终止返回 false。
func (m *Manager) deliver(item workItem, ev AudioEvent) bool {
	for {
		if m.stale(item.req.Generation) || m.stopped.Load() {
			return false
		}
		select {
		case item.events <- ev:
			return true
		case <-m.done:
			return false
		case <-time.After(20 * time.Millisecond):
		}
	}
}
