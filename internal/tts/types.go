package tts

const (
	// SourceSampleRate 远端合成音频的采样率（24kHz s16le 单声道）。
	SourceSampleRate = 24000

	// PlaybackSampleRate 播放设备采样率（48kHz，绝大多数设备支持）。
	PlaybackSampleRate = 48000

	// chunkSize 一次性引擎向播放端推送的字节数，24kHz 单声道 16bit 下为 100ms。
	chunkSize = 4800

	// chunkPacing 推送分块之间的间隔，让播放端可以边收边播。
	chunkPacing = 10 // ms

	// eventBuffer 每个请求事件通道的缓冲长度。
	eventBuffer = 32
)

// AudioEvent 是拉取 worker 发给播放线程的事件。
// Data 携带原始 s16le PCM 字节；End 标记流结束。
// 每个请求的事件流以恰好一个 End（或通道关闭）终止，End 之后不再有 Data。
type AudioEvent struct {
	Data []byte
	End  bool
}

// Request 一次朗读请求。创建后不可变。
type Request struct {
	ID         uint64
	Text       string
	ContextID  int64 // 宿主 UI 的上下文标识，状态回调按此分发
	IsRealtime bool  // 实时播报：基准语速与自动追赶生效
}

// QueuedRequest 请求与入队时的打断代数。
// 管理器当前代数超过 Generation 的瞬间，worker 和播放线程都必须
// 视其为过期并放弃处理。
type QueuedRequest struct {
	Request
	Generation uint64
}
