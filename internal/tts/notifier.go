package tts

// StateNotifier 由宿主 UI 实现，接收朗读状态变化。
// 两个回调都按上下文 ID 分发，实现方通常在回调里触发重绘。
type StateNotifier interface {
	// ClearLoading 在第一块音频到达时调用，清除加载指示。
	ClearLoading(ctxID int64)

	// ClearState 在播放完成或被打断时调用，清除全部朗读状态。
	ClearState(ctxID int64)
}

// NopNotifier 是不关心状态的调用方使用的空实现。
type NopNotifier struct{}

func (NopNotifier) ClearLoading(int64) {}
func (NopNotifier) ClearState(int64)   {}
