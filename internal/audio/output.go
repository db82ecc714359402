package audio

import (
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/nganlinh4/voicepipe/internal/logger"
)

// OutputConfig 播放设备配置。
type OutputConfig struct {
	// SampleRate 设备采样率，默认 48000。
	SampleRate int
	// Channels 声道数，默认 2。单声道样本会复制到所有声道。
	Channels int
	// DeviceID 目标设备的十六进制 ID（见 ListOutputDevices），为空使用默认设备。
	DeviceID string
	// Generation 返回当前打断代数。回调检测到代数增长时主动清空队列，
	// 保证打断后不会有残留样本继续播放。
	Generation func() uint64
}

// Output 持有一个常驻的 malgo 播放设备。
// 设备回调从共享样本队列拉取数据，队列为空时输出静音。
// 设备初始化失败时降级为丢弃写入，不影响流程。
type Output struct {
	mctx     *malgo.AllocatedContext
	device   *malgo.Device
	ring     *Ring
	channels int

	generation func() uint64
	lastGen    uint64

	deviceID malgo.DeviceID
	haveID   bool

	active atomic.Bool
}

// NewOutput 创建并启动常驻播放设备。
// 找不到设备或启动失败只记录一次日志并返回降级实例，不返回错误。
func NewOutput(cfg OutputConfig) *Output {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 48000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 2
	}

	o := &Output{
		ring:       NewRing(),
		channels:   cfg.Channels,
		generation: cfg.Generation,
	}
	if cfg.Generation != nil {
		o.lastGen = cfg.Generation()
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		logger.Errorf("[audio] 初始化播放上下文失败，播放已禁用: %v", err)
		return o
	}
	o.mctx = mctx

	if cfg.DeviceID != "" {
		if infos, err := mctx.Devices(malgo.Playback); err == nil {
			for _, info := range infos {
				if deviceIDString(info.ID) == cfg.DeviceID {
					o.deviceID = info.ID
					o.haveID = true
					break
				}
			}
		}
		if !o.haveID {
			logger.Warnf("[audio] 未找到设备 %s，回退到默认设备", cfg.DeviceID)
		}
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = uint32(o.channels)
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = 480
	deviceConfig.Periods = 2
	if o.haveID {
		deviceConfig.Playback.DeviceID = o.deviceID.Pointer()
	}

	callbacks := malgo.DeviceCallbacks{
		Data: o.onData,
	}

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, callbacks)
	if err != nil {
		logger.Errorf("[audio] 初始化播放设备失败，播放已禁用: %v", err)
		_ = mctx.Uninit()
		mctx.Free()
		o.mctx = nil
		return o
	}

	if err := device.Start(); err != nil {
		logger.Errorf("[audio] 启动播放设备失败，播放已禁用: %v", err)
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		o.mctx = nil
		return o
	}

	o.device = device
	o.active.Store(true)
	logger.Infof("[audio] 播放设备已启动 (rate=%d, channels=%d)", cfg.SampleRate, o.channels)
	return o
}

// onData 是设备驱动调用的实时回调，按需填充输出缓冲。
// 回调线程独立检测代数变化，打断后即使上游漏进少量样本也会在下一个
// 周期前被清掉。
func (o *Output) onData(outputSamples, inputSamples []byte, frameCount uint32) {
	if o.generation != nil {
		if g := o.generation(); g > o.lastGen {
			o.ring.Clear()
			o.lastGen = g
		}
	}
	o.ring.ReadFrames(outputSamples, int(frameCount), o.channels)
}

// Write 追加单声道样本等待播放。设备不可用时丢弃。
func (o *Output) Write(samples []int16) {
	if o == nil || !o.active.Load() {
		return
	}
	o.ring.Write(samples)
}

// Pending 返回尚未播放的样本数。
func (o *Output) Pending() int {
	if o == nil || !o.active.Load() {
		return 0
	}
	return o.ring.Len()
}

// Flush 立即丢弃所有未播放的样本（硬切断）。
func (o *Output) Flush() {
	if o == nil || !o.active.Load() {
		return
	}
	o.ring.Clear()
}

// Active 返回设备是否可用。
func (o *Output) Active() bool {
	return o != nil && o.active.Load()
}

// Close 停止设备并释放资源。
func (o *Output) Close() {
	if o == nil {
		return
	}
	if !o.active.Swap(false) {
		return
	}
	if o.device != nil {
		_ = o.device.Stop()
		o.device.Uninit()
		o.device = nil
	}
	if o.mctx != nil {
		_ = o.mctx.Uninit()
		o.mctx.Free()
		o.mctx = nil
	}
}
