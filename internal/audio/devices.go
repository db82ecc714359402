package audio

import (
	"bytes"
	"encoding/hex"
	"fmt"

	"github.com/gen2brain/malgo"
)

// Device 描述一个可用的音频输出设备。
type Device struct {
	ID      string // 十六进制设备 ID，可写入配置文件
	Name    string
	Default bool
}

// ListOutputDevices 枚举系统当前可用的播放设备。
func ListOutputDevices() ([]Device, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("初始化音频上下文失败: %w", err)
	}
	defer func() {
		_ = mctx.Uninit()
		mctx.Free()
	}()

	infos, err := mctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("枚举播放设备失败: %w", err)
	}

	devices := make([]Device, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, Device{
			ID:      deviceIDString(info.ID),
			Name:    info.Name(),
			Default: info.IsDefault != 0,
		})
	}
	return devices, nil
}

// deviceIDString 将原生设备 ID 编码为十六进制字符串，去掉尾部补零。
func deviceIDString(id malgo.DeviceID) string {
	trimmed := bytes.TrimRight(id[:], "\x00")
	if len(trimmed) == 0 {
		return ""
	}
	return hex.EncodeToString(trimmed)
}
