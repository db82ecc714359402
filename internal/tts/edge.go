package tts

import (
	"bytes"
	"context"
	"fmt"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"

	"github.com/nganlinh4/voicepipe/internal/audio"
	"github.com/nganlinh4/voicepipe/internal/logger"
)

// EdgeEngine 使用微软 Edge TTS 实现一次性合成，
// 通过 edge-tts-go 获取 MP3 音频，再解码为 PCM。
type EdgeEngine struct {
	voice string
}

// NewEdgeEngine 创建指定语音的 Edge TTS 引擎。
func NewEdgeEngine(voice string) *EdgeEngine {
	return &EdgeEngine{voice: voice}
}

// Synthesize 将文本合成为单声道 float32 音频样本。
func (e *EdgeEngine) Synthesize(ctx context.Context, text string) ([]float32, int, error) {
	logger.Debugf("[tts] edge-tts: 正在合成 %d 个字符，语音=%s", len([]rune(text)), e.voice)

	comm, err := edge.NewCommunicate(text, edge.WithVoice(e.voice))
	if err != nil {
		return nil, 0, fmt.Errorf("edge-tts 创建实例失败: %w", err)
	}

	ch, err := comm.Stream()
	if err != nil {
		return nil, 0, fmt.Errorf("edge-tts 开始流式合成失败: %w", err)
	}

	// 从 channel 收集全部 MP3 数据块
	var mp3Buf bytes.Buffer
	for msg := range ch {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		default:
		}
		if msgType, ok := msg["type"].(string); ok && msgType == "audio" {
			if data, ok := msg["data"].([]byte); ok {
				mp3Buf.Write(data)
			}
		}
	}

	if mp3Buf.Len() == 0 {
		return nil, 0, fmt.Errorf("edge-tts 未收到音频数据")
	}

	pcm, rate, err := decodeMP3Mono(mp3Buf.Bytes())
	if err != nil {
		return nil, 0, err
	}

	logger.Debugf("[tts] edge-tts: 解码得到 %d 个样本，采样率 %d Hz", len(pcm), rate)
	return audio.Int16ToFloat32(pcm), rate, nil
}
