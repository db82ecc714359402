package tts

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tcloudtts "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"

	"github.com/nganlinh4/voicepipe/internal/audio"
	"github.com/nganlinh4/voicepipe/internal/config"
	"github.com/nganlinh4/voicepipe/internal/logger"
)

// TencentEngine 使用腾讯云 TTS 实现一次性合成。
// 适用于中国大陆网络环境，返回 MP3 再解码为 PCM。
type TencentEngine struct {
	client    *tcloudtts.Client
	voiceType int64
	speed     float64
}

// NewTencentEngine 创建腾讯云 TTS 引擎。
func NewTencentEngine(cfg config.TencentConfig) (*TencentEngine, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("腾讯云 TTS 需要 SecretID 和 SecretKey")
	}

	voiceType := cfg.VoiceType
	if voiceType == 0 {
		voiceType = 1001
	}

	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tts.tencentcloudapi.com"

	client, err := tcloudtts.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("创建腾讯云 TTS 客户端失败: %w", err)
	}

	logger.Infof("[tts] 腾讯云 TTS 引擎已初始化 (voice=%d, region=%s)", voiceType, cfg.Region)

	return &TencentEngine{
		client:    client,
		voiceType: voiceType,
		speed:     cfg.Speed,
	}, nil
}

// Synthesize 将文本合成为单声道 float32 音频样本。
func (e *TencentEngine) Synthesize(ctx context.Context, text string) ([]float32, int, error) {
	logger.Debugf("[tts] 腾讯云 TTS: 正在合成 %d 个字符，音色=%d", len([]rune(text)), e.voiceType)

	request := tcloudtts.NewTextToVoiceRequest()
	request.Text = common.StringPtr(text)
	request.VoiceType = common.Int64Ptr(e.voiceType)
	request.Codec = common.StringPtr("mp3")
	request.Speed = common.Float64Ptr(e.speed)
	request.Volume = common.Float64Ptr(5.0)

	response, err := e.client.TextToVoiceWithContext(ctx, request)
	if err != nil {
		return nil, 0, fmt.Errorf("腾讯云 TTS 合成失败: %w", err)
	}

	if response.Response == nil || response.Response.Audio == nil {
		return nil, 0, fmt.Errorf("腾讯云 TTS 未返回音频数据")
	}

	mp3Data, err := base64.StdEncoding.DecodeString(*response.Response.Audio)
	if err != nil {
		return nil, 0, fmt.Errorf("Base64 解码失败: %w", err)
	}

	pcm, rate, err := decodeMP3Mono(mp3Data)
	if err != nil {
		return nil, 0, err
	}

	logger.Debugf("[tts] 腾讯云 TTS: 解码得到 %d 个样本，采样率 %d Hz", len(pcm), rate)
	return audio.Int16ToFloat32(pcm), rate, nil
}
