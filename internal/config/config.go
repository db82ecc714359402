package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是 VoicePipe 的顶层配置结构。
type Config struct {
	TTS      TTSConfig      `yaml:"tts"`
	Realtime RealtimeConfig `yaml:"realtime"`
	Audio    AudioConfig    `yaml:"audio"`
	Log      LogConfig      `yaml:"log"`
}

// TTSConfig 语音合成配置。
type TTSConfig struct {
	// Method 合成方式: gemini（流式）、translate、edge、tencent（一次性）。
	Method string `yaml:"method"`

	// Workers 并行拉取音频的 worker 数量。
	Workers int `yaml:"workers"`

	// Speed 语速档位: Slow、Normal、Fast。
	// gemini 通过系统指令控制语速，translate 通过 URL 参数控制。
	Speed string `yaml:"speed"`

	Gemini  GeminiConfig  `yaml:"gemini"`
	Edge    EdgeConfig    `yaml:"edge"`
	Tencent TencentConfig `yaml:"tencent"`

	// LanguageConditions 按检测语言附加的朗读指令。
	LanguageConditions []LanguageCondition `yaml:"language_conditions"`
}

// GeminiConfig Gemini Live 流式合成配置。
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
	Voice  string `yaml:"voice"`
}

// EdgeConfig Edge TTS 配置。
type EdgeConfig struct {
	Voice string `yaml:"voice"`
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string  `yaml:"secret_id"`
	SecretKey string  `yaml:"secret_key"`
	VoiceType int64   `yaml:"voice_type"`
	Region    string  `yaml:"region"`
	Speed     float64 `yaml:"speed"`
}

// LanguageCondition 语言条件：当检测到指定语言时附加的朗读指令。
// Code 为 ISO 639-3 三字母代码，如 vie、kor、eng。
type LanguageCondition struct {
	Code        string `yaml:"code"`
	Instruction string `yaml:"instruction"`
}

// RealtimeConfig 实时播报的语速与自动追赶配置。
type RealtimeConfig struct {
	// BaseSpeed 基准语速百分比，100 为原速。
	BaseSpeed int `yaml:"base_speed"`

	// AutoCatchup 播放队列堆积时自动提速。未设置时默认开启。
	AutoCatchup *bool `yaml:"auto_catchup"`

	// BoostPerItem 每个排队任务增加的语速百分点。
	BoostPerItem int `yaml:"boost_per_item"`

	// BoostCap 自动提速的累计上限（百分点）。
	BoostCap int `yaml:"boost_cap"`

	// MaxSpeed 最终语速的硬上限（百分比）。
	MaxSpeed int `yaml:"max_speed"`
}

// CatchupEnabled 返回自动追赶是否开启。
func (r RealtimeConfig) CatchupEnabled() bool {
	return r.AutoCatchup == nil || *r.AutoCatchup
}

// AudioConfig 音频播放配置。
type AudioConfig struct {
	// OutputDevice 输出设备 ID（十六进制，见 -list-devices），为空使用默认设备。
	OutputDevice string `yaml:"output_device"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	// 展开环境变量，如 ${GEMINI_API_KEY}
	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.TTS.Method == "" {
		cfg.TTS.Method = "gemini"
	}
	if cfg.TTS.Workers == 0 {
		cfg.TTS.Workers = 2
	}
	if cfg.TTS.Speed == "" {
		cfg.TTS.Speed = "Normal"
	}
	if cfg.TTS.Gemini.Model == "" {
		cfg.TTS.Gemini.Model = "gemini-2.5-flash-native-audio-preview-12-2025"
	}
	if cfg.TTS.Gemini.Voice == "" {
		cfg.TTS.Gemini.Voice = "Aoede"
	}
	if cfg.TTS.Edge.Voice == "" {
		cfg.TTS.Edge.Voice = "en-US-AriaNeural"
	}
	if cfg.TTS.Tencent.Region == "" {
		cfg.TTS.Tencent.Region = "ap-guangzhou"
	}
	if cfg.TTS.Tencent.Speed == 0 {
		cfg.TTS.Tencent.Speed = 1.0
	}
	if cfg.Realtime.BaseSpeed == 0 {
		cfg.Realtime.BaseSpeed = 100
	}
	if cfg.Realtime.BoostPerItem == 0 {
		cfg.Realtime.BoostPerItem = 15
	}
	if cfg.Realtime.BoostCap == 0 {
		cfg.Realtime.BoostCap = 60
	}
	if cfg.Realtime.MaxSpeed == 0 {
		cfg.Realtime.MaxSpeed = 200
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// 去除 API Key 两端可能的空白（环境变量展开后常见）
	cfg.TTS.Gemini.APIKey = strings.TrimSpace(cfg.TTS.Gemini.APIKey)
	cfg.TTS.Tencent.SecretID = strings.TrimSpace(cfg.TTS.Tencent.SecretID)
	cfg.TTS.Tencent.SecretKey = strings.TrimSpace(cfg.TTS.Tencent.SecretKey)
}

// Validate 校验配置项的取值范围。
func (c *Config) Validate() error {
	switch c.TTS.Method {
	case "gemini", "translate", "edge", "tencent":
	default:
		return fmt.Errorf("不支持的合成方式: %s", c.TTS.Method)
	}
	switch c.TTS.Speed {
	case "Slow", "Normal", "Fast":
	default:
		return fmt.Errorf("不支持的语速档位: %s", c.TTS.Speed)
	}
	if c.TTS.Workers < 1 {
		return fmt.Errorf("workers 必须至少为 1: %d", c.TTS.Workers)
	}
	if c.Realtime.BaseSpeed < 50 || c.Realtime.BaseSpeed > 200 {
		return fmt.Errorf("base_speed 必须在 50~200 之间: %d", c.Realtime.BaseSpeed)
	}
	if c.Realtime.MaxSpeed < c.Realtime.BaseSpeed {
		return fmt.Errorf("max_speed 不能小于 base_speed: %d < %d",
			c.Realtime.MaxSpeed, c.Realtime.BaseSpeed)
	}
	return nil
}
