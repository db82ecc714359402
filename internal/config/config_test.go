package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"TTS.Method", cfg.TTS.Method, "gemini"},
		{"TTS.Workers", cfg.TTS.Workers, 2},
		{"TTS.Speed", cfg.TTS.Speed, "Normal"},
		{"TTS.Gemini.Voice", cfg.TTS.Gemini.Voice, "Aoede"},
		{"TTS.Edge.Voice", cfg.TTS.Edge.Voice, "en-US-AriaNeural"},
		{"TTS.Tencent.Region", cfg.TTS.Tencent.Region, "ap-guangzhou"},
		{"Realtime.BaseSpeed", cfg.Realtime.BaseSpeed, 100},
		{"Realtime.BoostPerItem", cfg.Realtime.BoostPerItem, 15},
		{"Realtime.BoostCap", cfg.Realtime.BoostCap, 60},
		{"Realtime.MaxSpeed", cfg.Realtime.MaxSpeed, 200},
		{"Log.Level", cfg.Log.Level, "info"},
	}

	for _, c := range checks {
		switch want := c.want.(type) {
		case int:
			if c.got.(int) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		case string:
			if c.got.(string) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		}
	}

	if !cfg.Realtime.CatchupEnabled() {
		t.Error("CatchupEnabled should default to true")
	}
}

func TestSetDefaults_DoesNotOverride(t *testing.T) {
	off := false
	cfg := &Config{
		TTS: TTSConfig{
			Method:  "translate",
			Workers: 4,
			Speed:   "Fast",
			Gemini:  GeminiConfig{Voice: "Puck"},
		},
		Realtime: RealtimeConfig{
			BaseSpeed:    120,
			AutoCatchup:  &off,
			BoostPerItem: 10,
			MaxSpeed:     180,
		},
		Log: LogConfig{Level: "debug"},
	}
	setDefaults(cfg)

	if cfg.TTS.Method != "translate" {
		t.Errorf("TTS.Method should not be overridden: got %s", cfg.TTS.Method)
	}
	if cfg.TTS.Workers != 4 {
		t.Errorf("TTS.Workers should not be overridden: got %d", cfg.TTS.Workers)
	}
	if cfg.TTS.Speed != "Fast" {
		t.Errorf("TTS.Speed should not be overridden: got %s", cfg.TTS.Speed)
	}
	if cfg.TTS.Gemini.Voice != "Puck" {
		t.Errorf("TTS.Gemini.Voice should not be overridden: got %s", cfg.TTS.Gemini.Voice)
	}
	if cfg.Realtime.BaseSpeed != 120 {
		t.Errorf("Realtime.BaseSpeed should not be overridden: got %d", cfg.Realtime.BaseSpeed)
	}
	if cfg.Realtime.CatchupEnabled() {
		t.Error("Realtime.AutoCatchup=false should not be overridden")
	}
	if cfg.Realtime.BoostPerItem != 10 {
		t.Errorf("Realtime.BoostPerItem should not be overridden: got %d", cfg.Realtime.BoostPerItem)
	}
	if cfg.Realtime.MaxSpeed != 180 {
		t.Errorf("Realtime.MaxSpeed should not be overridden: got %d", cfg.Realtime.MaxSpeed)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level should not be overridden: got %s", cfg.Log.Level)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	yamlContent := `
tts:
  method: gemini
  workers: 3
  speed: Slow
  gemini:
    api_key: test-key
    voice: Kore
  language_conditions:
    - code: vie
      instruction: "Read with a northern Vietnamese accent."
audio:
  output_device: "ab01"
log:
  level: debug
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TTS.Workers != 3 {
		t.Errorf("TTS.Workers: got %d, want 3", cfg.TTS.Workers)
	}
	if cfg.TTS.Speed != "Slow" {
		t.Errorf("TTS.Speed: got %q, want %q", cfg.TTS.Speed, "Slow")
	}
	if cfg.TTS.Gemini.APIKey != "test-key" {
		t.Errorf("TTS.Gemini.APIKey: got %q, want %q", cfg.TTS.Gemini.APIKey, "test-key")
	}
	if cfg.TTS.Gemini.Voice != "Kore" {
		t.Errorf("TTS.Gemini.Voice: got %q, want %q", cfg.TTS.Gemini.Voice, "Kore")
	}
	if len(cfg.TTS.LanguageConditions) != 1 || cfg.TTS.LanguageConditions[0].Code != "vie" {
		t.Errorf("LanguageConditions not parsed: %+v", cfg.TTS.LanguageConditions)
	}
	if cfg.Audio.OutputDevice != "ab01" {
		t.Errorf("Audio.OutputDevice: got %q, want %q", cfg.Audio.OutputDevice, "ab01")
	}
	// Defaults should be applied for unset fields
	if cfg.Realtime.BaseSpeed != 100 {
		t.Errorf("Realtime.BaseSpeed should default to 100, got %d", cfg.Realtime.BaseSpeed)
	}
	if cfg.TTS.Gemini.Model == "" {
		t.Error("TTS.Gemini.Model should have a default")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "secret-from-env")

	yamlContent := `
tts:
  gemini:
    api_key: "${TEST_GEMINI_KEY}"
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TTS.Gemini.APIKey != "secret-from-env" {
		t.Errorf("expected env var expansion, got %q", cfg.TTS.Gemini.APIKey)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad method", func(c *Config) { c.TTS.Method = "espeak" }},
		{"bad speed", func(c *Config) { c.TTS.Speed = "Turbo" }},
		{"zero workers", func(c *Config) { c.TTS.Workers = -1 }},
		{"base speed too low", func(c *Config) { c.Realtime.BaseSpeed = 10 }},
		{"max below base", func(c *Config) { c.Realtime.MaxSpeed = 90 }},
	}
	for _, tc := range cases {
		cfg := &Config{}
		setDefaults(cfg)
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

func TestSetDefaults_TrimsAPIKey(t *testing.T) {
	cfg := &Config{
		TTS: TTSConfig{Gemini: GeminiConfig{APIKey: "  key-with-spaces  "}},
	}
	setDefaults(cfg)
	if cfg.TTS.Gemini.APIKey != "key-with-spaces" {
		t.Errorf("expected trimmed API key, got %q", cfg.TTS.Gemini.APIKey)
	}
}
