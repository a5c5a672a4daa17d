package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// validConfig returns a configuration that passes full validation
func validConfig() Config {
	return Config{
		Source: SourceConfig{
			Kind:   "tone",
			Serial: SerialConfig{Device: "/dev/ttyUSB0", BaudHint: 2000000},
			UDP:    UDPConfig{BindAddress: "0.0.0.0", Port: 9999, BufferSize: 65536},
			Tone:   ToneConfig{FrequencyHz: 440, Amplitude: 8000},
		},
		Audio: AudioConfig{
			SampleRate:    16000,
			BlockSize:     256,
			ReadTimeoutMs: 100,
			CycleDelayMs:  30,
		},
		DSP: DSPConfig{
			LowpassAlpha: 0.25,
			DCBlock:      false,
			DCBlockR:     0.995,
		},
		Classifier: ClassifierConfig{
			CalmThreshold:       500,
			NoisyThreshold:      5000,
			DerivativeThreshold: 1000,
		},
		Publish: PublishConfig{
			WaveformPoints: 256,
			WriteTimeoutMs: 500,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Address: "127.0.0.1",
			Port:    8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

func TestValidateValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config to pass validation, got: %v", err)
	}
}

func TestSourceConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*SourceConfig)
		expectErr bool
	}{
		{
			name:      "valid tone source",
			mutate:    func(s *SourceConfig) {},
			expectErr: false,
		},
		{
			name:      "unknown kind",
			mutate:    func(s *SourceConfig) { s.Kind = "bluetooth" },
			expectErr: true,
		},
		{
			name: "serial without device",
			mutate: func(s *SourceConfig) {
				s.Kind = "serial"
				s.Serial.Device = ""
			},
			expectErr: true,
		},
		{
			name: "serial with device",
			mutate: func(s *SourceConfig) {
				s.Kind = "serial"
			},
			expectErr: false,
		},
		{
			name: "udp port out of range",
			mutate: func(s *SourceConfig) {
				s.Kind = "udp"
				s.UDP.Port = 70000
			},
			expectErr: true,
		},
		{
			name: "udp buffer too small",
			mutate: func(s *SourceConfig) {
				s.Kind = "udp"
				s.UDP.BufferSize = 100
			},
			expectErr: true,
		},
		{
			name: "udp valid",
			mutate: func(s *SourceConfig) {
				s.Kind = "udp"
			},
			expectErr: false,
		},
		{
			name: "tone with zero frequency",
			mutate: func(s *SourceConfig) {
				s.Tone.FrequencyHz = 0
			},
			expectErr: true,
		},
		{
			name: "tone amplitude above int16 range",
			mutate: func(s *SourceConfig) {
				s.Tone.Amplitude = 40000
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg.Source)
			err := cfg.Source.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestAudioConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*AudioConfig)
		expectErr bool
	}{
		{"valid", func(a *AudioConfig) {}, false},
		{"zero sample rate", func(a *AudioConfig) { a.SampleRate = 0 }, true},
		{"negative block size", func(a *AudioConfig) { a.BlockSize = -1 }, true},
		{"zero read timeout", func(a *AudioConfig) { a.ReadTimeoutMs = 0 }, true},
		{"negative cycle delay", func(a *AudioConfig) { a.CycleDelayMs = -5 }, true},
		{"zero cycle delay allowed", func(a *AudioConfig) { a.CycleDelayMs = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg.Audio)
			err := cfg.Audio.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestDSPConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*DSPConfig)
		expectErr bool
	}{
		{"valid", func(d *DSPConfig) {}, false},
		{"alpha zero", func(d *DSPConfig) { d.LowpassAlpha = 0 }, true},
		{"alpha one", func(d *DSPConfig) { d.LowpassAlpha = 1 }, true},
		{"dc block with bad R", func(d *DSPConfig) { d.DCBlock = true; d.DCBlockR = 1.5 }, true},
		{"dc block with valid R", func(d *DSPConfig) { d.DCBlock = true }, false},
		{"bad R ignored when dc block disabled", func(d *DSPConfig) { d.DCBlockR = 2 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg.DSP)
			err := cfg.DSP.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestClassifierConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ClassifierConfig)
		expectErr bool
	}{
		{"valid", func(c *ClassifierConfig) {}, false},
		{"calm threshold zero", func(c *ClassifierConfig) { c.CalmThreshold = 0 }, true},
		{"noisy below calm", func(c *ClassifierConfig) { c.NoisyThreshold = 400 }, true},
		{"noisy equals calm", func(c *ClassifierConfig) { c.NoisyThreshold = c.CalmThreshold }, true},
		{"derivative threshold zero", func(c *ClassifierConfig) { c.DerivativeThreshold = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg.Classifier)
			err := cfg.Classifier.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestLoggingConfigValidation(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		expectErr bool
	}{
		{"valid text", "info", "text", false},
		{"valid json", "debug", "json", false},
		{"bad level", "verbose", "text", true},
		{"bad format", "info", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoggingConfig{Level: tt.level, Format: tt.format, Output: "stdout"}
			err := cfg.Validate()
			if tt.expectErr && err == nil {
				t.Error("Expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := validConfig()

	if got := cfg.Audio.GetReadTimeout(); got != 100*time.Millisecond {
		t.Errorf("Expected read timeout 100ms, got %v", got)
	}

	if got := cfg.Audio.GetCycleDelay(); got != 30*time.Millisecond {
		t.Errorf("Expected cycle delay 30ms, got %v", got)
	}

	if got := cfg.Publish.GetWriteTimeout(); got != 500*time.Millisecond {
		t.Errorf("Expected write timeout 500ms, got %v", got)
	}

	// 256 samples at 16kHz is 16ms
	if got := cfg.Audio.BlockDuration(); got != 16*time.Millisecond {
		t.Errorf("Expected block duration 16ms, got %v", got)
	}
}

func TestLoadFromFile(t *testing.T) {
	content := `
source:
  kind: udp
  udp:
    bind_address: "0.0.0.0"
    port: 9999
    buffer_size: 65536
audio:
  sample_rate: 16000
  block_size: 256
  read_timeout_ms: 100
  cycle_delay_ms: 30
dsp:
  lowpass_alpha: 0.25
classifier:
  calm_threshold: 500
  noisy_threshold: 5000
  derivative_threshold: 1000
publish:
  waveform_points: 256
  write_timeout_ms: 500
http:
  enabled: false
logging:
  level: info
  format: text
  output: stdout
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Source.Kind != "udp" {
		t.Errorf("Expected source kind udp, got %s", cfg.Source.Kind)
	}
	if cfg.Audio.BlockSize != 256 {
		t.Errorf("Expected block size 256, got %d", cfg.Audio.BlockSize)
	}
	if cfg.Classifier.NoisyThreshold != 5000 {
		t.Errorf("Expected noisy threshold 5000, got %f", cfg.Classifier.NoisyThreshold)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MICSTREAM_SOURCE_KIND", "tone")
	t.Setenv("MICSTREAM_UDP_PORT", "12345")
	t.Setenv("MICSTREAM_LOG_LEVEL", "debug")

	cfg := validConfig()
	cfg.Source.Kind = "udp"
	cfg.applyEnvOverrides()

	if cfg.Source.Kind != "tone" {
		t.Errorf("Expected source kind override to tone, got %s", cfg.Source.Kind)
	}
	if cfg.Source.UDP.Port != 12345 {
		t.Errorf("Expected udp port override to 12345, got %d", cfg.Source.UDP.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level override to debug, got %s", cfg.Logging.Level)
	}
}
