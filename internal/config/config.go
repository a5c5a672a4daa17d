package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Source     SourceConfig     `yaml:"source"`
	Audio      AudioConfig      `yaml:"audio"`
	DSP        DSPConfig        `yaml:"dsp"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Publish    PublishConfig    `yaml:"publish"`
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SourceConfig selects and configures the acquisition source
type SourceConfig struct {
	Kind   string       `yaml:"kind"` // "serial", "udp" or "tone"
	Serial SerialConfig `yaml:"serial"`
	UDP    UDPConfig    `yaml:"udp"`
	Tone   ToneConfig   `yaml:"tone"`
}

// SerialConfig configures the framed serial-port source
type SerialConfig struct {
	Device   string `yaml:"device"`    // e.g. /dev/ttyUSB0
	BaudHint int    `yaml:"baud_hint"` // informational; the tty must be preconfigured
}

// UDPConfig configures the UDP frame source
type UDPConfig struct {
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
	BufferSize  int    `yaml:"buffer_size"`
}

// ToneConfig configures the synthetic sine source
type ToneConfig struct {
	FrequencyHz float64 `yaml:"frequency_hz"`
	Amplitude   float64 `yaml:"amplitude"` // peak sample value, 0..32767
}

// AudioConfig contains block and timing parameters for the capture loop
type AudioConfig struct {
	SampleRate    int `yaml:"sample_rate"`
	BlockSize     int `yaml:"block_size"`
	ReadTimeoutMs int `yaml:"read_timeout_ms"`
	CycleDelayMs  int `yaml:"cycle_delay_ms"`
}

// DSPConfig contains filter stage parameters
type DSPConfig struct {
	LowpassAlpha float64 `yaml:"lowpass_alpha"`
	DCBlock      bool    `yaml:"dc_block"`
	DCBlockR     float64 `yaml:"dc_block_r"`
}

// ClassifierConfig contains environment classification thresholds.
// Calm/Noisy thresholds are in the same numeric domain as RMS.
type ClassifierConfig struct {
	CalmThreshold       float64 `yaml:"calm_threshold"`
	NoisyThreshold      float64 `yaml:"noisy_threshold"`
	DerivativeThreshold float64 `yaml:"derivative_threshold"`
}

// PublishConfig contains consumer push parameters
type PublishConfig struct {
	WaveformPoints int `yaml:"waveform_points"`
	WriteTimeoutMs int `yaml:"write_timeout_ms"`
}

// HTTPConfig contains HTTP server configuration (monitoring API + /ws endpoint)
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads the configuration file, applies environment overrides and validates
func Load(path string) (*Config, error) {
	// Optional .env file; environment variables win over the YAML file
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	config.applyEnvOverrides()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides overrides selected fields from MICSTREAM_* environment variables
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MICSTREAM_SOURCE_KIND"); v != "" {
		c.Source.Kind = v
	}
	if v := os.Getenv("MICSTREAM_SERIAL_DEVICE"); v != "" {
		c.Source.Serial.Device = v
	}
	if v := os.Getenv("MICSTREAM_UDP_BIND"); v != "" {
		c.Source.UDP.BindAddress = v
	}
	if v := os.Getenv("MICSTREAM_UDP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Source.UDP.Port = port
		}
	}
	if v := os.Getenv("MICSTREAM_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HTTP.Port = port
		}
	}
	if v := os.Getenv("MICSTREAM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.DSP.Validate(); err != nil {
		return fmt.Errorf("dsp config: %w", err)
	}

	if err := c.Classifier.Validate(); err != nil {
		return fmt.Errorf("classifier config: %w", err)
	}

	if err := c.Publish.Validate(); err != nil {
		return fmt.Errorf("publish config: %w", err)
	}

	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates source configuration
func (s *SourceConfig) Validate() error {
	switch s.Kind {
	case "serial":
		if s.Serial.Device == "" {
			return fmt.Errorf("serial device cannot be empty")
		}
	case "udp":
		if s.UDP.Port < 1 || s.UDP.Port > 65535 {
			return fmt.Errorf("udp port must be between 1 and 65535, got %d", s.UDP.Port)
		}
		if s.UDP.BindAddress == "" {
			return fmt.Errorf("udp bind_address cannot be empty")
		}
		if s.UDP.BufferSize < 1024 {
			return fmt.Errorf("udp buffer_size must be at least 1024 bytes, got %d", s.UDP.BufferSize)
		}
	case "tone":
		if s.Tone.FrequencyHz <= 0 {
			return fmt.Errorf("tone frequency_hz must be positive, got %f", s.Tone.FrequencyHz)
		}
		if s.Tone.Amplitude < 0 || s.Tone.Amplitude > 32767 {
			return fmt.Errorf("tone amplitude must be between 0 and 32767, got %f", s.Tone.Amplitude)
		}
	default:
		return fmt.Errorf("kind must be one of [serial, udp, tone], got '%s'", s.Kind)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", a.SampleRate)
	}

	if a.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", a.BlockSize)
	}

	if a.ReadTimeoutMs < 1 {
		return fmt.Errorf("read_timeout_ms must be at least 1, got %d", a.ReadTimeoutMs)
	}

	if a.CycleDelayMs < 0 {
		return fmt.Errorf("cycle_delay_ms cannot be negative, got %d", a.CycleDelayMs)
	}

	return nil
}

// Validate validates DSP configuration
func (d *DSPConfig) Validate() error {
	if d.LowpassAlpha <= 0 || d.LowpassAlpha >= 1 {
		return fmt.Errorf("lowpass_alpha must be in (0, 1), got %f", d.LowpassAlpha)
	}

	if d.DCBlock {
		if d.DCBlockR <= 0 || d.DCBlockR >= 1 {
			return fmt.Errorf("dc_block_r must be in (0, 1), got %f", d.DCBlockR)
		}
	}

	return nil
}

// Validate validates classifier configuration
func (c *ClassifierConfig) Validate() error {
	if c.CalmThreshold <= 0 {
		return fmt.Errorf("calm_threshold must be positive, got %f", c.CalmThreshold)
	}

	if c.NoisyThreshold <= c.CalmThreshold {
		return fmt.Errorf("noisy_threshold (%f) must be greater than calm_threshold (%f)",
			c.NoisyThreshold, c.CalmThreshold)
	}

	if c.DerivativeThreshold <= 0 {
		return fmt.Errorf("derivative_threshold must be positive, got %f", c.DerivativeThreshold)
	}

	return nil
}

// Validate validates publish configuration
func (p *PublishConfig) Validate() error {
	if p.WaveformPoints <= 0 {
		return fmt.Errorf("waveform_points must be positive, got %d", p.WaveformPoints)
	}

	if p.WriteTimeoutMs < 1 {
		return fmt.Errorf("write_timeout_ms must be at least 1, got %d", p.WriteTimeoutMs)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Enabled {
		if h.Port < 1 || h.Port > 65535 {
			return fmt.Errorf("http port must be between 1 and 65535, got %d", h.Port)
		}

		if h.Address == "" {
			return fmt.Errorf("http address cannot be empty when HTTP is enabled")
		}
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetReadTimeout returns the acquisition read timeout as a time.Duration
func (a *AudioConfig) GetReadTimeout() time.Duration {
	return time.Duration(a.ReadTimeoutMs) * time.Millisecond
}

// GetCycleDelay returns the inter-cycle delay as a time.Duration
func (a *AudioConfig) GetCycleDelay() time.Duration {
	return time.Duration(a.CycleDelayMs) * time.Millisecond
}

// BlockDuration returns the natural period of one block (BlockSize / SampleRate)
func (a *AudioConfig) BlockDuration() time.Duration {
	return time.Duration(float64(a.BlockSize) / float64(a.SampleRate) * float64(time.Second))
}

// GetWriteTimeout returns the consumer write timeout as a time.Duration
func (p *PublishConfig) GetWriteTimeout() time.Duration {
	return time.Duration(p.WriteTimeoutMs) * time.Millisecond
}
