// Package config loads and validates the datacap configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full tool configuration.
type Config struct {
	Audio     AudioConfig     `mapstructure:"audio" yaml:"audio"`
	Recording RecordingConfig `mapstructure:"recording" yaml:"recording"`
	Output    OutputConfig    `mapstructure:"output" yaml:"output"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
}

type AudioConfig struct {
	// DeviceID selects the input device; -1 means the system default.
	DeviceID       int `mapstructure:"device_id" yaml:"device_id"`
	SampleRate     int `mapstructure:"sample_rate" yaml:"sample_rate"`
	BitsPerSample  int `mapstructure:"bits_per_sample" yaml:"bits_per_sample"`
	Channels       int `mapstructure:"channels" yaml:"channels"`
	FramesPerBlock int `mapstructure:"frames_per_block" yaml:"frames_per_block"`
	// BufferSeconds sizes the frame handoff buffer for worst-case consumer latency.
	BufferSeconds int `mapstructure:"buffer_seconds" yaml:"buffer_seconds"`
}

type RecordingConfig struct {
	DurationSeconds int    `mapstructure:"duration_seconds" yaml:"duration_seconds"`
	Prefix          string `mapstructure:"prefix" yaml:"prefix"`
	// StartIndex 0 means unset and is treated as 1; take indices are 1-based.
	StartIndex int `mapstructure:"start_index" yaml:"start_index"`
}

type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
}

type ServerConfig struct {
	Port string `mapstructure:"port" yaml:"port"`
}

var defaultConfig = Config{
	Audio: AudioConfig{
		DeviceID:       -1,
		SampleRate:     48000,
		BitsPerSample:  16,
		Channels:       1,
		FramesPerBlock: 1024,
		BufferSeconds:  2,
	},
	Recording: RecordingConfig{
		DurationSeconds: 5,
		Prefix:          "sample",
		StartIndex:      1,
	},
	Output: OutputConfig{
		Directory: "output",
	},
	Server: ServerConfig{
		Port: "8080",
	},
}

// Default returns a copy of the built-in configuration.
func Default() *Config {
	cfg := defaultConfig
	return &cfg
}

// Load reads configFile, applies environment overrides (DATACAP_ prefix)
// and validates the result. An empty configFile yields the defaults; a
// missing file is an error so typos do not silently fall back.
func Load(configFile string) (*Config, error) {
	cfg := Default()
	if configFile == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetEnvPrefix("DATACAP")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Output.Directory = expandPath(cfg.Output.Directory)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration invariants shared with the recording
// controller's parameter checks.
func (c *Config) Validate() error {
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("audio.sample_rate must be > 0, got %d", c.Audio.SampleRate)
	}
	if c.Audio.BitsPerSample != 16 {
		return fmt.Errorf("audio.bits_per_sample must be 16, got %d", c.Audio.BitsPerSample)
	}
	if c.Audio.Channels != 1 {
		return fmt.Errorf("audio.channels must be 1 (mono), got %d", c.Audio.Channels)
	}
	if c.Audio.FramesPerBlock <= 0 {
		return fmt.Errorf("audio.frames_per_block must be > 0, got %d", c.Audio.FramesPerBlock)
	}
	if c.Audio.BufferSeconds <= 0 {
		return fmt.Errorf("audio.buffer_seconds must be > 0, got %d", c.Audio.BufferSeconds)
	}
	if c.Recording.DurationSeconds < 1 || c.Recording.DurationSeconds > 300 {
		return fmt.Errorf("recording.duration_seconds must be in [1, 300], got %d", c.Recording.DurationSeconds)
	}
	if strings.TrimSpace(c.Recording.Prefix) == "" {
		return fmt.Errorf("recording.prefix must not be empty")
	}
	if c.Recording.StartIndex < 0 {
		return fmt.Errorf("recording.start_index must be >= 0, got %d", c.Recording.StartIndex)
	}
	if c.Output.Directory == "" {
		return fmt.Errorf("output.directory must not be empty")
	}
	return nil
}

// BufferBlocks converts the buffer sizing from seconds to whole blocks.
func (c *Config) BufferBlocks() int {
	blocks := c.Audio.BufferSeconds * c.Audio.SampleRate / c.Audio.FramesPerBlock
	if blocks < 1 {
		blocks = 1
	}
	return blocks
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
