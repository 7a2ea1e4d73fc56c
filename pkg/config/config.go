// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/user/vidfeed/pkg/playback"
)

// Config represents the full configuration for vidfeed.
type Config struct {
	// Source is a fragmented MP4 path, an image sequence directory, or an
	// http(s) MJPEG camera URL.
	Source string `yaml:"source"`

	// Playback
	FPS     float64 `yaml:"fps"`
	Backlog string  `yaml:"backlog"`
	Loop    bool    `yaml:"loop"`

	// Processing
	Width   int           `yaml:"width"`
	Height  int           `yaml:"height"`
	Overlay OverlayConfig `yaml:"overlay"`

	// Output
	OutputDir string `yaml:"output_dir"`
	Format    string `yaml:"format"`

	// Camera
	Camera CameraConfig `yaml:"camera"`

	// Logging
	LogLevel string `yaml:"log_level"`
}

// OverlayConfig controls the frame badge.
type OverlayConfig struct {
	Index     bool `yaml:"index"`
	Timestamp bool `yaml:"timestamp"`
}

// CameraConfig tunes live MJPEG capture.
type CameraConfig struct {
	TimeoutMs     int `yaml:"timeout_ms"`
	RetryAttempts int `yaml:"retry_attempts"`
	RetryDelayMs  int `yaml:"retry_delay_ms"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	return Config{
		Backlog:   "deliver_all",
		OutputDir: "./frames",
		Format:    "png",
		Camera: CameraConfig{
			TimeoutMs:     10000,
			RetryAttempts: 3,
			RetryDelayMs:  1000,
		},
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate rejects values the pipeline cannot honor.
func (c Config) Validate() error {
	if c.FPS < 0 {
		return fmt.Errorf("fps must not be negative: %g", c.FPS)
	}
	if _, err := playback.ParseBacklogPolicy(c.Backlog); err != nil {
		return err
	}
	if (c.Width > 0) != (c.Height > 0) {
		return fmt.Errorf("width and height must be set together: %dx%d", c.Width, c.Height)
	}
	if c.Camera.RetryAttempts < 0 {
		return fmt.Errorf("camera retry_attempts must not be negative: %d", c.Camera.RetryAttempts)
	}
	return nil
}

// PlaybackOptions converts the config to engine options.
func (c Config) PlaybackOptions() (playback.Options, error) {
	backlog, err := playback.ParseBacklogPolicy(c.Backlog)
	if err != nil {
		return playback.Options{}, err
	}
	return playback.Options{
		FrameRateOverride: c.FPS,
		Backlog:           backlog,
		Loop:              c.Loop,
	}, nil
}

// Timeout returns the capture connect timeout.
func (c CameraConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// RetryDelay returns the pause between connection attempts.
func (c CameraConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}
