// Package config loads the application configuration from a JSON file.
// Every field is optional; absent fields keep their defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
)

// Config holds all user-tunable settings.
type Config struct {
	// ServerURL is the websocket endpoint of the inference backend.
	ServerURL string `json:"server_url"`
	// CameraID selects the capture device.
	CameraID int `json:"camera_id"`
	// Mode selects the producer: "landmarks" (on-device detection) or
	// "frames" (thin client).
	Mode string `json:"mode"`

	// Frame producer settings.
	FrameFPS     int `json:"frame_fps"`
	FrameQuality int `json:"frame_quality"`
	MaxWidth     int `json:"max_width"`
	MaxHeight    int `json:"max_height"`

	// Channel settings.
	AutoReconnect     bool `json:"auto_reconnect"`
	ReconnectAttempts int  `json:"reconnect_attempts"`
	ReconnectDelayMs  int  `json:"reconnect_delay_ms"`

	// Gesture settings.
	ConfidenceThreshold float64          `json:"confidence_threshold"`
	LockDurationMs      int              `json:"lock_duration_ms"`
	Bindings            gesture.Bindings `json:"bindings,omitempty"`

	// DeckHelper is the path of the slide-deck helper executable.
	DeckHelper string `json:"deck_helper"`

	// ListenAddr is the gateway bind address for serve mode.
	ListenAddr string `json:"listen_addr"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		ServerURL:           "ws://localhost:8080/ws",
		CameraID:            0,
		Mode:                "landmarks",
		FrameFPS:            10,
		FrameQuality:        70,
		MaxWidth:            640,
		MaxHeight:           480,
		AutoReconnect:       true,
		ReconnectAttempts:   5,
		ReconnectDelayMs:    2000,
		ConfidenceThreshold: 0.9,
		LockDurationMs:      1750,
		Bindings:            gesture.DefaultBindings(),
		ListenAddr:          ":8080",
	}
}

// ReconnectDelay returns the reconnect delay as a duration.
func (c Config) ReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelayMs) * time.Millisecond
}

// LockDuration returns the gesture lock window as a duration.
func (c Config) LockDuration() time.Duration {
	return time.Duration(c.LockDurationMs) * time.Millisecond
}

// Dir returns the per-user data directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".mudra")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

// Load reads the configuration from path. A missing file yields the
// defaults; a present but malformed file is an error. Fields absent
// from the file keep their default values.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.sanitize()
	return cfg, nil
}

// LoadDefault reads the configuration from the conventional location
// (~/.mudra/config.json).
func LoadDefault() (Config, error) {
	dir, err := Dir()
	if err != nil {
		return Default(), err
	}
	return Load(filepath.Join(dir, "config.json"))
}

// sanitize clamps out-of-range values back to their defaults.
func (c *Config) sanitize() {
	def := Default()

	if c.FrameFPS <= 0 {
		c.FrameFPS = def.FrameFPS
	}
	if c.FrameQuality <= 0 || c.FrameQuality > 100 {
		c.FrameQuality = def.FrameQuality
	}
	if c.MaxWidth <= 0 {
		c.MaxWidth = def.MaxWidth
	}
	if c.MaxHeight <= 0 {
		c.MaxHeight = def.MaxHeight
	}
	if c.ReconnectAttempts < 0 {
		c.ReconnectAttempts = def.ReconnectAttempts
	}
	if c.ReconnectDelayMs <= 0 {
		c.ReconnectDelayMs = def.ReconnectDelayMs
	}
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		c.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if c.LockDurationMs <= 0 {
		c.LockDurationMs = def.LockDurationMs
	}
	if c.Mode != "landmarks" && c.Mode != "frames" {
		c.Mode = def.Mode
	}
	if len(c.Bindings) == 0 {
		c.Bindings = def.Bindings
	}
}
