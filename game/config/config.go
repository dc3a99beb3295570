package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig wraps all validation failures reported by Config.Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the tunable parameters of the click-race game. Values are
// configuration, not protocol: clients learn everything they need from the
// events the server pushes.
type Config struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Room and lifecycle settings.
	MaxRoomNameLength     int `json:"max_room_name_length"`
	RoundSeconds          int `json:"round_seconds"`
	ReconnectGraceSeconds int `json:"reconnect_grace_seconds"`

	// Button-target variant settings.
	ButtonCount   int `json:"button_count"`
	CanvasWidth   int `json:"canvas_width"`
	CanvasHeight  int `json:"canvas_height"`
	MinButtonSize int `json:"min_button_size"`
	MaxButtonSize int `json:"max_button_size"`
}

// Default returns the compiled-in configuration, matching the constants the
// original deployment shipped with.
func Default() *Config {
	return &Config{
		Name:                  "default",
		Description:           "Standard 30-second click race",
		MaxRoomNameLength:     16,
		RoundSeconds:          30,
		ReconnectGraceSeconds: 10,
		ButtonCount:           600,
		CanvasWidth:           800,
		CanvasHeight:          350,
		MinButtonSize:         35,
		MaxButtonSize:         60,
	}
}

// RoundDuration returns the length of one round.
func (c *Config) RoundDuration() time.Duration {
	return time.Duration(c.RoundSeconds) * time.Second
}

// ReconnectGrace returns the presence reconnection grace window.
func (c *Config) ReconnectGrace() time.Duration {
	return time.Duration(c.ReconnectGraceSeconds) * time.Second
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if c.MaxRoomNameLength <= 0 {
		return fmt.Errorf("%w: max_room_name_length must be positive", ErrInvalidConfig)
	}
	if c.RoundSeconds <= 0 {
		return fmt.Errorf("%w: round_seconds must be positive", ErrInvalidConfig)
	}
	if c.ReconnectGraceSeconds <= 0 {
		return fmt.Errorf("%w: reconnect_grace_seconds must be positive", ErrInvalidConfig)
	}
	if c.ButtonCount <= 0 {
		return fmt.Errorf("%w: button_count must be positive", ErrInvalidConfig)
	}
	if c.MinButtonSize <= 0 || c.MaxButtonSize < c.MinButtonSize {
		return fmt.Errorf("%w: button sizes must satisfy 0 < min <= max", ErrInvalidConfig)
	}
	if c.CanvasWidth <= c.MaxButtonSize || c.CanvasHeight <= c.MaxButtonSize {
		return fmt.Errorf("%w: canvas must be larger than the largest button", ErrInvalidConfig)
	}
	return nil
}
