package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// TuningConfig is the runtime tuning surface of the engine. All fields
// are pointers so a partial JSON file only overrides what it names; the
// Get* accessors supply defaults for everything left nil. The same
// schema serves startup configuration and runtime parameter updates.
type TuningConfig struct {
	// Session recording params
	SampleRate        *int `json:"sample_rate,omitempty"`
	MaxBufferedFrames *int `json:"max_buffered_frames,omitempty"`

	// Feedback params
	DispatchInterval *string `json:"dispatch_interval,omitempty"` // duration string like "500ms"
	MinMessageGap    *string `json:"min_message_gap,omitempty"`   // duration string like "3s"
	MinPriority      *string `json:"min_priority,omitempty"`

	// Frame rate monitor params
	FPSWindowSize      *int     `json:"fps_window_size,omitempty"`
	GoodFPS            *float64 `json:"good_fps,omitempty"`
	AcceptableFPS      *float64 `json:"acceptable_fps,omitempty"`
	WarningFPS         *float64 `json:"warning_fps,omitempty"`
	EscalationCooldown *string  `json:"escalation_cooldown,omitempty"` // duration string like "5s"

	// Pose gating params
	MinConfidence *float64 `json:"min_confidence,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil,
// meaning every accessor answers with its default.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file. The file must
// have a .json extension and stay under the max file size. Fields
// omitted from the JSON retain their defaults, so partial configs are
// safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are usable.
func (c *TuningConfig) Validate() error {
	if c.SampleRate != nil && *c.SampleRate < 1 {
		return fmt.Errorf("sample_rate must be at least 1, got %d", *c.SampleRate)
	}
	if c.MaxBufferedFrames != nil && *c.MaxBufferedFrames < 0 {
		return fmt.Errorf("max_buffered_frames must be non-negative, got %d", *c.MaxBufferedFrames)
	}
	if c.FPSWindowSize != nil && *c.FPSWindowSize < 1 {
		return fmt.Errorf("fps_window_size must be at least 1, got %d", *c.FPSWindowSize)
	}
	if c.MinConfidence != nil {
		if *c.MinConfidence < 0 || *c.MinConfidence > 1 {
			return fmt.Errorf("min_confidence must be between 0 and 1, got %f", *c.MinConfidence)
		}
	}
	if c.MinPriority != nil {
		switch *c.MinPriority {
		case "critical", "high", "medium", "low":
		default:
			return fmt.Errorf("min_priority must be one of critical/high/medium/low, got %q", *c.MinPriority)
		}
	}

	for name, field := range map[string]*string{
		"dispatch_interval":   c.DispatchInterval,
		"min_message_gap":     c.MinMessageGap,
		"escalation_cooldown": c.EscalationCooldown,
	} {
		if field != nil && *field != "" {
			if _, err := time.ParseDuration(*field); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *field, err)
			}
		}
	}

	// The FPS bands must stay ordered when all three are overridden.
	if c.GoodFPS != nil && c.AcceptableFPS != nil && c.WarningFPS != nil {
		if !(*c.GoodFPS > *c.AcceptableFPS && *c.AcceptableFPS > *c.WarningFPS) {
			return fmt.Errorf("fps bands must satisfy good > acceptable > warning, got %f/%f/%f",
				*c.GoodFPS, *c.AcceptableFPS, *c.WarningFPS)
		}
	}

	return nil
}

// GetSampleRate returns the sample_rate value or the default.
func (c *TuningConfig) GetSampleRate() int {
	if c.SampleRate == nil {
		return 3 // default: keep 1 of every 3 frames
	}
	return *c.SampleRate
}

// GetMaxBufferedFrames returns the max_buffered_frames value or the default.
func (c *TuningConfig) GetMaxBufferedFrames() int {
	if c.MaxBufferedFrames == nil {
		return 1000
	}
	return *c.MaxBufferedFrames
}

// GetDispatchInterval parses and returns the DispatchInterval as a time.Duration.
func (c *TuningConfig) GetDispatchInterval() time.Duration {
	if c.DispatchInterval == nil || *c.DispatchInterval == "" {
		return 500 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.DispatchInterval)
	if err != nil {
		return 500 * time.Millisecond // default on parse error
	}
	return d
}

// GetMinMessageGap parses and returns the MinMessageGap as a time.Duration.
func (c *TuningConfig) GetMinMessageGap() time.Duration {
	if c.MinMessageGap == nil || *c.MinMessageGap == "" {
		return 3 * time.Second // default
	}
	d, err := time.ParseDuration(*c.MinMessageGap)
	if err != nil {
		return 3 * time.Second // default on parse error
	}
	return d
}

// GetMinPriority returns the min_priority value or the default.
func (c *TuningConfig) GetMinPriority() string {
	if c.MinPriority == nil || *c.MinPriority == "" {
		return "medium"
	}
	return *c.MinPriority
}

// GetFPSWindowSize returns the fps_window_size value or the default.
func (c *TuningConfig) GetFPSWindowSize() int {
	if c.FPSWindowSize == nil {
		return 30
	}
	return *c.FPSWindowSize
}

// GetGoodFPS returns the good_fps value or the default.
func (c *TuningConfig) GetGoodFPS() float64 {
	if c.GoodFPS == nil {
		return 25
	}
	return *c.GoodFPS
}

// GetAcceptableFPS returns the acceptable_fps value or the default.
func (c *TuningConfig) GetAcceptableFPS() float64 {
	if c.AcceptableFPS == nil {
		return 20
	}
	return *c.AcceptableFPS
}

// GetWarningFPS returns the warning_fps value or the default.
func (c *TuningConfig) GetWarningFPS() float64 {
	if c.WarningFPS == nil {
		return 15
	}
	return *c.WarningFPS
}

// GetEscalationCooldown parses and returns the EscalationCooldown as a time.Duration.
func (c *TuningConfig) GetEscalationCooldown() time.Duration {
	if c.EscalationCooldown == nil || *c.EscalationCooldown == "" {
		return 5 * time.Second // default
	}
	d, err := time.ParseDuration(*c.EscalationCooldown)
	if err != nil {
		return 5 * time.Second // default on parse error
	}
	return d
}

// GetMinConfidence returns the min_confidence value or the default.
func (c *TuningConfig) GetMinConfidence() float64 {
	if c.MinConfidence == nil {
		return 0.5
	}
	return *c.MinConfidence
}
