package core

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2/hclsimple"
)

// Config is the global configuration instance
var Config *Configuration

const (
	DefaultInactivityThreshold = 30 * time.Second
	DefaultKeyHistorySize      = 1000
	DefaultHTTPListen          = "127.0.0.1:7711"
)

// Configuration represents the complete idlewatch configuration
type Configuration struct {
	ConfigPath          string        // Directory containing config files
	Verbose             int           // Verbosity level
	InactivityThreshold time.Duration // Time without activity before alerts fire
	AlertMode           string        // "level" or "edge"
	Autostart           bool          // Start tracking when the daemon boots
	Keyboard            KeyboardConfig
	Pointer             PointerConfig
	Surface             SurfaceConfig
	HTTP                HTTPConfig
}

// KeyboardConfig controls the global key hook
type KeyboardConfig struct {
	Enabled     bool
	HistorySize int      // Accepted key presses kept in memory
	AllowedKeys []string // Empty means the built-in allow-list
}

// PointerConfig controls pointer polling
type PointerConfig struct {
	Enabled bool
}

// SurfaceConfig controls raising the host window on an inactivity alert
type SurfaceConfig struct {
	Enabled bool
	Window  string // Application name owning the window
	OnTop   bool   // Also keep it above other windows for a few seconds
}

// HTTPConfig controls the local HTTP bridge. An empty Listen disables it.
type HTTPConfig struct {
	Listen  string
	Metrics bool
}

// HCL parsing structs

type hclConfig struct {
	Verbose             int          `hcl:"verbose,optional"`
	InactivityThreshold string       `hcl:"inactivity_threshold,optional"`
	AlertMode           string       `hcl:"alert_mode,optional"`
	Autostart           *bool        `hcl:"autostart,optional"`
	Keyboard            *hclKeyboard `hcl:"keyboard,block"`
	Pointer             *hclPointer  `hcl:"pointer,block"`
	Surface             *hclSurface  `hcl:"surface,block"`
	HTTP                *hclHTTP     `hcl:"http,block"`
}

type hclKeyboard struct {
	Enabled *bool    `hcl:"enabled,optional"`
	Buffer  int      `hcl:"buffer,optional"`
	Keys    []string `hcl:"keys,optional"`
}

type hclPointer struct {
	Enabled *bool `hcl:"enabled,optional"`
}

type hclSurface struct {
	Enabled *bool  `hcl:"enabled,optional"`
	Window  string `hcl:"window,optional"`
	OnTop   *bool  `hcl:"on_top,optional"`
}

type hclHTTP struct {
	Listen  string `hcl:"listen,optional"`
	Metrics *bool  `hcl:"metrics,optional"`
}

// LoadConfig loads the HCL configuration file and returns a Configuration struct
func LoadConfig(filename string) (*Configuration, error) {
	var hclCfg hclConfig

	err := hclsimple.DecodeFile(filename, nil, &hclCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HCL config: %w", err)
	}

	cfg := GetDefaultConfig()
	cfg.Verbose = hclCfg.Verbose

	if hclCfg.InactivityThreshold != "" {
		d, err := ParseThreshold(hclCfg.InactivityThreshold)
		if err != nil {
			return nil, fmt.Errorf("inactivity_threshold: %w", err)
		}
		cfg.InactivityThreshold = d
	}

	switch hclCfg.AlertMode {
	case "":
	case "level", "edge":
		cfg.AlertMode = hclCfg.AlertMode
	default:
		return nil, fmt.Errorf("alert_mode: unknown mode %q (want level or edge)", hclCfg.AlertMode)
	}

	if hclCfg.Autostart != nil {
		cfg.Autostart = *hclCfg.Autostart
	}

	if kb := hclCfg.Keyboard; kb != nil {
		if kb.Enabled != nil {
			cfg.Keyboard.Enabled = *kb.Enabled
		}
		if kb.Buffer < 0 {
			return nil, fmt.Errorf("keyboard.buffer: must not be negative")
		}
		if kb.Buffer > 0 {
			cfg.Keyboard.HistorySize = kb.Buffer
		}
		cfg.Keyboard.AllowedKeys = kb.Keys
	}

	if p := hclCfg.Pointer; p != nil && p.Enabled != nil {
		cfg.Pointer.Enabled = *p.Enabled
	}

	if s := hclCfg.Surface; s != nil {
		if s.Enabled != nil {
			cfg.Surface.Enabled = *s.Enabled
		}
		if s.OnTop != nil {
			cfg.Surface.OnTop = *s.OnTop
		}
		cfg.Surface.Window = s.Window
	}

	if h := hclCfg.HTTP; h != nil {
		cfg.HTTP.Listen = h.Listen
		if h.Metrics != nil {
			cfg.HTTP.Metrics = *h.Metrics
		}
	}

	return cfg, nil
}

// GetDefaultConfig returns a Configuration with default values
func GetDefaultConfig() *Configuration {
	return &Configuration{
		InactivityThreshold: DefaultInactivityThreshold,
		AlertMode:           "level",
		Autostart:           true,
		Keyboard: KeyboardConfig{
			Enabled:     true,
			HistorySize: DefaultKeyHistorySize,
		},
		Pointer: PointerConfig{Enabled: true},
		Surface: SurfaceConfig{Enabled: false, OnTop: true},
		HTTP:    HTTPConfig{Metrics: true},
	}
}

// LoadConfigOrDefault loads filename, returning defaults when it does not
// exist.
func LoadConfigOrDefault(filename string) (*Configuration, error) {
	if !ConfigExists(filename) {
		return GetDefaultConfig(), nil
	}
	return LoadConfig(filename)
}

// ConfigExists checks if a config file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return err == nil
}

// maxThreshold keeps twice the threshold within time.Duration range.
const maxThreshold = time.Duration(math.MaxInt64 / 2)

// ParseThreshold accepts a Go duration ("45s", "2m") or a bare number of
// milliseconds. The result must be positive.
func ParseThreshold(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty threshold")
	}

	var d time.Duration
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms > maxThreshold.Milliseconds() {
			return 0, fmt.Errorf("threshold %s ms is too large", s)
		}
		d = time.Duration(ms) * time.Millisecond
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("invalid threshold %q: %w", s, err)
		}
	}

	if d <= 0 {
		return 0, fmt.Errorf("threshold must be positive, got %s", s)
	}
	if d > maxThreshold {
		return 0, fmt.Errorf("threshold %s is too large", s)
	}
	return d, nil
}
