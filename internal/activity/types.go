// Package activity implements the idle-detection engine. A single Supervisor
// owns the "last genuine activity" timestamp and evaluates it against
// configurable thresholds. Pointer and keyboard monitors feed it verdicts,
// and OS power events can force it into a suspended state at any time.
//
// All timer callbacks and native key events are handled by one goroutine
// (Supervisor.Run), so no two engine callbacks ever execute concurrently.
package activity

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

var (
	// ErrNotTracking is returned by Pause when tracking is not active.
	ErrNotTracking = errors.New("activity tracking is not active")

	// ErrNotPaused is returned by Resume when tracking is not paused.
	ErrNotPaused = errors.New("activity tracking is not paused")

	// ErrInvalidThreshold is returned for non-positive thresholds and for
	// thresholds above MaxInactivityThreshold.
	ErrInvalidThreshold = errors.New("inactivity threshold out of range")

	// ErrHookUnavailable is reported when the native key hook cannot be installed.
	ErrHookUnavailable = errors.New("keyboard hook unavailable")
)

const (
	// DefaultInactivityThreshold is used when no threshold is configured.
	DefaultInactivityThreshold = 30 * time.Second

	// MinSystemIdleThreshold is the floor for the derived system idle threshold.
	MinSystemIdleThreshold = 60 * time.Second

	// MaxInactivityThreshold keeps the doubled system idle threshold
	// representable as a time.Duration.
	MaxInactivityThreshold = time.Duration(math.MaxInt64 / 2)

	inactivityCheckInterval = time.Second
	systemIdleCheckInterval = time.Second
	pointerPollInterval     = 200 * time.Millisecond
	alwaysOnTopDuration     = 3 * time.Second
)

// SystemIdleThreshold derives the OS idle threshold that gates pointer
// polling: max(2*inactivity, 60s).
func SystemIdleThreshold(inactivity time.Duration) time.Duration {
	return max(2*inactivity, MinSystemIdleThreshold)
}

// Point is a cursor position in screen coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance between two points.
func (p Point) DistanceTo(o Point) float64 {
	return math.Hypot(o.X-p.X, o.Y-p.Y)
}

// Source identifies what produced an activity signal.
type Source string

const (
	SourcePointer  Source = "pointer"
	SourceKeyboard Source = "keyboard"
	SourceSystem   Source = "system"
	SourceResume   Source = "resume"
	SourceManual   Source = "manual"
)

// Modifiers is a bitmask of held modifier keys.
type Modifiers uint8

const (
	ModShift Modifiers = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

// String renders the modifiers as a "ctrl+shift+" style prefix.
func (m Modifiers) String() string {
	var b strings.Builder
	for _, mod := range []struct {
		flag Modifiers
		name string
	}{
		{ModCtrl, "ctrl"},
		{ModAlt, "alt"},
		{ModShift, "shift"},
		{ModMeta, "meta"},
	} {
		if m&mod.flag != 0 {
			b.WriteString(mod.name)
			b.WriteByte('+')
		}
	}
	return b.String()
}

// KeyEvent is a raw key-down or key-up delivered by a KeyHook.
type KeyEvent struct {
	Key       string
	Modifiers Modifiers
	Down      bool
}

// KeyID identifies the key and modifier combination.
func (e KeyEvent) KeyID() string {
	return e.Modifiers.String() + e.Key
}

// KeyPressRecord is an accepted key press kept for debouncing and history.
type KeyPressRecord struct {
	Key       string    `json:"key"`
	Modifiers Modifiers `json:"modifiers"`
	Time      time.Time `json:"time"`
}

func (r KeyPressRecord) keyID() string {
	return r.Modifiers.String() + r.Key
}

// AlertMode controls how often inactivity alerts repeat.
type AlertMode string

const (
	// AlertLevel re-emits the alert on every check while the user is inactive.
	AlertLevel AlertMode = "level"
	// AlertEdge emits the alert once per inactivity episode.
	AlertEdge AlertMode = "edge"
)

// ParseAlertMode validates an alert mode name. Empty means AlertLevel.
func ParseAlertMode(s string) (AlertMode, error) {
	switch AlertMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", AlertLevel:
		return AlertLevel, nil
	case AlertEdge:
		return AlertEdge, nil
	default:
		return "", fmt.Errorf("unknown alert mode %q (expected level or edge)", s)
	}
}

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Snapshot is a read-only copy of the supervisor state.
type Snapshot struct {
	SessionID             string           `json:"session_id,omitempty"`
	LastActivityAt        time.Time        `json:"last_activity_at"`
	Tracking              bool             `json:"tracking"`
	Paused                bool             `json:"paused"`
	Suspended             bool             `json:"suspended"`
	PointerPosition       Point            `json:"pointer_position"`
	PointerPolling        bool             `json:"pointer_polling"`
	InactivityThresholdMs int64            `json:"inactivity_threshold_ms"`
	SystemIdleThresholdMs int64            `json:"system_idle_threshold_ms"`
	SystemIdleTimeMs      *int64           `json:"system_idle_time_ms"`
	InactiveMs            int64            `json:"inactive_ms"`
	AlertMode             AlertMode        `json:"alert_mode"`
	KeyboardAvailable     bool             `json:"keyboard_available"`
	RecentKeys            []KeyPressRecord `json:"recent_keys,omitempty"`
}

// InactivityThreshold returns the configured threshold as a duration.
func (s Snapshot) InactivityThreshold() time.Duration {
	return time.Duration(s.InactivityThresholdMs) * time.Millisecond
}

// SystemIdleTime returns the OS idle time and whether it was known.
func (s Snapshot) SystemIdleTime() (time.Duration, bool) {
	if s.SystemIdleTimeMs == nil {
		return 0, false
	}
	return time.Duration(*s.SystemIdleTimeMs) * time.Millisecond, true
}
