package activity

import (
	"errors"
	"time"
)

// IdleProbe reports how long the OS has seen no input at all.
type IdleProbe interface {
	IdleTime() (time.Duration, error)
}

// CursorLocator reports the current pointer position.
type CursorLocator interface {
	Position() (Point, error)
}

// KeyHook is a process-wide keyboard hook. Start installs it and returns
// the stream of raw key events; Stop uninstalls it.
type KeyHook interface {
	Start() (<-chan KeyEvent, error)
	Stop() error
}

// WindowSurfacer raises the host window when an inactivity alert fires.
type WindowSurfacer interface {
	BringToFront() error
	SetAlwaysOnTop(onTop bool) error
}

// NopSurfacer is used when there is no host window to raise.
type NopSurfacer struct{}

func (NopSurfacer) BringToFront() error       { return nil }
func (NopSurfacer) SetAlwaysOnTop(bool) error { return nil }

var errNoIdleProbe = errors.New("idle probe not available")

type unavailableProbe struct{}

func (unavailableProbe) IdleTime() (time.Duration, error) { return 0, errNoIdleProbe }
