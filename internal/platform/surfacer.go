//go:build linux || darwin || windows

package platform

import (
	"context"
	"errors"
	"log/slog"
	"runtime"

	"github.com/go-vgo/robotgo"
)

// ErrNoWindow is returned when no host window name is configured.
var ErrNoWindow = errors.New("no window configured")

// WindowSurfacer raises a named window. Keeping it on top relies on wmctrl
// and is only available on X11.
type WindowSurfacer struct {
	logger *slog.Logger
	window string
	onTop  bool
}

// NewWindowSurfacer targets the window owned by the named application.
func NewWindowSurfacer(window string, onTop bool, logger *slog.Logger) *WindowSurfacer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WindowSurfacer{logger: logger, window: window, onTop: onTop}
}

func (w *WindowSurfacer) BringToFront() error {
	if w.window == "" {
		return ErrNoWindow
	}
	if err := displayAvailable(); err != nil {
		return err
	}
	return robotgo.ActiveName(w.window)
}

func (w *WindowSurfacer) SetAlwaysOnTop(onTop bool) error {
	if w.window == "" {
		return ErrNoWindow
	}
	if !w.onTop || runtime.GOOS != "linux" {
		return ErrUnsupported
	}

	action := "remove,above"
	if onTop {
		action = "add,above"
	}
	_, err := runCommand(context.Background(), "wmctrl", "-r", w.window, "-b", action)
	return err
}
