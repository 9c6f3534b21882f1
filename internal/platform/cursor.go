//go:build linux || darwin || windows

package platform

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"runtime"

	"github.com/go-vgo/robotgo"
	"go.olrik.dev/idlewatch/internal/activity"
)

// Cursor reads the global pointer position. Hyprland sessions are asked
// through hyprctl since XWayland only sees its own windows.
type Cursor struct {
	logger   *slog.Logger
	hyprland bool
}

// NewCursor creates a cursor locator for the current session.
func NewCursor(logger *slog.Logger) *Cursor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cursor{
		logger:   logger,
		hyprland: os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "",
	}
}

func (c *Cursor) Position() (activity.Point, error) {
	if c.hyprland {
		out, err := runCommand(context.Background(), "hyprctl", "cursorpos")
		if err != nil {
			return activity.Point{}, err
		}
		x, y, err := parseCursorPos(out)
		if err != nil {
			return activity.Point{}, err
		}
		return activity.Point{X: x, Y: y}, nil
	}

	if err := displayAvailable(); err != nil {
		return activity.Point{}, err
	}
	x, y := robotgo.Location()
	return activity.Point{X: float64(x), Y: float64(y)}, nil
}

// displayAvailable guards native calls that abort the process without a
// display connection.
func displayAvailable() error {
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" {
		return errors.New("no X display available")
	}
	return nil
}
