//go:build !linux && !darwin && !windows

package platform

import (
	"errors"
	"log/slog"

	"go.olrik.dev/idlewatch/internal/activity"
)

var ErrNoWindow = errors.New("no window configured")

type Cursor struct{}

func NewCursor(*slog.Logger) *Cursor { return &Cursor{} }

func (c *Cursor) Position() (activity.Point, error) { return activity.Point{}, ErrUnsupported }

type KeyHook struct{}

func NewKeyHook(*slog.Logger) *KeyHook { return &KeyHook{} }

func (h *KeyHook) Start() (<-chan activity.KeyEvent, error) { return nil, ErrUnsupported }

func (h *KeyHook) Stop() error { return nil }

type WindowSurfacer struct{}

func NewWindowSurfacer(string, bool, *slog.Logger) *WindowSurfacer { return &WindowSurfacer{} }

func (w *WindowSurfacer) BringToFront() error { return ErrUnsupported }

func (w *WindowSurfacer) SetAlwaysOnTop(bool) error { return ErrUnsupported }
