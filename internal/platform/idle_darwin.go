package platform

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// IdleProbe reads HIDIdleTime from the IOHIDSystem registry entry.
type IdleProbe struct {
	logger *slog.Logger
}

// NewIdleProbe creates the idle probe for this platform.
func NewIdleProbe(logger *slog.Logger) *IdleProbe {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdleProbe{logger: logger}
}

func (p *IdleProbe) IdleTime() (time.Duration, error) {
	out, err := runCommand(context.Background(), "ioreg", "-c", "IOHIDSystem")
	if err != nil {
		return 0, err
	}
	idle, err := parseHIDIdleTime(out)
	if err != nil {
		return 0, fmt.Errorf("parse ioreg output: %w", err)
	}
	return idle, nil
}

func (p *IdleProbe) Close() error { return nil }
