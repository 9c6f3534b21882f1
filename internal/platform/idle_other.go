//go:build !linux && !darwin && !windows

package platform

import (
	"log/slog"
	"time"
)

// IdleProbe is a stub for platforms without an idle time source.
type IdleProbe struct{}

func NewIdleProbe(*slog.Logger) *IdleProbe { return &IdleProbe{} }

func (p *IdleProbe) IdleTime() (time.Duration, error) { return 0, ErrUnsupported }

func (p *IdleProbe) Close() error { return nil }
