//go:build !linux && !darwin

package activity

import (
	"context"
	"log/slog"
)

type unsupportedPowerSource struct{}

// NewSystemPowerSource returns the power source for this platform.
func NewSystemPowerSource(logger *slog.Logger) PowerSource {
	return unsupportedPowerSource{}
}

func (unsupportedPowerSource) Watch(ctx context.Context, events chan<- PowerEvent) error {
	return errPowerUnsupported
}
