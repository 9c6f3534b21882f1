package activity

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// PowerEvent is an OS session power notification.
type PowerEvent int

const (
	PowerSuspend PowerEvent = iota + 1
	PowerResume
	PowerLockScreen
	PowerUnlockScreen
)

func (e PowerEvent) String() string {
	switch e {
	case PowerSuspend:
		return "suspend"
	case PowerResume:
		return "resume"
	case PowerLockScreen:
		return "lock-screen"
	case PowerUnlockScreen:
		return "unlock-screen"
	default:
		return "unknown"
	}
}

// PowerSource delivers OS power events. Watch blocks until ctx is done or
// the subscription fails, and never closes events.
type PowerSource interface {
	Watch(ctx context.Context, events chan<- PowerEvent) error
}

// errPowerUnsupported is returned by platforms without power notifications.
var errPowerUnsupported = errors.New("power notifications not supported on this platform")

// SuspendResumeController subscribes to OS power events and drives the
// suspended state. Lock is treated as suspend and unlock as resume.
type SuspendResumeController struct {
	source    PowerSource
	logger    *slog.Logger
	onSuspend func()
	onResume  func()

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSuspendResumeController creates a controller calling onSuspend and
// onResume for the mapped events.
func NewSuspendResumeController(source PowerSource, logger *slog.Logger, onSuspend, onResume func()) *SuspendResumeController {
	if logger == nil {
		logger = slog.Default()
	}
	return &SuspendResumeController{
		source:    source,
		logger:    logger,
		onSuspend: onSuspend,
		onResume:  onResume,
	}
}

// Subscribe starts listening. Calling it while subscribed does nothing.
// Subscription failures are logged; the engine keeps running without
// suspend awareness.
func (c *SuspendResumeController) Subscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil || c.source == nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan PowerEvent, 8)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done

	go func() {
		err := c.source.Watch(ctx, events)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.logger.Warn("Power event subscription failed, continuing without suspend awareness", "error", err)
		}
	}()

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				c.dispatch(ev)
			}
		}
	}()
}

// Unsubscribe stops listening. It is safe to call more than once.
func (c *SuspendResumeController) Unsubscribe() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.logger.Debug("Power event subscription released")
}

func (c *SuspendResumeController) dispatch(ev PowerEvent) {
	c.logger.Debug("Power event received", "event", ev.String())

	switch ev {
	case PowerSuspend, PowerLockScreen:
		if c.onSuspend != nil {
			c.onSuspend()
		}
	case PowerResume, PowerUnlockScreen:
		if c.onResume != nil {
			c.onResume()
		}
	}
}
