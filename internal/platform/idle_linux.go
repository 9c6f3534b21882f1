package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mutterIdleService = "org.gnome.Mutter.IdleMonitor"
	mutterIdlePath    = "/org/gnome/Mutter/IdleMonitor/Core"
	screenSaverName   = "org.freedesktop.ScreenSaver"
	screenSaverPath   = "/org/freedesktop/ScreenSaver"
)

type idleSource struct {
	name  string
	query func() (time.Duration, error)
}

// IdleProbe reads the session idle time from the compositor over D-Bus,
// falling back to xprintidle on plain X11.
type IdleProbe struct {
	logger *slog.Logger

	mu        sync.Mutex
	conn      *dbus.Conn
	sources   []idleSource
	preferred int
	failing   bool
}

// NewIdleProbe creates the idle probe for this platform.
func NewIdleProbe(logger *slog.Logger) *IdleProbe {
	if logger == nil {
		logger = slog.Default()
	}
	p := &IdleProbe{logger: logger}
	p.sources = []idleSource{
		{name: "mutter", query: p.mutterIdle},
		{name: "screensaver", query: p.screenSaverIdle},
		{name: "xprintidle", query: xprintidle},
	}
	return p
}

// IdleTime returns how long the session has seen no input. The first source
// that answers is remembered and tried first next time.
func (p *IdleProbe) IdleTime() (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for i := range p.sources {
		idx := (p.preferred + i) % len(p.sources)
		src := p.sources[idx]

		idle, err := src.query()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.name, err))
			continue
		}
		if idx != p.preferred || p.failing {
			p.logger.Debug("Idle time source selected", "source", src.name)
		}
		p.preferred = idx
		p.failing = false
		return idle, nil
	}

	if !p.failing {
		p.logger.Warn("System idle time unavailable", "error", errors.Join(errs...))
		p.failing = true
	}
	return 0, errors.Join(errs...)
}

// Close releases the session bus connection.
func (p *IdleProbe) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn = nil
	return err
}

func (p *IdleProbe) sessionBus() (*dbus.Conn, error) {
	if p.conn != nil && p.conn.Connected() {
		return p.conn, nil
	}
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	p.conn = conn
	return conn, nil
}

func (p *IdleProbe) mutterIdle() (time.Duration, error) {
	conn, err := p.sessionBus()
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var ms uint64
	err = conn.Object(mutterIdleService, mutterIdlePath).
		CallWithContext(ctx, mutterIdleService+".GetIdletime", 0).
		Store(&ms)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// screenSaverIdle asks the freedesktop screensaver service. KDE reports
// the value in milliseconds.
func (p *IdleProbe) screenSaverIdle() (time.Duration, error) {
	conn, err := p.sessionBus()
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var ms uint32
	err = conn.Object(screenSaverName, screenSaverPath).
		CallWithContext(ctx, screenSaverName+".GetSessionIdleTime", 0).
		Store(&ms)
	if err != nil {
		return 0, err
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func xprintidle() (time.Duration, error) {
	out, err := runCommand(context.Background(), "xprintidle")
	if err != nil {
		return 0, err
	}
	return parseMillis(out)
}
