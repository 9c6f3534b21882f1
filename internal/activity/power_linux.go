package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/godbus/dbus/v5"
)

const (
	logindService    = "org.freedesktop.login1"
	logindPath       = "/org/freedesktop/login1"
	logindManager    = "org.freedesktop.login1.Manager"
	logindSession    = "org.freedesktop.login1.Session"
	screenSaverIface = "org.freedesktop.ScreenSaver"
)

var errSystemBusClosed = errors.New("D-Bus system bus connection closed")

// logindPowerSource listens to logind sleep and session lock signals on the
// system bus, plus screensaver activation on the session bus when present.
type logindPowerSource struct {
	logger *slog.Logger
}

// NewSystemPowerSource returns the power source for this platform.
func NewSystemPowerSource(logger *slog.Logger) PowerSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &logindPowerSource{logger: logger}
}

func (s *logindPowerSource) Watch(ctx context.Context, events chan<- PowerEvent) error {
	sys, err := dbus.ConnectSystemBus()
	if err != nil {
		if os.Getenv("DBUS_SYSTEM_BUS_ADDRESS") == "" {
			s.logger.Debug("D-Bus system bus unavailable, power monitor disabled")
		}
		return fmt.Errorf("connect system bus: %w", err)
	}
	defer sys.Close()

	if err := sys.AddMatchSignal(
		dbus.WithMatchObjectPath(logindPath),
		dbus.WithMatchInterface(logindManager),
		dbus.WithMatchMember("PrepareForSleep"),
	); err != nil {
		return fmt.Errorf("subscribe to PrepareForSleep: %w", err)
	}

	session := s.sessionPath(sys)
	for _, member := range []string{"Lock", "Unlock"} {
		opts := []dbus.MatchOption{
			dbus.WithMatchInterface(logindSession),
			dbus.WithMatchMember(member),
		}
		if session != "" {
			opts = append(opts, dbus.WithMatchObjectPath(session))
		}
		if err := sys.AddMatchSignal(opts...); err != nil {
			s.logger.Warn("Failed to subscribe to session signal", "member", member, "error", err)
		}
	}

	signals := make(chan *dbus.Signal, 16)
	sys.Signal(signals)
	defer sys.RemoveSignal(signals)

	var screenSaver chan *dbus.Signal
	if sess, err := dbus.ConnectSessionBus(); err != nil {
		s.logger.Debug("D-Bus session bus unavailable, screensaver events disabled", "error", err)
	} else {
		defer sess.Close()
		if err := sess.AddMatchSignal(
			dbus.WithMatchInterface(screenSaverIface),
			dbus.WithMatchMember("ActiveChanged"),
		); err != nil {
			s.logger.Debug("Failed to subscribe to screensaver signal", "error", err)
		} else {
			screenSaver = make(chan *dbus.Signal, 8)
			sess.Signal(screenSaver)
			defer sess.RemoveSignal(screenSaver)
		}
	}

	s.logger.Info("Power monitor started (D-Bus logind)", "session", string(session))

	for {
		var sig *dbus.Signal
		var ok bool
		select {
		case <-ctx.Done():
			s.logger.Debug("Power monitor stopped")
			return ctx.Err()
		case sig, ok = <-signals:
			if !ok {
				return errSystemBusClosed
			}
		case sig, ok = <-screenSaver:
			if !ok {
				s.logger.Warn("D-Bus session bus closed, screensaver events disabled")
				screenSaver = nil
				continue
			}
		}
		if sig == nil {
			continue
		}

		ev, ok := translateSignal(sig, session)
		if !ok {
			continue
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// sessionPath resolves the logind session of this process so lock signals
// from other sessions are ignored. Empty means any session.
func (s *logindPowerSource) sessionPath(conn *dbus.Conn) dbus.ObjectPath {
	obj := conn.Object(logindService, logindPath)

	var path dbus.ObjectPath
	err := obj.Call(logindManager+".GetSessionByPID", 0, uint32(os.Getpid())).Store(&path)
	if err == nil {
		return path
	}

	if id := os.Getenv("XDG_SESSION_ID"); id != "" {
		if err := obj.Call(logindManager+".GetSession", 0, id).Store(&path); err == nil {
			return path
		}
	}

	s.logger.Debug("Could not resolve logind session, accepting lock signals from any session", "error", err)
	return ""
}

// translateSignal maps a D-Bus signal onto a power event.
func translateSignal(sig *dbus.Signal, session dbus.ObjectPath) (PowerEvent, bool) {
	switch sig.Name {
	case logindManager + ".PrepareForSleep":
		entering, ok := firstBool(sig.Body)
		if !ok {
			return 0, false
		}
		if entering {
			return PowerSuspend, true
		}
		return PowerResume, true

	case logindSession + ".Lock", logindSession + ".Unlock":
		if session != "" && sig.Path != session {
			return 0, false
		}
		if sig.Name == logindSession+".Lock" {
			return PowerLockScreen, true
		}
		return PowerUnlockScreen, true

	case screenSaverIface + ".ActiveChanged":
		active, ok := firstBool(sig.Body)
		if !ok {
			return 0, false
		}
		if active {
			return PowerLockScreen, true
		}
		return PowerUnlockScreen, true
	}
	return 0, false
}

func firstBool(body []interface{}) (bool, bool) {
	if len(body) < 1 {
		return false, false
	}
	v, ok := body[0].(bool)
	return v, ok
}
