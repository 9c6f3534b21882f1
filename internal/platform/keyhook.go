//go:build linux || darwin || windows

package platform

import (
	"errors"
	"log/slog"
	"sync"

	hook "github.com/robotn/gohook"
	"go.olrik.dev/idlewatch/internal/activity"
)

// Modifier bits reported in the native event mask.
const (
	maskShiftL = 1 << 0
	maskCtrlL  = 1 << 1
	maskMetaL  = 1 << 2
	maskAltL   = 1 << 3
	maskShiftR = 1 << 4
	maskCtrlR  = 1 << 5
	maskMetaR  = 1 << 6
	maskAltR   = 1 << 7
)

var (
	keyNamesOnce sync.Once
	keyNames     map[uint16]string
)

// keyName maps a native keycode onto its key name.
func keyName(code uint16) string {
	keyNamesOnce.Do(func() {
		keyNames = make(map[uint16]string, len(hook.Keycode))
		for name, c := range hook.Keycode {
			if prev, ok := keyNames[c]; ok && prev < name {
				continue
			}
			keyNames[c] = name
		}
	})
	return keyNames[code]
}

func modifiersFromMask(mask uint16) activity.Modifiers {
	var m activity.Modifiers
	if mask&(maskShiftL|maskShiftR) != 0 {
		m |= activity.ModShift
	}
	if mask&(maskCtrlL|maskCtrlR) != 0 {
		m |= activity.ModCtrl
	}
	if mask&(maskAltL|maskAltR) != 0 {
		m |= activity.ModAlt
	}
	if mask&(maskMetaL|maskMetaR) != 0 {
		m |= activity.ModMeta
	}
	return m
}

// translateKeyEvent converts a native event. Only physical presses and
// releases are kept; typed-character events are dropped.
func translateKeyEvent(ev hook.Event) (activity.KeyEvent, bool) {
	var down bool
	switch ev.Kind {
	case hook.KeyHold:
		down = true
	case hook.KeyUp:
		down = false
	default:
		return activity.KeyEvent{}, false
	}

	name := keyName(ev.Keycode)
	if name == "" {
		return activity.KeyEvent{}, false
	}
	return activity.KeyEvent{
		Key:       name,
		Modifiers: modifiersFromMask(ev.Mask),
		Down:      down,
	}, true
}

// KeyHook is the process-wide keyboard hook. Only one can be installed.
type KeyHook struct {
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewKeyHook creates an uninstalled key hook.
func NewKeyHook(logger *slog.Logger) *KeyHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyHook{logger: logger}
}

// Start installs the hook and returns key presses and releases.
func (h *KeyHook) Start() (<-chan activity.KeyEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return nil, errors.New("key hook already installed")
	}
	if err := displayAvailable(); err != nil {
		return nil, err
	}

	raw := hook.Start()
	out := make(chan activity.KeyEvent, 64)
	h.stop = make(chan struct{})
	h.done = make(chan struct{})
	h.running = true

	go h.translate(raw, out, h.stop, h.done)

	h.logger.Debug("Native key hook started")
	return out, nil
}

func (h *KeyHook) translate(raw chan hook.Event, out chan<- activity.KeyEvent, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer close(out)

	for {
		select {
		case <-stop:
			return
		case ev, ok := <-raw:
			if !ok {
				return
			}
			kev, keep := translateKeyEvent(ev)
			if !keep {
				continue
			}
			select {
			case out <- kev:
			default:
			}
		}
	}
}

// Stop uninstalls the hook. Calling it when not installed does nothing.
func (h *KeyHook) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return nil
	}
	h.running = false

	close(h.stop)
	<-h.done
	hook.End()

	h.logger.Debug("Native key hook stopped")
	return nil
}
