package activity

import (
	"strings"
	"time"

	"go.olrik.dev/idlewatch/internal/metrics"
)

const (
	keyDebounceGap     = 200 * time.Millisecond
	keyRecordTTL       = 5 * time.Second
	keyLookbackWindow  = 300 * time.Millisecond
	keyLookbackRecords = 5

	// DefaultKeyHistorySize bounds the accepted key press history.
	DefaultKeyHistorySize = 1000

	keyIntakeSize = 256
)

// DefaultAllowedKeys are the only keys the global hook reacts to. They are
// single keys unlikely to interfere with typing in other applications.
var DefaultAllowedKeys = []string{"A", "E", "I", "O", "U", "C", "Backspace"}

// NormalizeKey maps a key name onto the form used by the allow-list:
// single letters upper-cased, named keys capitalized.
func NormalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if len(key) == 1 {
		return strings.ToUpper(key)
	}
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + strings.ToLower(key[1:])
}

// KeystrokeMonitor turns raw key events into credited activity. Events
// arrive from the native hook on its own goroutine and cross into the
// supervisor loop through a bounded channel; every other method runs with
// the supervisor lock held.
type KeystrokeMonitor struct {
	sup     *Supervisor
	hook    KeyHook
	allowed map[string]bool

	events chan KeyEvent

	pressed    map[string]bool
	lastPress  map[string]time.Time
	history    *RingBuffer[KeyPressRecord]
	classifier *SpamClassifier

	active     bool
	installed  bool
	hookFailed bool

	stopForward chan struct{}
	forwardDone chan struct{}
}

func newKeystrokeMonitor(sup *Supervisor, hook KeyHook, allowedKeys []string, historySize int) *KeystrokeMonitor {
	if len(allowedKeys) == 0 {
		allowedKeys = DefaultAllowedKeys
	}
	if historySize <= 0 {
		historySize = DefaultKeyHistorySize
	}

	allowed := make(map[string]bool, len(allowedKeys))
	for _, k := range allowedKeys {
		allowed[NormalizeKey(k)] = true
	}

	return &KeystrokeMonitor{
		sup:        sup,
		hook:       hook,
		allowed:    allowed,
		events:     make(chan KeyEvent, keyIntakeSize),
		pressed:    make(map[string]bool),
		lastPress:  make(map[string]time.Time),
		history:    NewRingBuffer[KeyPressRecord](historySize),
		classifier: NewSpamClassifier(),
	}
}

// Allowed reports whether key is on the allow-list.
func (k *KeystrokeMonitor) Allowed(key string) bool {
	return k.allowed[NormalizeKey(key)]
}

// available reports whether the native hook is installed.
func (k *KeystrokeMonitor) available() bool {
	return k.installed
}

// start installs the hook on first use and begins accepting events.
// A failed installation is permanent for the process lifetime.
func (k *KeystrokeMonitor) start() {
	k.active = true
	if k.installed || k.hookFailed {
		return
	}

	if k.hook == nil {
		k.hookFailed = true
		k.sup.logger.Warn("Keyboard hook not configured, keystroke activity disabled", "error", ErrHookUnavailable)
		return
	}

	raw, err := k.hook.Start()
	if err != nil {
		k.hookFailed = true
		k.sup.logger.Warn("Failed to install keyboard hook, keystroke activity disabled", "error", err)
		return
	}

	k.installed = true
	k.stopForward = make(chan struct{})
	k.forwardDone = make(chan struct{})
	go k.forward(raw, k.stopForward, k.forwardDone)

	k.sup.logger.Info("Keyboard hook installed", "keys", len(k.allowed))
}

// forward runs on its own goroutine. It filters the native stream down to
// allow-listed keys and hands them to the supervisor loop without blocking.
func (k *KeystrokeMonitor) forward(raw <-chan KeyEvent, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		case ev, ok := <-raw:
			if !ok {
				return
			}
			ev.Key = NormalizeKey(ev.Key)
			if !k.allowed[ev.Key] {
				continue
			}
			select {
			case k.events <- ev:
			default:
				metrics.KeyEventsDropped.Inc()
			}
		}
	}
}

// stop clears transient state. The hook stays installed.
func (k *KeystrokeMonitor) stop() {
	k.active = false
	clear(k.pressed)
	clear(k.lastPress)
	k.history.Clear()
	k.classifier.Reset()
}

// cleanup uninstalls the hook. It is only used at shutdown.
func (k *KeystrokeMonitor) cleanup() {
	k.stop()
	if !k.installed {
		return
	}
	k.installed = false

	close(k.stopForward)
	if err := k.hook.Stop(); err != nil {
		k.sup.logger.Warn("Failed to uninstall keyboard hook", "error", err)
	}
	<-k.forwardDone
	k.sup.logger.Debug("Keyboard hook uninstalled")
}

// handle processes one key event from the intake channel.
func (k *KeystrokeMonitor) handle(ev KeyEvent) {
	id := ev.KeyID()
	if !ev.Down {
		delete(k.pressed, id)
		return
	}

	if !k.active || !k.sup.state.tracking || k.sup.state.suspended {
		return
	}

	now := k.sup.clock.Now()
	k.purge(now)

	if reason := k.debounce(id, now); reason != "" {
		metrics.KeystrokesRejected.WithLabelValues(reason).Inc()
		return
	}

	k.pressed[id] = true
	k.lastPress[id] = now
	k.history.Push(KeyPressRecord{Key: ev.Key, Modifiers: ev.Modifiers, Time: now})

	if reason := k.classifier.classify(id, now); reason != "" {
		metrics.KeystrokesRejected.WithLabelValues(reason).Inc()
		k.sup.logger.Debug("Keystroke not credited", "key", id, "reason", reason)
		return
	}

	k.sup.recordActivityLocked(SourceKeyboard)
}

func (k *KeystrokeMonitor) debounce(id string, now time.Time) string {
	// The OS repeats key-down while a key is held.
	if k.pressed[id] {
		return rejectDuplicate
	}

	if last, ok := k.lastPress[id]; ok && now.Sub(last) < keyDebounceGap {
		return rejectDebounce
	}

	for _, rec := range k.history.Last(keyLookbackRecords) {
		if rec.keyID() == id && now.Sub(rec.Time) < keyLookbackWindow {
			return rejectLookback
		}
	}

	return ""
}

// purge drops debounce entries and history records older than keyRecordTTL.
func (k *KeystrokeMonitor) purge(now time.Time) {
	for id, t := range k.lastPress {
		if now.Sub(t) > keyRecordTTL {
			delete(k.lastPress, id)
			delete(k.pressed, id)
		}
	}
	k.history.DropWhile(func(r KeyPressRecord) bool {
		return now.Sub(r.Time) > keyRecordTTL
	})
}

// recent returns up to n of the newest accepted presses.
func (k *KeystrokeMonitor) recent(n int) []KeyPressRecord {
	return k.history.Last(n)
}
