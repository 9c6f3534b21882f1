package activity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyLen(r *testRig) int {
	r.sup.mu.Lock()
	defer r.sup.mu.Unlock()
	return r.sup.keys.history.Len()
}

func TestNormalizeKey(t *testing.T) {
	tests := map[string]string{
		"a":         "A",
		"E":         "E",
		"backspace": "Backspace",
		"BACKSPACE": "Backspace",
		" c ":       "C",
		"":          "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeKey(in), "NormalizeKey(%q)", in)
	}
}

func TestKeyIDIncludesModifiers(t *testing.T) {
	plain := KeyEvent{Key: "A"}
	ctrl := KeyEvent{Key: "A", Modifiers: ModCtrl}
	ctrlShift := KeyEvent{Key: "A", Modifiers: ModCtrl | ModShift}

	assert.Equal(t, "A", plain.KeyID())
	assert.Equal(t, "ctrl+A", ctrl.KeyID())
	assert.Equal(t, "ctrl+shift+A", ctrlShift.KeyID())
}

func TestKeystrokeFirstPressCredited(t *testing.T) {
	r := newTestRig(t)
	r.sup.Start()
	r.drain()

	r.clock.Advance(10 * time.Second)
	r.keyDown("A")

	updates := ofType(r.drain(), NotifyActivityUpdate)
	require.Len(t, updates, 1)
	assert.Equal(t, SourceKeyboard, updates[0].Activity.Source)
	assert.Equal(t, r.clock.Now(), r.lastActivityAt())
}

func TestKeystrokeRepeatedKeyDownIsDuplicate(t *testing.T) {
	r := newTestRig(t)
	r.sup.Start()

	r.keyDown("A")
	r.clock.Advance(time.Second)
	r.keyDown("A") // held key auto-repeat, no key-up yet

	assert.Equal(t, 1, historyLen(r))

	r.keyUp("A")
	r.clock.Advance(time.Second)
	r.keyDown("A")
	assert.Equal(t, 2, historyLen(r))
}

func TestKeystrokeDebounceAndLookback(t *testing.T) {
	r := newTestRig(t)
	r.sup.Start()

	r.keyDown("E")
	r.keyUp("E")

	r.clock.Advance(150 * time.Millisecond)
	r.keyDown("E") // inside the 200ms gap
	r.keyUp("E")
	assert.Equal(t, 1, historyLen(r))

	r.clock.Advance(100 * time.Millisecond)
	r.keyDown("E") // 250ms: past the gap, caught by the 300ms look-back
	r.keyUp("E")
	assert.Equal(t, 1, historyLen(r))

	r.clock.Advance(100 * time.Millisecond)
	r.keyDown("E") // 350ms
	assert.Equal(t, 2, historyLen(r))
}

func TestKeystrokeModifiersAreSeparateKeys(t *testing.T) {
	r := newTestRig(t)
	r.sup.Start()

	r.keyDown("A")
	r.sup.mu.Lock()
	r.sup.keys.handle(KeyEvent{Key: "A", Modifiers: ModShift, Down: true})
	r.sup.mu.Unlock()

	assert.Equal(t, 2, historyLen(r))
}

func TestKeystrokeOldRecordsPurged(t *testing.T) {
	r := newTestRig(t)
	r.sup.Start()

	r.keyDown("A")
	r.keyUp("A")
	r.clock.Advance(6 * time.Second)
	r.keyDown("E")

	r.sup.mu.Lock()
	defer r.sup.mu.Unlock()
	assert.Equal(t, 1, r.sup.keys.history.Len())
	_, stillTracked := r.sup.keys.lastPress["A"]
	assert.False(t, stillTracked, "entries older than 5s should be purged")
}

func TestKeystrokeStuckKeyReleasedByPurge(t *testing.T) {
	r := newTestRig(t)
	r.sup.Start()

	r.keyDown("A") // key-up never arrives
	r.clock.Advance(6 * time.Second)
	r.keyDown("A")

	assert.Equal(t, 1, historyLen(r), "old record purged, new press accepted")
}

func TestKeystrokeIgnoredWhenNotTracking(t *testing.T) {
	r := newTestRig(t)

	r.keyDown("A")
	assert.Equal(t, 0, historyLen(r))

	r.sup.Start()
	r.sup.SystemSuspend()
	r.drain()
	r.keyDown("A")
	assert.Equal(t, 0, historyLen(r))
	assert.Empty(t, ofType(r.drain(), NotifyActivityUpdate))
}

func TestKeystrokeSpamNotCredited(t *testing.T) {
	r := newTestRig(t)
	r.sup.Start()
	r.drain()

	credited := 0
	for i := 0; i < 20; i++ {
		r.clock.Advance(6 * time.Second)
		r.keyDown("A")
		r.keyUp("A")
		credited += len(ofType(r.drain(), NotifyActivityUpdate))
	}

	assert.Equal(t, 4, credited, "only the presses before the pattern window fills are credited")
}

func TestKeystrokeStopClearsTransientState(t *testing.T) {
	r := newTestRig(t)
	r.sup.Start()
	r.keyDown("A")

	r.sup.Stop()

	r.sup.mu.Lock()
	assert.Equal(t, 0, r.sup.keys.history.Len())
	assert.Empty(t, r.sup.keys.pressed)
	assert.Equal(t, 0, r.sup.keys.classifier.window.Len())
	r.sup.mu.Unlock()

	_, stops := r.hook.calls()
	assert.Equal(t, 0, stops, "stop must not uninstall the hook")
}

func TestKeystrokeHookInstalledOnceAndRemovedOnCleanup(t *testing.T) {
	r := newTestRig(t)

	r.sup.Start()
	r.sup.Stop()
	r.sup.Start()

	starts, _ := r.hook.calls()
	assert.Equal(t, 1, starts)
	assert.True(t, r.sup.Snapshot().KeyboardAvailable)

	r.sup.Cleanup()
	r.sup.Cleanup()

	_, stops := r.hook.calls()
	assert.Equal(t, 1, stops)
}

func TestKeystrokeHookFailureDegrades(t *testing.T) {
	hook := newFakeHook()
	hook.startErr = errors.New("accessibility permission denied")
	r := newTestRig(t, func(o *Options) { o.KeyHook = hook })

	r.sup.Start()
	r.sup.Stop()
	r.sup.Start()

	starts, _ := hook.calls()
	assert.Equal(t, 1, starts, "failed installation is not retried")
	snap := r.sup.Snapshot()
	assert.False(t, snap.KeyboardAvailable)
	assert.True(t, snap.Tracking, "tracking continues without the hook")
}

func TestKeystrokeNoHookConfigured(t *testing.T) {
	r := newTestRig(t, func(o *Options) { o.KeyHook = nil })

	r.sup.Start()

	assert.False(t, r.sup.Snapshot().KeyboardAvailable)
	assert.True(t, r.sup.Snapshot().Tracking)
}

func TestKeystrokeForwardFiltersAllowList(t *testing.T) {
	r := newTestRig(t)
	r.sup.Start()

	r.hook.events <- KeyEvent{Key: "x", Down: true}
	r.hook.events <- KeyEvent{Key: "a", Down: true}
	r.hook.events <- KeyEvent{Key: "backspace", Down: true}

	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < 2 {
		select {
		case ev := <-r.sup.keys.events:
			got = append(got, ev.Key)
		case <-timeout:
			t.Fatalf("timed out waiting for forwarded events, got %v", got)
		}
	}
	assert.Equal(t, []string{"A", "Backspace"}, got)
}

func TestKeystrokeCustomAllowList(t *testing.T) {
	r := newTestRig(t, func(o *Options) { o.AllowedKeys = []string{"q"} })

	assert.True(t, r.sup.keys.Allowed("Q"))
	assert.False(t, r.sup.keys.Allowed("A"))
}
