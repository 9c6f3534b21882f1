package activity

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type fakeProbe struct {
	mu   sync.Mutex
	idle time.Duration
	err  error
}

func (p *fakeProbe) IdleTime() (time.Duration, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idle, p.err
}

func (p *fakeProbe) set(idle time.Duration, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle, p.err = idle, err
}

type fakeCursor struct {
	mu  sync.Mutex
	pos Point
	err error
}

func (c *fakeCursor) Position() (Point, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos, c.err
}

func (c *fakeCursor) moveTo(x, y float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = Point{X: x, Y: y}
	c.err = nil
}

type fakeHook struct {
	mu         sync.Mutex
	events     chan KeyEvent
	startErr   error
	startCalls int
	stopCalls  int
}

func newFakeHook() *fakeHook {
	return &fakeHook{events: make(chan KeyEvent, 16)}
}

func (h *fakeHook) Start() (<-chan KeyEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.startCalls++
	if h.startErr != nil {
		return nil, h.startErr
	}
	return h.events, nil
}

func (h *fakeHook) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopCalls++
	return nil
}

func (h *fakeHook) calls() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startCalls, h.stopCalls
}

type fakePower struct {
	events chan PowerEvent
	err    error
}

func (p *fakePower) Watch(ctx context.Context, out chan<- PowerEvent) error {
	if p.err != nil {
		return p.err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.events:
			out <- ev
		}
	}
}

type recordingSurfacer struct {
	mu      sync.Mutex
	raised  int
	onTop   []bool
	failTop bool
}

func (r *recordingSurfacer) BringToFront() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.raised++
	return nil
}

func (r *recordingSurfacer) SetAlwaysOnTop(onTop bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failTop {
		return errors.New("no window manager")
	}
	r.onTop = append(r.onTop, onTop)
	return nil
}

type testRig struct {
	sup      *Supervisor
	clock    *fakeClock
	probe    *fakeProbe
	cursor   *fakeCursor
	hook     *fakeHook
	surfacer *recordingSurfacer
}

func newTestRig(t *testing.T, configure ...func(*Options)) *testRig {
	t.Helper()

	rig := &testRig{
		clock:    newFakeClock(),
		probe:    &fakeProbe{idle: time.Second},
		cursor:   &fakeCursor{},
		hook:     newFakeHook(),
		surfacer: &recordingSurfacer{},
	}
	opts := Options{
		Logger:              quietLogger(),
		Clock:               rig.clock,
		Probe:               rig.probe,
		Cursor:              rig.cursor,
		KeyHook:             rig.hook,
		Surfacer:            rig.surfacer,
		InactivityThreshold: 30 * time.Second,
	}
	for _, fn := range configure {
		fn(&opts)
	}

	rig.sup = NewSupervisor(opts)
	t.Cleanup(rig.sup.Cleanup)
	return rig
}

// drain returns every queued notification.
func (r *testRig) drain() []Notification {
	var out []Notification
	for {
		select {
		case n := <-r.sup.Notifications():
			out = append(out, n)
		default:
			return out
		}
	}
}

func ofType(ns []Notification, typ NotificationType) []Notification {
	var out []Notification
	for _, n := range ns {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}

func (r *testRig) keyDown(key string) {
	r.sup.mu.Lock()
	defer r.sup.mu.Unlock()
	r.sup.keys.handle(KeyEvent{Key: key, Down: true})
}

func (r *testRig) keyUp(key string) {
	r.sup.mu.Lock()
	defer r.sup.mu.Unlock()
	r.sup.keys.handle(KeyEvent{Key: key, Down: false})
}

func (r *testRig) pointerTick() {
	r.sup.mu.Lock()
	defer r.sup.mu.Unlock()
	r.sup.pointer.tick()
}

func (r *testRig) lastActivityAt() time.Time {
	r.sup.mu.Lock()
	defer r.sup.mu.Unlock()
	return r.sup.state.lastActivityAt
}
