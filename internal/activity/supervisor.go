package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.olrik.dev/idlewatch/internal/metrics"
)

// notificationQueueSize bounds notifications awaiting the consumer.
const notificationQueueSize = 64

// Options configures a Supervisor. Nil adapters disable the matching
// signal source.
type Options struct {
	Logger   *slog.Logger
	Clock    Clock
	Probe    IdleProbe
	Cursor   CursorLocator
	KeyHook  KeyHook
	Surfacer WindowSurfacer
	Power    PowerSource

	InactivityThreshold time.Duration
	AlertMode           AlertMode
	AllowedKeys         []string
	KeyHistorySize      int
}

// activityState is owned by the Supervisor and only mutated with mu held.
type activityState struct {
	lastActivityAt      time.Time
	tracking            bool
	paused              bool
	suspended           bool
	pointerPosition     Point
	inactivityThreshold time.Duration
	systemIdleThreshold time.Duration
}

// Supervisor owns the activity state and its timers.
//
// Timer callbacks and key events are processed by Run on a single
// goroutine. Commands from other goroutines take the same lock, so no two
// callbacks ever interleave. Notifications are queued on a bounded channel
// and never delivered synchronously.
type Supervisor struct {
	mu     sync.Mutex
	logger *slog.Logger
	clock  Clock
	probe  IdleProbe

	state     activityState
	sessionID string
	alertMode AlertMode
	alerted   bool

	inactivityTicker *time.Ticker
	systemIdleTicker *time.Ticker

	pointer *PointerMonitor
	keys    *KeystrokeMonitor
	power   *SuspendResumeController

	surfacer   WindowSurfacer
	onTopMu    sync.Mutex
	onTopTimer *time.Timer

	rearm         chan struct{}
	notifications chan Notification
	cleanupOnce   sync.Once
}

// NewSupervisor creates a stopped supervisor and subscribes to power
// events. Call Cleanup to release the subscription and the key hook.
func NewSupervisor(opts Options) *Supervisor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = systemClock{}
	}
	probe := opts.Probe
	if probe == nil {
		probe = unavailableProbe{}
	}
	surfacer := opts.Surfacer
	if surfacer == nil {
		surfacer = NopSurfacer{}
	}
	threshold := opts.InactivityThreshold
	if threshold <= 0 || threshold > MaxInactivityThreshold {
		threshold = DefaultInactivityThreshold
	}
	mode := opts.AlertMode
	if mode == "" {
		mode = AlertLevel
	}

	s := &Supervisor{
		logger:    logger,
		clock:     clock,
		probe:     probe,
		surfacer:  surfacer,
		alertMode: mode,
		state: activityState{
			lastActivityAt:      clock.Now(),
			inactivityThreshold: threshold,
			systemIdleThreshold: SystemIdleThreshold(threshold),
		},
		rearm:         make(chan struct{}, 1),
		notifications: make(chan Notification, notificationQueueSize),
	}
	s.pointer = newPointerMonitor(s, opts.Cursor)
	s.keys = newKeystrokeMonitor(s, opts.KeyHook, opts.AllowedKeys, opts.KeyHistorySize)
	s.power = NewSuspendResumeController(opts.Power, logger, s.SystemSuspend, s.SystemResume)
	s.power.Subscribe()

	return s
}

// Notifications returns the outward notification stream.
func (s *Supervisor) Notifications() <-chan Notification {
	return s.notifications
}

// Run processes timer ticks and key events until ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) {
	for {
		s.mu.Lock()
		inactivityC := tickerC(s.inactivityTicker)
		systemIdleC := tickerC(s.systemIdleTicker)
		pointerC := s.pointer.tickC()
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-s.rearm:
		case <-inactivityC:
			s.checkInactivity()
		case <-systemIdleC:
			s.checkSystemIdle()
		case <-pointerC:
			s.mu.Lock()
			s.pointer.tick()
			s.mu.Unlock()
		case ev := <-s.keys.events:
			s.mu.Lock()
			s.keys.handle(ev)
			s.mu.Unlock()
		}
	}
}

func tickerC(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

// wake makes Run pick up changed timers.
func (s *Supervisor) wake() {
	select {
	case s.rearm <- struct{}{}:
	default:
	}
}

// Start begins tracking. Calling it while tracking does nothing.
func (s *Supervisor) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.tracking {
		return
	}

	now := s.clock.Now()
	s.sessionID = uuid.NewString()
	s.state.tracking = true
	s.state.paused = false
	s.state.suspended = false
	s.state.lastActivityAt = now
	s.alerted = false
	metrics.Suspended.Set(0)

	s.armChecksLocked()
	s.pointer.startPolling()
	s.keys.start()

	s.logger.Info("Activity tracking started",
		"session", s.sessionID,
		"threshold", s.state.inactivityThreshold,
		"alert_mode", string(s.alertMode))
	s.emitResetLocked(now)
}

// Stop ends tracking, keeping the last activity timestamp.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.tracking && !s.state.paused {
		return
	}

	s.state.tracking = false
	s.state.paused = false
	s.disarmChecksLocked()
	s.pointer.stopPolling()
	s.keys.stop()

	s.logger.Info("Activity tracking stopped", "session", s.sessionID)
}

// Pause suspends evaluation while keeping configuration.
func (s *Supervisor) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.tracking {
		return ErrNotTracking
	}

	s.state.tracking = false
	s.state.paused = true
	s.disarmChecksLocked()
	s.pointer.stopPolling()

	s.logger.Info("Activity tracking paused", "session", s.sessionID)
	return nil
}

// Resume continues a paused session and resets the activity timestamp.
// While suspended, pointer polling restarts on the OS resume instead.
func (s *Supervisor) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.paused {
		return ErrNotPaused
	}

	now := s.clock.Now()
	s.state.tracking = true
	s.state.paused = false
	s.state.lastActivityAt = now
	s.alerted = false

	s.armChecksLocked()
	s.pointer.startPolling()

	s.logger.Info("Activity tracking resumed", "session", s.sessionID, "suspended", s.state.suspended)
	s.emitResetLocked(now)
	return nil
}

// Reset sets the last activity timestamp to now and confirms it with an
// activity-reset notification.
func (s *Supervisor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	s.state.lastActivityAt = now
	s.alerted = false

	s.logger.Debug("Activity timestamp reset", "session", s.sessionID)
	s.emitResetLocked(now)
}

// RecordActivity credits activity from src. It is ignored while suspended.
func (s *Supervisor) RecordActivity(src Source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recordActivityLocked(src)
}

func (s *Supervisor) recordActivityLocked(src Source) bool {
	if s.state.suspended {
		return false
	}

	now := s.clock.Now()
	if now.After(s.state.lastActivityAt) {
		s.state.lastActivityAt = now
	}
	s.alerted = false
	metrics.ActivityCredited.WithLabelValues(string(src)).Inc()

	s.emit(Notification{
		Type:      NotifyActivityUpdate,
		Time:      now,
		SessionID: s.sessionID,
		Activity: &ActivityUpdate{
			Timestamp:       s.state.lastActivityAt,
			Position:        s.state.pointerPosition,
			SystemSuspended: s.state.suspended,
			Source:          src,
		},
	})
	return true
}

// SetInactivityThreshold changes the alert threshold and recomputes the
// system idle threshold.
func (s *Supervisor) SetInactivityThreshold(d time.Duration) error {
	if d <= 0 || d > MaxInactivityThreshold {
		return ErrInvalidThreshold
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.inactivityThreshold = d
	s.state.systemIdleThreshold = SystemIdleThreshold(d)
	s.alerted = false

	s.logger.Info("Inactivity threshold updated",
		"threshold", d,
		"system_idle_threshold", s.state.systemIdleThreshold)
	return nil
}

// SetAlertMode switches between level and edge triggered alerts.
func (s *Supervisor) SetAlertMode(mode AlertMode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == "" {
		mode = AlertLevel
	}
	if s.alertMode == mode {
		return
	}
	s.alertMode = mode
	s.alerted = false
	s.logger.Info("Alert mode updated", "alert_mode", string(mode))
}

// Snapshot returns a copy of the current state with the live OS idle time.
func (s *Supervisor) Snapshot() Snapshot {
	idle, err := s.probe.IdleTime()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	return Snapshot{
		SessionID:             s.sessionID,
		LastActivityAt:        s.state.lastActivityAt,
		Tracking:              s.state.tracking,
		Paused:                s.state.paused,
		Suspended:             s.state.suspended,
		PointerPosition:       s.state.pointerPosition,
		PointerPolling:        s.pointer.polling(),
		InactivityThresholdMs: millis(s.state.inactivityThreshold),
		SystemIdleThresholdMs: millis(s.state.systemIdleThreshold),
		SystemIdleTimeMs:      optionalMillis(idle, err == nil),
		InactiveMs:            millis(max(now.Sub(s.state.lastActivityAt), 0)),
		AlertMode:             s.alertMode,
		KeyboardAvailable:     s.keys.available(),
		RecentKeys:            s.keys.recent(20),
	}
}

// SystemSuspend marks the session suspended or locked.
func (s *Supervisor) SystemSuspend() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.suspended {
		return
	}
	s.state.suspended = true
	s.pointer.stopPolling()
	metrics.Suspended.Set(1)

	s.logger.Info("Session suspended, ignoring activity signals")
	s.emit(Notification{Type: NotifySystemSuspend, Time: s.clock.Now(), SessionID: s.sessionID})
}

// SystemResume clears the suspended state. The activity timestamp is reset
// so no alert fires before real input arrives.
func (s *Supervisor) SystemResume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.suspended {
		return
	}

	now := s.clock.Now()
	s.state.suspended = false
	s.state.lastActivityAt = now
	s.alerted = false
	metrics.Suspended.Set(0)

	if s.state.tracking {
		s.pointer.startPolling()
		s.recordActivityLocked(SourceResume)
	}

	s.logger.Info("Session resumed", "tracking", s.state.tracking)
	s.emit(Notification{Type: NotifySystemResume, Time: now, SessionID: s.sessionID})
}

// checkInactivity runs every second while tracking.
func (s *Supervisor) checkInactivity() {
	s.mu.Lock()
	if !s.state.tracking || s.state.suspended {
		s.mu.Unlock()
		return
	}

	now := s.clock.Now()
	elapsed := now.Sub(s.state.lastActivityAt)
	threshold := s.state.inactivityThreshold
	metrics.InactiveSeconds.Set(elapsed.Seconds())

	if elapsed < threshold || (s.alertMode == AlertEdge && s.alerted) {
		s.mu.Unlock()
		return
	}
	s.alerted = true
	sessionID := s.sessionID
	s.mu.Unlock()

	idle, err := s.probe.IdleTime()
	s.emit(Notification{
		Type:      NotifyInactivityAlert,
		Time:      now,
		SessionID: sessionID,
		Alert: &InactivityAlert{
			InactiveTimeMs:   millis(elapsed),
			ThresholdMs:      millis(threshold),
			SystemIdleTimeMs: optionalMillis(idle, err == nil),
		},
	})
	metrics.InactivityAlerts.Inc()
	s.logger.Debug("Inactivity alert", "inactive", elapsed.Round(time.Second), "threshold", threshold)

	s.surface()
}

// checkSystemIdle runs every second while tracking. OS idle beyond the
// system threshold pauses pointer polling; returning from it resumes
// polling and counts as activity.
func (s *Supervisor) checkSystemIdle() {
	s.mu.Lock()
	active := s.state.tracking && !s.state.suspended
	s.mu.Unlock()
	if !active {
		return
	}

	idle, err := s.probe.IdleTime()
	if err != nil {
		return
	}
	metrics.SystemIdleSeconds.Set(idle.Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.tracking || s.state.suspended || !s.pointer.enabled() {
		return
	}

	if idle > s.state.systemIdleThreshold {
		if s.pointer.polling() {
			s.pointer.stopPolling()
			s.logger.Debug("System idle, pointer polling paused", "idle", idle.Round(time.Second))
		}
		return
	}

	if !s.pointer.polling() {
		s.pointer.startPolling()
		s.logger.Debug("System active again, pointer polling resumed")
		s.recordActivityLocked(SourceSystem)
	}
}

// surface raises the host window and keeps it on top for a few seconds.
func (s *Supervisor) surface() {
	if err := s.surfacer.BringToFront(); err != nil {
		s.logger.Debug("Failed to bring window to front", "error", err)
	}
	if err := s.surfacer.SetAlwaysOnTop(true); err != nil {
		s.logger.Debug("Failed to set window always on top", "error", err)
		return
	}

	s.onTopMu.Lock()
	defer s.onTopMu.Unlock()
	if s.onTopTimer != nil {
		s.onTopTimer.Reset(alwaysOnTopDuration)
		return
	}
	s.onTopTimer = time.AfterFunc(alwaysOnTopDuration, func() {
		if err := s.surfacer.SetAlwaysOnTop(false); err != nil {
			s.logger.Debug("Failed to clear always on top", "error", err)
		}
	})
}

func (s *Supervisor) armChecksLocked() {
	if s.inactivityTicker == nil {
		s.inactivityTicker = time.NewTicker(inactivityCheckInterval)
	}
	if s.systemIdleTicker == nil {
		s.systemIdleTicker = time.NewTicker(systemIdleCheckInterval)
	}
	s.wake()
}

func (s *Supervisor) disarmChecksLocked() {
	if s.inactivityTicker != nil {
		s.inactivityTicker.Stop()
		s.inactivityTicker = nil
	}
	if s.systemIdleTicker != nil {
		s.systemIdleTicker.Stop()
		s.systemIdleTicker = nil
	}
	s.wake()
}

func (s *Supervisor) emitResetLocked(now time.Time) {
	s.emit(Notification{
		Type:      NotifyActivityReset,
		Time:      now,
		SessionID: s.sessionID,
		Reset:     &ActivityReset{Timestamp: s.state.lastActivityAt},
	})
}

// emit queues a notification without blocking. A full queue drops it.
func (s *Supervisor) emit(n Notification) {
	select {
	case s.notifications <- n:
	default:
		metrics.NotificationsDropped.Inc()
		s.logger.Warn("Notification queue full, dropping notification", "type", string(n.Type))
	}
}

// Cleanup stops tracking, uninstalls the key hook and releases the power
// subscription. It is safe to call more than once.
func (s *Supervisor) Cleanup() {
	s.cleanupOnce.Do(func() {
		s.Stop()

		s.mu.Lock()
		s.keys.cleanup()
		s.mu.Unlock()

		s.power.Unsubscribe()

		s.onTopMu.Lock()
		if s.onTopTimer != nil {
			s.onTopTimer.Stop()
		}
		s.onTopMu.Unlock()

		s.logger.Debug("Activity supervisor cleaned up")
	})
}
