// Package metrics provides Prometheus collectors for the activity engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ActivityCredited counts activity credited to the supervisor, by source.
var ActivityCredited = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "idlewatch",
	Name:      "activity_total",
	Help:      "Total activity signals credited, by source.",
}, []string{"source"})

// KeystrokesRejected counts key presses that did not count as activity.
var KeystrokesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "idlewatch",
	Name:      "keystrokes_rejected_total",
	Help:      "Key presses rejected by debounce or the spam classifier.",
}, []string{"reason"})

// InactivityAlerts counts emitted inactivity alerts.
var InactivityAlerts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "idlewatch",
	Name:      "inactivity_alerts_total",
	Help:      "Total inactivity alerts emitted.",
})

// InactiveSeconds is the time since the last credited activity.
var InactiveSeconds = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "idlewatch",
	Name:      "inactive_seconds",
	Help:      "Seconds since the last credited activity.",
})

// SystemIdleSeconds is the last OS reported idle time.
var SystemIdleSeconds = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "idlewatch",
	Name:      "system_idle_seconds",
	Help:      "Last idle time reported by the operating system.",
})

// Suspended is 1 while the session is suspended or locked.
var Suspended = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "idlewatch",
	Name:      "suspended",
	Help:      "1 while the session is suspended or locked.",
})

// NotificationsDropped counts notifications lost to a full queue.
var NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "idlewatch",
	Name:      "notifications_dropped_total",
	Help:      "Notifications dropped because the consumer queue was full.",
})

// KeyEventsDropped counts hook events lost to a full intake channel.
var KeyEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "idlewatch",
	Name:      "key_events_dropped_total",
	Help:      "Key hook events dropped because the intake channel was full.",
})
