package activity

import "time"

// NotificationType names an outward event.
type NotificationType string

const (
	NotifyActivityUpdate  NotificationType = "activity-update"
	NotifyInactivityAlert NotificationType = "inactivity-alert"
	NotifyActivityReset   NotificationType = "activity-reset"
	NotifySystemSuspend   NotificationType = "system-suspend"
	NotifySystemResume    NotificationType = "system-resume"
)

// Notification is a point-in-time event for the presentation layer.
// Exactly one payload is set for update, alert and reset notifications;
// suspend and resume carry none.
type Notification struct {
	Type      NotificationType `json:"type"`
	Time      time.Time        `json:"time"`
	SessionID string           `json:"session_id,omitempty"`
	Activity  *ActivityUpdate  `json:"activity,omitempty"`
	Alert     *InactivityAlert `json:"alert,omitempty"`
	Reset     *ActivityReset   `json:"reset,omitempty"`
}

// ActivityUpdate is sent whenever activity is recorded.
type ActivityUpdate struct {
	Timestamp       time.Time `json:"timestamp"`
	Position        Point     `json:"position"`
	SystemSuspended bool      `json:"system_suspended"`
	Source          Source    `json:"source"`
}

// InactivityAlert is sent while the user has been inactive past the threshold.
type InactivityAlert struct {
	InactiveTimeMs   int64  `json:"inactive_time_ms"`
	ThresholdMs      int64  `json:"threshold_ms"`
	SystemIdleTimeMs *int64 `json:"system_idle_time_ms"`
}

// ActivityReset confirms an explicit reset of the activity timestamp.
type ActivityReset struct {
	Timestamp time.Time `json:"timestamp"`
}

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}

func optionalMillis(d time.Duration, ok bool) *int64 {
	if !ok {
		return nil
	}
	ms := d.Milliseconds()
	return &ms
}
