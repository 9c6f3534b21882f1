package cmd

import (
	"strings"
	"testing"
	"time"

	"go.olrik.dev/idlewatch/internal/activity"
)

func TestFormatNotification(t *testing.T) {
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	idle := int64(65000)

	tests := []struct {
		name string
		n    activity.Notification
		want []string
	}{
		{
			name: "pointer activity",
			n: activity.Notification{Type: activity.NotifyActivityUpdate, Time: at, Activity: &activity.ActivityUpdate{
				Source:   activity.SourcePointer,
				Position: activity.Point{X: 10, Y: 20},
			}},
			want: []string{"activity", "pointer at (10, 20)"},
		},
		{
			name: "keyboard activity",
			n: activity.Notification{Type: activity.NotifyActivityUpdate, Time: at, Activity: &activity.ActivityUpdate{
				Source: activity.SourceKeyboard,
			}},
			want: []string{"activity", "keyboard"},
		},
		{
			name: "alert with system idle",
			n: activity.Notification{Type: activity.NotifyInactivityAlert, Time: at, Alert: &activity.InactivityAlert{
				InactiveTimeMs:   31400,
				ThresholdMs:      30000,
				SystemIdleTimeMs: &idle,
			}},
			want: []string{"inactive for 31s", "threshold 30s", "system idle 1m5s"},
		},
		{
			name: "alert without system idle",
			n: activity.Notification{Type: activity.NotifyInactivityAlert, Time: at, Alert: &activity.InactivityAlert{
				InactiveTimeMs: 30000,
				ThresholdMs:    30000,
			}},
			want: []string{"system idle unknown"},
		},
		{
			name: "reset",
			n:    activity.Notification{Type: activity.NotifyActivityReset, Time: at},
			want: []string{"reset"},
		},
		{
			name: "suspend",
			n:    activity.Notification{Type: activity.NotifySystemSuspend, Time: at},
			want: []string{"suspended"},
		},
		{
			name: "resume",
			n:    activity.Notification{Type: activity.NotifySystemResume, Time: at},
			want: []string{"resumed"},
		},
		{
			name: "update without payload",
			n:    activity.Notification{Type: activity.NotifyActivityUpdate, Time: at},
			want: []string{"activity-update"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatNotification(tt.n)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("formatNotification() = %q, missing %q", got, want)
				}
			}
		})
	}
}
