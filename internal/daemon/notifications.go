package daemon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"

	"go.olrik.dev/idlewatch/internal/activity"
)

// NotificationBroadcaster republishes engine notifications to socket and
// HTTP subscribers.
type NotificationBroadcaster struct {
	*Broadcaster[activity.Notification]
	logger *slog.Logger
}

// NewNotificationBroadcaster keeps historySize notifications for replay.
func NewNotificationBroadcaster(historySize int, logger *slog.Logger) *NotificationBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationBroadcaster{
		Broadcaster: NewBroadcaster[activity.Notification](historySize),
		logger:      logger,
	}
}

// Pump drains the engine's notification queue until ctx is done or the
// queue is closed.
func (nb *NotificationBroadcaster) Pump(ctx context.Context, in <-chan activity.Notification) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-in:
			if !ok {
				return
			}
			nb.deliver(n)
		}
	}
}

// deliver hands one notification to subscribers. A panic while delivering
// is logged and swallowed so the pump keeps running.
func (nb *NotificationBroadcaster) deliver(n activity.Notification) {
	defer func() {
		if r := recover(); r != nil {
			nb.logger.Error("Notification delivery panicked", "type", string(n.Type), "panic", r)
		}
	}()

	if n.Type == activity.NotifyInactivityAlert {
		nb.logger.Info("User inactive",
			"inactive_ms", n.Alert.InactiveTimeMs,
			"threshold_ms", n.Alert.ThresholdMs)
	}
	nb.Broadcast(n)
}

// handleEvents streams notifications to the client as JSON lines until
// they disconnect.
func (d *Daemon) handleEvents(conn net.Conn, historyLines int) {
	defer conn.Close()

	ch, history := d.events.SubscribeWithHistory(historyLines)
	defer d.events.Unsubscribe(ch)

	enc := json.NewEncoder(conn)
	for _, n := range history {
		if err := enc.Encode(n); err != nil {
			return
		}
	}

	done := clientGone(conn)
	for {
		select {
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := enc.Encode(n); err != nil {
				slog.Debug("Event client disconnected", "error", err)
				return
			}
		case <-done:
			return
		case <-d.ctx.Done():
			return
		}
	}
}
