package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.olrik.dev/idlewatch/internal/activity"
	"go.olrik.dev/idlewatch/internal/daemon"
)

func NewWatchCommand() *cobra.Command {
	var lines int
	var format string

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream activity notifications",
		Long: `Stream activity notifications from the daemon as they happen.

Activity updates, inactivity alerts, resets and system suspend/resume are
printed one per line. Use -F json for machine readable output.

Press Ctrl+C to exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err := daemon.StreamCommand(ctx, fmt.Sprintf("EVENTS %d", lines), func(line []byte) error {
				if format == "json" {
					fmt.Println(string(line))
					return nil
				}
				var n activity.Notification
				if err := json.Unmarshal(line, &n); err != nil {
					slog.Debug("Skipping malformed event", "error", err)
					return nil
				}
				fmt.Println(formatNotification(n))
				return nil
			})
			if errors.Is(err, daemon.ErrDaemonNotRunning) {
				slog.Error("Daemon is not running. Use 'idlewatch start' to start it.")
				return ErrReported
			}
			if err != nil {
				return err
			}
			if ctx.Err() == nil {
				fmt.Fprintln(os.Stderr, "Daemon closed the event stream.")
			}
			return nil
		},
	}
	watchCmd.Flags().IntVarP(&lines, "lines", "L", 10, "Number of past notifications to show on connect")
	watchCmd.Flags().StringVarP(&format, "format", "F", "text", "Format to use (text/json)")

	return watchCmd
}

// formatNotification renders one notification as a single line.
func formatNotification(n activity.Notification) string {
	stamp := subtleStyle.Render(n.Time.Local().Format(time.TimeOnly))

	switch n.Type {
	case activity.NotifyActivityUpdate:
		if n.Activity == nil {
			break
		}
		detail := string(n.Activity.Source)
		if n.Activity.Source == activity.SourcePointer {
			detail = fmt.Sprintf("%s at (%.0f, %.0f)", detail, n.Activity.Position.X, n.Activity.Position.Y)
		}
		return fmt.Sprintf("%s %s %s", stamp, activeStyle.Render("activity"), detail)
	case activity.NotifyInactivityAlert:
		if n.Alert == nil {
			break
		}
		idle := "unknown"
		if n.Alert.SystemIdleTimeMs != nil {
			idle = msDuration(*n.Alert.SystemIdleTimeMs).String()
		}
		return fmt.Sprintf("%s %s for %s (threshold %s, system idle %s)", stamp,
			alertStyle.Render("inactive"),
			msDuration(n.Alert.InactiveTimeMs).Round(time.Second),
			msDuration(n.Alert.ThresholdMs), idle)
	case activity.NotifyActivityReset:
		return fmt.Sprintf("%s %s", stamp, warnStyle.Render("reset"))
	case activity.NotifySystemSuspend:
		return fmt.Sprintf("%s %s", stamp, warnStyle.Render("suspended"))
	case activity.NotifySystemResume:
		return fmt.Sprintf("%s %s", stamp, activeStyle.Render("resumed"))
	}
	return fmt.Sprintf("%s %s", stamp, n.Type)
}

func msDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
