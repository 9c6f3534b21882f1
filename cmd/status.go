package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.olrik.dev/idlewatch/internal/activity"
	"go.olrik.dev/idlewatch/internal/core"
	"go.olrik.dev/idlewatch/internal/daemon"
	"gopkg.in/yaml.v3"
)

func NewStatusCommand() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"st"},
		Short:   "Show the tracker state",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			response, err := daemon.SendCommand("STATUS")
			if errors.Is(err, daemon.ErrDaemonNotRunning) {
				slog.Warn("Daemon is not running. Use 'idlewatch start' to start it.")
				return nil
			}
			if err != nil {
				return err
			}

			format, _ := cmd.Flags().GetString("format")
			switch format {
			case "text":
				var status daemon.DaemonStatus
				if err := response.DecodeData(&status); err != nil {
					return fmt.Errorf("unexpected status reply: %w", err)
				}
				fmt.Print(formatStatus(status, time.Now()))
			case "json":
				fmt.Println(string(response.Data))
			case "yaml":
				out, err := jsonToYAML(response.Data)
				if err != nil {
					return err
				}
				fmt.Print(string(out))
			default:
				return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
			}
			return nil
		},
	}
	statusCmd.Flags().StringP("format", "F", "text", "Format to use (text/json/yaml)")

	return statusCmd
}

// trackingState names the most specific state of the tracker.
func trackingState(snap activity.Snapshot) string {
	switch {
	case snap.Suspended:
		return "suspended"
	case snap.Paused:
		return "paused"
	case snap.Tracking:
		return "tracking"
	default:
		return "stopped"
	}
}

func formatStatus(status daemon.DaemonStatus, now time.Time) string {
	snap := status.Activity
	var b strings.Builder

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("Daemon", fmt.Sprintf("pid %d, %s, up %s", status.Pid, core.FormatVersion(status.Version), status.Uptime))

	state := trackingState(snap)
	switch state {
	case "tracking":
		row("State", activeStyle.Render(state))
	case "stopped":
		row("State", subtleStyle.Render(state))
	default:
		row("State", warnStyle.Render(state))
	}

	if snap.SessionID != "" {
		row("Session", subtleStyle.Render(snap.SessionID))
	}

	if !snap.LastActivityAt.IsZero() {
		ago := now.Sub(snap.LastActivityAt).Round(time.Second)
		value := fmt.Sprintf("%s ago (%s)", ago, snap.LastActivityAt.Local().Format(time.TimeOnly))
		if snap.Tracking && !snap.Paused && time.Duration(snap.InactiveMs)*time.Millisecond >= snap.InactivityThreshold() {
			value = alertStyle.Render(value + " inactive")
		}
		row("Last activity", value)
	}

	systemIdleThreshold := time.Duration(snap.SystemIdleThresholdMs) * time.Millisecond
	row("Threshold", fmt.Sprintf("%s %s", snap.InactivityThreshold(),
		subtleStyle.Render(fmt.Sprintf("(system idle after %s)", systemIdleThreshold))))

	if idle, ok := snap.SystemIdleTime(); ok {
		row("System idle", idle.Round(time.Second).String())
	} else {
		row("System idle", subtleStyle.Render("unknown"))
	}

	row("Alert mode", string(snap.AlertMode))

	if snap.PointerPolling {
		row("Pointer", fmt.Sprintf("polling at (%.0f, %.0f)", snap.PointerPosition.X, snap.PointerPosition.Y))
	} else {
		row("Pointer", subtleStyle.Render("idle"))
	}

	if snap.KeyboardAvailable {
		row("Keyboard", fmt.Sprintf("hooked, %d recent keys", len(snap.RecentKeys)))
	} else {
		row("Keyboard", subtleStyle.Render("unavailable"))
	}

	if status.HTTP != "" {
		row("HTTP", status.HTTP)
	}

	return b.String()
}

// jsonToYAML re-encodes a JSON document as YAML, keeping the JSON keys.
func jsonToYAML(data json.RawMessage) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return yaml.Marshal(v)
}
