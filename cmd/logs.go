package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.olrik.dev/idlewatch/internal/daemon"
)

func NewLogsCommand() *cobra.Command {
	var lines int

	logsCmd := &cobra.Command{
		Use:     "logs",
		Aliases: []string{"log"},
		Short:   "Stream daemon logs in real-time",
		Long: `Stream daemon logs in real-time.

Press Ctrl+C to exit. By default, only shows INFO level and above.

Filter categories:
  keyboard - Key hook and keystroke classification
  pointer  - Pointer polling
  power    - Sleep, wake, lock and unlock
  alert    - Inactivity alerts and window surfacing
  config   - Configuration reloads

Examples:
  idlewatch logs              # Stream INFO and above
  idlewatch logs -d           # Include DEBUG logs
  idlewatch logs -F power     # Filter to power events
  idlewatch logs -F threshold # Filter by keyword
  idlewatch logs -L 50        # Show 50 history lines on connect

Automatically reconnects if the daemon is restarted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			filter, _ := cmd.Flags().GetString("filter")
			noColor, _ := cmd.Flags().GetBool("no-color")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			printLine := func(raw []byte) error {
				line := string(raw)
				if !debug && isDebugLog(line) {
					return nil
				}
				if filter != "" && !strings.HasPrefix(line, "Connected to idlewatch") && !matchesFilter(line, filter) {
					return nil
				}
				if noColor {
					line = stripANSI(line)
				}
				fmt.Println(line)
				return nil
			}

			command := fmt.Sprintf("LOGS %d", lines)
			reconnect := false
			for {
				err := daemon.StreamCommand(ctx, command, printLine)
				if errors.Is(err, daemon.ErrDaemonNotRunning) && !reconnect {
					slog.Error("Daemon is not running. Use 'idlewatch start' to start it.")
					return ErrReported
				}
				if ctx.Err() != nil {
					fmt.Println("\nDisconnected from daemon logs.")
					return nil
				}

				fmt.Println("Connection lost. Reconnecting...")
				if !waitForReconnect(ctx, 10, 500*time.Millisecond) {
					fmt.Println("Daemon not available. Exiting.")
					return nil
				}
				// Suppress history on reconnect
				reconnect = true
				command = "LOGS 0 no_history"
			}
		},
	}

	logsCmd.Flags().BoolP("debug", "d", false, "Show DEBUG level logs")
	logsCmd.Flags().StringP("filter", "F", "", "Filter logs by keyword (e.g., keyboard, pointer, power, alert, config)")
	logsCmd.Flags().Bool("no-color", false, "Disable colored output")
	logsCmd.Flags().IntVarP(&lines, "lines", "L", 20, "Number of history lines to show on connect")

	return logsCmd
}

// waitForReconnect polls the daemon until it answers or attempts run out.
func waitForReconnect(ctx context.Context, attempts int, interval time.Duration) bool {
	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(interval):
		}
		if _, err := daemon.SendCommandWithTimeout("VERSION", interval); err == nil {
			return true
		}
	}
	return false
}

// isDebugLog checks if a log line is a DEBUG level log
func isDebugLog(line string) bool {
	return strings.Contains(stripANSI(line), " DBG ")
}

// matchesFilter checks if a log line matches the filter criteria
func matchesFilter(line, filter string) bool {
	filter = strings.ToLower(filter)
	lineLower := strings.ToLower(stripANSI(line))

	containsAny := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(lineLower, w) {
				return true
			}
		}
		return false
	}

	switch filter {
	case "keyboard":
		return containsAny("keyboard", "keystroke", "key hook", "key ")
	case "pointer":
		return containsAny("pointer", "cursor")
	case "power":
		return containsAny("suspend", "resume", "sleep", "wake", "lock", "power")
	case "alert":
		return containsAny("inactive", "alert", "surface", "window")
	case "config":
		return containsAny("config", "threshold", "alert mode")
	default:
		return strings.Contains(lineLower, filter)
	}
}

// stripANSI removes ANSI escape codes from a string
func stripANSI(s string) string {
	var result strings.Builder
	inEscape := false

	for i := 0; i < len(s); i++ {
		if s[i] == '\033' {
			inEscape = true
			continue
		}
		if inEscape {
			if s[i] == 'm' {
				inEscape = false
			}
			continue
		}
		result.WriteByte(s[i])
	}

	return result.String()
}
