package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.olrik.dev/idlewatch/internal/daemon"
)

func NewTrackCommand() *cobra.Command {
	trackCmd := &cobra.Command{
		Use:   "track",
		Short: "Control activity tracking",
		Long: `Control activity tracking in the running daemon.

  start   begin tracking (starts the daemon if needed)
  stop    stop tracking, keeping the last activity timestamp
  pause   suspend alerts until resumed
  resume  resume after pause
  reset   treat now as the last activity`,
	}

	trackCmd.AddCommand(
		newTrackSubcommand("start", "Start activity tracking", "START", true),
		newTrackSubcommand("stop", "Stop activity tracking", "STOP", false),
		newTrackSubcommand("pause", "Pause activity tracking", "PAUSE", false),
		newTrackSubcommand("resume", "Resume paused activity tracking", "RESUME", false),
		newTrackSubcommand("reset", "Reset the last activity timestamp to now", "RESET", false),
	)

	return trackCmd
}

func newTrackSubcommand(use, short, command string, ensureDaemon bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if ensureDaemon {
				if err := daemon.EnsureDaemonIsRunning(); err != nil {
					return fmt.Errorf("could not start daemon: %w", err)
				}
			}
			return sendAndLog(command)
		},
	}
}

// sendAndLog sends command to the daemon, logs the reply and returns the
// first ERROR message as an error.
func sendAndLog(command string) error {
	response, err := daemon.SendCommand(command)
	if err != nil {
		return err
	}
	response.LogMessages()
	if err := response.Err(); err != nil {
		return ErrReported
	}
	return nil
}
