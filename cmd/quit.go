package cmd

import (
	"errors"
	"log/slog"

	"github.com/spf13/cobra"
	"go.olrik.dev/idlewatch/internal/daemon"
)

func NewQuitCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "quit",
		Aliases: []string{"stop", "shutdown"},
		Short:   "Stop tracking and shut down the daemon",
		Long:    `Stops activity tracking, releases the keyboard hook and shuts down the idlewatch daemon.`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			response, err := daemon.SendCommand("QUIT")
			if errors.Is(err, daemon.ErrDaemonNotRunning) {
				slog.Warn("Daemon is not running. Nothing to stop.")
				return nil
			}
			if err != nil {
				return err
			}
			response.LogMessages()
			return nil
		},
	}
}
