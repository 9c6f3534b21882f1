package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.olrik.dev/idlewatch/internal/core"
	"go.olrik.dev/idlewatch/internal/daemon"
)

func NewStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the idlewatch daemon",
		Long: `Start the idlewatch daemon in the background.

The daemon hosts the activity tracker and keeps running until explicitly
stopped with 'idlewatch quit'. With autostart enabled (the default) it starts
tracking immediately.

If the daemon is already running, this command will report its version.`,
		Aliases: []string{"boot"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if response, err := daemon.SendCommand("VERSION"); err == nil {
				var data struct {
					Version string `json:"version"`
				}
				if response.DecodeData(&data) == nil && data.Version != "" {
					slog.Info(fmt.Sprintf("Daemon is already running (version %s)", core.FormatVersion(data.Version)))
					return nil
				}
				slog.Info("Daemon is already running")
				return nil
			}

			slog.Info("Starting idlewatch daemon...")
			if err := daemon.StartDaemon(); err != nil {
				return fmt.Errorf("failed to start daemon: %w", err)
			}

			slog.Info("Daemon started successfully")
			return nil
		},
	}
}
