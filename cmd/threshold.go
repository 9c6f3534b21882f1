package cmd

import (
	"github.com/spf13/cobra"
	"go.olrik.dev/idlewatch/internal/activity"
	"go.olrik.dev/idlewatch/internal/core"
)

func NewThresholdCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "threshold <duration|milliseconds>",
		Short: "Set the inactivity threshold",
		Long: `Set the inactivity threshold of the running daemon.

The value is a Go duration ("45s", "2m") or a number of milliseconds. The
operating system idle threshold follows as twice the value, but never less
than one minute.

The change lasts until the daemon restarts or the config file changes; set
inactivity_threshold in config.hcl to keep it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate locally for a clearer error than the daemon round trip
			if _, err := core.ParseThreshold(args[0]); err != nil {
				return err
			}
			return sendAndLog("THRESHOLD " + args[0])
		},
	}
}

func NewAlertModeCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "alert-mode <level|edge>",
		Short:     "Choose how inactivity alerts repeat",
		Long:      `In level mode an alert is raised every second while the user stays inactive. In edge mode one alert is raised per period of inactivity.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{string(activity.AlertLevel), string(activity.AlertEdge)},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := activity.ParseAlertMode(args[0])
			if err != nil {
				return err
			}
			return sendAndLog("ALERT_MODE " + string(mode))
		},
	}
}
