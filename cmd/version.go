package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.olrik.dev/idlewatch/internal/core"
	"go.olrik.dev/idlewatch/internal/daemon"
	"gopkg.in/yaml.v3"
)

func NewVersionCommand() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Long:  `Show version of both client and daemon (if running)`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			build := core.CurrentBuild()

			switch format {
			case "json":
				out, err := json.MarshalIndent(build, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			case "yaml":
				out, err := yaml.Marshal(build)
				if err != nil {
					return err
				}
				fmt.Print(string(out))
				return nil
			case "text":
			default:
				return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
			}

			clientFormatted := core.FormatVersion(build.Version)
			fmt.Fprintf(os.Stderr, "Client version: %s\n", clientFormatted)

			response, err := daemon.SendCommand("VERSION")
			if err != nil {
				fmt.Fprintln(os.Stderr, "Daemon: not running")
				return nil
			}

			var data struct {
				Version string `json:"version"`
				Pid     int    `json:"pid"`
			}
			if err := response.DecodeData(&data); err != nil {
				return fmt.Errorf("unexpected version reply: %w", err)
			}
			daemonFormatted := core.FormatVersion(data.Version)
			fmt.Fprintf(os.Stderr, "Daemon version: %s (pid %d)\n", daemonFormatted, data.Pid)

			if build.Version != data.Version {
				slog.Warn(fmt.Sprintf("Version mismatch! Client %s and daemon %s versions differ. Consider restarting the daemon.", clientFormatted, daemonFormatted))
			}
			return nil
		},
	}
	versionCmd.Flags().StringP("format", "F", "text", "Format to use (text/json/yaml)")

	return versionCmd
}
