package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"go.olrik.dev/idlewatch/internal/core"
)

// ErrReported marks a failure that has already been logged to the user.
var ErrReported = errors.New("command failed")

func NewRootCommand() *cobra.Command {
	var configPath string
	var verbose int

	rootCmd := &cobra.Command{
		Use:   "idlewatch",
		Short: "idlewatch - user activity and inactivity tracker",
		Long: `idlewatch - user activity and inactivity tracker

A background daemon watches pointer movement, deliberate keystrokes, the
operating system idle time and sleep/lock events, and raises an alert once
the user has been inactive longer than the configured threshold.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(configPath, verbose)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", core.DefaultConfigPath(), "config path")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "more output, repeat for even more")

	rootCmd.AddCommand(
		NewStartCommand(),
		NewQuitCommand(),
		NewTrackCommand(),
		NewThresholdCommand(),
		NewAlertModeCommand(),
		NewStatusCommand(),
		NewWatchCommand(),
		NewLogsCommand(),
		NewVersionCommand(),
		NewDaemonCommand(),
	)

	return rootCmd
}

// initConfig loads config.hcl from configPath into core.Config and installs
// the CLI logger. The -v flag raises but never lowers the configured level.
func initConfig(configPath string, verbose int) error {
	cfg, err := core.LoadConfigOrDefault(filepath.Join(configPath, core.ConfigFileName))
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	cfg.ConfigPath = configPath
	if verbose > cfg.Verbose {
		cfg.Verbose = verbose
	}
	core.Config = cfg

	level := slog.LevelInfo
	if cfg.Verbose > 0 {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !term.IsTerminal(int(os.Stderr.Fd())),
	})))
	return nil
}
