package cmd

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"go.olrik.dev/idlewatch/internal/core"
)

func restoreGlobals(t *testing.T) {
	t.Helper()
	oldConfig := core.Config
	oldLogger := slog.Default()
	t.Cleanup(func() {
		core.Config = oldConfig
		slog.SetDefault(oldLogger)
	})
}

func TestInitConfig_Defaults(t *testing.T) {
	restoreGlobals(t)
	dir := t.TempDir()

	if err := initConfig(dir, 0); err != nil {
		t.Fatalf("initConfig failed: %v", err)
	}
	if core.Config.ConfigPath != dir {
		t.Errorf("expected config path %q, got %q", dir, core.Config.ConfigPath)
	}
	if core.Config.InactivityThreshold != core.DefaultInactivityThreshold {
		t.Errorf("expected default threshold, got %s", core.Config.InactivityThreshold)
	}
}

func TestInitConfig_FileAndVerbosity(t *testing.T) {
	restoreGlobals(t)
	dir := t.TempDir()
	content := "inactivity_threshold = \"2m\"\nverbose = 1\n"
	if err := os.WriteFile(filepath.Join(dir, core.ConfigFileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := initConfig(dir, 2); err != nil {
		t.Fatalf("initConfig failed: %v", err)
	}
	if core.Config.InactivityThreshold != 2*time.Minute {
		t.Errorf("expected 2m threshold, got %s", core.Config.InactivityThreshold)
	}
	if core.Config.Verbose != 2 {
		t.Errorf("expected -v to raise verbosity to 2, got %d", core.Config.Verbose)
	}
}

func TestInitConfig_Invalid(t *testing.T) {
	restoreGlobals(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, core.ConfigFileName), []byte(`alert_mode = "loud"`), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := initConfig(dir, 0); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCommand()

	for _, path := range [][]string{
		{"start"},
		{"quit"},
		{"stop"},
		{"track", "pause"},
		{"track", "reset"},
		{"threshold"},
		{"alert-mode"},
		{"status"},
		{"watch"},
		{"logs"},
		{"version"},
		{"daemon"},
	} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd == root {
			t.Errorf("command %v not found: %v", path, err)
		}
	}
}

func TestArgumentErrorsAreNotMarkedReported(t *testing.T) {
	tests := []struct {
		cmd func() *cobra.Command
		arg string
	}{
		{NewThresholdCommand, "0"},
		{NewThresholdCommand, "soon"},
		{NewThresholdCommand, "9223372036854776"},
		{NewAlertModeCommand, "loud"},
	}

	for _, tt := range tests {
		c := tt.cmd()
		err := c.RunE(c, []string{tt.arg})
		if err == nil {
			t.Errorf("%s %s: expected validation error", c.Name(), tt.arg)
			continue
		}
		// main prints these; ErrReported would hide them
		if errors.Is(err, ErrReported) {
			t.Errorf("%s %s: validation error must not be ErrReported", c.Name(), tt.arg)
		}
	}
}
