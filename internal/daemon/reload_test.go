package daemon

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.olrik.dev/idlewatch/internal/activity"
	"go.olrik.dev/idlewatch/internal/core"
)

func writeConfigFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, core.ConfigFileName), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestReloadConfig_AppliesLiveSettings(t *testing.T) {
	quietLogger(t)

	cfg := core.GetDefaultConfig()
	cfg.ConfigPath = t.TempDir()
	useConfig(t, cfg)
	d := newTestDaemon(t)

	writeConfigFile(t, cfg.ConfigPath, `
inactivity_threshold = "45s"
alert_mode           = "edge"
verbose              = 1
`)

	if err := d.reloadConfig(); err != nil {
		t.Fatalf("reloadConfig failed: %v", err)
	}

	snap := d.supervisor.Snapshot()
	if snap.InactivityThresholdMs != 45000 {
		t.Errorf("expected 45000ms threshold, got %d", snap.InactivityThresholdMs)
	}
	if snap.SystemIdleThresholdMs != 90000 {
		t.Errorf("expected 90000ms system idle threshold, got %d", snap.SystemIdleThresholdMs)
	}
	if snap.AlertMode != activity.AlertEdge {
		t.Errorf("expected edge mode, got %q", snap.AlertMode)
	}
	if d.logLevel.Level() != slog.LevelDebug {
		t.Errorf("expected debug level after reload, got %v", d.logLevel.Level())
	}
	if core.Config.ConfigPath != cfg.ConfigPath {
		t.Errorf("config path not preserved: %q", core.Config.ConfigPath)
	}
}

func TestReloadConfig_KeepsCommandLineVerbosity(t *testing.T) {
	quietLogger(t)

	cfg := core.GetDefaultConfig()
	cfg.ConfigPath = t.TempDir()
	cfg.Verbose = 2
	useConfig(t, cfg)
	d := newTestDaemon(t)

	writeConfigFile(t, cfg.ConfigPath, `verbose = 0`)

	if err := d.reloadConfig(); err != nil {
		t.Fatalf("reloadConfig failed: %v", err)
	}
	if core.Config.Verbose != 2 {
		t.Errorf("expected verbosity 2 to be kept, got %d", core.Config.Verbose)
	}
}

func TestReloadConfig_InvalidConfigKeepsOld(t *testing.T) {
	quietLogger(t)

	cfg := core.GetDefaultConfig()
	cfg.ConfigPath = t.TempDir()
	useConfig(t, cfg)
	d := newTestDaemon(t)

	tests := map[string]string{
		"syntax":     `inactivity_threshold = `,
		"threshold":  `inactivity_threshold = "-1s"`,
		"alert mode": `alert_mode = "sometimes"`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			writeConfigFile(t, cfg.ConfigPath, content)

			if err := d.reloadConfig(); err == nil {
				t.Error("expected reloadConfig to fail")
			}
			if core.Config != cfg {
				t.Error("expected previous configuration to be kept")
			}
			if snap := d.supervisor.Snapshot(); snap.InactivityThresholdMs != 30000 {
				t.Errorf("threshold changed to %d", snap.InactivityThresholdMs)
			}
		})
	}
}

func TestReloadConfig_MissingFileRestoresDefaults(t *testing.T) {
	quietLogger(t)

	cfg := core.GetDefaultConfig()
	cfg.ConfigPath = t.TempDir()
	cfg.AlertMode = "edge"
	useConfig(t, cfg)
	d := newTestDaemon(t)
	d.supervisor.SetAlertMode(activity.AlertEdge)

	if err := d.reloadConfig(); err != nil {
		t.Fatalf("reloadConfig failed: %v", err)
	}
	if snap := d.supervisor.Snapshot(); snap.AlertMode != activity.AlertLevel {
		t.Errorf("expected default level mode, got %q", snap.AlertMode)
	}
}

func TestWatchConfig_ReloadsOnWrite(t *testing.T) {
	quietLogger(t)

	cfg := core.GetDefaultConfig()
	cfg.ConfigPath = t.TempDir()
	useConfig(t, cfg)
	writeConfigFile(t, cfg.ConfigPath, `inactivity_threshold = "30s"`)

	d := newTestDaemon(t)
	d.watchConfig()

	writeConfigFile(t, cfg.ConfigPath, `inactivity_threshold = "40s"`)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for d.supervisor.Snapshot().InactivityThresholdMs != 40000 {
		select {
		case <-ctx.Done():
			t.Fatalf("config change not applied, threshold %d", d.supervisor.Snapshot().InactivityThresholdMs)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestWatchConfig_NoFile(t *testing.T) {
	quietLogger(t)

	cfg := core.GetDefaultConfig()
	cfg.ConfigPath = t.TempDir()
	useConfig(t, cfg)

	d := newTestDaemon(t)
	d.watchConfig()
}

func TestReloadConfig_ConcurrentWithStatus(t *testing.T) {
	quietLogger(t)

	cfg := core.GetDefaultConfig()
	cfg.ConfigPath = t.TempDir()
	useConfig(t, cfg)
	d := newTestDaemon(t)
	writeConfigFile(t, cfg.ConfigPath, `inactivity_threshold = "45s"`)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			if err := d.reloadConfig(); err != nil {
				t.Errorf("reloadConfig failed: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 20; i++ {
		resp := sendIPCCommand(t, d, "STATUS")
		if err := resp.Err(); err != nil {
			t.Fatalf("STATUS failed during reload: %v", err)
		}
	}
	<-done
}
