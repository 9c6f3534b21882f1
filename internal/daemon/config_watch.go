package daemon

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.olrik.dev/idlewatch/internal/activity"
	"go.olrik.dev/idlewatch/internal/core"
)

const reloadDebounce = 500 * time.Millisecond

// reloadConfig re-reads the config file and pushes the live settings into
// the supervisor. A file that fails to parse leaves the running config in
// place. Only reloads touch core.Config once the daemon is running.
func (d *Daemon) reloadConfig() error {
	d.reloadMu.Lock()
	defer d.reloadMu.Unlock()

	oldConfig := core.Config
	configPath := core.GetConfigFilePath()

	newConfig, err := core.LoadConfigOrDefault(configPath)
	if err != nil {
		slog.Error("Configuration file has errors, keeping previous configuration",
			"file", configPath,
			"error", err)
		return fmt.Errorf("config parse error: %w", err)
	}

	mode, err := activity.ParseAlertMode(newConfig.AlertMode)
	if err != nil {
		slog.Error("Invalid alert mode, keeping previous configuration", "error", err)
		return err
	}

	// Preserve the config path and the verbosity given on the command line
	newConfig.ConfigPath = oldConfig.ConfigPath
	if oldConfig.Verbose > newConfig.Verbose {
		newConfig.Verbose = oldConfig.Verbose
	}
	core.Config = newConfig

	d.logLevel.Set(levelFor(newConfig.Verbose))

	if d.supervisor != nil {
		if err := d.supervisor.SetInactivityThreshold(newConfig.InactivityThreshold); err != nil {
			slog.Warn("Ignoring inactivity threshold from config", "error", err)
		}
		d.supervisor.SetAlertMode(mode)
	}

	if oldConfig.HTTP != newConfig.HTTP ||
		oldConfig.Pointer != newConfig.Pointer ||
		oldConfig.Keyboard.Enabled != newConfig.Keyboard.Enabled ||
		oldConfig.Surface != newConfig.Surface {
		slog.Warn("Adapter and HTTP settings take effect after a daemon restart")
	}

	return nil
}

// watchConfig reloads the config file whenever it changes on disk.
func (d *Daemon) watchConfig() {
	configPath := core.GetConfigFilePath()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create config file watcher", "error", err)
		return
	}

	if err := watcher.Add(configPath); err != nil {
		// No config file yet; defaults are in effect.
		slog.Debug("Not watching config file", "error", err, "path", configPath)
		watcher.Close()
		return
	}

	var reloadTimer *time.Timer
	var reloadMutex sync.Mutex

	go func() {
		defer watcher.Close()

		for {
			select {
			case <-d.ctx.Done():
				reloadMutex.Lock()
				if reloadTimer != nil {
					reloadTimer.Stop()
				}
				reloadMutex.Unlock()
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				slog.Debug("Filesystem event on config file", "event", event.Op.String(), "file", event.Name)

				// Editors that save atomically drop the file from the watch
				// list, and the new file may not exist yet.
				if event.Op&(fsnotify.Rename|fsnotify.Remove|fsnotify.Create) != 0 {
					go rewatch(watcher, configPath)
				}

				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}

				reloadMutex.Lock()
				if reloadTimer != nil {
					reloadTimer.Stop()
				}
				reloadTimer = time.AfterFunc(reloadDebounce, func() {
					slog.Info("Configuration file changed, reloading...", "file", event.Name)
					if err := d.reloadConfig(); err != nil {
						slog.Debug("Config reload failed", "error", err)
					} else {
						slog.Info("Configuration reloaded successfully")
					}
				})
				reloadMutex.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Config file watcher error", "error", err)
			}
		}
	}()

	slog.Info("Watching configuration file for changes", "path", configPath)
}

// rewatch re-adds path with backoff (10ms, 20ms, 40ms, 80ms).
func rewatch(watcher *fsnotify.Watcher, path string) {
	for attempt := 0; attempt < 5; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(10<<uint(attempt-1)) * time.Millisecond)
		}

		watcher.Remove(path)
		err := watcher.Add(path)
		if err == nil {
			slog.Debug("Successfully re-added watch", "path", path, "attempt", attempt+1)
			return
		}
		if attempt == 4 {
			slog.Error("Failed to re-add watch after multiple attempts", "error", err, "path", path)
		}
	}
}
