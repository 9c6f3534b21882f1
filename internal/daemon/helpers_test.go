package daemon

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"testing"
	"time"

	"go.olrik.dev/idlewatch/internal/activity"
	"go.olrik.dev/idlewatch/internal/core"
)

// quietLogger suppresses log output during tests.
func quietLogger(t *testing.T) {
	t.Helper()
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.Level(99)})))
	t.Cleanup(func() { slog.SetDefault(old) })
}

// shortTempDir keeps socket paths under the 104 byte sun_path limit on macOS.
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "iw-")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// useConfig installs cfg as core.Config for the duration of the test.
func useConfig(t *testing.T, cfg *core.Configuration) {
	t.Helper()
	oldConfig := core.Config
	t.Cleanup(func() { core.Config = oldConfig })
	core.Config = cfg
}

// setupSocketServer creates a Unix socket listener at the daemon's socket path.
func setupSocketServer(t *testing.T) net.Listener {
	t.Helper()

	cfg := core.GetDefaultConfig()
	cfg.ConfigPath = shortTempDir(t)
	useConfig(t, cfg)

	listener, err := net.Listen("unix", core.GetSocketPath())
	if err != nil {
		t.Fatalf("failed to create Unix listener: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	return listener
}

// newTestDaemon returns a daemon around a supervisor with no platform
// adapters.
func newTestDaemon(t *testing.T) *Daemon {
	t.Helper()

	if core.Config == nil {
		cfg := core.GetDefaultConfig()
		cfg.ConfigPath = shortTempDir(t)
		useConfig(t, cfg)
	}

	sup := activity.NewSupervisor(activity.Options{
		Logger:              slog.Default(),
		InactivityThreshold: 30 * time.Second,
	})
	d := newDaemon(sup)
	t.Cleanup(d.shutdown)
	return d
}

// sendIPCCommand sends a command string to handleConnection via net.Pipe
// and reads back the JSON response.
func sendIPCCommand(t *testing.T, d *Daemon, command string) Response {
	t.Helper()

	clientConn, serverConn := net.Pipe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.handleConnection(serverConn)
	}()

	if _, err := clientConn.Write([]byte(command + "\n")); err != nil {
		t.Fatalf("failed to write command: %v", err)
	}

	// handleConnection closes the server side when done
	data, err := io.ReadAll(clientConn)
	if err != nil {
		t.Fatalf("failed to read response: %v", err)
	}
	clientConn.Close()

	<-done

	var resp Response
	if len(data) > 0 {
		if err := json.Unmarshal(data, &resp); err != nil {
			t.Fatalf("failed to parse response JSON %q: %v", string(data), err)
		}
	}
	return resp
}

func firstMessage(t *testing.T, resp Response) ResponseMessage {
	t.Helper()
	if len(resp.Messages) == 0 {
		t.Fatal("expected at least one message")
	}
	return resp.Messages[0]
}
