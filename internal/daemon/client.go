package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"syscall"
	"time"

	"go.olrik.dev/idlewatch/internal/core"
)

// ErrDaemonNotRunning is returned when nothing listens on the socket.
var ErrDaemonNotRunning = errors.New("daemon is not running")

const defaultCommandTimeout = 5 * time.Second

// SendCommand connects to the daemon, sends a command, and returns the response.
func SendCommand(command string) (Response, error) {
	return SendCommandWithTimeout(command, defaultCommandTimeout)
}

// SendCommandWithTimeout is SendCommand with an overall deadline.
func SendCommandWithTimeout(command string, timeout time.Duration) (Response, error) {
	response := Response{}

	conn, err := dial(timeout)
	if err != nil {
		return response, err
	}
	defer conn.Close()

	if timeout > 0 {
		conn.SetDeadline(time.Now().Add(timeout))
	}

	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return response, fmt.Errorf("failed to send command to daemon: %w", err)
	}
	bytes, err := io.ReadAll(conn)
	if err != nil {
		return response, fmt.Errorf("failed to read response from daemon: %w", err)
	}

	if err := json.Unmarshal(bytes, &response); err != nil {
		return response, fmt.Errorf("failed to parse response from daemon: %w", err)
	}

	return response, nil
}

// StreamCommand sends a streaming command (LOGS, EVENTS) and calls fn for
// every line until the daemon closes the stream or ctx is cancelled.
func StreamCommand(ctx context.Context, command string, fn func(line []byte) error) error {
	conn, err := dial(defaultCommandTimeout)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return fmt.Errorf("failed to send command to daemon: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return nil
	}
	return scanner.Err()
}

func dial(timeout time.Duration) (net.Conn, error) {
	conn, err := net.DialTimeout("unix", core.GetSocketPath(), timeout)
	if err != nil {
		if errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ECONNREFUSED) {
			return nil, ErrDaemonNotRunning
		}
		return nil, err
	}
	return conn, nil
}

// StartDaemon forks the daemon in the background and waits for its socket.
func StartDaemon() error {
	cmd := exec.Command(os.Args[0], "daemon", "--config-path", core.Config.ConfigPath)
	cmd.SysProcAttr = detachedProcAttr()
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("could not fork daemon process: %w", err)
	}
	slog.Debug("Daemon process launched", "pid", cmd.Process.Pid)

	// Reap the child if it exits early so it never lingers as a zombie.
	go cmd.Wait()

	return WaitForDaemon(2 * time.Second)
}

// WaitForDaemon polls until the daemon answers VERSION or timeout passes.
func WaitForDaemon(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := SendCommandWithTimeout("VERSION", 200*time.Millisecond); err == nil {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon did not become ready within %s", timeout)
}

// EnsureDaemonIsRunning starts the daemon unless it already answers.
func EnsureDaemonIsRunning() error {
	if _, err := SendCommandWithTimeout("VERSION", time.Second); err == nil {
		return nil
	}

	slog.Info("Daemon not running, starting it now")
	if err := StartDaemon(); err != nil {
		return err
	}
	slog.Info("Daemon is ready")
	return nil
}
