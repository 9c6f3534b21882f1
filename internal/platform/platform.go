// Package platform provides the OS adapters behind the activity engine:
// system idle time, pointer position, the global key hook and raising the
// host window.
package platform

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// commandTimeout bounds helper binaries such as xprintidle or ioreg.
const commandTimeout = 2 * time.Second

// ErrUnsupported is returned when the current platform offers no way to
// answer a query.
var ErrUnsupported = errors.New("not supported on this platform")

// runCommand executes a helper binary and returns its stdout.
func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// parseMillis parses a bare millisecond count, as printed by xprintidle.
func parseMillis(out []byte) (time.Duration, error) {
	s := strings.TrimSpace(string(out))
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse idle time %q: %w", s, err)
	}
	if ms < 0 {
		return 0, fmt.Errorf("negative idle time %d", ms)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// parseHIDIdleTime extracts HIDIdleTime (nanoseconds) from ioreg output.
func parseHIDIdleTime(out []byte) (time.Duration, error) {
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "HIDIdleTime") {
			continue
		}

		_, value, ok := strings.Cut(line, "=")
		if !ok {
			return 0, errors.New("HIDIdleTime line missing '='")
		}
		fields := strings.Fields(strings.Trim(strings.TrimSpace(value), "\""))
		if len(fields) == 0 {
			return 0, errors.New("HIDIdleTime value missing")
		}

		ns, err := strconv.ParseInt(strings.TrimRight(fields[0], ","), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("parse HIDIdleTime %q: %w", fields[0], err)
		}
		return time.Duration(ns), nil
	}
	return 0, errors.New("HIDIdleTime not found in ioreg output")
}

// parseCursorPos parses "x, y" as printed by hyprctl cursorpos.
func parseCursorPos(out []byte) (float64, float64, error) {
	xs, ys, ok := strings.Cut(strings.TrimSpace(string(out)), ",")
	if !ok {
		return 0, 0, fmt.Errorf("unexpected cursor position %q", strings.TrimSpace(string(out)))
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse cursor x: %w", err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse cursor y: %w", err)
	}
	return x, y, nil
}
