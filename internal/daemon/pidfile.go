package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"go.olrik.dev/idlewatch/internal/core"
)

// WritePIDFile records the current process ID.
func WritePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// ReadPIDFile returns the PID stored at path.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid PID file %s", path)
	}
	return pid, nil
}

// IsRunning reports whether the PID file points at a live idlewatch
// process. A reused PID owned by another program does not count.
func IsRunning() (int, bool) {
	pid, err := ReadPIDFile(core.GetPIDFilePath())
	if err != nil {
		return 0, false
	}
	return pid, validateDaemonProcess(pid)
}

// validateDaemonProcess checks that pid exists and runs our executable.
func validateDaemonProcess(pid int) bool {
	exists, err := process.PidExists(int32(pid))
	if err != nil || !exists {
		slog.Debug("Process not found", "pid", pid)
		return false
	}

	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}
	name, err := proc.Name()
	if err != nil {
		// Without permission to inspect it, trust the PID file.
		return true
	}
	return matchesExecutable(name, os.Args[0])
}

// matchesExecutable compares process names by their base name.
func matchesExecutable(name, executable string) bool {
	return filepath.Base(name) == filepath.Base(executable)
}
