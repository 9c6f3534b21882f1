package daemon

import (
	"os"
	"path/filepath"
	"testing"

	"go.olrik.dev/idlewatch/internal/core"
)

func TestPIDFile_WriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.pid")

	if err := WritePIDFile(path); err != nil {
		t.Fatalf("WritePIDFile failed: %v", err)
	}
	pid, err := ReadPIDFile(path)
	if err != nil {
		t.Fatalf("ReadPIDFile failed: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("expected %d, got %d", os.Getpid(), pid)
	}
}

func TestReadPIDFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := map[string]string{
		"garbage":  "not-a-pid",
		"zero":     "0",
		"negative": "-12",
		"empty":    "",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".pid")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadPIDFile(path); err == nil {
				t.Errorf("expected error for %q", content)
			}
		})
	}

	if _, err := ReadPIDFile(filepath.Join(dir, "missing.pid")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestIsRunning(t *testing.T) {
	quietLogger(t)

	cfg := core.GetDefaultConfig()
	cfg.ConfigPath = t.TempDir()
	useConfig(t, cfg)

	if _, running := IsRunning(); running {
		t.Error("expected not running without a PID file")
	}

	// Our own PID runs the test binary, which is os.Args[0]
	if err := WritePIDFile(core.GetPIDFilePath()); err != nil {
		t.Fatal(err)
	}
	pid, running := IsRunning()
	if !running || pid != os.Getpid() {
		t.Errorf("expected running with pid %d, got %d %v", os.Getpid(), pid, running)
	}
}

func TestValidateDaemonProcess_NoSuchProcess(t *testing.T) {
	quietLogger(t)

	// PIDs above the kernel maximum never exist
	if validateDaemonProcess(1 << 30) {
		t.Error("expected false for a nonexistent PID")
	}
}

func TestMatchesExecutable(t *testing.T) {
	tests := []struct {
		name, exe string
		want      bool
	}{
		{"idlewatch", "/usr/local/bin/idlewatch", true},
		{"idlewatch", "./idlewatch", true},
		{"bash", "/usr/local/bin/idlewatch", false},
	}
	for _, tt := range tests {
		if got := matchesExecutable(tt.name, tt.exe); got != tt.want {
			t.Errorf("matchesExecutable(%q, %q) = %v, want %v", tt.name, tt.exe, got, tt.want)
		}
	}
}
