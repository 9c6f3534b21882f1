package platform

import (
	"errors"
	"log/slog"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32               = windows.NewLazySystemDLL("user32.dll")
	kernel32             = windows.NewLazySystemDLL("kernel32.dll")
	procGetLastInputInfo = user32.NewProc("GetLastInputInfo")
	procGetTickCount     = kernel32.NewProc("GetTickCount")
)

type lastInputInfo struct {
	cbSize uint32
	dwTime uint32
}

// IdleProbe reads the last input tick via GetLastInputInfo.
type IdleProbe struct {
	logger *slog.Logger
}

// NewIdleProbe creates the idle probe for this platform.
func NewIdleProbe(logger *slog.Logger) *IdleProbe {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdleProbe{logger: logger}
}

func (p *IdleProbe) IdleTime() (time.Duration, error) {
	var lii lastInputInfo
	lii.cbSize = uint32(unsafe.Sizeof(lii))

	ret, _, callErr := procGetLastInputInfo.Call(uintptr(unsafe.Pointer(&lii)))
	if ret == 0 {
		if callErr != nil && !errors.Is(callErr, windows.ERROR_SUCCESS) {
			return 0, callErr
		}
		return 0, errors.New("GetLastInputInfo failed")
	}

	// Both ticks are 32-bit; unsigned subtraction handles the 49 day wrap.
	tick, _, _ := procGetTickCount.Call()
	idleMs := uint32(tick) - lii.dwTime
	return time.Duration(idleMs) * time.Millisecond, nil
}

func (p *IdleProbe) Close() error { return nil }
