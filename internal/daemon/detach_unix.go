//go:build !windows

package daemon

import "syscall"

// detachedProcAttr starts the daemon in its own session so it outlives the
// launching terminal.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
