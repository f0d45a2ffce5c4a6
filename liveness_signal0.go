//go:build !linux

package sharedserver

import (
	"errors"
	"os"
	"syscall"
)

// signal0Alive sends signal 0 to pid, which performs no actual signaling
// but still tells us whether the kernel considers the pid valid and
// reachable. EPERM (owned by another user) counts as alive; ESRCH (no such
// process) does not.
func signal0Alive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, os.ErrPermission)
}
