//go:build darwin

package sharedserver

// platformIsAlive uses the signal-0 trick: sending signal 0 performs no
// actual signaling but still validates the pid exists and is ours to
// signal. An EPERM (process exists but is owned by another user) is treated
// as alive; only ESRCH (no such process) is "not alive".
func platformIsAlive(pid int) bool {
	return signal0Alive(pid)
}
