package sharedserver

import (
	"os/exec"
	"testing"
)

// spawnSleeper starts a long-lived child the caller can signal and wait on,
// for tests that need a pid which is genuinely alive until explicitly
// stopped (unlike deadPID's already-exited one).
func spawnSleeper(t *testing.T) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("spawning sleeper: %v", err)
	}
	t.Cleanup(func() { _ = cmd.Process.Kill() })
	return cmd
}

// deadPID spawns and waits for a trivial process, returning its pid: a
// pid that is guaranteed not to be alive but was real a moment ago, the
// same shape as the liveness tests need instead of guessing an unused
// number.
func deadPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Fatalf("spawning throwaway process: %v", err)
	}
	return cmd.Process.Pid
}
