package sharedserver

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUseStartsWhenStopped(t *testing.T) {
	stubWatcher(t, os.Getpid())
	dir := t.TempDir()

	cfg := LaunchConfig{Command: "sleep", Args: []string{"30"}, StartupWindow: 50 * time.Millisecond}
	result, err := Use(dir, "web", cfg, 100, "nvim")
	require.NoError(t, err)
	require.Equal(t, Started, result)

	info, err := GetInfo(dir, "web")
	require.NoError(t, err)
	require.NotZero(t, info.PID)
	t.Cleanup(func() {
		if proc, err := os.FindProcess(info.PID); err == nil {
			_ = proc.Kill()
		}
	})
}

func TestUseAttachesWhenActive(t *testing.T) {
	dir := t.TempDir()
	publishServer(t, dir, "web", os.Getpid(), os.Getpid())

	result, err := Use(dir, "web", LaunchConfig{}, 100, "nvim")
	require.NoError(t, err)
	require.Equal(t, Attached, result)

	info, err := GetInfo(dir, "web")
	require.NoError(t, err)
	require.Equal(t, 1, info.Refcount)
}

func TestUseWithoutCommandOnStoppedFails(t *testing.T) {
	dir := t.TempDir()

	_, err := Use(dir, "web", LaunchConfig{}, 100, "")
	require.ErrorIs(t, err, ErrStartRequired)
}

func TestUseWithDeadWatcherFails(t *testing.T) {
	dir := t.TempDir()
	publishServer(t, dir, "web", os.Getpid(), deadPID(t))

	_, err := Use(dir, "web", LaunchConfig{}, 100, "")
	require.ErrorIs(t, err, ErrWatcherGone)
}

func TestUseRelaunchesStaleServerRecord(t *testing.T) {
	stubWatcher(t, os.Getpid())
	dir := t.TempDir()
	publishServer(t, dir, "web", deadPID(t), os.Getpid())

	cfg := LaunchConfig{Command: "sleep", Args: []string{"30"}, StartupWindow: 50 * time.Millisecond}
	result, err := Use(dir, "web", cfg, 100, "")
	require.NoError(t, err)
	require.Equal(t, Started, result)

	info, err := GetInfo(dir, "web")
	require.NoError(t, err)
	t.Cleanup(func() {
		if proc, err := os.FindProcess(info.PID); err == nil {
			_ = proc.Kill()
		}
	})
}

func TestUnuseDetaches(t *testing.T) {
	dir := t.TempDir()
	p := publishServer(t, dir, "web", os.Getpid(), os.Getpid())

	require.NoError(t, Incref(dir, "web", 100, ""))
	warned, err := Unuse(dir, "web", 100)
	require.NoError(t, err)
	require.False(t, warned, "Unuse of attached pid should not warn")

	_, statErr := os.Stat(p.ClientsFile)
	require.True(t, os.IsNotExist(statErr), "expected clients record to be removed at refcount 0")
}

func TestAdminStartIdempotentWhenAlreadyActive(t *testing.T) {
	dir := t.TempDir()
	publishServer(t, dir, "web", os.Getpid(), os.Getpid())

	server, err := AdminStart(dir, "web", LaunchConfig{Command: "sleep", Args: []string{"30"}})
	require.NoError(t, err)
	require.Equal(t, os.Getpid(), server.PID, "AdminStart should return the existing live server")
}

func TestAdminStartLaunchesWithoutInitialClient(t *testing.T) {
	stubWatcher(t, os.Getpid())
	dir := t.TempDir()
	p, err := PathsFor(dir, "web")
	require.NoError(t, err)

	cfg := LaunchConfig{Command: "sleep", Args: []string{"30"}, StartupWindow: 50 * time.Millisecond}
	server, err := AdminStart(dir, "web", cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if proc, err := os.FindProcess(server.PID); err == nil {
			_ = proc.Kill()
		}
	})

	_, statErr := os.Stat(p.ClientsFile)
	require.True(t, os.IsNotExist(statErr), "AdminStart should not create a clients record")
}

func TestUseLogsInvocation(t *testing.T) {
	dir := t.TempDir()
	publishServer(t, dir, "web", os.Getpid(), os.Getpid())

	_, err := Use(dir, "web", LaunchConfig{}, 100, "nvim")
	require.NoError(t, err)

	entries, err := ReadInvocationLog(dir, "web", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "use", entries[0].Op)
	require.True(t, entries[0].OK)
}

func TestUseLogsStartFailure(t *testing.T) {
	dir := t.TempDir()

	cfg := LaunchConfig{Command: "false", StartupWindow: 200 * time.Millisecond}
	_, err := Use(dir, "web", cfg, 100, "")
	require.ErrorIs(t, err, ErrStartFailed)

	entries, err := ReadInvocationLog(dir, "web", 0)
	require.NoError(t, err)
	require.Len(t, entries, 2, "expect launchLocked's start-failure entry plus Use's own invocation entry")

	var sawDetail bool
	for _, e := range entries {
		require.False(t, e.OK)
		if e.Op == "start" && e.Detail != nil {
			sawDetail = true
		}
	}
	require.True(t, sawDetail, "expected the ErrStartFailed path to record a detail entry")
}

func TestAdminStopSignalsServer(t *testing.T) {
	dir := t.TempDir()
	cmd := spawnSleeper(t)
	publishServer(t, dir, "web", cmd.Process.Pid, os.Getpid())

	require.NoError(t, AdminStop(dir, "web", false))

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = cmd.Process.Kill()
		t.Fatal("expected the server to exit after AdminStop")
	}

	entries, err := ReadInvocationLog(dir, "web", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "stop", entries[0].Op)
	require.True(t, entries[0].OK)
}
