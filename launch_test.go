package sharedserver

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stubWatcher installs a fake startWatcherFunc for the duration of the
// test, returning pid as the "watcher" pid without spawning any process —
// launchLocked's caller (a go test binary) has no __watch subcommand to
// re-exec into.
func stubWatcher(t *testing.T, pid int) {
	t.Helper()
	original := startWatcherFunc
	startWatcherFunc = func(dir, name string) (int, error) {
		return pid, nil
	}
	t.Cleanup(func() { startWatcherFunc = original })
}

func TestLaunchLockedSuccess(t *testing.T) {
	stubWatcher(t, os.Getpid())
	dir := t.TempDir()
	p, err := PathsFor(dir, "web")
	require.NoError(t, err)

	cfg := LaunchConfig{
		Command:       "sleep",
		Args:          []string{"30"},
		StartupWindow: 50 * time.Millisecond,
	}

	server, err := launchLocked(p, "web", cfg, 100, "nvim", true)
	require.NoError(t, err)
	t.Cleanup(func() {
		if proc, err := os.FindProcess(server.PID); err == nil {
			_ = proc.Kill()
		}
	})

	require.NotZero(t, server.PID)
	require.Equal(t, os.Getpid(), server.WatcherPID)

	var onDisk ServerRecord
	require.NoError(t, tolerantRead(p.ServerFile, &onDisk))
	require.Equal(t, server.PID, onDisk.PID)

	var clients ClientsRecord
	require.NoError(t, tolerantRead(p.ClientsFile, &clients))
	require.Equal(t, 1, clients.Refcount)
}

func TestLaunchLockedStartFailed(t *testing.T) {
	stubWatcher(t, os.Getpid())
	dir := t.TempDir()
	p, err := PathsFor(dir, "web")
	require.NoError(t, err)

	cfg := LaunchConfig{
		Command:       "false",
		StartupWindow: 300 * time.Millisecond,
	}

	_, err = launchLocked(p, "web", cfg, 100, "", true)
	require.Error(t, err, "expected an error from a command that exits immediately")
	require.ErrorIs(t, err, ErrStartFailed)

	_, statErr := os.Stat(p.ServerFile)
	require.True(t, os.IsNotExist(statErr), "no server record should be published on StartFailed")

	entries, err := ReadInvocationLog(dir, "web", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "start", entries[0].Op)
	require.False(t, entries[0].OK)
	require.NotNil(t, entries[0].Detail, "expected the start-failure detail to be recorded")
}

func TestLaunchLockedNotExecutable(t *testing.T) {
	dir := t.TempDir()
	p, err := PathsFor(dir, "web")
	require.NoError(t, err)

	cfg := LaunchConfig{Command: "sharedserver-definitely-not-a-real-binary"}
	_, err = launchLocked(p, "web", cfg, 100, "", true)
	require.ErrorIs(t, err, ErrNotExecutable)
}

func TestLaunchLockedWithoutInitialClient(t *testing.T) {
	stubWatcher(t, os.Getpid())
	dir := t.TempDir()
	p, err := PathsFor(dir, "web")
	require.NoError(t, err)

	cfg := LaunchConfig{
		Command:       "sleep",
		Args:          []string{"30"},
		StartupWindow: 50 * time.Millisecond,
	}

	server, err := launchLocked(p, "web", cfg, 0, "", false)
	require.NoError(t, err)
	t.Cleanup(func() {
		if proc, err := os.FindProcess(server.PID); err == nil {
			_ = proc.Kill()
		}
	})

	_, statErr := os.Stat(p.ClientsFile)
	require.True(t, os.IsNotExist(statErr), "no clients record should be published without an initial client")
}
