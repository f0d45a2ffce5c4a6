package sharedserver

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"syscall"
	"time"
)

// DefaultStartupWindow is how long launchLocked waits to confirm the server did
// not exit immediately before publishing records. This is an operational
// tuning knob, not a correctness parameter: a shorter window just risks
// publishing a record for a server that exits a moment later.
const DefaultStartupWindow = 1500 * time.Millisecond

// DefaultShutdownSignal is used when a server record does not specify one.
const DefaultShutdownSignal = "TERM"

// watchSubcommand is the hidden CLI entrypoint the watcher process
// self-re-execs into; see cmd/sharedserver's watch.go.
const watchSubcommand = "__watch"

// LaunchConfig carries the launch-time parameters for a name: the command
// to run and how to run it, plus the grace period and shutdown signal the
// watcher will use once the server is up.
type LaunchConfig struct {
	Command        string
	Args           []string
	Env            map[string]string
	WorkingDir     string
	LogFile        string
	GracePeriod    string
	ShutdownSignal string
	StartupWindow  time.Duration
}

// resolveExecutable validates that cfg.Command names a runnable program,
// returning its absolute path.
func resolveExecutable(command string) (string, error) {
	if command == "" {
		return "", &OpError{Op: OpStart, Err: ErrNotExecutable}
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", &OpError{Op: OpStart, Name: command, Err: fmt.Errorf("%w: %v", ErrNotExecutable, err)}
	}
	return path, nil
}

// detachedSysProcAttr gives a spawned process its own session, so it
// survives the caller's terminal hangup and is not in the caller's process
// group.
func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}

// buildEnv merges cfg.Env on top of the launching process's environment, the way
// exec.Cmd.Env is conventionally built when partial overrides are wanted.
func buildEnv(overrides map[string]string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overrides[k])
	}
	return env
}

// startServer launches the managed server process, detached, redirecting
// its stdout/stderr to cfg.LogFile when set.
func startServer(path string, cfg LaunchConfig) (*exec.Cmd, error) {
	cmd := exec.Command(path, cfg.Args...)
	cmd.Dir = cfg.WorkingDir
	cmd.Env = buildEnv(cfg.Env)
	cmd.SysProcAttr = detachedSysProcAttr()
	cmd.Stdin = nil

	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file %s: %w", cfg.LogFile, err)
		}
		cmd.Stdout = f
		cmd.Stderr = f
	}

	if err := cmd.Start(); err != nil {
		return nil, &OpError{Op: OpStart, Name: path, Err: err}
	}
	return cmd, nil
}

// awaitStartupWindow blocks for at most window, returning the server's exit
// error if it exited within that time (an error even for a zero exit
// status), or nil if it survived. It never
// blocks longer than window: the background Wait continues independently
// and is harmless to leak in a short-lived CLI invocation.
func awaitStartupWindow(cmd *exec.Cmd, window time.Duration) error {
	exited := make(chan error, 1)
	go func() {
		exited <- cmd.Wait()
	}()

	select {
	case err := <-exited:
		if err == nil {
			err = fmt.Errorf("server exited with status 0")
		}
		return err
	case <-time.After(window):
		return nil
	}
}

// startWatcherFunc is a seam tests override to avoid self-re-execing the
// test binary (which has no __watch subcommand and would otherwise just
// re-run the test suite as a detached "watcher").
var startWatcherFunc = startWatcher

// startWatcher self-re-execs into the hidden __watch subcommand, detached,
// to supervise name under dir, and returns its pid. The watcher learns
// everything it needs (server pid, grace period) by reading the server
// record it is about to be named in, so only name and dir are passed on
// argv.
func startWatcher(dir, name string) (pid int, err error) {
	self, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("locating own executable: %w", err)
	}

	cmd := exec.Command(self, watchSubcommand, name)
	cmd.Env = append(os.Environ(), LockDirEnv+"="+dir)
	cmd.SysProcAttr = detachedSysProcAttr()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return 0, &OpError{Op: OpWatch, Name: name, Err: err}
	}
	return cmd.Process.Pid, nil
}

// launchLocked resolves and starts the command, waits out the startup
// window, starts the watcher, and publishes the server (and, if requested,
// clients) record — assuming the caller already holds both per-name locks.
// It publishes no records and returns ErrStartFailed if the server exits
// within the startup window.
func launchLocked(p Paths, name string, cfg LaunchConfig, initialPID int, initialMetadata string, withInitialClient bool) (*ServerRecord, error) {
	path, err := resolveExecutable(cfg.Command)
	if err != nil {
		return nil, err
	}

	if cfg.WorkingDir != "" {
		if err := os.MkdirAll(cfg.WorkingDir, 0o755); err != nil {
			return nil, &OpError{Op: OpStart, Name: name, Err: fmt.Errorf("%w: %v", ErrIO, err)}
		}
	}

	window := cfg.StartupWindow
	if window <= 0 {
		window = DefaultStartupWindow
	}

	serverCmd, err := startServer(path, cfg)
	if err != nil {
		return nil, &OpError{Op: OpStart, Name: name, Err: err}
	}

	if exitErr := awaitStartupWindow(serverCmd, window); exitErr != nil {
		startErr := &OpError{Op: OpStart, Name: name, Err: fmt.Errorf("%w: %v", ErrStartFailed, exitErr)}
		LogInvocation(p.Dir, name, InvocationLogEntry{
			Op:     OpStart.String(),
			Args:   launchArgs(cfg),
			OK:     false,
			Err:    startErr.Error(),
			Detail: map[string]any{"exit_error": exitErr.Error()},
		})
		return nil, startErr
	}

	watcherPID, err := startWatcherFunc(p.Dir, name)
	if err != nil {
		_ = serverCmd.Process.Kill()
		return nil, err
	}

	shutdownSignal := cfg.ShutdownSignal
	if shutdownSignal == "" {
		shutdownSignal = DefaultShutdownSignal
	}

	server := &ServerRecord{
		Version:        RecordVersion,
		PID:            serverCmd.Process.Pid,
		Name:           name,
		Command:        cfg.Command,
		Args:           cfg.Args,
		StartedAt:      now().Unix(),
		GracePeriod:    cfg.GracePeriod,
		WatcherPID:     watcherPID,
		ShutdownSignal: shutdownSignal,
		Env:            cfg.Env,
		WorkingDir:     cfg.WorkingDir,
		LogFile:        cfg.LogFile,
	}

	if err := atomicPublish(p.ServerFile, server); err != nil {
		return nil, err
	}

	if withInitialClient {
		created := NewClientsRecord(initialPID, initialMetadata)
		if err := atomicPublish(p.ClientsFile, created); err != nil {
			return nil, err
		}
	}

	return server, nil
}
