package sharedserver

import (
	"context"
	"os"
	"strconv"
	"syscall"
	"time"

	"vawter.tech/stopper"
)

// pollInterval is how often the watcher re-derives state.
const pollInterval = 5 * time.Second

// killGrace is how long the watcher waits after the shutdown signal before
// escalating to SIGKILL.
const killGrace = 5 * time.Second

// signalByName maps the shutdown_signal record field to a syscall.Signal.
// An unrecognized name falls back to SIGTERM rather than failing the
// watcher outright.
func signalByName(name string) syscall.Signal {
	switch name {
	case "KILL":
		return syscall.SIGKILL
	case "INT":
		return syscall.SIGINT
	case "HUP":
		return syscall.SIGHUP
	case "QUIT":
		return syscall.SIGQUIT
	case "TERM", "":
		return syscall.SIGTERM
	default:
		return syscall.SIGTERM
	}
}

// Watch runs the supervising loop for name until ctx is cancelled or the
// server has been fully torn down. It is the body of the hidden __watch
// subcommand and is never called by any other operation. The watcher is
// not the server's parent process (launch self-re-execs a detached watcher
// rather than double-forking), so it supervises by polling liveness and
// record state rather than by waitpid.
func Watch(ctx context.Context, dir, name string) error {
	p, err := PathsFor(dir, name)
	if err != nil {
		return err
	}

	log := opLogger(pkgLogger, OpWatch, name)
	log.Info("watcher starting")
	defer log.Info("watcher exiting")

	sctx := stopper.WithContext(ctx)
	defer func() {
		sctx.Stop(killGrace)
		_ = sctx.Wait()
	}()

	var graceDeadline time.Time
	graceSet := false

	// tick runs one iteration of the supervising loop and reports whether
	// the watcher's work is done (server gone; nothing left to supervise)
	// and how long to sleep before the next tick.
	tick := func() (done bool, sleep time.Duration) {
		var server ServerRecord
		if readErr := tolerantRead(p.ServerFile, &server); readErr != nil {
			return true, 0
		}

		if !isAlive(server.PID) {
			log.Info("server pid not alive, cleaning up records", "pid", server.PID)
			if proc, err := os.FindProcess(server.PID); err == nil {
				_ = proc.Signal(signalByName(server.ShutdownSignal))
			}
			_ = withBothLocks(p, func() error {
				_ = removeIfExists(p.ClientsFile)
				return removeIfExists(p.ServerFile)
			})
			return true, 0
		}

		var clients ClientsRecord
		clientsErr := tolerantRead(p.ClientsFile, &clients)

		switch clientsErr {
		case nil:
			prunedToZero := false
			err := withClientsLock(p, func() error {
				var current ClientsRecord
				readErr := tolerantRead(p.ClientsFile, &current)
				if readErr != nil {
					return nil
				}
				pruned := map[string]ClientEntry{}
				for key, entry := range current.Clients {
					if isAlive(parsePIDOrZero(key)) {
						pruned[key] = entry
					}
				}
				if len(pruned) == len(current.Clients) {
					return nil
				}
				if len(pruned) == 0 {
					prunedToZero = true
					return removeIfExists(p.ClientsFile)
				}
				current.Clients = pruned
				current.Refcount = len(pruned)
				current.Version = RecordVersion
				return atomicPublish(p.ClientsFile, &current)
			})
			if err != nil {
				return false, pollInterval
			}
			if prunedToZero {
				graceSet = true
				if grace, ok, parseErr := ParseGracePeriod(server.GracePeriod); parseErr == nil && ok {
					graceDeadline = now().Add(grace)
				} else {
					graceDeadline = now()
				}
				return false, untilDeadline(graceDeadline)
			}
			graceSet = false
			return false, pollInterval

		case ErrNotFound:
			if !graceSet {
				graceSet = true
				if grace, ok, parseErr := ParseGracePeriod(server.GracePeriod); parseErr == nil && ok {
					graceDeadline = now().Add(grace)
				} else {
					graceDeadline = now()
				}
			}
			if now().Before(graceDeadline) {
				return false, untilDeadline(graceDeadline)
			}
			log.Info("grace period expired, shutting down server", "pid", server.PID)
			shutdownAndReap(p, &server)
			return true, 0

		default:
			// Corrupt clients record: treat conservatively as still
			// attached rather than risk killing a server with live
			// clients over a parse error.
			return false, pollInterval
		}
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sctx.Stopping():
			return nil
		case <-timer.C:
			done, sleep := tick()
			if done {
				return nil
			}
			timer.Reset(sleep)
		}
	}
}

// untilDeadline returns how long to sleep to wake at the earlier of the
// next base poll and deadline. It never returns a negative duration.
func untilDeadline(deadline time.Time) time.Duration {
	remaining := deadline.Sub(now())
	if remaining < 0 {
		remaining = 0
	}
	if remaining > pollInterval {
		return pollInterval
	}
	return remaining
}

// shutdownAndReap signals the server with its configured shutdown signal,
// waits up to killGrace for it to exit, escalates to SIGKILL, then removes
// both records. Errors signalling an already-dead process are ignored.
func shutdownAndReap(p Paths, server *ServerRecord) {
	sig := signalByName(server.ShutdownSignal)
	proc, err := os.FindProcess(server.PID)
	if err == nil {
		_ = proc.Signal(sig)
	}

	deadline := time.Now().Add(killGrace)
	for time.Now().Before(deadline) {
		if !isAlive(server.PID) {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}

	if isAlive(server.PID) {
		if proc, err := os.FindProcess(server.PID); err == nil {
			_ = proc.Signal(syscall.SIGKILL)
		}
	}

	_ = withBothLocks(p, func() error {
		_ = removeIfExists(p.ClientsFile)
		return removeIfExists(p.ServerFile)
	})
}

// parsePIDOrZero is used where a malformed pid string must degrade to "not
// a valid pid" rather than abort a bulk scan; admin doctor uses it when
// reconciling attached-client pids.
func parsePIDOrZero(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
