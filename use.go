package sharedserver

import "strconv"

// UseResult reports which branch Use took, for callers that print it
// ("Started" vs "Attached") without needing to separately Check.
type UseResult string

const (
	Started  UseResult = "Started"
	Attached UseResult = "Attached"
)

// Use is the combined start-or-attach operation: under a single acquisition
// of both locks, it either launches a new server (if none is running) or
// attaches pid to the existing one (if the server is ACTIVE or GRACE). cfg
// is only consulted on the launch path; an existing server's configuration
// is never changed by a later Use call.
func Use(dir, name string, cfg LaunchConfig, pid int, metadata string) (result UseResult, err error) {
	p, err := PathsFor(dir, name)
	if err != nil {
		return "", err
	}
	defer func() { logResult(dir, name, OpUse, launchArgs(cfg), err) }()

	err = withBothLocks(p, func() error {
		var server ServerRecord
		readErr := tolerantRead(p.ServerFile, &server)

		switch readErr {
		case nil:
			if checkErr := checkVersion(server.Version); checkErr != nil {
				return &OpError{Op: OpUse, Name: name, Err: checkErr}
			}
			if isAlive(server.PID) {
				if !isAlive(server.WatcherPID) {
					return &OpError{Op: OpUse, Name: name, Err: ErrWatcherGone}
				}
				result = Attached
				return increfLocked(p, pid, metadata)
			}
			// Server record is stale: the process died without the
			// watcher cleaning up yet. Treat it exactly like ErrNotFound
			// and fall through to a fresh launch.
		case ErrNotFound:
			// fall through to launch below
		default:
			return &OpError{Op: OpUse, Name: name, Err: readErr}
		}

		if cfg.Command == "" {
			return &OpError{Op: OpUse, Name: name, Err: ErrStartRequired}
		}
		result = Started
		_, launchErr := launchLocked(p, name, cfg, pid, metadata, true)
		return launchErr
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// Unuse detaches pid from name. It calls Decref, so the debug log gets
// Decref's entry, and then appends an unuse entry of its own.
func Unuse(dir, name string, pid int) (warned bool, err error) {
	warned, err = Decref(dir, name, pid)
	logResult(dir, name, OpUnuse, []string{strconv.Itoa(pid)}, err)
	return warned, err
}

// launchArgs is the debug-log Args for a launch attempt: the command and
// its own arguments, so a logged entry reads like the invocation it
// recorded. Empty when cfg carries no command, e.g. an attach-only Use.
func launchArgs(cfg LaunchConfig) []string {
	if cfg.Command == "" {
		return nil
	}
	return append([]string{cfg.Command}, cfg.Args...)
}
