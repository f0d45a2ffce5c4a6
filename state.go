package sharedserver

// State is one of the three states of a named server, determined purely by
// file presence and liveness — never cached across invocations.
type State int

const (
	// Stopped: neither record exists (or the server record's pid is dead).
	Stopped State = iota
	// Active: both records exist and the server is alive.
	Active
	// Grace: the server record exists and the server is alive, but the
	// clients record does not — the watcher is running a countdown.
	Grace
)

const (
	stateStoppedStr = "Stopped"
	stateActiveStr  = "Active"
	stateGraceStr   = "Grace"
)

// String renders the state the way check/info print it.
func (s State) String() string {
	switch s {
	case Active:
		return stateActiveStr
	case Grace:
		return stateGraceStr
	default:
		return stateStoppedStr
	}
}

// ExitCode returns the process exit code check uses to report this state.
func (s State) ExitCode() int {
	switch s {
	case Active:
		return 0
	case Grace:
		return 1
	default:
		return 2
	}
}

// deriveState computes the current state of name from the on-disk records,
// with no side effects: it never cleans up stale records — that is the
// watcher's job, not the reader's.
func deriveState(p Paths) (State, *ServerRecord, error) {
	var server ServerRecord
	err := tolerantRead(p.ServerFile, &server)
	switch {
	case err == ErrNotFound:
		return Stopped, nil, nil
	case err == ErrCorrupt:
		return Stopped, nil, &OpError{Op: OpCheck, Name: p.ServerFile, Err: ErrCorrupt}
	case err != nil:
		return Stopped, nil, err
	}
	if err := checkVersion(server.Version); err != nil {
		return Stopped, nil, &OpError{Op: OpCheck, Name: server.Name, Err: err}
	}

	if !isAlive(server.PID) {
		return Stopped, &server, nil
	}

	var clients ClientsRecord
	err = tolerantRead(p.ClientsFile, &clients)
	switch {
	case err == ErrNotFound:
		return Grace, &server, nil
	case err == ErrCorrupt:
		// The server record is sound; a corrupt clients record is still
		// reported to the caller rather than guessed at, but we can say the
		// server itself is alive.
		return Grace, &server, &OpError{Op: OpCheck, Name: server.Name, Err: ErrCorrupt}
	case err != nil:
		return Grace, &server, err
	}
	return Active, &server, nil
}

// Check reports the current state of name under dir with no side effects.
func Check(dir, name string) (State, error) {
	p, err := PathsFor(dir, name)
	if err != nil {
		return Stopped, err
	}
	state, _, err := deriveState(p)
	if err != nil {
		return state, err
	}
	return state, nil
}
