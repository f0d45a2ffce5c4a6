package sharedserver

import (
	"os"
	"sort"
	"strconv"
)

// Info is the combined, read-only view of a name returned by the info
// operation: the server record's fields plus the derived state and
// refcount.
type Info struct {
	Name           string            `json:"name"`
	State          string            `json:"state"`
	PID            int               `json:"pid,omitempty"`
	Command        string            `json:"command,omitempty"`
	Args           []string          `json:"args,omitempty"`
	StartedAt      int64             `json:"started_at,omitempty"`
	GracePeriod    string            `json:"grace_period,omitempty"`
	WatcherPID     int               `json:"watcher_pid,omitempty"`
	ShutdownSignal string            `json:"shutdown_signal,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	WorkingDir     string            `json:"working_dir,omitempty"`
	LogFile        string            `json:"log_file,omitempty"`
	Refcount       int               `json:"refcount"`
	Error          string            `json:"error,omitempty"`
}

// GetInfo tolerant-reads both records for name and returns the combined
// view. A missing server record is ErrNotFound; a corrupt one is
// ErrCorrupt — both are returned as errors, but GetInfo never touches the
// filesystem beyond reading.
func GetInfo(dir, name string) (*Info, error) {
	p, err := PathsFor(dir, name)
	if err != nil {
		return nil, err
	}

	var server ServerRecord
	if err := tolerantRead(p.ServerFile, &server); err != nil {
		return nil, &OpError{Op: OpInfo, Name: name, Err: err}
	}
	if err := checkVersion(server.Version); err != nil {
		return nil, &OpError{Op: OpInfo, Name: name, Err: err}
	}

	info := &Info{
		Name:           name,
		PID:            server.PID,
		Command:        server.Command,
		Args:           server.Args,
		StartedAt:      server.StartedAt,
		GracePeriod:    server.GracePeriod,
		WatcherPID:     server.WatcherPID,
		ShutdownSignal: server.ShutdownSignal,
		Env:            server.Env,
		WorkingDir:     server.WorkingDir,
		LogFile:        server.LogFile,
	}

	if !isAlive(server.PID) {
		info.State = Stopped.String()
		return info, nil
	}

	var clients ClientsRecord
	switch err := tolerantRead(p.ClientsFile, &clients); err {
	case nil:
		info.State = Active.String()
		info.Refcount = clients.Refcount
	case ErrNotFound:
		info.State = Grace.String()
	default:
		info.State = Grace.String()
		info.Error = ErrCorrupt.Error()
	}
	return info, nil
}

// List enumerates every "*.server.json" record in dir and returns an Info
// for each. A bad individual record is folded into that entry's Error field
// rather than failing the whole call: List never aborts early because of
// one unreadable name.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &OpError{Op: OpList, Name: dir, Err: err}
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := NameFromServerFile(e.Name()); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	results := fanOutInfo(dir, names)
	return results, nil
}

// Incref registers pid as an attached client of name, creating the clients
// record if the server is in GRACE, or adding to it if ACTIVE. It is
// idempotent for a pid already attached: the count does not change, though
// metadata is overwritten to the latest value.
func Incref(dir, name string, pid int, metadata string) (err error) {
	p, err := PathsFor(dir, name)
	if err != nil {
		return err
	}
	defer func() { logResult(dir, name, OpIncref, []string{strconv.Itoa(pid), metadata}, err) }()

	return withBothLocks(p, func() error {
		return increfLocked(p, pid, metadata)
	})
}

// increfLocked is Incref's body, assuming the caller already holds both
// per-name locks (used standalone by Incref and composed into Use's
// start-or-attach critical section).
func increfLocked(p Paths, pid int, metadata string) error {
	var server ServerRecord
	if err := tolerantRead(p.ServerFile, &server); err != nil {
		return &OpError{Op: OpIncref, Name: p.ServerFile, Err: ErrServerNotFound}
	}
	if err := checkVersion(server.Version); err != nil {
		return &OpError{Op: OpIncref, Name: server.Name, Err: err}
	}
	if !isAlive(server.WatcherPID) {
		return &OpError{Op: OpIncref, Name: server.Name, Err: ErrWatcherGone}
	}

	var clients ClientsRecord
	err := tolerantRead(p.ClientsFile, &clients)
	switch err {
	case nil:
		if clients.Clients == nil {
			clients.Clients = map[string]ClientEntry{}
		}
		key := pidKey(pid)
		entry := clients.Clients[key]
		entry.Metadata = metadata
		if _, existed := clients.Clients[key]; !existed {
			entry.AttachedAt = now().Unix()
		}
		clients.Clients[key] = entry
		clients.Refcount = len(clients.Clients)
		clients.Version = RecordVersion
		return atomicPublish(p.ClientsFile, &clients)
	case ErrNotFound:
		// GRACE: recreate the clients record with this sole client,
		// which the watcher's next tick reads as a cancelled grace
		// timer.
		created := NewClientsRecord(pid, metadata)
		return atomicPublish(p.ClientsFile, created)
	default:
		return &OpError{Op: OpIncref, Name: server.Name, Err: err}
	}
}

// Decref removes pid from name's attached clients. If the clients record is
// already absent, Decref succeeds silently: there is nothing to undo. If
// pid was never attached, Decref is a no-op warning, not an error. When the
// refcount reaches zero the clients record is deleted (entering GRACE); the
// server record is never touched here.
func Decref(dir, name string, pid int) (warned bool, err error) {
	p, err := PathsFor(dir, name)
	if err != nil {
		return false, err
	}
	defer func() { logResult(dir, name, OpDecref, []string{strconv.Itoa(pid)}, err) }()

	err = withClientsLock(p, func() error {
		var lockedErr error
		warned, lockedErr = decrefLocked(p, pid)
		return lockedErr
	})
	return warned, err
}

// decrefLocked is Decref's body, assuming the caller already holds the
// clients lock.
func decrefLocked(p Paths, pid int) (warned bool, err error) {
	var clients ClientsRecord
	readErr := tolerantRead(p.ClientsFile, &clients)
	switch readErr {
	case nil:
		// fallthrough to removal below
	case ErrNotFound:
		return false, nil
	default:
		return false, &OpError{Op: OpDecref, Name: p.ClientsFile, Err: readErr}
	}

	key := pidKey(pid)
	if _, ok := clients.Clients[key]; !ok {
		return true, nil
	}
	delete(clients.Clients, key)
	clients.Refcount = len(clients.Clients)

	if clients.Refcount == 0 {
		return false, removeIfExists(p.ClientsFile)
	}
	clients.Version = RecordVersion
	return false, atomicPublish(p.ClientsFile, &clients)
}
