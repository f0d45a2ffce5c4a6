package sharedserver

import (
	"os"
	"syscall"
)

// AdminStart launches a server with no initial client, so the watcher
// enters GRACE immediately unless something increfs it afterward. Useful
// for pre-warming a server ahead of the first real client.
func AdminStart(dir, name string, cfg LaunchConfig) (*ServerRecord, error) {
	p, err := PathsFor(dir, name)
	if err != nil {
		return nil, err
	}

	var server *ServerRecord
	err = withBothLocks(p, func() error {
		var existing ServerRecord
		readErr := tolerantRead(p.ServerFile, &existing)
		if readErr == nil && isAlive(existing.PID) {
			server = &existing
			return nil
		}
		launched, launchErr := launchLocked(p, name, cfg, 0, "", false)
		server = launched
		return launchErr
	})
	logResult(dir, name, OpStart, launchArgs(cfg), err)
	if err != nil {
		return nil, err
	}
	return server, nil
}

// AdminStop sends the server's configured shutdown signal (or, with
// force, SIGKILL) to the server pid. It never touches the lockfiles
// itself: the watcher observes the exit on its next poll and cleans up.
func AdminStop(dir, name string, force bool) (err error) {
	p, perr := PathsFor(dir, name)
	if perr != nil {
		return perr
	}
	sigName := signalArg(force, "")
	defer func() { logResult(dir, name, OpStop, []string{sigName}, err) }()

	var server ServerRecord
	if readErr := tolerantRead(p.ServerFile, &server); readErr != nil {
		return &OpError{Op: OpStop, Name: name, Err: readErr}
	}

	sig := signalByName(server.ShutdownSignal)
	sigName = signalArg(force, server.ShutdownSignal)
	if force {
		sig = syscall.SIGKILL
	}

	proc, findErr := os.FindProcess(server.PID)
	if findErr != nil {
		return &OpError{Op: OpStop, Name: name, Err: findErr}
	}
	if sigErr := proc.Signal(sig); sigErr != nil {
		return &OpError{Op: OpStop, Name: name, Err: sigErr}
	}
	return nil
}

// signalArg is AdminStop's debug-log argument: the signal name it sent, or
// would send, distinguishing a graceful stop from a forced kill. configured
// is the record's shutdown_signal, resolved the way signalByName does.
func signalArg(force bool, configured string) string {
	if force {
		return "KILL"
	}
	switch configured {
	case "KILL", "INT", "HUP", "QUIT":
		return configured
	}
	return "TERM"
}

// AdminKill is the emergency path: it hard-kills the server pid and the
// watcher pid (best effort, ignoring "already dead") and unconditionally
// unlinks both records under both locks.
func AdminKill(dir, name string) error {
	p, err := PathsFor(dir, name)
	if err != nil {
		return err
	}

	return withBothLocks(p, func() error {
		var server ServerRecord
		readErr := tolerantRead(p.ServerFile, &server)
		if readErr == nil {
			killPID(server.PID)
			killPID(server.WatcherPID)
		}
		_ = removeIfExists(p.ClientsFile)
		return removeIfExists(p.ServerFile)
	})
}

func killPID(pid int) {
	if pid <= 0 {
		return
	}
	if proc, err := os.FindProcess(pid); err == nil {
		_ = proc.Signal(syscall.SIGKILL)
	}
}

// DoctorReport describes one repair admin doctor made (or would have made)
// for a single name.
type DoctorReport struct {
	Name    string
	Actions []string
}

// AdminDoctor checks a single name's records, repairing what it can: it
// removes a record whose pid is dead, an orphaned, corrupt or
// unsupported-version record, and recomputes refcount from the live subset
// of clients rather than trusting a hand-edited value. It does not check
// watcher_pid: a live server whose watcher has died is left as it is.
func AdminDoctor(dir, name string) (DoctorReport, error) {
	p, err := PathsFor(dir, name)
	if err != nil {
		return DoctorReport{}, err
	}

	report := DoctorReport{Name: name}
	err = withBothLocks(p, func() error {
		var server ServerRecord
		serverErr := tolerantRead(p.ServerFile, &server)

		switch serverErr {
		case nil:
			if verErr := checkVersion(server.Version); verErr != nil {
				report.Actions = append(report.Actions, "removed server record: unsupported version")
				return removeIfExists(p.ServerFile)
			}
			if !isAlive(server.PID) {
				report.Actions = append(report.Actions, "removed server record: pid not alive")
				_ = removeIfExists(p.ClientsFile)
				return removeIfExists(p.ServerFile)
			}
		case ErrNotFound:
			// Invariant 1: a clients record may exist only if the server
			// record does. No server record means the clients record, if
			// any, is orphaned.
			var clients ClientsRecord
			if tolerantRead(p.ClientsFile, &clients) == nil {
				report.Actions = append(report.Actions, "removed orphaned clients record")
				return removeIfExists(p.ClientsFile)
			}
			return nil
		case ErrCorrupt:
			report.Actions = append(report.Actions, "removed corrupt server record")
			_ = removeIfExists(p.ClientsFile)
			return removeIfExists(p.ServerFile)
		default:
			return &OpError{Op: OpDoctor, Name: name, Err: serverErr}
		}

		var clients ClientsRecord
		clientsErr := tolerantRead(p.ClientsFile, &clients)
		switch clientsErr {
		case nil:
			live := map[string]ClientEntry{}
			for key, entry := range clients.Clients {
				if isAlive(parsePIDOrZero(key)) {
					live[key] = entry
				}
			}
			if len(live) == 0 {
				report.Actions = append(report.Actions, "removed clients record: no live pids")
				return removeIfExists(p.ClientsFile)
			}
			if len(live) != clients.Refcount || len(live) != len(clients.Clients) {
				report.Actions = append(report.Actions, "recomputed refcount from live clients")
				clients.Clients = live
				clients.Refcount = len(live)
				clients.Version = RecordVersion
				return atomicPublish(p.ClientsFile, &clients)
			}
			return nil
		case ErrNotFound:
			return nil
		case ErrCorrupt:
			report.Actions = append(report.Actions, "removed corrupt clients record")
			return removeIfExists(p.ClientsFile)
		default:
			return &OpError{Op: OpDoctor, Name: name, Err: clientsErr}
		}
	})
	if err != nil {
		return report, err
	}
	if len(report.Actions) > 0 {
		opLogger(pkgLogger, OpDoctor, name).Info("repaired invariants", "actions", report.Actions)
	}
	return report, nil
}

// AdminDoctorAll runs AdminDoctor over every name currently recorded under
// dir, aggregating per-name failures into a MultiError rather than
// aborting the sweep on the first bad record.
func AdminDoctorAll(dir string) ([]DoctorReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &OpError{Op: OpDoctor, Name: dir, Err: err}
	}

	seen := map[string]bool{}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if name, ok := NameFromServerFile(e.Name()); ok {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			continue
		}
		// An orphaned clients record with no matching server record is
		// exactly invariant 1's violation: still worth a doctor pass so
		// it gets removed.
		if name, ok := NameFromClientsFile(e.Name()); ok {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}

	var reports []DoctorReport
	var merr MultiError
	for _, name := range names {
		report, doctorErr := AdminDoctor(dir, name)
		reports = append(reports, report)
		merr.Add(doctorErr)
	}
	return reports, merr.Err()
}
