// Package sharedserver keeps a named, long-lived server process warm across
// many short-lived client invocations by reference-counting it on the local
// filesystem.
//
// A client calls Use to start-or-attach to a named server and Unuse to
// detach. The package tracks who is attached in a pair of JSON records per
// name (a server record and a clients record) under a lock directory, and a
// detached watcher process enforces the ACTIVE/GRACE/STOPPED state machine:
// a server with no attached clients is kept alive for a configurable grace
// period before the watcher shuts it down.
//
//	st, err := sharedserver.Check(dir, "chroma")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(st) // Active, Grace, or Stopped
//
// # Process model
//
// Use forks a server process and a supervising watcher process, both
// detached from the caller's session, then returns. The watcher is the only
// long-lived component; it polls server and client liveness, prunes dead
// clients, and removes both records once the server is gone. Incref and
// Decref read-modify-write under per-name advisory locks (Decref deletes the
// clients record when the refcount reaches zero); Check and GetInfo only
// read. None of them block on anything but local filesystem syscalls.
//
// # Design philosophy
//
//   - Zero network transport: every operation is a local filesystem and
//     process-signal operation.
//   - Crash-safe: every record write is a temp-file-then-rename, so a reader
//     never observes a torn write and a crashed writer leaves the old
//     contents in place.
//   - No root, no unit files: this is a user-space convenience, not a
//     service manager.
package sharedserver
