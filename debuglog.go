package sharedserver

import (
	"bufio"
	"context"
	"encoding/json"
	"os"

	"github.com/fsnotify/fsnotify"
)

// InvocationLogEntry is one line of a name's append-only debug log,
// grounded on the invocation logging the Rust prototype keeps in
// sharedserver-core's log module.
type InvocationLogEntry struct {
	Time   int64          `json:"time"`
	Op     string         `json:"op"`
	Name   string         `json:"name"`
	Args   []string       `json:"args,omitempty"`
	OK     bool           `json:"ok"`
	Err    string         `json:"err,omitempty"`
	Detail map[string]any `json:"detail,omitempty"`
}

// LogInvocation appends entry to name's debug log. It is best-effort: a
// failure here (disk full, permission) is swallowed rather than returned,
// since logging must never be the reason an operation fails.
func LogInvocation(dir, name string, entry InvocationLogEntry) {
	p, err := PathsFor(dir, name)
	if err != nil {
		return
	}
	entry.Time = now().Unix()
	entry.Name = name

	f, err := os.OpenFile(p.DebugLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, RecordMode)
	if err != nil {
		return
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')
	_, _ = f.Write(data)
}

// logResult builds an InvocationLogEntry from the outcome of a client or
// admin operation and appends it via LogInvocation. The entry carries only
// op/args/ok/err; a caller that needs Detail calls LogInvocation directly.
func logResult(dir, name string, op Operation, args []string, err error) {
	entry := InvocationLogEntry{Op: op.String(), Args: args, OK: err == nil}
	if err != nil {
		entry.Err = err.Error()
	}
	LogInvocation(dir, name, entry)
}

// ReadInvocationLog returns the most recent limit entries of name's debug
// log (0 means all), oldest first, for admin debug's one-shot dump.
func ReadInvocationLog(dir, name string, limit int) ([]InvocationLogEntry, error) {
	p, err := PathsFor(dir, name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p.DebugLogFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &OpError{Op: OpDebug, Name: name, Err: err}
	}
	defer f.Close()

	var entries []InvocationLogEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e InvocationLogEntry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// FollowInvocationLog streams newly appended entries of name's debug log to
// onEntry until ctx is cancelled, using fsnotify to wake on writes instead
// of busy-polling. It is CLI-side interactive diagnosis surface, distinct
// from the watcher's own timer-driven poll loop.
func FollowInvocationLog(ctx context.Context, dir, name string, onEntry func(InvocationLogEntry)) error {
	p, err := PathsFor(dir, name)
	if err != nil {
		return err
	}

	offset, readErr := drainExisting(p.DebugLogFile, onEntry)
	if readErr != nil && !os.IsNotExist(readErr) {
		return &OpError{Op: OpDebug, Name: name, Err: readErr}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return &OpError{Op: OpDebug, Name: name, Err: err}
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return &OpError{Op: OpDebug, Name: name, Err: err}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != p.DebugLogFile {
				continue
			}
			var readErr error
			offset, readErr = drainFrom(p.DebugLogFile, offset, onEntry)
			if readErr != nil && !os.IsNotExist(readErr) {
				return &OpError{Op: OpDebug, Name: name, Err: readErr}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				return &OpError{Op: OpDebug, Name: name, Err: err}
			}
		}
	}
}

// drainExisting reads the whole file from the start, for the initial
// snapshot before following begins.
func drainExisting(path string, onEntry func(InvocationLogEntry)) (offset int64, err error) {
	return drainFrom(path, 0, onEntry)
}

// drainFrom reads path starting at byte offset, invoking onEntry for each
// complete line, and returns the new offset to resume from.
func drainFrom(path string, offset int64, onEntry func(InvocationLogEntry)) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return offset, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, 0); err != nil {
		return offset, err
	}

	r := bufio.NewReader(f)
	var read int64
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			// A last line without its newline is not complete yet; it is
			// left for the next call.
			break
		}
		read += int64(len(line))
		var e InvocationLogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		onEntry(e)
	}
	return offset + read, nil
}
