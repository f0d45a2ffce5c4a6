package sharedserver

import (
	"strconv"
	"time"
)

// RecordVersion is the schema version stamped on every record this build
// writes. A record read with a higher version is rejected as
// ErrCorruptVersion rather than guessed at.
const RecordVersion = 1

// ServerRecord is the on-disk "<name>.server.json" record. It exists from
// the moment a server's pid is known until the watcher (or admin kill)
// removes it.
type ServerRecord struct {
	Version        int               `json:"version"`
	PID            int               `json:"pid"`
	Name           string            `json:"name"`
	Command        string            `json:"command"`
	Args           []string          `json:"args,omitempty"`
	StartedAt      int64             `json:"started_at"`
	GracePeriod    string            `json:"grace_period,omitempty"`
	WatcherPID     int               `json:"watcher_pid"`
	ShutdownSignal string            `json:"shutdown_signal,omitempty"`
	Env            map[string]string `json:"env,omitempty"`
	WorkingDir     string            `json:"working_dir,omitempty"`
	LogFile        string            `json:"log_file,omitempty"`
}

// ClientEntry is one attached client's metadata within a ClientsRecord.
type ClientEntry struct {
	AttachedAt int64  `json:"attached_at"`
	Metadata   string `json:"metadata,omitempty"`
}

// ClientsRecord is the on-disk "<name>.clients.json" record. It exists iff
// refcount > 0; its presence is the canonical ACTIVE-vs-GRACE signal.
type ClientsRecord struct {
	Version  int                    `json:"version"`
	Refcount int                    `json:"refcount"`
	Clients  map[string]ClientEntry `json:"clients"`
}

// NewClientsRecord builds a ClientsRecord with a single initial client.
func NewClientsRecord(pid int, metadata string) *ClientsRecord {
	return &ClientsRecord{
		Version:  RecordVersion,
		Refcount: 1,
		Clients: map[string]ClientEntry{
			pidKey(pid): {AttachedAt: now().Unix(), Metadata: metadata},
		},
	}
}

// now is a seam for tests that need deterministic timestamps; production
// code always calls time.Now.
var now = time.Now

func pidKey(pid int) string {
	return strconv.Itoa(pid)
}
