package sharedserver

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// LockDirEnv overrides the lock directory outright.
const LockDirEnv = "SHAREDSERVER_LOCKDIR"

// DebugEnv, when non-empty, enables verbose diagnostics on stderr.
const DebugEnv = "SHAREDSERVER_DEBUG"

const xdgRuntimeDirEnv = "XDG_RUNTIME_DIR"
const fallbackLockDir = "/tmp/sharedserver"

// LockDirMode is the permission mode for a freshly created lock directory.
const LockDirMode os.FileMode = 0o700

var nameRE = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateName enforces the conservative name character class from the
// spec: letters, digits, '-', '_', '.', and no path separators.
func ValidateName(name string) error {
	if name == "" || !nameRE.MatchString(name) || name == "." || name == ".." {
		return &OpError{Op: OpUnknown, Name: name, Err: ErrBadName}
	}
	return nil
}

// LockDir resolves the lock directory in priority order:
// $SHAREDSERVER_LOCKDIR, else $XDG_RUNTIME_DIR/sharedserver, else
// /tmp/sharedserver. It does not create the directory.
func LockDir() string {
	if dir := os.Getenv(LockDirEnv); dir != "" {
		return dir
	}
	if xdg := os.Getenv(xdgRuntimeDirEnv); xdg != "" {
		return filepath.Join(xdg, "sharedserver")
	}
	return fallbackLockDir
}

// EnsureLockDir resolves the lock directory and creates it with owner-only
// permissions if it does not already exist.
func EnsureLockDir() (string, error) {
	dir := LockDir()
	if err := os.MkdirAll(dir, LockDirMode); err != nil {
		return "", fmt.Errorf("creating lock directory %s: %w", dir, err)
	}
	return dir, nil
}

// Paths is the set of filesystem paths derived from a lock directory and a
// name: the four record and lock paths plus the debug log.
type Paths struct {
	Dir          string
	ServerFile   string
	ClientsFile  string
	ServerLock   string
	ClientsLock  string
	DebugLogFile string
}

// PathsFor derives the four per-name record/lock paths plus the debug log
// path, rooted at dir. It validates name but does not touch the filesystem.
func PathsFor(dir, name string) (Paths, error) {
	if err := ValidateName(name); err != nil {
		return Paths{}, err
	}
	return Paths{
		Dir:          dir,
		ServerFile:   filepath.Join(dir, name+".server.json"),
		ClientsFile:  filepath.Join(dir, name+".clients.json"),
		ServerLock:   filepath.Join(dir, name+".server.lock"),
		ClientsLock:  filepath.Join(dir, name+".clients.lock"),
		DebugLogFile: filepath.Join(dir, name+".debug.log"),
	}, nil
}

// serverSuffix and clientsSuffix identify the two record file kinds
// directly under a lock directory.
const serverSuffix = ".server.json"
const clientsSuffix = ".clients.json"

// NameFromServerFile extracts the logical name from a "*.server.json" base
// name, or ok=false if base does not have that suffix.
func NameFromServerFile(base string) (name string, ok bool) {
	return stripSuffix(base, serverSuffix)
}

// NameFromClientsFile extracts the logical name from a "*.clients.json"
// base name, or ok=false if base does not have that suffix.
func NameFromClientsFile(base string) (name string, ok bool) {
	return stripSuffix(base, clientsSuffix)
}

func stripSuffix(base, suffix string) (name string, ok bool) {
	if len(base) <= len(suffix) {
		return "", false
	}
	if base[len(base)-len(suffix):] != suffix {
		return "", false
	}
	return base[:len(base)-len(suffix)], true
}
