package sharedserver

import (
	"log/slog"
	"os"
)

// NewLogger builds the package's standard slog.Logger: a text handler on
// stderr, leveled by the SHAREDSERVER_DEBUG environment variable rather
// than a flag, so library callers and the CLI agree on when to go verbose
// without threading a verbosity flag through every function.
func NewLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv(DebugEnv) != "" {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// opLogger scopes logger with the fields every operation-level log line
// carries: the operation and the name it acted on.
func opLogger(logger *slog.Logger, op Operation, name string) *slog.Logger {
	return logger.With("op", op.String(), "name", name)
}

// pkgLogger is the logger package-internal code (the watcher loop, launch,
// doctor) uses for events that have no caller-supplied logger to report
// through, such as a watcher tick deciding to reap a server. SetLogger lets
// cmd/sharedserver point it at the CLI's own configured logger.
var pkgLogger = NewLogger()

// SetLogger replaces the package-internal logger used by background
// components (the watcher loop) that run detached from any caller.
func SetLogger(logger *slog.Logger) {
	if logger != nil {
		pkgLogger = logger
	}
}
