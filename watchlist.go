package sharedserver

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces bursts of record writes (a launch touches both
// the server and clients file in quick succession) into a single refresh.
const watchDebounce = 150 * time.Millisecond

// WatchList calls onChange once with the current List, then again every
// time a record in dir changes, until ctx is cancelled. It is the backing
// implementation of list --watch, grounded on the same fsnotify-driven
// refresh FollowInvocationLog uses for admin debug --follow.
func WatchList(ctx context.Context, dir string, onChange func([]Info, error)) error {
	infos, err := List(dir)
	onChange(infos, err)

	watcher, werr := fsnotify.NewWatcher()
	if werr != nil {
		return &OpError{Op: OpList, Name: dir, Err: werr}
	}
	defer watcher.Close()

	if werr := watcher.Add(dir); werr != nil {
		return &OpError{Op: OpList, Name: dir, Err: werr}
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if werr != nil {
				return &OpError{Op: OpList, Name: dir, Err: werr}
			}
		case <-timerC(timer):
			infos, err := List(dir)
			onChange(infos, err)
		}
	}
}

// timerC returns t.C, or a nil channel (which blocks forever in a select)
// when t has not been created yet.
func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}
