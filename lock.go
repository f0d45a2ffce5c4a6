package sharedserver

import (
	"fmt"

	"github.com/gofrs/flock"
)

// acquireLock takes an exclusive advisory lock on the dedicated token file
// at path (never on the record file itself, so tolerant readers never
// contend with a writer). The returned release func must be called on every
// exit path, including panics; the kernel also releases the lock if the
// process dies with the fd open.
func acquireLock(path string) (release func(), err error) {
	fl := flock.New(path)
	if err := fl.Lock(); err != nil {
		return nil, &OpError{Op: OpUnknown, Name: path, Err: fmt.Errorf("%w: %v", ErrIO, err)}
	}
	return func() {
		_ = fl.Unlock()
	}, nil
}

// withServerLock runs fn while holding the exclusive lock on p.ServerLock.
func withServerLock(p Paths, fn func() error) error {
	release, err := acquireLock(p.ServerLock)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// withClientsLock runs fn while holding the exclusive lock on p.ClientsLock.
func withClientsLock(p Paths, fn func() error) error {
	release, err := acquireLock(p.ClientsLock)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// withBothLocks runs fn while holding both locks, always acquiring the
// server lock first to match the fixed ordering every cross-record caller
// must use to avoid deadlock.
func withBothLocks(p Paths, fn func() error) error {
	releaseServer, err := acquireLock(p.ServerLock)
	if err != nil {
		return err
	}
	defer releaseServer()

	releaseClients, err := acquireLock(p.ClientsLock)
	if err != nil {
		return err
	}
	defer releaseClients()

	return fn()
}
