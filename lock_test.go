package sharedserver

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWithServerLockExclusion(t *testing.T) {
	dir := t.TempDir()
	p := Paths{ServerLock: filepath.Join(dir, "web.server.lock")}

	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = withServerLock(p, func() error {
				n := atomic.AddInt32(&active, 1)
				for {
					cur := atomic.LoadInt32(&maxActive)
					if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, maxActive, "max concurrent lock holders")
}

func TestWithBothLocksRunsFn(t *testing.T) {
	dir := t.TempDir()
	p := Paths{
		ServerLock:  filepath.Join(dir, "web.server.lock"),
		ClientsLock: filepath.Join(dir, "web.clients.lock"),
	}

	ran := false
	err := withBothLocks(p, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran, "withBothLocks did not run fn")
}
