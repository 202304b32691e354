package keyedmutex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameKeySerializes(t *testing.T) {
	km := New()

	const workers = 20
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock(1)
			counter++
			km.Unlock(1)
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestDifferentKeysIndependent(t *testing.T) {
	km := New()

	km.Lock(1)

	done := make(chan struct{})
	go func() {
		km.Lock(2)
		km.Unlock(2)
		close(done)
	}()

	// Key 2 must not wait on key 1.
	<-done
	km.Unlock(1)
}

func TestEntriesAreReclaimed(t *testing.T) {
	km := New()

	for key := int64(0); key < 100; key++ {
		km.Lock(key)
		km.Unlock(key)
	}

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks, "released keys must not linger")
}

func TestUnlockUnheldPanics(t *testing.T) {
	km := New()
	require.Panics(t, func() { km.Unlock(7) })
}
