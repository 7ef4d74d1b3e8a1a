package locks

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockSerializesSameKey(t *testing.T) {
	k := NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Lock("order-1")
			counter++
			k.Unlock("order-1")
		}()
	}
	wg.Wait()

	assert.Equal(t, 200, counter)
}

func TestDistinctKeysDoNotBlockEachOther(t *testing.T) {
	k := NewKeyedMutex()

	k.Lock("order-1")
	done := make(chan struct{})
	go func() {
		k.Lock("order-2")
		k.Unlock("order-2")
		close(done)
	}()
	<-done
	k.Unlock("order-1")
}

func TestEntriesAreReleasedWhenIdle(t *testing.T) {
	k := NewKeyedMutex()

	k.Lock("order-1")
	k.Unlock("order-1")

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}
