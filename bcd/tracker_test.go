package bcd

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockTrackerWaitAfterFinish(t *testing.T) {
	tr := NewBlockTracker(3)
	tr.Finish(1)
	// Already finished: returns immediately.
	tr.Wait(1)
	assert.True(t, tr.Done(1))
	assert.False(t, tr.Done(0))
}

func TestBlockTrackerWaitBlocksUntilFinish(t *testing.T) {
	tr := NewBlockTracker(1)

	var finished atomic.Bool
	released := make(chan struct{})
	go func() {
		tr.Wait(0)
		require.True(t, finished.Load(), "Wait returned before Finish")
		close(released)
	}()

	// Give the waiter a chance to park before finishing.
	time.Sleep(20 * time.Millisecond)
	finished.Store(true)
	tr.Finish(0)

	select {
	case <-released:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never released")
	}
}

func TestBlockTrackerManyWaitersManyFinishers(t *testing.T) {
	const blocks = 8
	tr := NewBlockTracker(blocks)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		for id := 0; id < blocks; id++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				tr.Wait(id)
			}(id)
		}
	}

	// Concurrent, repeated Finish calls on the same ids are idempotent.
	for w := 0; w < 3; w++ {
		go func() {
			for id := 0; id < blocks; id++ {
				tr.Finish(id)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiters deadlocked")
	}
	for id := 0; id < blocks; id++ {
		assert.True(t, tr.Done(id))
	}
}
