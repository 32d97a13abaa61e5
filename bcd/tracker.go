package bcd

import "sync"

// BlockTracker monitors block completion across workers. Flags are monotone:
// once a block is finished it stays finished. Safe for many concurrent
// producers and consumers.
//
// Wait blocks forever unless some goroutine eventually calls Finish for the
// same block — there is no timeout and no cancellation. Guaranteeing that
// every block finishes is the caller's obligation.
type BlockTracker struct {
	mu   sync.Mutex
	cond *sync.Cond
	done []bool
}

// NewBlockTracker creates a tracker for n blocks, all unfinished.
func NewBlockTracker(n int) *BlockTracker {
	t := &BlockTracker{done: make([]bool, n)}
	t.cond = sync.NewCond(&t.mu)
	return t
}

// Finish marks block id as completed and wakes all waiters. Calling Finish
// repeatedly, including from multiple goroutines, is idempotent.
func (t *BlockTracker) Finish(id int) {
	t.mu.Lock()
	t.done[id] = true
	t.mu.Unlock()
	t.cond.Broadcast()
}

// Wait blocks the calling goroutine until block id has finished.
func (t *BlockTracker) Wait(id int) {
	t.mu.Lock()
	for !t.done[id] {
		t.cond.Wait()
	}
	t.mu.Unlock()
}

// Done reports whether block id has finished, without blocking.
func (t *BlockTracker) Done(id int) bool {
	t.mu.Lock()
	d := t.done[id]
	t.mu.Unlock()
	return d
}
