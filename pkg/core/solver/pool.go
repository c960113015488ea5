package solver

import (
	"sync"

	"github.com/gridlock-solve/gridlock/pkg/core/stack"
)

// Pool is a termination-detecting work pool for a fixed set of workers. It
// wraps a lock-free stack with idle-worker bookkeeping so that each of the N
// workers calling Get receives either an item or a definitive "no item exists
// and none ever will".
//
// Contract: after the workers have started, Add may only be called by a
// worker that currently holds an item obtained from Get. A pushing worker is
// therefore never idle, the idle count cannot reach N while a push is in
// flight, and the false-termination race between a push and the idle check
// cannot occur. Seeding the pool before the workers start is always safe.
type Pool[T any] struct {
	stack stack.Stack[T]

	mu      sync.Mutex
	cond    *sync.Cond
	idle    int
	workers int
	closed  bool
}

// NewPool creates a pool for exactly workers consumers. Counts below 1 are
// normalized to 1.
func NewPool[T any](workers int) *Pool[T] {
	if workers < 1 {
		workers = 1
	}
	p := &Pool[T]{workers: workers}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Add pushes an item and wakes any idle workers so they retry the stack.
func (p *Pool[T]) Add(v T) {
	p.stack.Push(v)
	p.mu.Lock()
	if p.idle > 0 {
		p.cond.Broadcast()
	}
	p.mu.Unlock()
}

// Get returns the next item, blocking while the pool is empty but other
// workers are still active. The second return value is false exactly when the
// pool has terminated: the stack was observed empty while all workers were
// simultaneously idle. Once terminated, every pending and subsequent Get
// returns false.
func (p *Pool[T]) Get() (T, bool) {
	var zero T
	for {
		if v, ok := p.stack.Pop(); ok {
			return v, true
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return zero, false
		}
		// Re-check under the lock: an Add may have landed between the failed
		// Pop above and acquiring the lock. Because Add is only called by
		// active workers and all other idle workers are blocked on the same
		// lock's condition, an empty pop here together with idle == workers
		// is a single consistent observation of (pool empty, all idle).
		if v, ok := p.stack.Pop(); ok {
			p.mu.Unlock()
			return v, true
		}
		p.idle++
		if p.idle == p.workers {
			p.closed = true
			p.cond.Broadcast()
			p.mu.Unlock()
			return zero, false
		}
		p.cond.Wait()
		if p.closed {
			p.mu.Unlock()
			return zero, false
		}
		p.idle--
		p.mu.Unlock()
		// Woken by an Add: loop around and race for the new item.
	}
}
