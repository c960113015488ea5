// Package stack provides a lock-free LIFO container shared by the solver's
// workers.
package stack

import "sync/atomic"

type node[T any] struct {
	value T
	next  *node[T]
}

// Stack is a Treiber stack: a singly linked list whose head pointer is
// updated with atomic compare-and-swap. Push and Pop are safe for concurrent
// use from any number of goroutines and are linearizable with respect to each
// other: no pushed item is lost, and no item is returned by more than one
// successful Pop. Node reclamation is left to the garbage collector, which
// also keeps the CAS retry loop safe against ABA on recycled nodes.
//
// The zero Stack is empty and ready to use.
type Stack[T any] struct {
	head atomic.Pointer[node[T]]
}

// Push adds v to the top of the stack.
func (s *Stack[T]) Push(v T) {
	n := &node[T]{value: v}
	for {
		old := s.head.Load()
		n.next = old
		if s.head.CompareAndSwap(old, n) {
			return
		}
	}
}

// Pop removes and returns the most recently pushed item. The second return
// value is false if the stack was observed empty. An empty observation is
// transient: a concurrent Push may land immediately after, so callers must
// not treat it as proof of exhaustion.
func (s *Stack[T]) Pop() (T, bool) {
	for {
		old := s.head.Load()
		if old == nil {
			var zero T
			return zero, false
		}
		if s.head.CompareAndSwap(old, old.next) {
			return old.value, true
		}
	}
}
