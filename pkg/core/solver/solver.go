// Package solver implements exhaustive depth-first search over partial board
// states, either single-threaded or spread across a fixed pool of workers
// sharing one lock-free work pool.
//
// The solver is generic over the board representation: any immutable state
// value implementing State can be searched. States are shared between workers
// by value, so implementations must never mutate in place.
package solver

import (
	"sync"
	"sync/atomic"
)

// State is a partial assignment with feasibility queries. Implementations
// must be immutable values: Place returns a new state and leaves its receiver
// unchanged, and NextEmpty must be deterministic given identical content.
type State[S any] interface {
	// Complete reports whether every cell is filled.
	Complete() bool

	// NextEmpty returns the cell to branch on. Only called when Complete is
	// false.
	NextEmpty() (row, col int)

	// CanPlace reports whether digit (1..9) is feasible at (row, col).
	CanPlace(row, col, digit int) bool

	// Place returns a new state extended with digit at (row, col).
	Place(row, col, digit int) S
}

// Solve searches depth-first from initial and returns the first completion
// found, or ok == false if the search space is exhausted without one.
//
// Branches are pushed in ascending digit order onto a LIFO stack, so the
// highest feasible digit is explored first. That tie-break is part of the
// observable contract: for a fixed puzzle the sequential path always returns
// the same solution.
func Solve[S State[S]](initial S) (solution S, ok bool) {
	var pending []S
	pending = append(pending, initial)
	for len(pending) > 0 {
		s := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if s.Complete() {
			return s, true
		}
		row, col := s.NextEmpty()
		for d := 1; d <= 9; d++ {
			if s.CanPlace(row, col, d) {
				pending = append(pending, s.Place(row, col, d))
			}
		}
	}
	var zero S
	return zero, false
}

// claim is a single-assignment result cell shared by the workers of one
// SolveConcurrent invocation. The first TryClaim wins; every later attempt
// fails and the stored value never changes.
type claim[S any] struct {
	done   atomic.Bool
	winner S
}

// TryClaim stores s and reports true if this is the first claim. Only the
// winning call writes winner, so reading it after all workers have joined is
// race-free.
func (c *claim[S]) TryClaim(s S) bool {
	if c.done.CompareAndSwap(false, true) {
		c.winner = s
		return true
	}
	return false
}

// Claimed reports whether some solution has been claimed.
func (c *claim[S]) Claimed() bool {
	return c.done.Load()
}

// SolveConcurrent searches from initial using workers goroutines fed from a
// single termination-detecting pool. It blocks until every worker has exited
// and returns the first completion claimed, or ok == false if the puzzle is
// unsolvable. Worker counts below 1 are normalized to 1.
//
// Exactly one worker wins the result claim. The claim does not interrupt its
// peers: each keeps expanding whatever it already holds and observes shutdown
// at its next Get once the pool drains, so a bounded amount of post-solution
// work is expected. For puzzles with several solutions, distinct runs (and
// the sequential path) may legitimately return different completions.
func SolveConcurrent[S State[S]](initial S, workers int) (solution S, ok bool) {
	if workers < 1 {
		workers = 1
	}

	pool := NewPool[S](workers)
	pool.Add(initial)

	var (
		result claim[S]
		wg     sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				s, ok := pool.Get()
				if !ok {
					return
				}
				if s.Complete() {
					result.TryClaim(s)
					continue
				}
				if result.Claimed() {
					// A solution exists; drain the pool without expanding so
					// the remaining workers observe termination promptly.
					continue
				}
				row, col := s.NextEmpty()
				for d := 1; d <= 9; d++ {
					if s.CanPlace(row, col, d) {
						pool.Add(s.Place(row, col, d))
					}
				}
			}
		}()
	}
	wg.Wait()

	if !result.Claimed() {
		var zero S
		return zero, false
	}
	return result.winner, true
}
