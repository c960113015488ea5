// Package gridlock ties the core search engine to the surrounding system:
// puzzle parsing and validation, the solution cache, logging, and timing.
// The cmd tools, the HTTP service, and the directory watcher all drive solves
// through an Engine rather than calling the core solver directly.
package gridlock

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gridlock-solve/gridlock/pkg/cache"
	"github.com/gridlock-solve/gridlock/pkg/common/logging"
	"github.com/gridlock-solve/gridlock/pkg/core/board"
	"github.com/gridlock-solve/gridlock/pkg/core/solver"
)

// Engine runs solves with a fixed configuration.
type Engine struct {
	workers    int
	sequential bool
	cache      *cache.SolutionCache
	log        *logging.Logger

	solves     atomic.Uint64
	solved     atomic.Uint64
	unsolvable atomic.Uint64
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithWorkers sets the concurrent worker count. Values below 1 are
// normalized to 1.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithSequential forces the sequential reference path regardless of worker
// count. The sequential path is deterministic: a fixed puzzle always yields
// the same solution.
func WithSequential() Option {
	return func(e *Engine) { e.sequential = true }
}

// WithCache attaches a solution cache. Nil disables caching.
func WithCache(c *cache.SolutionCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithLogger sets the engine's logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an Engine. The default worker count is runtime.NumCPU()
// and caching is off unless WithCache is given.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		workers: runtime.NumCPU(),
		log:     logging.Default().WithComponent("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of a single solve.
type Result struct {
	// Puzzle is the input board.
	Puzzle board.Board
	// Solution is the completed board; only meaningful when Solved is true.
	Solution board.Board
	// Solved is false when the search space was exhausted with no completion.
	Solved bool
	// Workers that performed the search (1 for the sequential path).
	Workers int
	// Duration of the search, excluding cache lookup.
	Duration time.Duration
	// FromCache is true when the solution was served without searching.
	FromCache bool
}

// SolveString parses and validates a puzzle description, then solves it.
// A parse failure or a board with conflicting clues is an error; an
// unsolvable but well-formed puzzle is a normal Result with Solved false.
func (e *Engine) SolveString(puzzle string) (Result, error) {
	b, err := board.Parse(puzzle)
	if err != nil {
		return Result{}, err
	}
	if !b.Valid() {
		return Result{}, fmt.Errorf("gridlock: puzzle has conflicting clues")
	}
	return e.Solve(b), nil
}

// Solve searches for a completion of b. It blocks until the search finishes.
func (e *Engine) Solve(b board.Board) Result {
	e.solves.Add(1)
	key := b.String()

	if e.cache != nil {
		if cached, ok := e.cache.Get(key); ok {
			sol, err := board.Parse(cached)
			if err == nil {
				e.solved.Add(1)
				e.log.Debug("cache hit", logging.Fields{"puzzle": key})
				return Result{
					Puzzle:    b,
					Solution:  sol,
					Solved:    true,
					Workers:   e.Workers(),
					FromCache: true,
				}
			}
		}
	}

	workers := e.workers
	if e.sequential {
		workers = 1
	}

	start := time.Now()
	var (
		solution board.Board
		ok       bool
	)
	if e.sequential {
		solution, ok = solver.Solve(b)
	} else {
		solution, ok = solver.SolveConcurrent(b, workers)
	}
	elapsed := time.Since(start)

	res := Result{
		Puzzle:   b,
		Solution: solution,
		Solved:   ok,
		Workers:  workers,
		Duration: elapsed,
	}
	if ok {
		e.solved.Add(1)
		if e.cache != nil {
			e.cache.Put(key, solution.String())
		}
		e.log.Debug("puzzle solved", logging.Fields{
			"workers":  workers,
			"duration": elapsed.String(),
		})
	} else {
		e.unsolvable.Add(1)
		e.log.Debug("puzzle unsolvable", logging.Fields{
			"workers":  workers,
			"duration": elapsed.String(),
		})
	}
	return res
}

// Workers returns the engine's configured worker count.
func (e *Engine) Workers() int {
	if e.sequential {
		return 1
	}
	return e.workers
}

// EngineStats is a snapshot of engine counters since construction.
type EngineStats struct {
	Solves     uint64 `json:"solves"`
	Solved     uint64 `json:"solved"`
	Unsolvable uint64 `json:"unsolvable"`
	Workers    int    `json:"workers"`
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		Solves:     e.solves.Load(),
		Solved:     e.solved.Load(),
		Unsolvable: e.unsolvable.Load(),
		Workers:    e.Workers(),
	}
}
