package postgres

import (
	"context"
	"fmt"
	"time"
)

// SolveRecord is one row of solve history.
type SolveRecord struct {
	ID         int64
	Puzzle     string
	Solution   string
	Solved     bool
	Workers    int
	DurationMS int64
	CreatedAt  time.Time
}

// RecordSolve inserts one solve outcome. It satisfies the server's History
// interface.
func (db *DB) RecordSolve(ctx context.Context, puzzle, solution string, solved bool, workers int, duration time.Duration) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO solve_history (puzzle, solution, solved, workers, duration_ms)
		 VALUES ($1, $2, $3, $4, $5)`,
		puzzle, solution, solved, workers, duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("postgres: insert solve record: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]SolveRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, puzzle, solution, solved, workers, duration_ms, created_at
		 FROM solve_history ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query recent solves: %w", err)
	}
	defer rows.Close()

	var records []SolveRecord
	for rows.Next() {
		var r SolveRecord
		if err := rows.Scan(&r.ID, &r.Puzzle, &r.Solution, &r.Solved, &r.Workers, &r.DurationMS, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan solve record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate solve records: %w", err)
	}
	return records, nil
}

// Summary aggregates solve history counters.
type Summary struct {
	Total      int64
	Solved     int64
	Unsolvable int64
}

// Summarize returns aggregate counts over the whole history.
func (db *DB) Summarize(ctx context.Context) (Summary, error) {
	var s Summary
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE solved),
		        COUNT(*) FILTER (WHERE NOT solved)
		 FROM solve_history`).Scan(&s.Total, &s.Solved, &s.Unsolvable)
	if err != nil {
		return Summary{}, fmt.Errorf("postgres: summarize history: %w", err)
	}
	return s, nil
}
