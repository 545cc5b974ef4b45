// Package db persists benchmark run history in SQL databases.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"convbench/internal/benchmark"
)

// Store is a benchmark.Store backed by a database connection.
type Store interface {
	benchmark.Store
	Close() error
}

// sqlStore holds the queries shared by every dialect. Queries are written
// with ? placeholders and rebound for the driver.
type sqlStore struct {
	db     *sql.DB
	rebind func(string) string
}

func (s *sqlStore) q(query string) string {
	if s.rebind == nil {
		return query
	}
	return s.rebind(query)
}

// Save stores run and its results in one transaction.
func (s *sqlStore) Save(run benchmark.Run) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(s.q(`INSERT INTO runs (id, created_at, commit_sha) VALUES (?, ?, ?)`),
		run.ID, run.Timestamp.UTC(), run.Commit); err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	for i, res := range run.Results {
		samples, err := json.Marshal(res.Samples)
		if err != nil {
			return fmt.Errorf("failed to marshal samples: %w", err)
		}
		if _, err := tx.Exec(s.q(`INSERT INTO results (run_id, position, scenario, reducer, value_ms, started_at, elapsed_ns, samples) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			run.ID, i, res.Scenario, res.Reducer, res.Value, res.StartedAt.UTC(), int64(res.Elapsed), string(samples)); err != nil {
			return fmt.Errorf("failed to insert result %s: %w", res.Scenario, err)
		}
	}

	return tx.Commit()
}

// LoadAll returns every run, oldest first.
func (s *sqlStore) LoadAll() ([]benchmark.Run, error) {
	rows, err := s.db.Query(`SELECT id, created_at, commit_sha FROM runs ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	var runs []benchmark.Run
	for rows.Next() {
		var run benchmark.Run
		if err := rows.Scan(&run.ID, &run.Timestamp, &run.Commit); err != nil {
			rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		results, err := s.loadResults(runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Results = results
	}
	if runs == nil {
		runs = []benchmark.Run{}
	}
	return runs, nil
}

// LoadLatest returns the most recent run, or nil when there is none.
func (s *sqlStore) LoadLatest() (*benchmark.Run, error) {
	var run benchmark.Run
	err := s.db.QueryRow(`SELECT id, created_at, commit_sha FROM runs ORDER BY created_at DESC, id DESC LIMIT 1`).
		Scan(&run.ID, &run.Timestamp, &run.Commit)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.Results, err = s.loadResults(run.ID)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *sqlStore) loadResults(runID string) ([]benchmark.ComparisonResult, error) {
	rows, err := s.db.Query(s.q(`SELECT scenario, reducer, value_ms, started_at, elapsed_ns, samples FROM results WHERE run_id = ? ORDER BY position ASC`), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []benchmark.ComparisonResult
	for rows.Next() {
		var (
			res     benchmark.ComparisonResult
			elapsed int64
			samples string
		)
		if err := rows.Scan(&res.Scenario, &res.Reducer, &res.Value, &res.StartedAt, &elapsed, &samples); err != nil {
			return nil, err
		}
		res.Elapsed = time.Duration(elapsed)
		if err := json.Unmarshal([]byte(samples), &res.Samples); err != nil {
			return nil, fmt.Errorf("corrupt samples for run %s: %w", runID, err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// Close closes the database connection
func (s *sqlStore) Close() error {
	return s.db.Close()
}

// dollarPlaceholders rewrites ? placeholders as $1, $2, ...
func dollarPlaceholders(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
