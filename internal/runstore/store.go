// Package runstore keeps a ledger of alignment runs in a SQLite database:
// the parameters used, the per-axis outcome and the residual summary of each
// run. Event data is never stored.
package runstore

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/samstevens127/MOLLER-tracking/internal/align"
	"github.com/samstevens127/MOLLER-tracking/internal/gem"
	"github.com/samstevens127/MOLLER-tracking/internal/report"
)

// Run is one ledger entry.
type Run struct {
	ID        uuid.UUID
	StartedAt time.Time
	Input     string // data_path/filename stem the events were read from
	Events    int
	Params    align.Params
	X, Y      align.Result
	Residuals []report.Summary
}

// NewRun returns a Run with a fresh identifier stamped at now.
func NewRun(now time.Time) Run {
	return Run{ID: uuid.New(), StartedAt: now}
}

// Store is an open ledger.
type Store struct {
	db *sql.DB
}

// Open opens or creates the ledger at path and brings its schema up to date.
// ":memory:" gives a private in-memory ledger.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open run store: %w", err)
	}
	// One connection keeps ":memory:" databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// RecordRun inserts r and its residual summary in one transaction.
func (s *Store) RecordRun(ctx context.Context, r Run) (err error) {
	if r.ID == uuid.Nil {
		return fmt.Errorf("run has no identifier")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (
			run_id, started_at_ns, input, events,
			target_plane, learning_rate, tolerance, max_iterations, epsilon,
			shift_x, iterations_x, converged_x, gradient_x, cost_x,
			shift_y, iterations_y, converged_y, gradient_y, cost_y
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID.String(), r.StartedAt.UnixNano(), r.Input, r.Events,
		int(r.Params.Target), r.Params.LearningRate, r.Params.Tolerance, r.Params.MaxIterations, r.Params.Epsilon,
		r.X.Shift, r.X.Iterations, r.X.Converged, r.X.Gradient, r.X.Cost,
		r.Y.Shift, r.Y.Iterations, r.Y.Converged, r.Y.Gradient, r.Y.Cost,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}

	for _, sum := range r.Residuals {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_residuals (run_id, plane, axis, n, mean, std_dev)
			VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID.String(), int(sum.Plane), sum.Axis.String(), sum.N, nullable(sum.Mean), nullable(sum.StdDev),
		)
		if err != nil {
			return fmt.Errorf("insert residuals %s %s: %w", sum.Plane, sum.Axis, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first, with their residuals.
// A limit of zero or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, started_at_ns, input, events,
			target_plane, learning_rate, tolerance, max_iterations, epsilon,
			shift_x, iterations_x, converged_x, gradient_x, cost_x,
			shift_y, iterations_y, converged_y, gradient_y, cost_y
		FROM runs
		ORDER BY started_at_ns DESC, run_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			id      string
			started int64
			target  int
		)
		r.X.Axis, r.Y.Axis = gem.AxisX, gem.AxisY
		err := rows.Scan(&id, &started, &r.Input, &r.Events,
			&target, &r.Params.LearningRate, &r.Params.Tolerance, &r.Params.MaxIterations, &r.Params.Epsilon,
			&r.X.Shift, &r.X.Iterations, &r.X.Converged, &r.X.Gradient, &r.X.Cost,
			&r.Y.Shift, &r.Y.Iterations, &r.Y.Converged, &r.Y.Gradient, &r.Y.Cost,
		)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("run id %q: %w", id, err)
		}
		r.StartedAt = time.Unix(0, started).UTC()
		r.Params.Target = gem.Plane(target)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Residuals are read after the run cursor is closed; the pool holds a
	// single connection.
	for i := range runs {
		if runs[i].Residuals, err = s.residuals(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *Store) residuals(ctx context.Context, id uuid.UUID) ([]report.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT plane, axis, n, mean, std_dev
		FROM run_residuals
		WHERE run_id = ?
		ORDER BY plane, axis`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query residuals %s: %w", id, err)
	}
	defer rows.Close()

	var out []report.Summary
	for rows.Next() {
		var (
			sum       report.Summary
			plane     int
			axis      string
			mean, std sql.NullFloat64
		)
		if err := rows.Scan(&plane, &axis, &sum.N, &mean, &std); err != nil {
			return nil, fmt.Errorf("scan residuals %s: %w", id, err)
		}
		sum.Plane = gem.Plane(plane)
		if sum.Axis, err = parseAxis(axis); err != nil {
			return nil, err
		}
		sum.Mean, sum.StdDev = fromNullable(mean), fromNullable(std)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func parseAxis(s string) (gem.Axis, error) {
	for _, a := range gem.Axes {
		if a.String() == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown axis %q", s)
}

// nullable stores NaN as NULL.
func nullable(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func fromNullable(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
