package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/san-kum/secantlab/internal/secant"
)

// DBName is the database file created inside the store directory.
const DBName = "runs.db"

// timeLayout is fixed width so that text order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

var ErrNotFound = errors.New("storage: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	expression  TEXT NOT NULL,
	strategy    TEXT NOT NULL,
	converged   INTEGER NOT NULL,
	iterations  INTEGER NOT NULL,
	final_error REAL NOT NULL,
	root_real   REAL NOT NULL,
	root_imag   REAL NOT NULL,
	seed        INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	result_json TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS runs_created_at ON runs(created_at);
`

// Run is a persisted solver run.
type Run struct {
	ID         string            `json:"id"`
	Expression string            `json:"expression"`
	Timestamp  time.Time         `json:"timestamp"`
	Seed       int64             `json:"seed"`
	Result     *secant.RunResult `json:"result"`
}

// RunMetadata is the summary row returned by List.
type RunMetadata struct {
	ID         string       `json:"id"`
	Expression string       `json:"expression"`
	Timestamp  time.Time    `json:"timestamp"`
	Strategy   string       `json:"strategy"`
	Converged  bool         `json:"converged"`
	Iterations int          `json:"iterations"`
	FinalError float64      `json:"final_error"`
	Root       secant.Point `json:"root"`
	Seed       int64        `json:"seed"`
}

type Store struct {
	baseDir string
	db      *sql.DB
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Init creates the store directory, opens the database and migrates it.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(s.baseDir, DBName))
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("migrate: %w", err)
	}
	s.db = db
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save inserts or replaces the run with the same id.
func (s *Store) Save(ctx context.Context, run Run) error {
	if s.db == nil {
		return errors.New("storage: store not initialized")
	}
	if run.Result == nil {
		return errors.New("storage: run has no result")
	}
	if run.ID == "" {
		run.ID = run.Result.ID
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now()
	}

	blob, err := json.Marshal(run.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	res := run.Result
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
		 (id, expression, strategy, converged, iterations, final_error, root_real, root_imag, seed, created_at, result_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Expression, res.Config.Strategy.String(), res.Converged, res.Iterations,
		res.FinalError, res.Root.Real, res.Root.Imag, run.Seed,
		run.Timestamp.UTC().Format(timeLayout), string(blob),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// List returns run summaries, newest first.
func (s *Store) List(ctx context.Context) ([]RunMetadata, error) {
	if s.db == nil {
		return []RunMetadata{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, expression, strategy, converged, iterations, final_error, root_real, root_imag, seed, created_at
		 FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var (
			m  RunMetadata
			ts string
		)
		if err := rows.Scan(&m.ID, &m.Expression, &m.Strategy, &m.Converged, &m.Iterations,
			&m.FinalError, &m.Root.Real, &m.Root.Imag, &m.Seed, &ts); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if m.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
			return nil, fmt.Errorf("parse timestamp of %s: %w", m.ID, err)
		}
		runs = append(runs, m)
	}
	return runs, rows.Err()
}

// Load returns the full run, or ErrNotFound.
func (s *Store) Load(ctx context.Context, runID string) (*Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	var (
		run  Run
		ts   string
		blob string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, expression, seed, created_at, result_json FROM runs WHERE id = ?`, runID,
	).Scan(&run.ID, &run.Expression, &run.Seed, &ts, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	if run.Timestamp, err = time.Parse(timeLayout, ts); err != nil {
		return nil, fmt.Errorf("parse timestamp of %s: %w", runID, err)
	}
	run.Result = new(secant.RunResult)
	if err := json.Unmarshal([]byte(blob), run.Result); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &run, nil
}

// Delete removes a run. Deleting an unknown id reports ErrNotFound.
func (s *Store) Delete(ctx context.Context, runID string) error {
	if s.db == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}
