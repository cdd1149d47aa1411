// Package journal keeps a SQLite history of sync runs and their per-entry outcomes.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/aidanlsb/lang/internal/reconcile"
	"github.com/aidanlsb/lang/internal/sqlutil"
)

// FileName is the journal database inside the data directory.
const FileName = "journal.db"

// Run is one sync invocation.
type Run struct {
	ID         string
	Profile    string
	StartedAt  time.Time
	FinishedAt time.Time
	Created    int
	Updated    int
	Failed     int
	Outcomes   []Outcome
}

// Outcome is what happened to one entry during a run.
type Outcome struct {
	RunID      string `json:"run_id"`
	Key        string `json:"key"`
	Primary    string `json:"primary"`
	Action     string `json:"action"`
	Container  string `json:"container"`
	ExternalID string `json:"external_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewRun converts a reconcile result into a journal run.
func NewRun(profileID string, started, finished time.Time, res *reconcile.Result) *Run {
	run := &Run{
		Profile:    profileID,
		StartedAt:  started,
		FinishedAt: finished,
		Created:    res.Created,
		Updated:    res.Updated,
		Failed:     res.Failed,
	}
	for _, o := range res.Outcomes {
		out := Outcome{
			Key:        o.Key,
			Primary:    o.Primary,
			Action:     string(o.Action),
			Container:  o.Container,
			ExternalID: string(o.ExternalID),
		}
		if o.Err != nil {
			out.Error = o.Err.Error()
		}
		run.Outcomes = append(run.Outcomes, out)
	}
	return run
}

// Journal is the database handle.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	j := &Journal{db: db}
	if err := j.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// OpenInMemory opens a throwaway journal (for testing).
func OpenInMemory() (*Journal, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}
	// Each pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	j := &Journal{db: db}
	if err := j.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) initialize() error {
	schema := `
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;

		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			profile TEXT NOT NULL,
			started_at INTEGER NOT NULL,
			finished_at INTEGER NOT NULL,
			created INTEGER NOT NULL DEFAULT 0,
			updated INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_runs_profile_started ON runs(profile, started_at DESC);

		CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			key TEXT NOT NULL,
			primary_value TEXT NOT NULL,
			action TEXT NOT NULL,
			container TEXT NOT NULL,
			external_id TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (run_id, seq)
		);
	`
	if _, err := j.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return nil
}

// Record stores run and its outcomes in one transaction. An empty ID is
// replaced with a new UUID; the stored ID is returned.
func (j *Journal) Record(ctx context.Context, run *Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, profile, started_at, finished_at, created, updated, failed) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Profile, run.StartedAt.UnixNano(), run.FinishedAt.UnixNano(), run.Created, run.Updated, run.Failed)
	if err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (run_id, seq, key, primary_value, action, container, external_id, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, o := range run.Outcomes {
		if _, err := stmt.ExecContext(ctx, run.ID, i, o.Key, o.Primary, o.Action, o.Container, o.ExternalID, o.Error); err != nil {
			return "", fmt.Errorf("failed to record outcome for %q: %w", o.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return run.ID, nil
}

// Recent returns up to n runs for a profile, newest first, without outcomes.
func (j *Journal) Recent(ctx context.Context, profile string, n int) ([]Run, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, profile, started_at, finished_at, created, updated, failed
		 FROM runs WHERE profile = ? ORDER BY started_at DESC, id LIMIT ?`, profile, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	return sqlutil.ScanRows(rows, func(rows *sql.Rows) (Run, error) {
		var (
			r                 Run
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.Profile, &started, &finished, &r.Created, &r.Updated, &r.Failed); err != nil {
			return Run{}, err
		}
		r.StartedAt = time.Unix(0, started)
		r.FinishedAt = time.Unix(0, finished)
		return r, nil
	})
}

// Outcomes returns the outcomes of the given runs in recorded order.
func (j *Journal) Outcomes(ctx context.Context, runIDs ...string) ([]Outcome, error) {
	return j.outcomes(ctx, false, runIDs)
}

// Failures returns only the failed outcomes of the given runs.
func (j *Journal) Failures(ctx context.Context, runIDs ...string) ([]Outcome, error) {
	return j.outcomes(ctx, true, runIDs)
}

func (j *Journal) outcomes(ctx context.Context, failedOnly bool, runIDs []string) ([]Outcome, error) {
	placeholders, args := sqlutil.InClauseArgs(runIDs)
	query := `SELECT run_id, key, primary_value, action, container, external_id, error
		FROM outcomes WHERE run_id IN (` + placeholders + `)`
	if failedOnly {
		query += ` AND action = ?`
		args = append(args, string(reconcile.ActionFailed))
	}
	query += ` ORDER BY run_id, seq`

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	return sqlutil.ScanRows(rows, func(rows *sql.Rows) (Outcome, error) {
		var o Outcome
		err := rows.Scan(&o.RunID, &o.Key, &o.Primary, &o.Action, &o.Container, &o.ExternalID, &o.Error)
		return o, err
	})
}
