// Package history persists run summaries and per-message outcomes in a
// local SQLite database. This is operational bookkeeping outside the
// analysis core: the pipeline itself stays stateless, and nothing here
// feeds back into classification.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"mailtriage/internal/domain"
)

// Store implements run history over SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// RunRecord is one stored batch summary.
type RunRecord struct {
	RunID     string
	StartedAt time.Time
	Queried   int
	Processed int
	Failed    int
}

// NewStore opens (and migrates) the history database.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection: SQLite and WAL do not need more for this workload.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		started_at  DATETIME NOT NULL,
		queried     INTEGER NOT NULL,
		processed   INTEGER NOT NULL,
		failed      INTEGER NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS outcomes (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		message_id  TEXT NOT NULL,
		category    TEXT NOT NULL,
		confidence  TEXT NOT NULL,
		urgency     INTEGER NOT NULL,
		issue_ref   TEXT,
		failed      INTEGER NOT NULL DEFAULT 0,
		fail_reason TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id);
	CREATE INDEX IF NOT EXISTS idx_outcomes_msg ON outcomes(message_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun stores a batch summary with all its per-message results.
func (s *Store) RecordRun(ctx context.Context, sum domain.BatchSummary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, queried, processed, failed) VALUES (?, ?, ?, ?, ?)`,
		sum.RunID, sum.StartedAt.UTC(), sum.Queried, sum.Processed, sum.Failed,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, r := range sum.Results {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO outcomes (run_id, message_id, category, confidence, urgency, issue_ref, failed, fail_reason)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sum.RunID, r.MessageID, r.Classification.Category, string(r.Classification.Confidence),
			r.Urgency, r.IssueRef, boolToInt(r.Failed), r.FailReason,
		)
		if err != nil {
			return fmt.Errorf("insert outcome for %s: %w", r.MessageID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("run recorded", "run_id", sum.RunID, "outcomes", len(sum.Results))
	return nil
}

// RecentRuns returns up to n run summaries, newest first.
func (s *Store) RecentRuns(ctx context.Context, n int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, queried, processed, failed FROM runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.RunID, &r.StartedAt, &r.Queried, &r.Processed, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// IssueRefsForMessage returns tracker references created for a message
// across all recorded runs. Callers wanting de-duplication across retried
// runs can consult this before acting; the pipeline itself never does.
func (s *Store) IssueRefsForMessage(ctx context.Context, messageID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT issue_ref FROM outcomes WHERE message_id = ? AND issue_ref != ''`, messageID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
