package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"reframe/internal/config"
	"reframe/internal/diagnostics"
	"reframe/internal/encoding"
)

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// JobRecord is one persisted conversion job.
type JobRecord struct {
	ID          int64
	InputName   string
	Settings    string
	Outcome     string
	Reason      string
	OutputBytes int64
	ElapsedMS   int64
	CreatedAt   time.Time
}

// TrialRecord is one persisted diagnostic trial.
type TrialRecord struct {
	ID        int64
	SessionID string
	Label     string
	Status    string
	Reason    string
	ElapsedMS int64
	CreatedAt time.Time
}

// Open initializes or connects to the history database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "history.db"))
}

// OpenPath opens the history database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) applyMigrations(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            input_name TEXT NOT NULL,
            settings TEXT NOT NULL,
            outcome TEXT NOT NULL,
            reason TEXT NOT NULL DEFAULT '',
            output_bytes INTEGER NOT NULL DEFAULT 0,
            elapsed_ms INTEGER NOT NULL DEFAULT 0,
            created_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS trials (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            session_id TEXT NOT NULL,
            label TEXT NOT NULL,
            status TEXT NOT NULL,
            reason TEXT NOT NULL DEFAULT '',
            elapsed_ms INTEGER NOT NULL DEFAULT 0,
            created_at TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_trials_session ON trials(session_id)`,
	}
	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}
	return nil
}

// RecordJob persists the terminal outcome of one conversion job.
func (s *Store) RecordJob(ctx context.Context, inputName string, settings encoding.OutputSettings, outcome encoding.JobOutcome) (int64, error) {
	reason := ""
	if outcome.Reason != nil {
		reason = outcome.Reason.Error()
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (input_name, settings, outcome, reason, output_bytes, elapsed_ms, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		inputName,
		settings.Label(),
		string(outcome.Kind),
		reason,
		int64(len(outcome.OutputBytes)),
		outcome.Elapsed.Milliseconds(),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// RecordTrials persists every trial of one diagnostic batch under a shared
// session identifier.
func (s *Store) RecordTrials(ctx context.Context, sessionID string, trials []diagnostics.Trial) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trial insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	for _, trial := range trials {
		reason := ""
		if trial.Reason != nil {
			reason = trial.Reason.Error()
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO trials (session_id, label, status, reason, elapsed_ms, created_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID,
			trial.Configuration.Label,
			string(trial.Status),
			reason,
			trial.Elapsed.Milliseconds(),
			timestamp,
		); err != nil {
			return fmt.Errorf("insert trial: %w", err)
		}
	}
	return tx.Commit()
}

// RecentJobs returns up to limit jobs, newest first.
func (s *Store) RecentJobs(ctx context.Context, limit int) ([]JobRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, input_name, settings, outcome, reason, output_bytes, elapsed_ms, created_at
         FROM jobs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var records []JobRecord
	for rows.Next() {
		var record JobRecord
		var createdAt string
		if err := rows.Scan(&record.ID, &record.InputName, &record.Settings, &record.Outcome,
			&record.Reason, &record.OutputBytes, &record.ElapsedMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		record.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		records = append(records, record)
	}
	return records, rows.Err()
}

// TrialsForSession returns the trials of one diagnostic batch in insertion
// order.
func (s *Store) TrialsForSession(ctx context.Context, sessionID string) ([]TrialRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, session_id, label, status, reason, elapsed_ms, created_at
         FROM trials WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	var records []TrialRecord
	for rows.Next() {
		var record TrialRecord
		var createdAt string
		if err := rows.Scan(&record.ID, &record.SessionID, &record.Label, &record.Status,
			&record.Reason, &record.ElapsedMS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		record.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		records = append(records, record)
	}
	return records, rows.Err()
}
