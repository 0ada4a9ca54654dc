// Package jobs provides a SQLite-backed metadata store for background
// index/reindex runs launched via the --background flag, and the
// cooperative-cancellation glue between a polling "jobs cancel" call and
// the goroutine actually running the pipeline.
//
// Uses the modernc.org/sqlite pure-Go driver, WAL-mode pragmas for safe
// concurrent access from separate CLI invocations, and an
// integrity-check-before-open guard on the database file. Job
// identifiers reuse github.com/google/uuid, already pulled in by
// internal/rctx.
package jobs

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Luiz-Frias/semantic-code-agx/internal/errs"
)

// Kind identifies which long-running operation a job wraps.
type Kind string

const (
	KindIndex   Kind = "index"
	KindReindex Kind = "reindex"
)

// Status is a job's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Job is one background run's metadata row.
type Job struct {
	ID              string     `json:"id"`
	Kind            Kind       `json:"kind"`
	Status          Status     `json:"status"`
	PID             int        `json:"pid"`
	CancelRequested bool       `json:"cancelRequested"`
	CreatedAt       time.Time  `json:"createdAt"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
	Summary         string     `json:"summary,omitempty"`
	Error           string     `json:"error,omitempty"`
}

// Store wraps a single-writer SQLite database holding job records. One
// Store is opened per codebase's .context/jobs directory.
type Store struct {
	db *sql.DB
}

// FileName is the database file kept inside the codebase's jobs state
// directory (".context/jobs/jobs.db" per the state layout).
const FileName = "jobs.db"

// Open creates or opens the job store at "<jobsDir>/jobs.db", validating
// integrity before reuse and applying WAL pragmas for concurrent access
// from separate "jobs status"/"jobs cancel" invocations.
func Open(jobsDir string) (*Store, *errs.Envelope) {
	if err := os.MkdirAll(jobsDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.CodeJobStoreUnavailable, "cannot create jobs directory", err, false)
	}
	path := filepath.Join(jobsDir, FileName)

	if validErr := validateIntegrity(path); validErr != nil {
		slog.Warn("jobs: store failed integrity check, recreating",
			slog.String("path", path), slog.String("error", validErr.Error()))
		_ = os.Remove(path)
		_ = os.Remove(path + "-wal")
		_ = os.Remove(path + "-shm")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errs.Wrap(errs.CodeJobStoreUnavailable, "cannot open jobs database", err, false)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, errs.Wrap(errs.CodeJobStoreUnavailable, "cannot set pragma", err, false)
		}
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(errs.CodeJobStoreUnavailable, "cannot initialize jobs schema", err, false)
	}
	return s, nil
}

func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

func (s *Store) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS jobs (
		id               TEXT PRIMARY KEY,
		kind             TEXT NOT NULL,
		status           TEXT NOT NULL,
		pid              INTEGER NOT NULL DEFAULT 0,
		cancel_requested INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL,
		started_at       TEXT,
		finished_at      TEXT,
		summary          TEXT NOT NULL DEFAULT '',
		error            TEXT NOT NULL DEFAULT ''
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts a new pending job record and returns it.
func (s *Store) Create(kind Kind) (*Job, *errs.Envelope) {
	j := &Job{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO jobs (id, kind, status, created_at) VALUES (?, ?, ?, ?)`,
		j.ID, string(j.Kind), string(j.Status), j.CreatedAt.Format("2006-01-02T15:04:05.000000000Z07:00"),
	)
	if err != nil {
		return nil, errs.Wrap(errs.CodeJobStoreUnavailable, "cannot create job record", err, false)
	}
	return j, nil
}

// MarkRunning transitions a job to running and records the worker's pid.
func (s *Store) MarkRunning(id string, pid int) *errs.Envelope {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.Exec(
		`UPDATE jobs SET status = ?, pid = ?, started_at = ? WHERE id = ?`,
		string(StatusRunning), pid, now, id,
	)
	return s.checkUpdate(res, err, id)
}

// MarkSucceeded transitions a job to succeeded with a human-readable
// result summary (e.g. "indexed 42 files, 310 chunks").
func (s *Store) MarkSucceeded(id, summary string) *errs.Envelope {
	return s.finish(id, StatusSucceeded, summary, "")
}

// MarkFailed transitions a job to failed, recording the error message.
func (s *Store) MarkFailed(id, message string) *errs.Envelope {
	return s.finish(id, StatusFailed, "", message)
}

// MarkCancelled transitions a job to cancelled.
func (s *Store) MarkCancelled(id string) *errs.Envelope {
	return s.finish(id, StatusCancelled, "", "")
}

func (s *Store) finish(id string, status Status, summary, message string) *errs.Envelope {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.Exec(
		`UPDATE jobs SET status = ?, finished_at = ?, summary = ?, error = ? WHERE id = ?`,
		string(status), now, summary, message, id,
	)
	return s.checkUpdate(res, err, id)
}

// RequestCancel flags a job for cooperative cancellation. The worker
// goroutine running the job (if any) observes this via CancelRequested
// or the Watch helper and cancels its own RequestContext.
func (s *Store) RequestCancel(id string) *errs.Envelope {
	res, err := s.db.Exec(`UPDATE jobs SET cancel_requested = 1 WHERE id = ?`, id)
	return s.checkUpdate(res, err, id)
}

func (s *Store) checkUpdate(res sql.Result, err error, id string) *errs.Envelope {
	if err != nil {
		return errs.Wrap(errs.CodeJobStoreUnavailable, "job store update failed", err, false)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.CodeJobStoreUnavailable, "job store update failed", err, false)
	}
	if n == 0 {
		return errs.New(errs.KindExpected, errs.NonRetriable, errs.CodeJobNotFound,
			fmt.Sprintf("job %q not found", id), nil, map[string]string{"jobId": id})
	}
	return nil
}

// Get fetches a single job by id.
func (s *Store) Get(id string) (*Job, *errs.Envelope) {
	row := s.db.QueryRow(
		`SELECT id, kind, status, pid, cancel_requested, created_at, started_at, finished_at, summary, error
		 FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, errs.New(errs.KindExpected, errs.NonRetriable, errs.CodeJobNotFound,
			fmt.Sprintf("job %q not found", id), nil, map[string]string{"jobId": id})
	}
	if err != nil {
		return nil, errs.Wrap(errs.CodeJobStoreUnavailable, "cannot read job record", err, false)
	}
	return j, nil
}

// List returns all jobs, most recently created first.
func (s *Store) List() ([]*Job, *errs.Envelope) {
	rows, err := s.db.Query(
		`SELECT id, kind, status, pid, cancel_requested, created_at, started_at, finished_at, summary, error
		 FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, errs.Wrap(errs.CodeJobStoreUnavailable, "cannot list jobs", err, false)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, errs.Wrap(errs.CodeJobStoreUnavailable, "cannot scan job record", err, false)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.CodeJobStoreUnavailable, "cannot list jobs", err, false)
	}
	return out, nil
}

// IsCancelRequested reports whether cancellation has been requested for
// id. Used by the Watch polling loop.
func (s *Store) IsCancelRequested(id string) (bool, *errs.Envelope) {
	var flag int
	err := s.db.QueryRow(`SELECT cancel_requested FROM jobs WHERE id = ?`, id).Scan(&flag)
	if err == sql.ErrNoRows {
		return false, errs.New(errs.KindExpected, errs.NonRetriable, errs.CodeJobNotFound,
			fmt.Sprintf("job %q not found", id), nil, map[string]string{"jobId": id})
	}
	if err != nil {
		return false, errs.Wrap(errs.CodeJobStoreUnavailable, "cannot read cancellation flag", err, false)
	}
	return flag != 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (*Job, error) {
	var (
		j                        Job
		kind, status             string
		createdAt                string
		startedAt, finishedAt    sql.NullString
		cancelRequested          int
	)
	if err := r.Scan(&j.ID, &kind, &status, &j.PID, &cancelRequested,
		&createdAt, &startedAt, &finishedAt, &j.Summary, &j.Error); err != nil {
		return nil, err
	}
	j.Kind = Kind(kind)
	j.Status = Status(status)
	j.CancelRequested = cancelRequested != 0
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		j.CreatedAt = t
	}
	if startedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, startedAt.String); err == nil {
			j.StartedAt = &t
		}
	}
	if finishedAt.Valid {
		if t, err := time.Parse(time.RFC3339Nano, finishedAt.String); err == nil {
			j.FinishedAt = &t
		}
	}
	return &j, nil
}
