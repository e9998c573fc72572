//go:build cgo

package archive

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/models"
)

const (
	dbFileName = "jobs.db"

	createTableSQL = `
	CREATE TABLE IF NOT EXISTS jobs (
	    id              INTEGER PRIMARY KEY AUTOINCREMENT,
	    job_id          INTEGER NOT NULL,
	    package_id      TEXT    NOT NULL,
	    package_name    TEXT    NOT NULL,
	    state           INTEGER NOT NULL,
	    failure_kind    INTEGER,
	    failure_message TEXT,
	    attempts        INTEGER NOT NULL,
	    exit_code       INTEGER,
	    bytes_received  INTEGER NOT NULL,
	    bytes_total     INTEGER NOT NULL,
	    created_at      INTEGER NOT NULL,
	    finished_at     INTEGER
	);
	CREATE INDEX IF NOT EXISTS jobs_package ON jobs (package_id);`

	insertJobSQL = `
	INSERT INTO jobs (
	    job_id, package_id, package_name, state,
	    failure_kind, failure_message, attempts, exit_code,
	    bytes_received, bytes_total, created_at, finished_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectJobsSQL = `
	SELECT job_id, package_id, package_name, state,
	       failure_kind, failure_message, attempts, exit_code,
	       bytes_received, bytes_total, created_at, finished_at
	FROM jobs ORDER BY id DESC`
)

// SQLiteStore archives jobs in a sqlite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) jobs.db in dir.
func NewSQLiteStore(dir string, logger *zap.Logger) (*SQLiteStore, error) {
	if dir == "" {
		return nil, errors.New("archive path is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	path := filepath.Join(dir, dbFileName)
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}

	logger.Info("Archive database opened", zap.String("path", path))
	return &SQLiteStore{db: db, logger: logger}, nil
}

// Archive inserts one job.
func (s *SQLiteStore) Archive(job models.InstallJob) error {
	var failureKind sql.NullInt64
	var failureMessage sql.NullString
	if job.Failure != nil {
		failureKind = sql.NullInt64{Int64: int64(job.Failure.Kind), Valid: true}
		failureMessage = sql.NullString{String: job.Failure.Message, Valid: true}
	}
	var exitCode sql.NullInt64
	if job.ExitCode != nil {
		exitCode = sql.NullInt64{Int64: int64(*job.ExitCode), Valid: true}
	}
	var finishedAt sql.NullInt64
	if !job.FinishedAt.IsZero() {
		finishedAt = sql.NullInt64{Int64: job.FinishedAt.UnixMilli(), Valid: true}
	}

	_, err := s.db.Exec(insertJobSQL,
		int64(job.ID), job.PackageID, job.PackageName, int64(job.State),
		failureKind, failureMessage, job.Attempts, exitCode,
		job.BytesReceived, job.BytesTotal, job.CreatedAt.UnixMilli(), finishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert archived job: %w", err)
	}
	return nil
}

// List returns archived jobs, most recent first.
func (s *SQLiteStore) List(limit int) ([]models.InstallJob, error) {
	query := selectJobsSQL
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query archived jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.InstallJob
	for rows.Next() {
		var (
			job            models.InstallJob
			id, state      int64
			createdAt      int64
			failureKind    sql.NullInt64
			failureMessage sql.NullString
			exitCode       sql.NullInt64
			finishedAt     sql.NullInt64
		)
		if err := rows.Scan(&id, &job.PackageID, &job.PackageName, &state,
			&failureKind, &failureMessage, &job.Attempts, &exitCode,
			&job.BytesReceived, &job.BytesTotal, &createdAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan archived job: %w", err)
		}
		job.ID = models.JobID(id)
		job.State = models.JobState(state)
		job.CreatedAt = time.UnixMilli(createdAt)
		if failureKind.Valid {
			job.Failure = &models.Failure{Kind: models.FailureKind(failureKind.Int64), Message: failureMessage.String}
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			job.ExitCode = &code
		}
		if finishedAt.Valid {
			job.FinishedAt = time.UnixMilli(finishedAt.Int64)
			job.UpdatedAt = job.FinishedAt
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Close checkpoints the WAL and closes the database.
func (s *SQLiteStore) Close() error {
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Warn("Failed to checkpoint archive WAL", zap.Error(err))
	}
	return s.db.Close()
}
