package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Job run statuses
const (
	JobStatusSuccess = "success"
	JobStatusFailed  = "failed"
)

// JobRun is the outcome of a job's most recent run
type JobRun struct {
	JobName    string    `json:"job_name"`
	LastRunAt  time.Time `json:"last_run_at"`
	LastStatus string    `json:"last_status"`
	LastError  string    `json:"last_error,omitempty"`
	DurationMs int64     `json:"duration_ms"`
}

// JobHistoryRepository records the last run of each scheduled job
type JobHistoryRepository struct {
	db *sql.DB
}

// NewJobHistoryRepository creates a new job history repository
func NewJobHistoryRepository(db *sql.DB) *JobHistoryRepository {
	return &JobHistoryRepository{db: db}
}

// Record stores the outcome of a run, replacing the previous one for the job
func (r *JobHistoryRepository) Record(ctx context.Context, name string, startedAt time.Time, duration time.Duration, runErr error) error {
	status := JobStatusSuccess
	message := ""
	if runErr != nil {
		status = JobStatusFailed
		message = runErr.Error()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO job_history (job_name, last_run_at, last_status, last_error, duration_ms)
		VALUES (?, ?, ?, ?, ?)
	`, name, startedAt.Unix(), status, message, duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record run of %s: %w", name, err)
	}

	return nil
}

// Get returns the last run of a job, or nil if it never ran
func (r *JobHistoryRepository) Get(ctx context.Context, name string) (*JobRun, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT job_name, last_run_at, last_status, last_error, duration_ms
		FROM job_history WHERE job_name = ?
	`, name)

	run, err := scanJobRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run of %s: %w", name, err)
	}
	return run, nil
}

// List returns the last run of every job, ordered by name
func (r *JobHistoryRepository) List(ctx context.Context) ([]JobRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT job_name, last_run_at, last_status, last_error, duration_ms
		FROM job_history ORDER BY job_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list job history: %w", err)
	}
	defer rows.Close()

	runs := make([]JobRun, 0)
	for rows.Next() {
		run, err := scanJobRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job history: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJobRun(s scanner) (*JobRun, error) {
	var run JobRun
	var lastRunAt int64
	if err := s.Scan(&run.JobName, &lastRunAt, &run.LastStatus, &run.LastError, &run.DurationMs); err != nil {
		return nil, err
	}
	run.LastRunAt = time.Unix(lastRunAt, 0).UTC()
	return &run, nil
}
