package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Job statuses. Transitions: queued -> running -> succeeded | failed.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

var ErrJobNotFound = errors.New("job not found")

// Job is one upload processing request tracked across API and worker.
type Job struct {
	ID               string
	Status           string
	Progress         float64
	Message          string
	InputPath        string
	OriginalFilename string
	OutputPath       string
	QAReport         []byte // JSON, set on success
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Terminal reports whether the job has reached a final state.
func (j Job) Terminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateJob inserts a new queued job.
func (r *SQLiteRepository) CreateJob(ctx context.Context, job Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (id, status, progress, message, input_path, original_filename)
		VALUES (?, ?, 0, '', ?, ?)`,
		job.ID, StatusQueued, job.InputPath, job.OriginalFilename)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

// GetJob loads one job by id.
func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, status, progress, message, input_path, original_filename,
		       output_path, qa_report, created_at, updated_at
		FROM jobs WHERE id = ?`, id)

	var j Job
	var qa sql.NullString
	err := row.Scan(&j.ID, &j.Status, &j.Progress, &j.Message, &j.InputPath,
		&j.OriginalFilename, &j.OutputPath, &qa, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	if qa.Valid {
		j.QAReport = []byte(qa.String)
	}
	return &j, nil
}

// ListPendingJobs returns queued jobs oldest first, up to limit. Running jobs
// stuck longer than staleAfter are included so a restarted worker picks them
// back up.
func (r *SQLiteRepository) ListPendingJobs(ctx context.Context, limit int, staleAfter time.Duration) ([]Job, error) {
	// The cutoff is computed inside sqlite so it compares against the same
	// clock CURRENT_TIMESTAMP writes with.
	modifier := fmt.Sprintf("%d seconds", -int(staleAfter.Seconds()))
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, status, progress, message, input_path, original_filename,
		       output_path, created_at, updated_at
		FROM jobs
		WHERE status = ? OR (status = ? AND updated_at < datetime('now', ?))
		ORDER BY created_at ASC
		LIMIT ?`,
		StatusQueued, StatusRunning, modifier, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.Status, &j.Progress, &j.Message, &j.InputPath,
			&j.OriginalFilename, &j.OutputPath, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pending job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// MarkRunning transitions a job to running. Only queued or already running
// jobs transition; finished jobs are left alone so a duplicate queue
// delivery cannot resurrect them.
func (r *SQLiteRepository) MarkRunning(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, message = '', updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status IN (?, ?)`,
		StatusRunning, id, StatusQueued, StatusRunning)
	if err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	return requireRow(res)
}

// UpdateProgress records processing progress in [0,1] with an optional
// human-readable stage message.
func (r *SQLiteRepository) UpdateProgress(ctx context.Context, id string, progress float64, message string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET progress = ?, message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`,
		progress, message, id, StatusRunning)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return requireRow(res)
}

// MarkSucceeded records the output artifact and QA report for a finished job.
func (r *SQLiteRepository) MarkSucceeded(ctx context.Context, id, outputPath string, qaReport []byte) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, progress = 1, message = '', output_path = ?,
		       qa_report = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		StatusSucceeded, outputPath, string(qaReport), id)
	if err != nil {
		return fmt.Errorf("mark succeeded: %w", err)
	}
	return requireRow(res)
}

// MarkFailed records a failure message on the job.
func (r *SQLiteRepository) MarkFailed(ctx context.Context, id, message string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, message = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		StatusFailed, message, id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}
