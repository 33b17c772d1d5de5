package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/shared"
)

const exportJobColumns = `
	id, format, output_dir, status, series_total, series_exported,
	series_failed, error_message, started_at, completed_at, created_at, updated_at
`

// ExportJobRepository keeps the history of library export runs.
type ExportJobRepository struct {
	db *sql.DB
}

func NewExportJobRepository(db *sql.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts job with a generated ID.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	job.ID = shared.GenerateID()
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	query := `INSERT INTO export_jobs (` + exportJobColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		job.ID,
		job.Format,
		job.OutputDir,
		string(job.Status),
		job.SeriesTotal,
		job.SeriesExported,
		job.SeriesFailed,
		nullString(job.ErrorMessage),
		nullTime(job.StartedAt),
		nullTime(job.CompletedAt),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert export job: %w", err)
	}
	return nil
}

func (r *ExportJobRepository) Get(ctx context.Context, id string) (*models.ExportJob, error) {
	query := `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE id = ?`

	job, err := scanExportJob(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: export job %s", ErrNotFound, id)
	}
	return job, err
}

// Update writes the mutable fields of job.
func (r *ExportJobRepository) Update(ctx context.Context, job *models.ExportJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	job.UpdatedAt = time.Now()

	query := `
		UPDATE export_jobs
		SET status = ?, series_total = ?, series_exported = ?, series_failed = ?,
			error_message = ?, started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(job.Status),
		job.SeriesTotal,
		job.SeriesExported,
		job.SeriesFailed,
		nullString(job.ErrorMessage),
		nullTime(job.StartedAt),
		nullTime(job.CompletedAt),
		job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update export job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: export job %s", ErrNotFound, job.ID)
	}
	return nil
}

func (r *ExportJobRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM export_jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete export job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: export job %s", ErrNotFound, id)
	}
	return nil
}

// List returns jobs newest first, optionally filtered by status ("" for all) and capped by limit (<= 0 for all).
func (r *ExportJobRepository) List(ctx context.Context, status models.ExportStatus, limit int) ([]*models.ExportJob, error) {
	query := `SELECT ` + exportJobColumns + ` FROM export_jobs`
	args := []any{}

	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}

	query += " ORDER BY created_at DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.ExportJob
	for rows.Next() {
		job, err := scanExportJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return jobs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanExportJob scans a [sql.Row] or the current row of [sql.Rows]. sql.ErrNoRows is returned unwrapped.
func scanExportJob(row rowScanner) (*models.ExportJob, error) {
	var (
		job          models.ExportJob
		status       string
		errorMessage sql.NullString
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&job.ID, &job.Format, &job.OutputDir, &status, &job.SeriesTotal, &job.SeriesExported,
		&job.SeriesFailed, &errorMessage, &startedAt, &completedAt, &job.CreatedAt, &job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan export job: %w", err)
	}

	job.Status = models.ExportStatus(status)
	job.ErrorMessage = errorMessage.String
	job.StartedAt = timePtr(startedAt)
	job.CompletedAt = timePtr(completedAt)
	return &job, nil
}
