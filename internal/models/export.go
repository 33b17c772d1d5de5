package models

import (
	"errors"
	"time"
)

// ExportStatus is the lifecycle state of a library export run.
type ExportStatus string

const (
	ExportPending   ExportStatus = "pending"
	ExportRunning   ExportStatus = "running"
	ExportCompleted ExportStatus = "completed"
	ExportFailed    ExportStatus = "failed"
)

var (
	errEmptyFormat   = errors.New("export format is empty")
	errEmptyOutput   = errors.New("export output directory is empty")
	errUnknownStatus = errors.New("unknown export status")
	errNegativeCount = errors.New("export counters must not be negative")
)

// ExportJob records one run of the library export.
type ExportJob struct {
	ID             string       `json:"id"`
	Format         string       `json:"format"`
	OutputDir      string       `json:"output_dir"`
	Status         ExportStatus `json:"status"`
	SeriesTotal    int          `json:"series_total"`
	SeriesExported int          `json:"series_exported"`
	SeriesFailed   int          `json:"series_failed"`
	ErrorMessage   string       `json:"error_message,omitempty"`
	StartedAt      *time.Time   `json:"started_at,omitempty"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewExportJob creates a pending job.
func NewExportJob(format, outputDir string) *ExportJob {
	return &ExportJob{Format: format, OutputDir: outputDir, Status: ExportPending}
}

// Start marks the job running with the number of series it will process.
func (j *ExportJob) Start(total int, at time.Time) {
	j.Status = ExportRunning
	j.SeriesTotal = total
	j.StartedAt = &at
}

// Finish records the outcome. A non-nil err marks the job failed.
func (j *ExportJob) Finish(exported, failed int, err error, at time.Time) {
	j.SeriesExported = exported
	j.SeriesFailed = failed
	j.CompletedAt = &at
	if err != nil {
		j.Status = ExportFailed
		j.ErrorMessage = err.Error()
		return
	}
	j.Status = ExportCompleted
}

// IsDone reports whether the job reached a terminal state.
func (j ExportJob) IsDone() bool {
	return j.Status == ExportCompleted || j.Status == ExportFailed
}

func (j ExportJob) Validate() error {
	if j.Format == "" {
		return errEmptyFormat
	}
	if j.OutputDir == "" {
		return errEmptyOutput
	}
	switch j.Status {
	case ExportPending, ExportRunning, ExportCompleted, ExportFailed:
	default:
		return errUnknownStatus
	}
	if j.SeriesTotal < 0 || j.SeriesExported < 0 || j.SeriesFailed < 0 {
		return errNegativeCount
	}
	return nil
}
