package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/tvx/internal/formatter"
	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/shared"
	"github.com/desertthunder/tvx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Export writes the followed library with watch progress to disk.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	format := strings.ToLower(cmd.String("format"))
	if format == "md" {
		format = "markdown"
	}

	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	opts := r.exportOpts()
	opts.Format = format
	opts.OutputDir = cmd.String("output")
	opts.NumWorkers = int(cmd.Int("workers"))
	opts.Posters = cmd.Bool("posters")
	if rate := cmd.Float("rate"); rate > 0 {
		opts.RateLimit = rate
	}

	r.logger.Info("starting export", "format", opts.Format, "workers", opts.NumWorkers)
	r.writePlain("Exporting followed series as %s...\n\n", opts.Format)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchLibrary:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ExportSeries:
				r.writePlain("   [%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.WriteManifest:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine.Export(ctx, progressCh, opts)
	close(progressCh)
	wg.Wait()

	if err != nil {
		return err
	}

	r.writePlainHeader("Export Complete!")
	r.writePlain("Series: %d exported, %d failed (of %d)\n", result.SuccessfulExports, result.FailedExports, result.TotalSeries)
	r.writePlain("Output: %s\n", result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	if result.FailedExports > 0 {
		r.writePlain("\nFailed:\n")
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %v\n", res.SeriesName, res.Error)
			}
		}
	}
	return nil
}

// ExportHistory lists recorded export runs, newest first.
func (r *Runner) ExportHistory(ctx context.Context, cmd *cli.Command) error {
	status := models.ExportStatus(strings.ToLower(cmd.String("status")))
	switch status {
	case "", models.ExportPending, models.ExportRunning, models.ExportCompleted, models.ExportFailed:
	default:
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, status)
	}

	if err := r.connect(ctx); err != nil {
		return err
	}

	jobs, err := r.jobs.List(ctx, status, int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("failed to list export jobs: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(jobs, true)
	}

	if len(jobs) == 0 {
		return r.writePlain("No exports recorded\n")
	}

	for _, job := range jobs {
		r.writePlain("%s  %-9s  %-8s  %d/%d exported", job.CreatedAt.Local().Format("2006-01-02 15:04"), job.Status, job.Format, job.SeriesExported, job.SeriesTotal)
		if job.SeriesFailed > 0 {
			r.writePlain(", %d failed", job.SeriesFailed)
		}
		r.writePlain("\n  %s\n", job.OutputDir)
		if job.ErrorMessage != "" {
			r.writePlain("  error: %s\n", job.ErrorMessage)
		}
	}
	return nil
}

// exportOpts returns export defaults derived from the config.
func (r *Runner) exportOpts() tasks.ExportOpts {
	return tasks.ExportOpts{
		Format:       "json",
		RateLimit:    r.config.API.RateLimit,
		Posters:      true,
		ImageBaseURL: formatter.DefaultImageBaseURL,
	}
}
