package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/desertthunder/tvx/internal/formatter"
	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/shared"
	"golang.org/x/time/rate"
)

// Formats lists the supported export formats.
var Formats = []string{"json", "csv", "markdown", "txt"}

// ExportOpts contains configuration for library exports.
type ExportOpts struct {
	Format       string  // Export format: json, csv, markdown, txt
	OutputDir    string  // Base output directory (default: tvx_export_{epoch})
	NumWorkers   int     // Concurrent writers (default: 5, max 10)
	RateLimit    float64 // Detail requests per second (default: 5)
	Posters      bool    // Download posters for markdown exports
	ImageBaseURL string  // Prefix for relative poster paths
}

// SeriesExportResult is the outcome for a single series.
type SeriesExportResult struct {
	SeriesID   int64
	SeriesName string
	Success    bool
	Files      []string
	Error      error
}

// ExportResult summarizes a library export.
type ExportResult struct {
	JobID             string
	TotalSeries       int
	SuccessfulExports int
	FailedExports     int
	Results           []SeriesExportResult
	OutputDirectory   string
	ManifestPath      string
}

type seriesJob struct {
	index  int
	detail *models.SeriesDetail
}

func validFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}

// Export writes every followed series with its watch state to opts.OutputDir.
//
// Details are fetched sequentially under a rate limiter and handed to a pool of writer goroutines.
// A series that fails to fetch or write is recorded in the result and the manifest; it does not stop the export.
func (e *LibraryEngine) Export(ctx context.Context, prog chan<- ProgressUpdate, opts ExportOpts) (*ExportResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: series source not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = "json"
	}
	if !validFormat(opts.Format) {
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidArgument, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("tvx_export_%d", e.now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	job := models.NewExportJob(opts.Format, opts.OutputDir)
	e.recordJob(ctx, job, true)

	e.sendProgress(prog, fetchingLibraryUpdate())
	series := e.source.UserSeries(ctx, true)
	e.sendProgress(prog, foundLibraryUpdate(len(series)))

	job.Start(len(series), e.now())
	e.recordJob(ctx, job, false)

	result := &ExportResult{
		JobID:           job.ID,
		TotalSeries:     len(series),
		OutputDirectory: opts.OutputDir,
		Results:         make([]SeriesExportResult, 0, len(series)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan seriesJob, len(series))
	results := make(chan indexedResult, len(series))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, s := range series {
			if err := limiter.Wait(ctx); err != nil {
				for j := i; j < len(series); j++ {
					results <- indexedResult{index: j, SeriesExportResult: SeriesExportResult{
						SeriesID:   series[j].ID,
						SeriesName: series[j].Name,
						Error:      fmt.Errorf("export canceled: %w", err),
					}}
				}
				return
			}

			detail, err := e.source.SeriesDetail(ctx, s.ID)
			if err != nil {
				results <- indexedResult{index: i, SeriesExportResult: SeriesExportResult{
					SeriesID:   s.ID,
					SeriesName: s.Name,
					Error:      fmt.Errorf("failed to fetch series: %w", err),
				}}
				continue
			}

			jobs <- seriesJob{index: i, detail: detail}
			e.sendProgress(prog, exportingSeriesUpdate(i+1, len(series), detail.Name))
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var collected []indexedResult
	completed := 0
	for res := range results {
		completed++
		collected = append(collected, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(series), res.SeriesName, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(series), res.SeriesName, res.Error))
		}
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })
	for _, r := range collected {
		result.Results = append(result.Results, r.SeriesExportResult)
	}

	runErr := ctx.Err()
	if runErr == nil && result.TotalSeries > 0 && result.SuccessfulExports == 0 {
		runErr = fmt.Errorf("all %d series failed to export", result.TotalSeries)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(manifest(result, opts.Format), manifestPath); err != nil {
		job.Finish(result.SuccessfulExports, result.FailedExports, err, e.now())
		e.recordJob(context.WithoutCancel(ctx), job, false)
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	e.sendProgress(prog, manifestUpdate(manifestPath))

	job.Finish(result.SuccessfulExports, result.FailedExports, runErr, e.now())
	e.recordJob(context.WithoutCancel(ctx), job, false)

	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		return result, runErr
	}
	return result, nil
}

type indexedResult struct {
	index int
	SeriesExportResult
}

func (e *LibraryEngine) recordJob(ctx context.Context, job *models.ExportJob, create bool) {
	if e.jobs == nil {
		return
	}
	var err error
	if create {
		err = e.jobs.Create(ctx, job)
	} else if job.ID != "" {
		err = e.jobs.Update(ctx, job)
	}
	if err != nil {
		e.logger.Warn("could not record export job", "job_id", job.ID, "status", job.Status, "error", err)
	}
}

func manifest(result *ExportResult, format string) formatter.Manifest {
	m := formatter.Manifest{
		JobID:             result.JobID,
		Format:            format,
		OutputDirectory:   result.OutputDirectory,
		TotalSeries:       result.TotalSeries,
		SuccessfulExports: result.SuccessfulExports,
		FailedExports:     result.FailedExports,
		Series:            make([]formatter.ManifestEntry, 0, len(result.Results)),
	}
	for _, r := range result.Results {
		entry := formatter.ManifestEntry{
			SeriesID:   r.SeriesID,
			SeriesName: r.SeriesName,
			Success:    r.Success,
			Files:      r.Files,
		}
		if r.Error != nil {
			entry.Error = r.Error.Error()
		}
		m.Series = append(m.Series, entry)
	}
	return m
}

// exportWorker is a worker goroutine that writes series from the jobs channel.
func (e *LibraryEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan seriesJob,
	results chan<- indexedResult,
	opts ExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			results <- indexedResult{index: job.index, SeriesExportResult: SeriesExportResult{
				SeriesID:   job.detail.ID,
				SeriesName: job.detail.Name,
				Error:      ctx.Err(),
			}}
			continue
		default:
		}

		results <- indexedResult{index: job.index, SeriesExportResult: e.exportSingleSeries(job.detail, opts)}
	}
}

// exportSingleSeries writes a single series in the requested format.
func (e *LibraryEngine) exportSingleSeries(detail *models.SeriesDetail, opts ExportOpts) SeriesExportResult {
	result := SeriesExportResult{
		SeriesID:   detail.ID,
		SeriesName: detail.Name,
		Files:      []string{},
	}
	base := filepath.Join(opts.OutputDir, formatter.BaseName(detail))

	switch opts.Format {
	case "csv":
		csvRes, err := formatter.WriteCSVExport(detail, base)
		if err != nil {
			result.Error = fmt.Errorf("CSV export failed: %w", err)
			return result
		}
		result.Files = []string{csvRes.EpisodesFile, csvRes.MetadataFile}

	case "markdown":
		var imageURL string
		if opts.Posters {
			imageURL = formatter.PosterURL(opts.ImageBaseURL, detail.Poster)
		}
		mdRes, err := formatter.WriteMarkdownExport(detail, base, imageURL)
		if err != nil {
			result.Error = fmt.Errorf("markdown export failed: %w", err)
			return result
		}
		result.Files = mdRes.Files

	case "txt":
		path, err := formatter.WriteTextExport(detail, base+"_episodes.txt")
		if err != nil {
			result.Error = fmt.Errorf("text export failed: %w", err)
			return result
		}
		result.Files = []string{path}

	default:
		path, err := formatter.WriteJSONExport(detail, base+".json")
		if err != nil {
			result.Error = fmt.Errorf("JSON export failed: %w", err)
			return result
		}
		result.Files = []string{path}
	}

	result.Success = true
	return result
}
