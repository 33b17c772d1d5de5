package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/tvx/internal/shared"
)

// ManifestEntry is the outcome for one series in a library export.
type ManifestEntry struct {
	SeriesID   int64    `json:"series_id"`
	SeriesName string   `json:"series_name"`
	Success    bool     `json:"success"`
	Files      []string `json:"files,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Manifest summarizes a library export run.
type Manifest struct {
	JobID             string          `json:"job_id,omitempty"`
	Format            string          `json:"format"`
	OutputDirectory   string          `json:"output_directory"`
	TotalSeries       int             `json:"total_series"`
	SuccessfulExports int             `json:"successful_exports"`
	FailedExports     int             `json:"failed_exports"`
	GeneratedAt       time.Time       `json:"generated_at"`
	Series            []ManifestEntry `json:"series"`
}

// WriteManifest writes m as indented JSON to path, stamping GeneratedAt when unset.
func WriteManifest(m Manifest, path string) error {
	if m.GeneratedAt.IsZero() {
		m.GeneratedAt = time.Now().UTC()
	}
	if m.Series == nil {
		m.Series = []ManifestEntry{}
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
