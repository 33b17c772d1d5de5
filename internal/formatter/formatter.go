// package formatter renders a followed series and its watch state to export formats (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/shared"
)

// DefaultImageBaseURL prefixes relative poster paths.
const DefaultImageBaseURL = "https://image.tmdb.org/t/p/w500"

// PosterURL resolves a poster path against base. Absolute URLs are returned unchanged.
func PosterURL(base, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if base == "" {
		base = DefaultImageBaseURL
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// EpisodeWatched reports whether ep counts as watched, either directly or through its season or the whole series.
func EpisodeWatched(detail *models.SeriesDetail, season models.Season, ep models.Episode) bool {
	u := detail.UserData
	if u == nil {
		return false
	}
	return u.IsWatched || u.WatchedSeasons.Has(season.ID) || u.WatchedEpisodes.Has(ep.ID)
}

func episodeCode(season models.Season, ep models.Episode) string {
	return fmt.Sprintf("S%02dE%02d", season.SeasonNumber, ep.EpisodeNumber)
}

func countEpisodes(detail *models.SeriesDetail) (total, watched int) {
	for _, s := range detail.Seasons {
		for _, ep := range s.Episodes {
			total++
			if EpisodeWatched(detail, s, ep) {
				watched++
			}
		}
	}
	return total, watched
}

// ExportToCSV converts a series to CSV with one row per episode: Season, Episode, Code, Title, Air Date, Watched
func ExportToCSV(detail *models.SeriesDetail) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Season", "Episode", "Code", "Title", "Air Date", "Watched"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, season := range detail.Seasons {
		for _, ep := range season.Episodes {
			record := []string{
				strconv.Itoa(season.SeasonNumber),
				strconv.Itoa(ep.EpisodeNumber),
				episodeCode(season, ep),
				ep.Name,
				ep.AirDate,
				strconv.FormatBool(EpisodeWatched(detail, season, ep)),
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a series to a Markdown checklist with an optional poster image
func ExportToMarkdown(detail *models.SeriesDetail, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", detail.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Poster](%s)\n\n", imageFilename)
	}

	if detail.Overview != "" {
		fmt.Fprintf(&buf, "**Overview**: %s\n\n", detail.Overview)
	}
	if detail.Status != "" {
		fmt.Fprintf(&buf, "**Status**: %s\n", detail.Status)
	}

	total, watched := countEpisodes(detail)
	fmt.Fprintf(&buf, "**Seasons**: %d\n", len(detail.Seasons))
	fmt.Fprintf(&buf, "**Watched**: %d/%d episodes\n\n", watched, total)

	for _, season := range detail.Seasons {
		name := season.Name
		if name == "" {
			name = fmt.Sprintf("Season %d", season.SeasonNumber)
		}
		fmt.Fprintf(&buf, "## %s\n\n", name)
		for _, ep := range season.Episodes {
			mark := " "
			if EpisodeWatched(detail, season, ep) {
				mark = "x"
			}
			fmt.Fprintf(&buf, "- [%s] %s %s\n", mark, episodeCode(season, ep), ep.Name)
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a series to plain text format
func ExportToText(detail *models.SeriesDetail) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Series: %s\n", detail.Name)
	if detail.Status != "" {
		fmt.Fprintf(&buf, "Status: %s\n", detail.Status)
	}
	total, watched := countEpisodes(detail)
	fmt.Fprintf(&buf, "Watched: %d/%d\n\n", watched, total)

	for _, season := range detail.Seasons {
		for _, ep := range season.Episodes {
			mark := "[ ]"
			if EpisodeWatched(detail, season, ep) {
				mark = "[x]"
			}
			fmt.Fprintf(&buf, "%s %s %s\n", mark, episodeCode(season, ep), ep.Name)
		}
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

type metadata struct {
	models.Series
	Stats    *models.SeriesStats `json:"stats,omitempty"`
	UserData *models.UserData    `json:"user_data,omitempty"`
	Episodes int                 `json:"episode_count"`
	Watched  int                 `json:"watched_episode_count"`
}

// ToMetadataJSON generates a JSON representation of the series metadata and watch state (without episodes)
func ToMetadataJSON(detail *models.SeriesDetail) ([]byte, error) {
	total, watched := countEpisodes(detail)
	return shared.MarshalJSON(metadata{
		Series:   detail.Series,
		Stats:    detail.Stats,
		UserData: detail.UserData,
		Episodes: total,
		Watched:  watched,
	}, true)
}

// BaseName returns the file stem used for a series export.
func BaseName(detail *models.SeriesDetail) string {
	return strconv.FormatInt(detail.ID, 10)
}

// WriteJSONExport writes the full series detail as indented JSON.
//
// Defaults to {series.ID}.json as the filename.
func WriteJSONExport(detail *models.SeriesDetail, path string) (string, error) {
	if path == "" {
		path = BaseName(detail) + ".json"
	}

	data, err := shared.MarshalJSON(detail, true)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}
	return path, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	EpisodesFile string
	MetadataFile string
}

// WriteCSVExport exports a series to CSV format with an accompanying metadata JSON file.
//
// Defaults to the series ID as the base filename & creates {base}_episodes.csv and {base}_metadata.json
func WriteCSVExport(detail *models.SeriesDetail, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = BaseName(detail)
	}

	csvData, err := ExportToCSV(detail)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	episodesFile := baseFilepath + "_episodes.csv"
	if err := os.WriteFile(episodesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(detail)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		EpisodesFile: episodesFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Poster    string
}

// WriteMarkdownExport exports a series to Markdown format in a dedicated directory.
//
// Directory name defaults to the series ID.
// The imageURL parameter is optional - if provided, attempts to download the poster.
// Creates a directory structure: {dir}/README.md and optionally {dir}/poster.jpg
func WriteMarkdownExport(detail *models.SeriesDetail, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = BaseName(detail)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var posterFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			log.Warn("failed to download poster", "series_id", detail.ID, "error", err)
		} else {
			posterFilename = "poster.jpg"
			posterPath := filepath.Join(outputDir, posterFilename)
			if err := os.WriteFile(posterPath, imageData, 0644); err != nil {
				log.Warn("failed to save poster", "series_id", detail.ID, "error", err)
				posterFilename = ""
			} else {
				result.Poster = posterPath
				result.Files = append(result.Files, posterPath)
			}
		}
	}

	mdData, err := ExportToMarkdown(detail, posterFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports a series to plain text format.
//
// Defaults to {series.ID}_episodes.txt as the filename.
func WriteTextExport(detail *models.SeriesDetail, path string) (string, error) {
	if path == "" {
		path = BaseName(detail) + "_episodes.txt"
	}

	textData, err := ExportToText(detail)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}
