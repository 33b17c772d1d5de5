// package tasks implements long-running library operations over the series backend.
//
// The core abstraction is LibraryEngine, which exports the followed library and dumps raw account data.
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/services"
	"github.com/desertthunder/tvx/internal/shared"
)

// SeriesSource is the read side of the series gateway used by exports.
type SeriesSource interface {
	UserSeries(ctx context.Context, forceRefresh bool) []models.Series
	SeriesDetail(ctx context.Context, id int64) (*models.SeriesDetail, error)
}

// APIClient defines the raw request interface used by [LibraryEngine.Dump].
type APIClient interface {
	Get(ctx context.Context, path string) (*services.APIResponse, error)
}

// JobStore records export runs. Optional.
type JobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	Update(ctx context.Context, job *models.ExportJob) error
}

// EndpointResult represents the result of fetching data from a single API endpoint.
type EndpointResult struct {
	Endpoint string
	Error    error
}

// DumpResult contains the raw account data fetched from the backend.
type DumpResult struct {
	Session       any              // /init payload
	Series        any              // followed series
	Notifications any              // notification inbox
	Popular       any              // first page of popular series
	Errors        []EndpointResult // Failed endpoint fetches
}

// DumpData is the serialized form of [DumpResult].
type DumpData struct {
	Session       any      `json:"session"`
	Series        any      `json:"series,omitempty"`
	Notifications any      `json:"notifications,omitempty"`
	Popular       any      `json:"popular,omitempty"`
	Errors        []string `json:"errors,omitempty"`
}

// Data converts the result for serialization.
func (r *DumpResult) Data() DumpData {
	data := DumpData{
		Session:       r.Session,
		Series:        r.Series,
		Notifications: r.Notifications,
		Popular:       r.Popular,
	}
	for _, e := range r.Errors {
		data.Errors = append(data.Errors, fmt.Sprintf("%s: %v", e.Endpoint, e.Error))
	}
	return data
}

type endpointOperation struct {
	path    string
	target  *any
	phase   Phase
	message string
}

// LibraryEngine runs export and dump operations against the backend.
type LibraryEngine struct {
	source SeriesSource
	api    APIClient
	jobs   JobStore
	logger *log.Logger
	now    func() time.Time
}

// NewLibraryEngine creates an engine. api and jobs may be nil.
func NewLibraryEngine(source SeriesSource, api APIClient, jobs JobStore, logger *log.Logger) *LibraryEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &LibraryEngine{
		source: source,
		api:    api,
		jobs:   jobs,
		logger: shared.WithLogger(logger, "component", "tasks"),
		now:    time.Now,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *LibraryEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Dump fetches the raw account payloads from the backend. Failed endpoints are collected, not fatal.
func (e *LibraryEngine) Dump(ctx context.Context, progress chan<- ProgressUpdate) (*DumpResult, error) {
	if e.api == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}

	result := &DumpResult{Errors: []EndpointResult{}}

	endpoints := []endpointOperation{
		{path: "/init", target: &result.Session, phase: FetchSession, message: "Fetching session..."},
		{path: "/users/me/series", target: &result.Series, phase: FetchLibrary, message: "Fetching followed series..."},
		{path: "/notifications", target: &result.Notifications, phase: FetchNotifications, message: "Fetching notifications..."},
		{path: "/series/popular", target: &result.Popular, phase: FetchCatalog, message: "Fetching popular series..."},
	}

	total := len(endpoints)
	for i, endpoint := range endpoints {
		e.sendProgress(progress, operationUpdate(endpoint, i+1, total))

		resp, err := e.api.Get(ctx, endpoint.path)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, EndpointResult{Endpoint: endpoint.path, Error: err})
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			result.Errors = append(result.Errors, EndpointResult{
				Endpoint: endpoint.path,
				Error:    fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode),
			})
		default:
			*endpoint.target = resp.JSONData
		}
	}

	return result, nil
}
