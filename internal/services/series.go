package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/shared"
)

// SeriesGateway reads the catalog, manages follows and watch flags, and caches the caller's followed series.
//
// The cache holds a single entry. It is unset until the first successful fetch, replaced on every network read
// and unset again by any follow or unfollow.
type SeriesGateway struct {
	client   *Client
	notifier Notifier
	logger   *log.Logger

	mu         sync.Mutex
	cache      []models.Series
	cached     bool
	generation uint64
}

// NewSeriesGateway creates a gateway. A nil notifier logs toasts.
func NewSeriesGateway(client *Client, notifier Notifier, logger *log.Logger) *SeriesGateway {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &SeriesGateway{
		client:   client,
		notifier: notifier,
		logger:   shared.WithLogger(logger, "component", "series"),
	}
}

// ListSeries returns a page of the catalog. Failures degrade to an empty page.
func (g *SeriesGateway) ListSeries(ctx context.Context, page int) models.SeriesPage {
	return g.catalog(ctx, "/series", url.Values{"page": {pageParam(page)}})
}

// Popular returns a page of popular series. Failures degrade to an empty page.
func (g *SeriesGateway) Popular(ctx context.Context, page int) models.SeriesPage {
	return g.catalog(ctx, "/series/popular", url.Values{"page": {pageParam(page)}})
}

// TopRated returns a page of top rated series. Failures degrade to an empty page.
func (g *SeriesGateway) TopRated(ctx context.Context, page int) models.SeriesPage {
	return g.catalog(ctx, "/series/top-rated", url.Values{"page": {pageParam(page)}})
}

// Search queries the catalog by name. An empty query returns an empty page without a request.
func (g *SeriesGateway) Search(ctx context.Context, query string, page int) models.SeriesPage {
	if query == "" {
		return models.SeriesPage{Results: []models.Series{}}
	}
	return g.catalog(ctx, "/series/search", url.Values{"query": {query}, "page": {pageParam(page)}})
}

func (g *SeriesGateway) catalog(ctx context.Context, path string, params url.Values) models.SeriesPage {
	var page models.SeriesPage
	if err := g.client.doRequest(ctx, http.MethodGet, path+"?"+params.Encode(), nil, &page); err != nil {
		g.logger.Error("catalog read failed", "path", path, "error", err)
		return models.SeriesPage{Results: []models.Series{}}
	}
	if page.Results == nil {
		page.Results = []models.Series{}
	}
	return page
}

func pageParam(page int) string {
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf("%d", page)
}

// SeriesDetail fetches a series with its seasons, stats and the caller's user data.
func (g *SeriesGateway) SeriesDetail(ctx context.Context, id int64) (*models.SeriesDetail, error) {
	var detail models.SeriesDetail
	if err := g.client.doRequest(ctx, http.MethodGet, fmt.Sprintf("/series/%d", id), nil, &detail); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %d", shared.ErrSeriesNotFound, id)
		}
		return nil, err
	}
	return &detail, nil
}

type userSeriesResponse struct {
	Series []models.Series `json:"series"`
}

// UserSeries returns the followed series, from the cache unless forceRefresh is set or the cache is unset.
//
// A failed fetch returns an empty list, emits an error toast and leaves the cache unset so the next call retries.
func (g *SeriesGateway) UserSeries(ctx context.Context, forceRefresh bool) []models.Series {
	g.mu.Lock()
	if g.cached && !forceRefresh {
		list := slices.Clone(g.cache)
		g.mu.Unlock()
		return list
	}
	gen := g.generation
	g.mu.Unlock()

	var resp userSeriesResponse
	if err := g.client.doRequest(ctx, http.MethodGet, "/users/me/series", nil, &resp); err != nil {
		g.logger.Error("failed to load followed series", "error", err)
		g.notifier.Error("Could not load your series")
		return []models.Series{}
	}
	if resp.Series == nil {
		resp.Series = []models.Series{}
	}

	g.mu.Lock()
	// A follow or unfollow that finished while the request was in flight wins.
	if gen == g.generation {
		g.cache = resp.Series
		g.cached = true
	}
	g.mu.Unlock()

	return slices.Clone(resp.Series)
}

// InvalidateUserSeries unsets the followed series cache.
func (g *SeriesGateway) InvalidateUserSeries() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache = nil
	g.cached = false
	g.generation++
}

// HasCachedUserSeries reports whether the followed series cache is set.
func (g *SeriesGateway) HasCachedUserSeries() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cached
}

// IsSerieReallyFollowed checks membership of id in the (possibly cached) followed series list.
func (g *SeriesGateway) IsSerieReallyFollowed(ctx context.Context, id int64) bool {
	return slices.ContainsFunc(g.UserSeries(ctx, false), func(s models.Series) bool {
		return s.ID == id
	})
}

// FollowSerie follows a series and invalidates the followed series cache.
func (g *SeriesGateway) FollowSerie(ctx context.Context, id int64) error {
	return g.mutateFollow(ctx, id, "follow", "Series added to your list")
}

// UnfollowSerie unfollows a series and invalidates the followed series cache.
func (g *SeriesGateway) UnfollowSerie(ctx context.Context, id int64) error {
	return g.mutateFollow(ctx, id, "unfollow", "Series removed from your list")
}

func (g *SeriesGateway) mutateFollow(ctx context.Context, id int64, action, success string) error {
	var res models.APIResult
	path := fmt.Sprintf("/users/me/series/%d/%s", id, action)
	if err := g.client.doRequest(ctx, http.MethodPost, path, nil, &res); err != nil {
		g.logger.Error("follow request failed", "action", action, "series_id", id, "error", err)
		g.notifier.Error(fmt.Sprintf("Network error: could not %s series", action))
		return err
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = fmt.Sprintf("could not %s series", action)
		}
		g.notifier.Error(msg)
		return fmt.Errorf("%w: %s", shared.ErrRequestRejected, msg)
	}

	g.InvalidateUserSeries()
	g.notifier.Success(success)
	return nil
}

type watchedRequest struct {
	Watched bool `json:"watched"`
}

// SetSeriesWatched marks a whole series watched or unwatched. false with a nil error means the backend refused.
func (g *SeriesGateway) SetSeriesWatched(ctx context.Context, id int64, watched bool) (bool, error) {
	return g.setWatched(ctx, fmt.Sprintf("/users/me/series/%d/watched", id), watched)
}

// SetSeasonWatched marks a season watched or unwatched.
func (g *SeriesGateway) SetSeasonWatched(ctx context.Context, seriesID, seasonID int64, watched bool) (bool, error) {
	return g.setWatched(ctx, fmt.Sprintf("/users/me/series/%d/seasons/%d/watched", seriesID, seasonID), watched)
}

// SetEpisodeWatched marks an episode watched or unwatched.
func (g *SeriesGateway) SetEpisodeWatched(ctx context.Context, seriesID, episodeID int64, watched bool) (bool, error) {
	return g.setWatched(ctx, fmt.Sprintf("/users/me/series/%d/episodes/%d/watched", seriesID, episodeID), watched)
}

func (g *SeriesGateway) setWatched(ctx context.Context, path string, watched bool) (bool, error) {
	var res models.APIResult
	if err := g.client.doRequest(ctx, http.MethodPost, path, watchedRequest{Watched: watched}, &res); err != nil {
		return false, err
	}
	if !res.Success {
		g.logger.Warn("watched toggle refused", "path", path, "error", res.Error)
	}
	return res.Success, nil
}
