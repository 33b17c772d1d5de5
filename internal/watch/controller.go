package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/shared"
)

var (
	ErrNotLoaded = errors.New("series not loaded")
	ErrInFlight  = errors.New("a change for this item is already in flight")
)

const (
	KeyFollow  = "follow"
	KeyWatched = "watched"
)

// SeasonKey is the in-flight key of a season toggle.
func SeasonKey(id int64) string { return fmt.Sprintf("season:%d", id) }

// EpisodeKey is the in-flight key of an episode toggle.
func EpisodeKey(id int64) string { return fmt.Sprintf("episode:%d", id) }

// Gateway is the backend surface used by the controller. [services.SeriesGateway] implements it.
type Gateway interface {
	SeriesDetail(ctx context.Context, id int64) (*models.SeriesDetail, error)
	IsSerieReallyFollowed(ctx context.Context, id int64) bool
	FollowSerie(ctx context.Context, id int64) error
	UnfollowSerie(ctx context.Context, id int64) error
	SetSeriesWatched(ctx context.Context, id int64, watched bool) (bool, error)
	SetSeasonWatched(ctx context.Context, seriesID, seasonID int64, watched bool) (bool, error)
	SetEpisodeWatched(ctx context.Context, seriesID, episodeID int64, watched bool) (bool, error)
}

// Authenticator reports whether a user is signed in.
type Authenticator interface {
	IsAuthenticated() bool
}

// Controller owns the watch state of one series at a time.
type Controller struct {
	gw     Gateway
	auth   Authenticator
	logger *log.Logger
	now    func() time.Time

	mu         sync.Mutex
	detail     *models.SeriesDetail
	generation uint64
	inflight   map[string]bool

	// reconciling counts running season reconciliations; idle is signalled when it drops to zero.
	reconciling int
	idle        *sync.Cond
}

func NewController(gw Gateway, auth Authenticator, logger *log.Logger) *Controller {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	c := &Controller{
		gw:       gw,
		auth:     auth,
		logger:   shared.WithLogger(logger, "component", "watch"),
		now:      time.Now,
		inflight: make(map[string]bool),
	}
	c.idle = sync.NewCond(&c.mu)
	return c
}

// Open fetches a series and loads it. The follow flag is checked against the followed series list when signed in.
func (c *Controller) Open(ctx context.Context, id int64) error {
	detail, err := c.gw.SeriesDetail(ctx, id)
	if err != nil {
		return err
	}
	followed := false
	if c.auth.IsAuthenticated() {
		followed = c.gw.IsSerieReallyFollowed(ctx, id)
	}
	c.Load(detail, followed)
	return nil
}

// Load replaces the current series with a copy of detail.
//
// The follow flags of stats and user data are set from reallyFollowed, because the flag embedded in the detail
// payload can be stale. The watched flag of stats follows user data when present. Responses to toggles issued
// against the previous series are ignored.
func (c *Controller) Load(detail *models.SeriesDetail, reallyFollowed bool) {
	d := cloneDetail(detail)
	if d.Stats == nil {
		d.Stats = &models.SeriesStats{}
	}
	d.Stats.FollowedByCurrentUser = reallyFollowed
	if d.UserData != nil {
		d.UserData.IsFollowing = reallyFollowed
		d.Stats.WatchedByCurrentUser = d.UserData.IsWatched
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.detail = d
	c.generation++
	c.inflight = make(map[string]bool)
}

// Snapshot returns a copy of the current series, or nil when none is loaded.
func (c *Controller) Snapshot() *models.SeriesDetail {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detail == nil {
		return nil
	}
	return cloneDetail(c.detail)
}

// Loading reports whether a request for key is in flight.
func (c *Controller) Loading(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[key]
}

// Wait blocks until background season reconciliations finish. It is safe to call while toggles are running.
func (c *Controller) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.reconciling > 0 {
		c.idle.Wait()
	}
}

// begin checks preconditions and claims key. It returns the generation the toggle belongs to.
// Must be called with mu held.
func (c *Controller) begin(key string, needUserData bool) (uint64, error) {
	if !c.auth.IsAuthenticated() {
		return 0, shared.ErrNotAuthenticated
	}
	if c.detail == nil || (needUserData && c.detail.UserData == nil) {
		return 0, ErrNotLoaded
	}
	if c.inflight[key] {
		return 0, fmt.Errorf("%w: %s", ErrInFlight, key)
	}
	c.inflight[key] = true
	return c.generation, nil
}

// finish releases key and reports whether the response still applies to the loaded series.
// Must be called with mu held.
func (c *Controller) finish(key string, gen uint64) bool {
	if gen != c.generation {
		return false
	}
	delete(c.inflight, key)
	return true
}

func rejected(what string) error {
	return fmt.Errorf("%w: %s", shared.ErrRequestRejected, what)
}
