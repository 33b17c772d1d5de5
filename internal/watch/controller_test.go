package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAuth bool

func (a fakeAuth) IsAuthenticated() bool { return bool(a) }

type result struct {
	ok  bool
	err error
}

type fakeGateway struct {
	mu       sync.Mutex
	detail   *models.SeriesDetail
	followed bool
	calls    []string

	followErr error
	series    result
	season    func(seasonID int64, watched bool) result
	episode   result

	// gates hold a call of the given kind until released; entered is signalled first.
	gates   map[string]chan struct{}
	entered chan string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		series:  result{ok: true},
		episode: result{ok: true},
		season:  func(int64, bool) result { return result{ok: true} },
		gates:   make(map[string]chan struct{}),
		entered: make(chan string, 8),
	}
}

func (f *fakeGateway) record(call string, kind string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	gate := f.gates[kind]
	f.mu.Unlock()
	if gate != nil {
		f.entered <- kind
		<-gate
	}
}

func (f *fakeGateway) hold(kind string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[kind] = gate
	return gate
}

func (f *fakeGateway) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeGateway) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGateway) SeriesDetail(ctx context.Context, id int64) (*models.SeriesDetail, error) {
	if f.detail == nil {
		return nil, shared.ErrSeriesNotFound
	}
	return f.detail, nil
}

func (f *fakeGateway) IsSerieReallyFollowed(ctx context.Context, id int64) bool {
	return f.followed
}

func (f *fakeGateway) FollowSerie(ctx context.Context, id int64) error {
	f.record("follow", "follow")
	return f.followErr
}

func (f *fakeGateway) UnfollowSerie(ctx context.Context, id int64) error {
	f.record("unfollow", "follow")
	return f.followErr
}

func (f *fakeGateway) SetSeriesWatched(ctx context.Context, id int64, watched bool) (bool, error) {
	f.record(fmt.Sprintf("series:%v", watched), "series")
	return f.series.ok, f.series.err
}

func (f *fakeGateway) SetSeasonWatched(ctx context.Context, seriesID, seasonID int64, watched bool) (bool, error) {
	f.record(fmt.Sprintf("season:%d:%v", seasonID, watched), "season")
	r := f.season(seasonID, watched)
	return r.ok, r.err
}

func (f *fakeGateway) SetEpisodeWatched(ctx context.Context, seriesID, episodeID int64, watched bool) (bool, error) {
	f.record(fmt.Sprintf("episode:%d:%v", episodeID, watched), "episode")
	return f.episode.ok, f.episode.err
}

// fixture: season 10 has episodes 100 and 101, season 20 has episode 200.
func fixture() *models.SeriesDetail {
	return &models.SeriesDetail{
		Series: models.Series{ID: 1, Name: "Dark"},
		Seasons: []models.Season{
			{ID: 10, SeasonNumber: 1, Episodes: []models.Episode{{ID: 100, SeasonID: 10, EpisodeNumber: 1}, {ID: 101, SeasonID: 10, EpisodeNumber: 2}}},
			{ID: 20, SeasonNumber: 2, Episodes: []models.Episode{{ID: 200, SeasonID: 20, EpisodeNumber: 1}}},
		},
		Stats:    &models.SeriesStats{TotalFollowers: 5},
		UserData: &models.UserData{},
	}
}

func loaded(t *testing.T, gw *fakeGateway, detail *models.SeriesDetail, followed bool) *Controller {
	t.Helper()
	c := NewController(gw, fakeAuth(true), nil)
	c.Load(detail, followed)
	return c
}

func TestLoad(t *testing.T) {
	t.Run("reconciles follow flag with the authoritative check", func(t *testing.T) {
		d := fixture()
		d.Stats.FollowedByCurrentUser = true
		d.UserData.IsFollowing = true
		d.UserData.IsWatched = true

		c := loaded(t, newFakeGateway(), d, false)
		snap := c.Snapshot()

		assert.False(t, snap.Stats.FollowedByCurrentUser)
		assert.False(t, snap.UserData.IsFollowing)
		assert.True(t, snap.Stats.WatchedByCurrentUser)
	})

	t.Run("creates stats when missing", func(t *testing.T) {
		d := fixture()
		d.Stats = nil

		c := loaded(t, newFakeGateway(), d, true)
		require.NotNil(t, c.Snapshot().Stats)
		assert.True(t, c.Snapshot().Stats.FollowedByCurrentUser)
	})

	t.Run("copies the input", func(t *testing.T) {
		d := fixture()
		c := loaded(t, newFakeGateway(), d, false)

		d.UserData.WatchedEpisodes.Add(100)
		d.Seasons[0].Episodes[0].ID = 999

		snap := c.Snapshot()
		assert.False(t, snap.UserData.WatchedEpisodes.Has(100))
		assert.Equal(t, int64(100), snap.Seasons[0].Episodes[0].ID)
	})

	t.Run("open fetches detail and follow state", func(t *testing.T) {
		gw := newFakeGateway()
		gw.detail = fixture()
		gw.followed = true

		c := NewController(gw, fakeAuth(true), nil)
		require.NoError(t, c.Open(context.Background(), 1))
		assert.True(t, c.Snapshot().Stats.FollowedByCurrentUser)
	})

	t.Run("open propagates detail errors", func(t *testing.T) {
		c := NewController(newFakeGateway(), fakeAuth(false), nil)
		require.ErrorIs(t, c.Open(context.Background(), 1), shared.ErrSeriesNotFound)
		assert.Nil(t, c.Snapshot())
	})
}

func TestPreconditions(t *testing.T) {
	ctx := context.Background()

	toggles := map[string]func(c *Controller) error{
		"follow":  func(c *Controller) error { return c.ToggleFollow(ctx) },
		"watched": func(c *Controller) error { return c.ToggleWatched(ctx) },
		"season":  func(c *Controller) error { return c.ToggleSeasonWatched(ctx, 10) },
		"episode": func(c *Controller) error { return c.ToggleEpisodeWatched(ctx, 100) },
	}

	for name, toggle := range toggles {
		t.Run(name+" requires authentication", func(t *testing.T) {
			gw := newFakeGateway()
			c := NewController(gw, fakeAuth(false), nil)
			c.Load(fixture(), false)
			before := c.Snapshot()

			require.ErrorIs(t, toggle(c), shared.ErrNotAuthenticated)
			assert.Zero(t, gw.total())
			assert.Equal(t, before, c.Snapshot())
		})

		t.Run(name+" requires a loaded series", func(t *testing.T) {
			gw := newFakeGateway()
			c := NewController(gw, fakeAuth(true), nil)

			require.ErrorIs(t, toggle(c), ErrNotLoaded)
			assert.Zero(t, gw.total())
		})
	}

	t.Run("season and episode require user data", func(t *testing.T) {
		d := fixture()
		d.UserData = nil
		gw := newFakeGateway()
		c := loaded(t, gw, d, false)

		require.ErrorIs(t, c.ToggleSeasonWatched(ctx, 10), ErrNotLoaded)
		require.ErrorIs(t, c.ToggleEpisodeWatched(ctx, 100), ErrNotLoaded)
		assert.Zero(t, gw.total())
	})

	t.Run("unknown season or episode", func(t *testing.T) {
		gw := newFakeGateway()
		c := loaded(t, gw, fixture(), false)

		require.ErrorIs(t, c.ToggleSeasonWatched(ctx, 99), ErrNotLoaded)
		require.ErrorIs(t, c.ToggleEpisodeWatched(ctx, 999), ErrNotLoaded)
		assert.False(t, c.Loading(SeasonKey(99)))
		assert.False(t, c.Loading(EpisodeKey(999)))
		assert.Zero(t, gw.total())
	})
}

func TestToggleFollow(t *testing.T) {
	ctx := context.Background()

	t.Run("follow increments", func(t *testing.T) {
		gw := newFakeGateway()
		c := loaded(t, gw, fixture(), false)

		require.NoError(t, c.ToggleFollow(ctx))

		snap := c.Snapshot()
		assert.True(t, snap.Stats.FollowedByCurrentUser)
		assert.Equal(t, 6, snap.Stats.TotalFollowers)
		assert.True(t, snap.UserData.IsFollowing)
		assert.NotNil(t, snap.UserData.FollowedAt)
		assert.Equal(t, 1, gw.count("follow"))
	})

	t.Run("unfollow floors at zero", func(t *testing.T) {
		d := fixture()
		d.Stats.TotalFollowers = 0
		gw := newFakeGateway()
		c := loaded(t, gw, d, true)

		require.NoError(t, c.ToggleFollow(ctx))

		snap := c.Snapshot()
		assert.False(t, snap.Stats.FollowedByCurrentUser)
		assert.Equal(t, 0, snap.Stats.TotalFollowers)
		assert.Equal(t, 1, gw.count("unfollow"))
	})

	t.Run("failure reverts entirely", func(t *testing.T) {
		gw := newFakeGateway()
		gw.followErr = shared.ErrRequestRejected
		c := loaded(t, gw, fixture(), false)
		before := c.Snapshot()

		require.ErrorIs(t, c.ToggleFollow(ctx), shared.ErrRequestRejected)
		assert.Equal(t, before, c.Snapshot())
		assert.False(t, c.Loading(KeyFollow))
	})

	t.Run("optimistic before the response", func(t *testing.T) {
		gw := newFakeGateway()
		gate := gw.hold("follow")
		c := loaded(t, gw, fixture(), false)

		done := make(chan error, 1)
		go func() { done <- c.ToggleFollow(ctx) }()
		<-gw.entered

		assert.True(t, c.Snapshot().Stats.FollowedByCurrentUser)
		assert.Equal(t, 6, c.Snapshot().Stats.TotalFollowers)
		assert.True(t, c.Loading(KeyFollow))

		close(gate)
		require.NoError(t, <-done)
		assert.False(t, c.Loading(KeyFollow))
	})
}

func TestToggleWatched(t *testing.T) {
	ctx := context.Background()

	t.Run("on marks every season and episode", func(t *testing.T) {
		gw := newFakeGateway()
		c := loaded(t, gw, fixture(), false)

		require.NoError(t, c.ToggleWatched(ctx))

		snap := c.Snapshot()
		assert.True(t, snap.Stats.WatchedByCurrentUser)
		assert.True(t, snap.UserData.IsWatched)
		assert.ElementsMatch(t, []int64{10, 20}, snap.UserData.WatchedSeasons.Slice())
		assert.ElementsMatch(t, []int64{100, 101, 200}, snap.UserData.WatchedEpisodes.Slice())
		assert.Equal(t, 1, gw.count("series:true"))
	})

	t.Run("off clears both sets", func(t *testing.T) {
		d := fixture()
		d.UserData.IsWatched = true
		d.UserData.WatchedSeasons = models.NewIDSet(10, 20)
		d.UserData.WatchedEpisodes = models.NewIDSet(100, 101, 200)
		gw := newFakeGateway()
		c := loaded(t, gw, d, false)

		require.NoError(t, c.ToggleWatched(ctx))

		snap := c.Snapshot()
		assert.False(t, snap.Stats.WatchedByCurrentUser)
		assert.Zero(t, snap.UserData.WatchedSeasons.Len())
		assert.Zero(t, snap.UserData.WatchedEpisodes.Len())
	})

	t.Run("cascade is applied before the request", func(t *testing.T) {
		gw := newFakeGateway()
		gate := gw.hold("series")
		c := loaded(t, gw, fixture(), false)

		done := make(chan error, 1)
		go func() { done <- c.ToggleWatched(ctx) }()
		<-gw.entered

		snap := c.Snapshot()
		assert.True(t, snap.Stats.WatchedByCurrentUser)
		assert.Equal(t, 3, snap.UserData.WatchedEpisodes.Len())

		close(gate)
		require.NoError(t, <-done)
	})

	t.Run("failure reverts the flag but keeps the cascade", func(t *testing.T) {
		for name, res := range map[string]result{
			"refused":   {ok: false},
			"transport": {err: errors.New("offline")},
		} {
			t.Run(name, func(t *testing.T) {
				gw := newFakeGateway()
				gw.series = res
				c := loaded(t, gw, fixture(), false)

				require.Error(t, c.ToggleWatched(ctx))

				snap := c.Snapshot()
				assert.False(t, snap.Stats.WatchedByCurrentUser)
				assert.False(t, snap.UserData.IsWatched)
				assert.Nil(t, snap.UserData.WatchedAt)
				assert.Equal(t, 2, snap.UserData.WatchedSeasons.Len())
				assert.Equal(t, 3, snap.UserData.WatchedEpisodes.Len())
			})
		}
	})

	t.Run("creates user data when missing", func(t *testing.T) {
		d := fixture()
		d.UserData = nil
		c := loaded(t, newFakeGateway(), d, false)

		require.NoError(t, c.ToggleWatched(ctx))
		require.NotNil(t, c.Snapshot().UserData)
		assert.Equal(t, 3, c.Snapshot().UserData.WatchedEpisodes.Len())
	})
}

func TestToggleSeasonWatched(t *testing.T) {
	ctx := context.Background()

	t.Run("mark cascades to its episodes", func(t *testing.T) {
		gw := newFakeGateway()
		c := loaded(t, gw, fixture(), false)

		require.NoError(t, c.ToggleSeasonWatched(ctx, 10))

		ud := c.Snapshot().UserData
		assert.True(t, ud.WatchedSeasons.Has(10))
		assert.True(t, ud.WatchedEpisodes.ContainsAll([]int64{100, 101}))
		assert.False(t, ud.WatchedEpisodes.Has(200))
		assert.Equal(t, 1, gw.count("season:10:true"))
	})

	t.Run("unmark removes all its episodes", func(t *testing.T) {
		d := fixture()
		d.UserData.WatchedSeasons = models.NewIDSet(10, 20)
		d.UserData.WatchedEpisodes = models.NewIDSet(100, 101, 200)
		c := loaded(t, newFakeGateway(), d, false)

		require.NoError(t, c.ToggleSeasonWatched(ctx, 10))

		ud := c.Snapshot().UserData
		assert.False(t, ud.WatchedSeasons.Has(10))
		assert.False(t, ud.WatchedEpisodes.ContainsAny([]int64{100, 101}))
		assert.True(t, ud.WatchedEpisodes.Has(200))
	})

	t.Run("episodes change only after confirmation", func(t *testing.T) {
		gw := newFakeGateway()
		gate := gw.hold("season")
		c := loaded(t, gw, fixture(), false)

		done := make(chan error, 1)
		go func() { done <- c.ToggleSeasonWatched(ctx, 10) }()
		<-gw.entered

		ud := c.Snapshot().UserData
		assert.True(t, ud.WatchedSeasons.Has(10))
		assert.Zero(t, ud.WatchedEpisodes.Len())
		assert.True(t, c.Loading(SeasonKey(10)))

		close(gate)
		require.NoError(t, <-done)
		assert.False(t, c.Loading(SeasonKey(10)))
		assert.Equal(t, 2, c.Snapshot().UserData.WatchedEpisodes.Len())
	})

	t.Run("failure reverts the season only", func(t *testing.T) {
		gw := newFakeGateway()
		gw.season = func(int64, bool) result { return result{err: errors.New("offline")} }
		d := fixture()
		d.UserData.WatchedEpisodes = models.NewIDSet(100)
		c := loaded(t, gw, d, false)
		before := c.Snapshot()

		require.Error(t, c.ToggleSeasonWatched(ctx, 10))

		assert.Equal(t, before.UserData, c.Snapshot().UserData)
		assert.False(t, c.Loading(SeasonKey(10)))
	})
}

func TestToggleEpisodeWatched(t *testing.T) {
	ctx := context.Background()

	t.Run("last unwatched episode marks the season once", func(t *testing.T) {
		d := fixture()
		d.UserData.WatchedEpisodes = models.NewIDSet(100)
		gw := newFakeGateway()
		c := loaded(t, gw, d, false)

		require.NoError(t, c.ToggleEpisodeWatched(ctx, 101))
		c.Wait()

		assert.Equal(t, 1, gw.count("season:10:true"))
		assert.Equal(t, 2, gw.total())
		assert.True(t, c.Snapshot().UserData.WatchedSeasons.Has(10))
	})

	t.Run("last watched episode unmarks the season once", func(t *testing.T) {
		d := fixture()
		d.UserData.WatchedSeasons = models.NewIDSet(10)
		d.UserData.WatchedEpisodes = models.NewIDSet(100)
		gw := newFakeGateway()
		c := loaded(t, gw, d, false)

		require.NoError(t, c.ToggleEpisodeWatched(ctx, 100))
		c.Wait()

		assert.Equal(t, 1, gw.count("season:10:false"))
		assert.Equal(t, 2, gw.total())
		assert.False(t, c.Snapshot().UserData.WatchedSeasons.Has(10))
	})

	t.Run("partial season triggers no reconciliation", func(t *testing.T) {
		gw := newFakeGateway()
		c := loaded(t, gw, fixture(), false)

		require.NoError(t, c.ToggleEpisodeWatched(ctx, 100))
		c.Wait()

		assert.Equal(t, 1, gw.total())
		ud := c.Snapshot().UserData
		assert.True(t, ud.WatchedEpisodes.Has(100))
		assert.False(t, ud.WatchedSeasons.Has(10))
	})

	t.Run("single episode season", func(t *testing.T) {
		gw := newFakeGateway()
		c := loaded(t, gw, fixture(), false)

		require.NoError(t, c.ToggleEpisodeWatched(ctx, 200))
		c.Wait()

		assert.Equal(t, 1, gw.count("season:20:true"))
	})

	t.Run("failed reconciliation leaves the season stale", func(t *testing.T) {
		d := fixture()
		d.UserData.WatchedEpisodes = models.NewIDSet(100)
		gw := newFakeGateway()
		gw.season = func(int64, bool) result { return result{err: errors.New("offline")} }
		c := loaded(t, gw, d, false)

		require.NoError(t, c.ToggleEpisodeWatched(ctx, 101))
		c.Wait()

		ud := c.Snapshot().UserData
		assert.True(t, ud.WatchedEpisodes.ContainsAll([]int64{100, 101}))
		assert.False(t, ud.WatchedSeasons.Has(10))
		assert.False(t, c.Loading(SeasonKey(10)))
	})

	t.Run("failure reverts the episode", func(t *testing.T) {
		gw := newFakeGateway()
		gw.episode = result{ok: false}
		d := fixture()
		d.UserData.WatchedEpisodes = models.NewIDSet(100)
		c := loaded(t, gw, d, false)

		require.ErrorIs(t, c.ToggleEpisodeWatched(ctx, 101), shared.ErrRequestRejected)
		c.Wait()

		ud := c.Snapshot().UserData
		assert.Equal(t, []int64{100}, ud.WatchedEpisodes.Slice())
		assert.Equal(t, 1, gw.total())
	})

	t.Run("reconciliation survives caller cancellation", func(t *testing.T) {
		d := fixture()
		d.UserData.WatchedEpisodes = models.NewIDSet(100)
		gw := newFakeGateway()
		c := loaded(t, gw, d, false)

		cctx, cancel := context.WithCancel(ctx)
		require.NoError(t, c.ToggleEpisodeWatched(cctx, 101))
		cancel()
		c.Wait()

		assert.True(t, c.Snapshot().UserData.WatchedSeasons.Has(10))
	})
}

func TestInFlight(t *testing.T) {
	ctx := context.Background()

	t.Run("second toggle on the same key is rejected", func(t *testing.T) {
		gw := newFakeGateway()
		gate := gw.hold("episode")
		c := loaded(t, gw, fixture(), false)

		done := make(chan error, 1)
		go func() { done <- c.ToggleEpisodeWatched(ctx, 100) }()
		<-gw.entered
		before := c.Snapshot()

		require.ErrorIs(t, c.ToggleEpisodeWatched(ctx, 100), ErrInFlight)
		assert.Equal(t, before, c.Snapshot())
		assert.Equal(t, 1, gw.count("episode:100:true"))

		close(gate)
		require.NoError(t, <-done)
		assert.True(t, c.Snapshot().UserData.WatchedEpisodes.Has(100))
	})

	t.Run("different keys proceed concurrently", func(t *testing.T) {
		gw := newFakeGateway()
		gate := gw.hold("follow")
		c := loaded(t, gw, fixture(), false)

		done := make(chan error, 1)
		go func() { done <- c.ToggleFollow(ctx) }()
		<-gw.entered

		require.NoError(t, c.ToggleSeasonWatched(ctx, 20))
		assert.True(t, c.Loading(KeyFollow))

		close(gate)
		require.NoError(t, <-done)
		assert.True(t, c.Snapshot().UserData.WatchedSeasons.Has(20))
	})

	t.Run("reconciliation skips a season already in flight", func(t *testing.T) {
		d := fixture()
		d.UserData.WatchedEpisodes = models.NewIDSet(100)
		gw := newFakeGateway()
		gate := gw.hold("season")
		c := loaded(t, gw, d, false)

		done := make(chan error, 1)
		go func() { done <- c.ToggleSeasonWatched(ctx, 10) }()
		<-gw.entered

		require.NoError(t, c.ToggleEpisodeWatched(ctx, 101))
		close(gate)
		require.NoError(t, <-done)
		c.Wait()

		assert.Equal(t, 1, gw.count("season:10:true"))
	})
}

func TestWait(t *testing.T) {
	ctx := context.Background()

	t.Run("blocks until a running reconciliation finishes", func(t *testing.T) {
		gw := newFakeGateway()
		gate := gw.hold("season")
		c := loaded(t, gw, fixture(), false)

		require.NoError(t, c.ToggleEpisodeWatched(ctx, 200))
		<-gw.entered

		waited := make(chan struct{})
		go func() {
			c.Wait()
			close(waited)
		}()

		select {
		case <-waited:
			t.Fatal("Wait returned while the season update was still running")
		case <-time.After(20 * time.Millisecond):
		}

		close(gate)
		<-waited
		assert.True(t, c.Snapshot().UserData.WatchedSeasons.Has(20))
	})

	t.Run("safe alongside concurrent toggles", func(t *testing.T) {
		gw := newFakeGateway()
		c := loaded(t, gw, fixture(), false)

		var wg sync.WaitGroup
		toggles := []func() error{
			func() error { return c.ToggleEpisodeWatched(ctx, 100) },
			func() error { return c.ToggleEpisodeWatched(ctx, 101) },
			func() error { return c.ToggleEpisodeWatched(ctx, 200) },
			func() error { return c.ToggleFollow(ctx) },
		}
		errs := make(chan error, len(toggles))
		for _, toggle := range toggles {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- toggle()
			}()
		}
		for range 3 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.Wait()
			}()
		}

		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}
		c.Wait()

		ud := c.Snapshot().UserData
		assert.True(t, ud.WatchedSeasons.Has(10))
		assert.True(t, ud.WatchedSeasons.Has(20))
		assert.True(t, ud.IsFollowing)
	})
}

func TestStaleResponses(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gate := gw.hold("follow")
	c := loaded(t, gw, fixture(), false)

	done := make(chan error, 1)
	go func() { done <- c.ToggleFollow(ctx) }()
	<-gw.entered

	next := fixture()
	next.ID = 2
	c.Load(next, false)

	gw.followErr = errors.New("late failure")
	close(gate)
	require.Error(t, <-done)

	snap := c.Snapshot()
	assert.Equal(t, int64(2), snap.ID)
	assert.Equal(t, 5, snap.Stats.TotalFollowers)
	assert.False(t, c.Loading(KeyFollow))
}
