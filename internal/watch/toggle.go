package watch

import (
	"context"
	"slices"

	"github.com/desertthunder/tvx/internal/models"
)

// ToggleFollow follows or unfollows the loaded series.
//
// The follow flag and follower count change before the request and are fully restored if it fails.
func (c *Controller) ToggleFollow(ctx context.Context) error {
	c.mu.Lock()
	gen, err := c.begin(KeyFollow, false)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	d := c.detail
	follow := !d.Stats.FollowedByCurrentUser
	prevFollowers := d.Stats.TotalFollowers
	var prevUser *models.UserData
	if d.UserData != nil {
		prevUser = d.UserData.Clone()
	}

	d.Stats.FollowedByCurrentUser = follow
	if follow {
		d.Stats.TotalFollowers++
	} else if d.Stats.TotalFollowers > 0 {
		d.Stats.TotalFollowers--
	}
	if d.UserData != nil {
		d.UserData.IsFollowing = follow
		d.UserData.FollowedAt = nil
		if follow {
			at := c.now()
			d.UserData.FollowedAt = &at
		}
	}
	id := d.ID
	c.mu.Unlock()

	if follow {
		err = c.gw.FollowSerie(ctx, id)
	} else {
		err = c.gw.UnfollowSerie(ctx, id)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finish(KeyFollow, gen) || err == nil {
		return err
	}

	c.logger.Error("follow toggle failed", "series_id", id, "follow", follow, "error", err)
	d.Stats.FollowedByCurrentUser = !follow
	d.Stats.TotalFollowers = prevFollowers
	if d.UserData != nil && prevUser != nil {
		d.UserData.IsFollowing = prevUser.IsFollowing
		d.UserData.FollowedAt = prevUser.FollowedAt
	}
	return err
}

// ToggleWatched marks the whole series watched or unwatched.
//
// The flag and the season and episode cascade are applied before the request. On failure only the flag is
// restored.
func (c *Controller) ToggleWatched(ctx context.Context) error {
	c.mu.Lock()
	gen, err := c.begin(KeyWatched, false)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	d := c.detail
	if d.UserData == nil {
		d.UserData = &models.UserData{IsFollowing: d.Stats.FollowedByCurrentUser}
	}
	watched := !d.Stats.WatchedByCurrentUser
	prevIsWatched, prevWatchedAt := d.UserData.IsWatched, d.UserData.WatchedAt

	d.Stats.WatchedByCurrentUser = watched
	d.UserData.IsWatched = watched
	d.UserData.WatchedAt = nil
	if watched {
		at := c.now()
		d.UserData.WatchedAt = &at
		c.markAllWatchedData()
	} else {
		c.clearAllWatchedData()
	}
	id := d.ID
	c.mu.Unlock()

	ok, err := c.gw.SetSeriesWatched(ctx, id, watched)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finish(KeyWatched, gen) {
		return err
	}
	if err == nil && ok {
		return nil
	}
	if err == nil {
		err = rejected("series watched")
	}

	c.logger.Error("watched toggle failed", "series_id", id, "watched", watched, "error", err)
	d.Stats.WatchedByCurrentUser = !watched
	d.UserData.IsWatched = prevIsWatched
	d.UserData.WatchedAt = prevWatchedAt
	return err
}

// markAllWatchedData adds every known season and episode to the watched sets. Must be called with mu held.
func (c *Controller) markAllWatchedData() {
	ud := c.detail.UserData
	ud.WatchedSeasons.Add(c.detail.AllSeasonIDs()...)
	ud.WatchedEpisodes.Add(c.detail.AllEpisodeIDs()...)
}

// clearAllWatchedData empties both watched sets. Must be called with mu held.
func (c *Controller) clearAllWatchedData() {
	ud := c.detail.UserData
	ud.WatchedSeasons.Clear()
	ud.WatchedEpisodes.Clear()
}

// ToggleSeasonWatched marks a season watched or unwatched and, once confirmed, cascades to its episodes.
//
// On failure only the season is restored; the episodes were never touched.
func (c *Controller) ToggleSeasonWatched(ctx context.Context, seasonID int64) error {
	key := SeasonKey(seasonID)

	c.mu.Lock()
	gen, err := c.begin(key, true)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	season, found := c.detail.FindSeason(seasonID)
	if !found {
		delete(c.inflight, key)
		c.mu.Unlock()
		return ErrNotLoaded
	}

	ud := c.detail.UserData
	watched := !ud.WatchedSeasons.Has(seasonID)
	setMember(&ud.WatchedSeasons, seasonID, watched)
	episodes := season.EpisodeIDs()
	seriesID := c.detail.ID
	c.mu.Unlock()

	ok, err := c.gw.SetSeasonWatched(ctx, seriesID, seasonID, watched)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finish(key, gen) {
		return err
	}

	ud = c.detail.UserData
	if err != nil || !ok {
		if err == nil {
			err = rejected("season watched")
		}
		c.logger.Error("season toggle failed", "series_id", seriesID, "season_id", seasonID, "watched", watched, "error", err)
		setMember(&ud.WatchedSeasons, seasonID, !watched)
		return err
	}

	if watched {
		ud.WatchedEpisodes.Add(episodes...)
	} else {
		ud.WatchedEpisodes.Remove(episodes...)
	}
	return nil
}

// ToggleEpisodeWatched marks an episode watched or unwatched and, once confirmed, reconciles its season in
// the background.
func (c *Controller) ToggleEpisodeWatched(ctx context.Context, episodeID int64) error {
	key := EpisodeKey(episodeID)

	c.mu.Lock()
	gen, err := c.begin(key, true)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if _, found := c.detail.SeasonOf(episodeID); !found {
		delete(c.inflight, key)
		c.mu.Unlock()
		return ErrNotLoaded
	}

	ud := c.detail.UserData
	watched := !ud.WatchedEpisodes.Has(episodeID)
	setMember(&ud.WatchedEpisodes, episodeID, watched)
	seriesID := c.detail.ID
	c.mu.Unlock()

	ok, err := c.gw.SetEpisodeWatched(ctx, seriesID, episodeID, watched)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.finish(key, gen) {
		return err
	}

	ud = c.detail.UserData
	if err != nil || !ok {
		if err == nil {
			err = rejected("episode watched")
		}
		c.logger.Error("episode toggle failed", "series_id", seriesID, "episode_id", episodeID, "watched", watched, "error", err)
		setMember(&ud.WatchedEpisodes, episodeID, !watched)
		return err
	}

	c.reconcileSeasonOf(ctx, gen, episodeID, watched)
	return nil
}

// reconcileSeasonOf starts a season update when the episode toggle completed or emptied its season.
// Must be called with mu held.
func (c *Controller) reconcileSeasonOf(ctx context.Context, gen uint64, episodeID int64, watched bool) {
	season, found := c.detail.SeasonOf(episodeID)
	if !found {
		return
	}
	ud := c.detail.UserData
	episodes := season.EpisodeIDs()
	seasonWatched := ud.WatchedSeasons.Has(season.ID)

	switch {
	case watched && !seasonWatched && ud.WatchedEpisodes.ContainsAll(episodes):
	case !watched && seasonWatched && !ud.WatchedEpisodes.ContainsAny(episodes):
	default:
		return
	}

	key := SeasonKey(season.ID)
	if c.inflight[key] {
		c.logger.Debug("season already updating, skipping reconciliation", "season_id", season.ID)
		return
	}
	c.inflight[key] = true
	c.reconciling++
	go c.reconcileSeason(context.WithoutCancel(ctx), gen, c.detail.ID, season.ID, watched)
}

// reconcileSeason is best-effort: failures are logged and may leave the season stale.
func (c *Controller) reconcileSeason(ctx context.Context, gen uint64, seriesID, seasonID int64, watched bool) {
	ok, err := c.gw.SetSeasonWatched(ctx, seriesID, seasonID, watched)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.reconciled()
	if !c.finish(SeasonKey(seasonID), gen) {
		return
	}
	if err != nil || !ok {
		c.logger.Warn("season reconciliation failed, season state may be stale", "series_id", seriesID, "season_id", seasonID, "watched", watched, "error", err)
		return
	}
	setMember(&c.detail.UserData.WatchedSeasons, seasonID, watched)
}

// reconciled marks one reconciliation done. Must be called with mu held.
func (c *Controller) reconciled() {
	c.reconciling--
	if c.reconciling == 0 {
		c.idle.Broadcast()
	}
}

func setMember(set *models.IDSet, id int64, present bool) {
	if present {
		set.Add(id)
	} else {
		set.Remove(id)
	}
}

func cloneDetail(d *models.SeriesDetail) *models.SeriesDetail {
	out := *d
	out.Genres = slices.Clone(d.Genres)
	out.Seasons = make([]models.Season, len(d.Seasons))
	for i, s := range d.Seasons {
		s.Episodes = slices.Clone(s.Episodes)
		out.Seasons[i] = s
	}
	if d.Stats != nil {
		stats := *d.Stats
		out.Stats = &stats
	}
	out.UserData = d.UserData.Clone()
	return &out
}
