package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tvx/internal/formatter"
	"github.com/desertthunder/tvx/internal/shared"
	"github.com/urfave/cli/v3"
)

// WatchSeries toggles the watched flag of a whole series.
func (r *Runner) WatchSeries(ctx context.Context, cmd *cli.Command) error {
	seriesID := cmd.Int64Arg("series-id")
	if err := r.openForWatch(ctx, seriesID); err != nil {
		return err
	}

	if err := r.watching.ToggleWatched(ctx); err != nil {
		return err
	}
	r.watching.Wait()

	d := r.watching.Snapshot()
	if d.UserData != nil && d.UserData.IsWatched {
		return r.writePlain("✓ Marked %s as watched\n", d.Name)
	}
	return r.writePlain("✓ Marked %s as unwatched\n", d.Name)
}

// WatchSeason toggles one season and its episodes.
func (r *Runner) WatchSeason(ctx context.Context, cmd *cli.Command) error {
	seriesID, seasonID := cmd.Int64Arg("series-id"), cmd.Int64Arg("season-id")
	if seasonID <= 0 {
		return fmt.Errorf("%w: season id", shared.ErrMissingArgument)
	}
	if err := r.openForWatch(ctx, seriesID); err != nil {
		return err
	}

	if err := r.watching.ToggleSeasonWatched(ctx, seasonID); err != nil {
		return err
	}
	r.watching.Wait()

	d := r.watching.Snapshot()
	season, ok := d.FindSeason(seasonID)
	if !ok {
		return fmt.Errorf("%w: season %d", shared.ErrInvalidArgument, seasonID)
	}
	state := "unwatched"
	if d.UserData != nil && d.UserData.WatchedSeasons.Has(seasonID) {
		state = "watched"
	}
	return r.writePlain("✓ Marked %s of %s as %s\n", seasonTitle(*season), d.Name, state)
}

// WatchEpisode toggles one episode. The season flag follows once every episode is watched.
func (r *Runner) WatchEpisode(ctx context.Context, cmd *cli.Command) error {
	seriesID, episodeID := cmd.Int64Arg("series-id"), cmd.Int64Arg("episode-id")
	if episodeID <= 0 {
		return fmt.Errorf("%w: episode id", shared.ErrMissingArgument)
	}
	if err := r.openForWatch(ctx, seriesID); err != nil {
		return err
	}

	if err := r.watching.ToggleEpisodeWatched(ctx, episodeID); err != nil {
		return err
	}
	r.watching.Wait()

	d := r.watching.Snapshot()
	season, ok := d.SeasonOf(episodeID)
	if !ok {
		return fmt.Errorf("%w: episode %d", shared.ErrInvalidArgument, episodeID)
	}
	for _, ep := range season.Episodes {
		if ep.ID != episodeID {
			continue
		}
		state := "unwatched"
		if formatter.EpisodeWatched(d, *season, ep) {
			state = "watched"
		}
		return r.writePlain("✓ Marked S%02dE%02d %s as %s\n", season.SeasonNumber, ep.EpisodeNumber, ep.Name, state)
	}
	return nil
}

func (r *Runner) openForWatch(ctx context.Context, seriesID int64) error {
	if seriesID <= 0 {
		return fmt.Errorf("%w: series id", shared.ErrMissingArgument)
	}
	if err := r.requireAuth(ctx); err != nil {
		return err
	}
	return r.watching.Open(ctx, seriesID)
}
