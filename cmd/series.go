package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/tvx/internal/formatter"
	"github.com/desertthunder/tvx/internal/models"
	"github.com/desertthunder/tvx/internal/shared"
	"github.com/urfave/cli/v3"
)

// SeriesList lists the catalog.
func (r *Runner) SeriesList(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	return r.printPage("Series", r.series.ListSeries(ctx, int(cmd.Int("page"))), cmd.Bool("json"))
}

// SeriesPopular lists popular series.
func (r *Runner) SeriesPopular(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	return r.printPage("Popular", r.series.Popular(ctx, int(cmd.Int("page"))), cmd.Bool("json"))
}

// SeriesTopRated lists top rated series.
func (r *Runner) SeriesTopRated(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(ctx); err != nil {
		return err
	}
	return r.printPage("Top rated", r.series.TopRated(ctx, int(cmd.Int("page"))), cmd.Bool("json"))
}

// SeriesSearch searches the catalog by name.
func (r *Runner) SeriesSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	if err := r.connect(ctx); err != nil {
		return err
	}
	return r.printPage(fmt.Sprintf("Results for %q", query), r.series.Search(ctx, query, int(cmd.Int("page"))), cmd.Bool("json"))
}

// SeriesShow prints one series with its seasons and the caller's watch state.
func (r *Runner) SeriesShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Int64Arg("id")
	if id <= 0 {
		return fmt.Errorf("%w: series id", shared.ErrMissingArgument)
	}
	if err := r.connect(ctx); err != nil {
		return err
	}

	if err := r.watching.Open(ctx, id); err != nil {
		return err
	}
	detail := r.watching.Snapshot()

	if cmd.Bool("json") {
		return r.writeJSON(detail, true)
	}
	r.printDetail(detail)
	return nil
}

// SeriesMine lists the followed series.
func (r *Runner) SeriesMine(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAuth(ctx); err != nil {
		return err
	}

	list := r.series.UserSeries(ctx, cmd.Bool("refresh"))
	if cmd.Bool("json") {
		return r.writeJSON(list, true)
	}

	if len(list) == 0 {
		return r.writePlain("You are not following any series\n")
	}
	r.writePlain("Following %d series:\n\n", len(list))
	for i, s := range list {
		r.printSeriesLine(i+1, s)
	}
	return nil
}

// SeriesFollow follows a series. Following an already followed series is a no-op.
func (r *Runner) SeriesFollow(ctx context.Context, cmd *cli.Command) error {
	return r.setFollow(ctx, cmd.Int64Arg("id"), true)
}

// SeriesUnfollow unfollows a series.
func (r *Runner) SeriesUnfollow(ctx context.Context, cmd *cli.Command) error {
	return r.setFollow(ctx, cmd.Int64Arg("id"), false)
}

func (r *Runner) setFollow(ctx context.Context, id int64, follow bool) error {
	if id <= 0 {
		return fmt.Errorf("%w: series id", shared.ErrMissingArgument)
	}
	if err := r.requireAuth(ctx); err != nil {
		return err
	}
	if err := r.watching.Open(ctx, id); err != nil {
		return err
	}

	detail := r.watching.Snapshot()
	if detail.Stats.FollowedByCurrentUser == follow {
		if follow {
			return r.writePlain("Already following %s\n", detail.Name)
		}
		return r.writePlain("Not following %s\n", detail.Name)
	}

	if err := r.watching.ToggleFollow(ctx); err != nil {
		return err
	}

	detail = r.watching.Snapshot()
	if follow {
		return r.writePlain("✓ Following %s (%d followers)\n", detail.Name, detail.Stats.TotalFollowers)
	}
	return r.writePlain("✓ Unfollowed %s\n", detail.Name)
}

func (r *Runner) printPage(title string, page models.SeriesPage, asJSON bool) error {
	if asJSON {
		return r.writeJSON(page, true)
	}

	if len(page.Results) == 0 {
		return r.writePlain("No series found\n")
	}

	r.writePlain("%s (page %d of %d, %d total):\n\n", title, page.Page, max(page.TotalPages, 1), page.TotalResults)
	for i, s := range page.Results {
		r.printSeriesLine(i+1, s)
	}
	return nil
}

func (r *Runner) printSeriesLine(n int, s models.Series) {
	r.writePlain("%d. %s", n, s.Name)
	if year, _, ok := strings.Cut(s.FirstAirDate, "-"); ok && year != "" {
		r.writePlain(" (%s)", year)
	}
	r.writePlain("\n   ID: %d", s.ID)
	if s.VoteAverage > 0 {
		r.writePlain("  Rating: %.1f", s.VoteAverage)
	}
	r.writePlain("\n")
}

func (r *Runner) printDetail(d *models.SeriesDetail) {
	r.writePlainHeader(d.Name)
	if d.Overview != "" {
		r.writePlain("%s\n\n", d.Overview)
	}
	r.writePlain("ID: %d\n", d.ID)
	if d.Status != "" {
		r.writePlain("Status: %s\n", d.Status)
	}
	if d.Poster != "" {
		r.writePlain("Poster: %s\n", formatter.PosterURL(formatter.DefaultImageBaseURL, d.Poster))
	}
	if d.Stats != nil {
		r.writePlain("Followers: %d", d.Stats.TotalFollowers)
		if d.Stats.FollowedByCurrentUser {
			r.writePlain("  ✓ Following")
		}
		if d.Stats.WatchedByCurrentUser {
			r.writePlain("  ✓ Watched")
		}
		r.writePlain("\n")
	}

	for _, season := range d.Seasons {
		watched := 0
		for _, ep := range season.Episodes {
			if formatter.EpisodeWatched(d, season, ep) {
				watched++
			}
		}
		r.writePlain("\n%s [id %d] %d/%d watched\n", seasonTitle(season), season.ID, watched, len(season.Episodes))
		for _, ep := range season.Episodes {
			mark := " "
			if formatter.EpisodeWatched(d, season, ep) {
				mark = "x"
			}
			r.writePlain("  [%s] S%02dE%02d %s [id %d]\n", mark, season.SeasonNumber, ep.EpisodeNumber, ep.Name, ep.ID)
		}
	}
}

func seasonTitle(s models.Season) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("Season %d", s.SeasonNumber)
}
