package models

import "time"

// Series is a catalog entry.
type Series struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	OriginalName  string   `json:"original_name,omitempty"`
	Overview      string   `json:"overview,omitempty"`
	Poster        string   `json:"poster_path,omitempty"`
	Backdrop      string   `json:"backdrop_path,omitempty"`
	FirstAirDate  string   `json:"first_air_date,omitempty"`
	Status        string   `json:"status,omitempty"`
	VoteAverage   float64  `json:"vote_average,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	NumberSeasons int      `json:"number_of_seasons,omitempty"`
}

// Episode belongs to exactly one [Season].
type Episode struct {
	ID            int64  `json:"id"`
	SeasonID      int64  `json:"season_id"`
	EpisodeNumber int    `json:"episode_number"`
	Name          string `json:"name"`
	AirDate       string `json:"air_date,omitempty"`
	Runtime       int    `json:"runtime,omitempty"`
}

// Season groups the episodes of a series.
type Season struct {
	ID           int64     `json:"id"`
	SeasonNumber int       `json:"season_number"`
	Name         string    `json:"name"`
	AirDate      string    `json:"air_date,omitempty"`
	Episodes     []Episode `json:"episodes"`
}

// EpisodeIDs returns the ids of every episode in the season, in order.
func (s Season) EpisodeIDs() []int64 {
	ids := make([]int64, len(s.Episodes))
	for i, e := range s.Episodes {
		ids[i] = e.ID
	}
	return ids
}

// SeriesStats are server-derived counters plus the caller's follow and watch flags.
type SeriesStats struct {
	TotalFollowers        int  `json:"total_followers"`
	TotalWatched          int  `json:"total_watched"`
	FollowedByCurrentUser bool `json:"followed_by_current_user"`
	WatchedByCurrentUser  bool `json:"watched_by_current_user"`
}

// UserData is the caller's follow/watch state for one series.
type UserData struct {
	IsFollowing     bool       `json:"is_following"`
	FollowedAt      *time.Time `json:"followed_at"`
	IsWatched       bool       `json:"is_watched"`
	WatchedAt       *time.Time `json:"watched_at"`
	WatchedSeasons  IDSet      `json:"watched_seasons"`
	WatchedEpisodes IDSet      `json:"watched_episodes"`
}

// Clone returns a deep copy of the user data.
func (u *UserData) Clone() *UserData {
	if u == nil {
		return nil
	}
	c := *u
	c.WatchedSeasons = u.WatchedSeasons.Clone()
	c.WatchedEpisodes = u.WatchedEpisodes.Clone()
	return &c
}

// SeriesDetail is the payload of GET /series/{id}.
type SeriesDetail struct {
	Series
	Seasons  []Season     `json:"seasons"`
	Stats    *SeriesStats `json:"stats"`
	UserData *UserData    `json:"user_data"`
}

// FindSeason returns the season with the given id.
func (d *SeriesDetail) FindSeason(seasonID int64) (*Season, bool) {
	for i := range d.Seasons {
		if d.Seasons[i].ID == seasonID {
			return &d.Seasons[i], true
		}
	}
	return nil, false
}

// SeasonOf returns the season that contains the given episode.
func (d *SeriesDetail) SeasonOf(episodeID int64) (*Season, bool) {
	for i := range d.Seasons {
		for _, e := range d.Seasons[i].Episodes {
			if e.ID == episodeID {
				return &d.Seasons[i], true
			}
		}
	}
	return nil, false
}

// AllSeasonIDs returns every season id of the series.
func (d *SeriesDetail) AllSeasonIDs() []int64 {
	ids := make([]int64, len(d.Seasons))
	for i, s := range d.Seasons {
		ids[i] = s.ID
	}
	return ids
}

// AllEpisodeIDs returns every episode id of the series, season by season.
func (d *SeriesDetail) AllEpisodeIDs() []int64 {
	var ids []int64
	for _, s := range d.Seasons {
		ids = append(ids, s.EpisodeIDs()...)
	}
	return ids
}

// SeriesPage is one page of a catalog read.
type SeriesPage struct {
	Results      []Series `json:"results"`
	Page         int      `json:"page"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}
