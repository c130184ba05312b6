package models

import "time"

type WatchStatus string

const (
	StatusPlanToWatch WatchStatus = "plan_to_watch"
	StatusWatching    WatchStatus = "watching"
	StatusWatched     WatchStatus = "watched"
	StatusDropped     WatchStatus = "dropped"
)

// Valid reports whether s is one of the four watch statuses.
func (s WatchStatus) Valid() bool {
	switch s {
	case StatusPlanToWatch, StatusWatching, StatusWatched, StatusDropped:
		return true
	}
	return false
}

// ShelfEntry is one row of a user's shelf, keyed (user_id, movie_id).
// Title, poster and genre ids are denormalized from the catalog at add time;
// the full detail record is always re-fetched from the catalog.
type ShelfEntry struct {
	UserID     string      `json:"user_id" db:"user_id"`
	MovieID    int64       `json:"movie_id" db:"movie_id"`
	Title      string      `json:"title" db:"title"`
	PosterPath *string     `json:"poster_path" db:"poster_path"`
	Status     WatchStatus `json:"status" db:"status"`
	Rating     *int        `json:"rating" db:"rating"`
	Notes      *string     `json:"notes" db:"notes"`
	GenreIDs   []int64     `json:"genre_ids" db:"genre_ids"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// ShelfFilter narrows a shelf listing. Zero values mean no filtering.
type ShelfFilter struct {
	Status  WatchStatus
	GenreID int64
}
