package handlers

import (
	"net/http"
	"strconv"

	"github.com/herzod/shelfview-cinema/internal/models"
	"github.com/herzod/shelfview-cinema/internal/session"
)

type addRequest struct {
	Title      string  `json:"title" validate:"required,max=500"`
	PosterPath *string `json:"poster_path"`
	GenreIDs   []int64 `json:"genre_ids"`
}

type statusRequest struct {
	Status models.WatchStatus `json:"status" validate:"required,oneof=plan_to_watch watching watched dropped"`
}

type ratingRequest struct {
	// Rating null clears the rating.
	Rating *int `json:"rating" validate:"omitempty,min=1,max=5"`
}

type notesRequest struct {
	Notes string `json:"notes" validate:"max=10000"`
}

// Shelf lists the user's entries, optionally narrowed by status or genre.
func (h *Handler) Shelf(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	filter := models.ShelfFilter{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = models.WatchStatus(status)
	}
	if genreID := r.URL.Query().Get("genre_id"); genreID != "" {
		filter.GenreID = parseGenreID(genreID)
	}

	entries, err := h.shelf.List(r.Context(), sess, filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []models.ShelfEntry{}
	}
	h.writeJSON(w, http.StatusOK, entries)
}

// ShelfMovieIDs serves the id set behind the on-shelf indicator. Kept as a
// separate read from the listing.
func (h *Handler) ShelfMovieIDs(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	ids, err := h.shelf.MovieIDs(r.Context(), sess)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	h.writeJSON(w, http.StatusOK, ids)
}

// ShelfEntry reads one entry; a movie not on the shelf reads as null rather
// than an error.
func (h *Handler) ShelfEntry(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	movieID, err := pathMovieID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	entry, err := h.shelf.Entry(r.Context(), sess, movieID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) AddToShelf(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	movieID, err := pathMovieID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req addRequest
	if err := h.readJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.shelf.Add(r.Context(), sess, movieID, req.Title, req.PosterPath, req.GenreIDs); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	movieID, err := pathMovieID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req statusRequest
	if err := h.readJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.shelf.SetStatus(r.Context(), sess, movieID, req.Status); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateRating(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	movieID, err := pathMovieID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req ratingRequest
	if err := h.readJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.shelf.SetRating(r.Context(), sess, movieID, req.Rating); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateNotes accepts the edit and answers before the debounced write lands,
// hence 202.
func (h *Handler) UpdateNotes(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	movieID, err := pathMovieID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req notesRequest
	if err := h.readJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.shelf.SetNotes(r.Context(), sess, movieID, req.Notes); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) RemoveFromShelf(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	movieID, err := pathMovieID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.shelf.Remove(r.Context(), sess, movieID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseGenreID(raw string) int64 {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
