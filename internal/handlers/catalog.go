package handlers

import (
	"context"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/herzod/shelfview-cinema/internal/apperr"
	"github.com/herzod/shelfview-cinema/internal/models"
	"github.com/herzod/shelfview-cinema/internal/services"
	"github.com/herzod/shelfview-cinema/internal/sync"
)

// catalogGroup tags every catalog read; catalog data is never user-scoped.
const catalogGroup = "catalog"

// Search handles free-text title search. Queries below the minimum length
// disable the read: an empty page comes back and no request is issued.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	page := queryPage(r)

	if utf8.RuneCountInString(query) < services.MinQueryLength {
		h.writeJSON(w, http.StatusOK, &models.CatalogPage{Page: 1, Results: []models.CatalogMovie{}})
		return
	}

	h.serveCatalog(w, r, sync.Request{
		Key:    sync.Key("catalog.search", "q="+query, "page="+strconv.Itoa(page)),
		Groups: []string{catalogGroup},
		TTL:    services.SearchCacheTTL,
		Fetch: func(ctx context.Context) (any, error) {
			return h.catalog.Search(ctx, query, page)
		},
	})
}

func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	page := queryPage(r)

	h.serveCatalog(w, r, sync.Request{
		Key:    sync.Key("catalog.trending", "page="+strconv.Itoa(page)),
		Groups: []string{catalogGroup},
		TTL:    services.TrendingCacheTTL,
		Fetch: func(ctx context.Context) (any, error) {
			return h.catalog.Trending(ctx, page)
		},
	})
}

func (h *Handler) MovieDetails(w http.ResponseWriter, r *http.Request) {
	movieID, err := pathMovieID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.serveCatalog(w, r, sync.Request{
		Key:    sync.Key("catalog.details", "movie="+strconv.FormatInt(movieID, 10)),
		Groups: []string{catalogGroup},
		TTL:    services.DetailsCacheTTL,
		Fetch: func(ctx context.Context) (any, error) {
			return h.catalog.Details(ctx, movieID)
		},
	})
}

func (h *Handler) SimilarMovies(w http.ResponseWriter, r *http.Request) {
	movieID, err := pathMovieID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	page := queryPage(r)

	h.serveCatalog(w, r, sync.Request{
		Key:    sync.Key("catalog.similar", "movie="+strconv.FormatInt(movieID, 10), "page="+strconv.Itoa(page)),
		Groups: []string{catalogGroup},
		TTL:    services.SimilarCacheTTL,
		Fetch: func(ctx context.Context) (any, error) {
			return h.catalog.Similar(ctx, movieID, page)
		},
	})
}

// DiscoverByGenre re-scopes the listing to one genre: the genre drill-down
// of a browse target.
func (h *Handler) DiscoverByGenre(w http.ResponseWriter, r *http.Request) {
	genreID, err := strconv.ParseInt(r.URL.Query().Get("genre_id"), 10, 64)
	if err != nil || genreID <= 0 {
		h.writeError(w, apperr.Validation("genre_id", "must be a positive integer"))
		return
	}
	page := queryPage(r)

	h.serveCatalog(w, r, sync.Request{
		Key:    sync.Key("catalog.discover", "genre="+strconv.FormatInt(genreID, 10), "page="+strconv.Itoa(page)),
		Groups: []string{catalogGroup},
		TTL:    services.DiscoverCacheTTL,
		Fetch: func(ctx context.Context) (any, error) {
			return h.catalog.DiscoverByGenre(ctx, genreID, page)
		},
	})
}

// DiscoverByPerson re-scopes the listing to one cast member or director.
func (h *Handler) DiscoverByPerson(w http.ResponseWriter, r *http.Request) {
	personID, err := strconv.ParseInt(r.URL.Query().Get("person_id"), 10, 64)
	if err != nil || personID <= 0 {
		h.writeError(w, apperr.Validation("person_id", "must be a positive integer"))
		return
	}

	role := models.PersonRole(r.URL.Query().Get("role"))
	if role != models.RoleCast && role != models.RoleDirector {
		h.writeError(w, apperr.Validation("role", "must be cast or director"))
		return
	}
	page := queryPage(r)

	h.serveCatalog(w, r, sync.Request{
		Key:    sync.Key("catalog.person", "person="+strconv.FormatInt(personID, 10), "role="+string(role), "page="+strconv.Itoa(page)),
		Groups: []string{catalogGroup},
		TTL:    services.DiscoverCacheTTL,
		Fetch: func(ctx context.Context) (any, error) {
			return h.catalog.PersonMovies(ctx, personID, role, page)
		},
	})
}

// serveCatalog runs a catalog read through the request cache. A stale value
// is still served while its refetch runs; a failed read with no previous
// value surfaces as an error payload.
func (h *Handler) serveCatalog(w http.ResponseWriter, r *http.Request, req sync.Request) {
	res := h.syncer.Fetch(r.Context(), req)
	if res.Value != nil {
		h.writeJSON(w, http.StatusOK, res.Value)
		return
	}
	if res.Err != nil {
		h.writeError(w, res.Err)
		return
	}
	h.writeJSON(w, http.StatusOK, &models.CatalogPage{Page: 1, Results: []models.CatalogMovie{}})
}

func pathMovieID(r *http.Request) (int64, error) {
	movieID, err := strconv.ParseInt(chi.URLParam(r, "movieID"), 10, 64)
	if err != nil || movieID <= 0 {
		return 0, apperr.Validation("movie_id", "must be a positive integer")
	}
	return movieID, nil
}

func queryPage(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
