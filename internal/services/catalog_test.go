package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/herzod/shelfview-cinema/internal/apperr"
)

func newTestCatalog(baseURL string) *CatalogClient {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewCatalogClient(&CatalogConfig{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		RateLimit:  rate.Inf,
		RetryDelay: 5 * time.Millisecond,
		Logger:     log,
	})
}

func TestSearchRejectsShortQuery(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
	}))
	defer server.Close()

	client := newTestCatalog(server.URL)

	_, err := client.Search(context.Background(), "a", 1)
	var vErr *apperr.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if atomic.LoadInt64(&hits) != 0 {
		t.Error("short query must not trigger a request")
	}
}

func TestDetailsParsesFullRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/550" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Error("missing api_key parameter")
		}
		if r.URL.Query().Get("append_to_response") != "credits" {
			t.Error("details must append credits")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 550,
			"title": "Fight Club",
			"overview": "An insomniac office worker...",
			"runtime": 139,
			"release_date": "1999-10-15",
			"vote_average": 8.4,
			"vote_count": 26000,
			"genres": [{"id": 18, "name": "Drama"}],
			"credits": {
				"cast": [{"id": 819, "name": "Edward Norton", "character": "The Narrator"}],
				"crew": [{"id": 7467, "name": "David Fincher", "job": "Director"}]
			}
		}`))
	}))
	defer server.Close()

	client := newTestCatalog(server.URL)

	details, err := client.Details(context.Background(), 550)
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if details.Title != "Fight Club" {
		t.Errorf("title = %q", details.Title)
	}
	if details.Runtime != 139 {
		t.Errorf("runtime = %d", details.Runtime)
	}
	if len(details.Genres) != 1 || details.Genres[0].Name != "Drama" {
		t.Errorf("genres = %v", details.Genres)
	}
	if len(details.Credits.Cast) != 1 || details.Credits.Cast[0].Character != "The Narrator" {
		t.Errorf("cast = %v", details.Credits.Cast)
	}
	if len(details.Credits.Crew) != 1 || details.Credits.Crew[0].Job != "Director" {
		t.Errorf("crew = %v", details.Credits.Crew)
	}
}

func TestSearchRetriesOnServerError(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&hits, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"page": 1, "results": [{"id": 603, "title": "The Matrix"}], "total_pages": 1, "total_results": 1}`))
	}))
	defer server.Close()

	client := newTestCatalog(server.URL)

	page, err := client.Search(context.Background(), "matrix", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Results) != 1 || page.Results[0].Title != "The Matrix" {
		t.Errorf("results = %v", page.Results)
	}
	if n := atomic.LoadInt64(&hits); n != 2 {
		t.Errorf("expected 2 attempts, got %d", n)
	}
}

func TestTransportErrorTaggedWithAction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestCatalog(server.URL)

	_, err := client.Trending(context.Background(), 1)
	var tErr *apperr.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if tErr.Action != ActionTrending {
		t.Errorf("action = %q, want %q", tErr.Action, ActionTrending)
	}
}

func TestPersonMoviesRoleSelectsCredit(t *testing.T) {
	var lastQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastQuery = r.URL.RawQuery
		w.Write([]byte(`{"page": 1, "results": [], "total_pages": 0, "total_results": 0}`))
	}))
	defer server.Close()

	client := newTestCatalog(server.URL)

	if _, err := client.PersonMovies(context.Background(), 7467, "director", 1); err != nil {
		t.Fatalf("PersonMovies: %v", err)
	}
	if !strings.Contains(lastQuery, "with_crew=7467") {
		t.Errorf("director discovery should filter crew, got %q", lastQuery)
	}

	if _, err := client.PersonMovies(context.Background(), 819, "cast", 1); err != nil {
		t.Fatalf("PersonMovies: %v", err)
	}
	if !strings.Contains(lastQuery, "with_cast=819") {
		t.Errorf("cast discovery should filter cast, got %q", lastQuery)
	}
}

func TestShortQueryCountsRunesNotBytes(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.Write([]byte(`{"page": 1, "results": [], "total_pages": 0, "total_results": 0}`))
	}))
	defer server.Close()

	client := newTestCatalog(server.URL)

	// "é" is two bytes but one character, still below the minimum.
	_, err := client.Search(context.Background(), "é", 1)
	var vErr *apperr.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for one-rune query, got %v", err)
	}
	if atomic.LoadInt64(&hits) != 0 {
		t.Error("one-rune query must not trigger a request")
	}

	// Two runes pass even when they take four bytes.
	if _, err := client.Search(context.Background(), "éé", 1); err != nil {
		t.Fatalf("two-rune query rejected: %v", err)
	}
}

func TestMissingMovieIsNotFoundWithoutRetry(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestCatalog(server.URL)

	_, err := client.Details(context.Background(), 99999999)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if n := atomic.LoadInt64(&hits); n != 1 {
		t.Errorf("404 was retried: %d attempts", n)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestCatalog(server.URL)

	_, err := client.Trending(context.Background(), 1)
	var tErr *apperr.TransportError
	if !errors.As(err, &tErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if n := atomic.LoadInt64(&hits); n != 1 {
		t.Errorf("client error was retried: %d attempts", n)
	}
}
