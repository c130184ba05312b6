package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/herzod/shelfview-cinema/internal/apperr"
	"github.com/herzod/shelfview-cinema/internal/debounce"
	"github.com/herzod/shelfview-cinema/internal/models"
	"github.com/herzod/shelfview-cinema/internal/repository"
	"github.com/herzod/shelfview-cinema/internal/session"
	"github.com/herzod/shelfview-cinema/internal/sync"
)

const (
	// ShelfCacheTTL is the freshness window for shelf reads. Short, because
	// every mutation also invalidates the affected groups outright.
	ShelfCacheTTL = 2 * time.Minute

	// NotesDebounceDelay coalesces rapid notes edits into one write.
	NotesDebounceDelay = 800 * time.Millisecond

	notesWriteTimeout = 10 * time.Second
)

// UserGroup tags every cache entry owned by one user, so sign-out can drop
// them all at once.
func UserGroup(userID string) string { return "user:" + userID }

// ShelfIDsGroup covers the on-shelf membership id set.
func ShelfIDsGroup(userID string) string { return "shelf-ids:" + userID }

// ShelfListGroup covers the user's full shelf listing.
func ShelfListGroup(userID string) string { return "shelf-list:" + userID }

// ShelfEntryGroup covers one (user, movie) entry.
func ShelfEntryGroup(userID string, movieID int64) string {
	return fmt.Sprintf("shelf-entry:%s:%d", userID, movieID)
}

// ShelfService owns the per-user shelf: reads go through the syncer's request
// cache, mutations write through the repository and invalidate the dependent
// cache groups. No optimistic mutation; consistency comes from
// invalidate-then-refetch.
type ShelfService struct {
	repo   repository.ShelfRepository
	syncer *sync.Syncer
	notes  *debounce.Debouncer
	logger *logrus.Logger
}

type ShelfConfig struct {
	Repo       repository.ShelfRepository
	Syncer     *sync.Syncer
	Logger     *logrus.Logger
	NotesDelay time.Duration
}

func NewShelfService(config *ShelfConfig) *ShelfService {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.NotesDelay == 0 {
		config.NotesDelay = NotesDebounceDelay
	}

	return &ShelfService{
		repo:   config.Repo,
		syncer: config.Syncer,
		notes:  debounce.New(config.NotesDelay),
		logger: config.Logger,
	}
}

// Entry reads one shelf entry. A missing session or movie id disables the
// read (no request, nil result); a movie not on the shelf reads as nil.
func (s *ShelfService) Entry(ctx context.Context, sess session.Session, movieID int64) (*models.ShelfEntry, error) {
	res := s.syncer.Fetch(ctx, sync.Request{
		Key:      sync.Key("shelf.entry", "user="+sess.UserID, "movie="+strconv.FormatInt(movieID, 10)),
		Groups:   []string{UserGroup(sess.UserID), ShelfEntryGroup(sess.UserID, movieID)},
		TTL:      ShelfCacheTTL,
		Disabled: sess.UserID == "" || movieID == 0,
		Fetch: func(ctx context.Context) (any, error) {
			entry, err := s.repo.Get(ctx, sess.UserID, movieID)
			if errors.Is(err, apperr.ErrNotFound) {
				// Absence is an answer here, not an error.
				return (*models.ShelfEntry)(nil), nil
			}
			return entry, err
		},
	})
	if res.Err != nil {
		return nil, res.Err
	}
	entry, _ := res.Value.(*models.ShelfEntry)
	return entry, nil
}

// List reads the user's full shelf, then narrows it by the filter. The full
// set is what gets cached; filtering stays a view-side concern.
func (s *ShelfService) List(ctx context.Context, sess session.Session, filter models.ShelfFilter) ([]models.ShelfEntry, error) {
	res := s.syncer.Fetch(ctx, sync.Request{
		Key:      sync.Key("shelf.list", "user="+sess.UserID),
		Groups:   []string{UserGroup(sess.UserID), ShelfListGroup(sess.UserID)},
		TTL:      ShelfCacheTTL,
		Disabled: sess.UserID == "",
		Fetch: func(ctx context.Context) (any, error) {
			return s.repo.List(ctx, sess.UserID)
		},
	})
	if res.Err != nil {
		return nil, res.Err
	}
	entries, _ := res.Value.([]models.ShelfEntry)
	return filterEntries(entries, filter), nil
}

// MovieIDs reads the id set used for the on-shelf indicator. Kept as its own
// read, separate from any listing query.
func (s *ShelfService) MovieIDs(ctx context.Context, sess session.Session) ([]int64, error) {
	res := s.syncer.Fetch(ctx, sync.Request{
		Key:      sync.Key("shelf.ids", "user="+sess.UserID),
		Groups:   []string{UserGroup(sess.UserID), ShelfIDsGroup(sess.UserID)},
		TTL:      ShelfCacheTTL,
		Disabled: sess.UserID == "",
		Fetch: func(ctx context.Context) (any, error) {
			return s.repo.ListIDs(ctx, sess.UserID)
		},
	})
	if res.Err != nil {
		return nil, res.Err
	}
	ids, _ := res.Value.([]int64)
	return ids, nil
}

// Add puts a movie on the shelf with status plan_to_watch. Fails with
// ErrDuplicate when the entry already exists.
func (s *ShelfService) Add(ctx context.Context, sess session.Session, movieID int64, title string, posterPath *string, genreIDs []int64) error {
	if sess.UserID == "" {
		return apperr.ErrUnauthorized
	}
	if title == "" {
		return apperr.Validation("title", "must not be empty")
	}

	entry := &models.ShelfEntry{
		UserID:     sess.UserID,
		MovieID:    movieID,
		Title:      title,
		PosterPath: posterPath,
		Status:     models.StatusPlanToWatch,
		GenreIDs:   genreIDs,
	}

	err := s.syncer.Mutate(ctx, func(ctx context.Context) error {
		return s.repo.Add(ctx, entry)
	}, s.mutationGroups(sess.UserID, movieID)...)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  sess.UserID,
		"movie_id": movieID,
	}).Info("Movie added to shelf")
	return nil
}

// SetStatus updates the watch status. Ratings only make sense on watched
// titles, so any transition away from watched clears the rating.
func (s *ShelfService) SetStatus(ctx context.Context, sess session.Session, movieID int64, status models.WatchStatus) error {
	if sess.UserID == "" {
		return apperr.ErrUnauthorized
	}
	if !status.Valid() {
		return apperr.Validation("status", fmt.Sprintf("unknown status %q", status))
	}

	clearRating := status != models.StatusWatched
	return s.syncer.Mutate(ctx, func(ctx context.Context) error {
		return s.repo.UpdateStatus(ctx, sess.UserID, movieID, status, clearRating)
	}, s.mutationGroups(sess.UserID, movieID)...)
}

// SetRating sets a 1-5 rating, or clears it with nil.
func (s *ShelfService) SetRating(ctx context.Context, sess session.Session, movieID int64, rating *int) error {
	if sess.UserID == "" {
		return apperr.ErrUnauthorized
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return apperr.Validation("rating", "must be between 1 and 5")
	}

	return s.syncer.Mutate(ctx, func(ctx context.Context) error {
		return s.repo.UpdateRating(ctx, sess.UserID, movieID, rating)
	}, s.mutationGroups(sess.UserID, movieID)...)
}

// SetNotes replaces the notes text after the debounce window: a burst of
// edits issues exactly one write, containing the final text. The write runs
// on its own context since the caller's request is long gone by then.
func (s *ShelfService) SetNotes(ctx context.Context, sess session.Session, movieID int64, notes string) error {
	if sess.UserID == "" {
		return apperr.ErrUnauthorized
	}

	userID := sess.UserID
	s.notes.Call(notesKey(userID, movieID), func() {
		ctx, cancel := context.WithTimeout(context.Background(), notesWriteTimeout)
		defer cancel()

		err := s.syncer.Mutate(ctx, func(ctx context.Context) error {
			return s.repo.UpdateNotes(ctx, userID, movieID, notes)
		}, s.mutationGroups(userID, movieID)...)
		if err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"user_id":  userID,
				"movie_id": movieID,
			}).Error("Failed to save notes")
		}
	})
	return nil
}

// Remove deletes the entry and drops any pending notes write for it.
func (s *ShelfService) Remove(ctx context.Context, sess session.Session, movieID int64) error {
	if sess.UserID == "" {
		return apperr.ErrUnauthorized
	}

	s.notes.Cancel(notesKey(sess.UserID, movieID))

	err := s.syncer.Mutate(ctx, func(ctx context.Context) error {
		return s.repo.Remove(ctx, sess.UserID, movieID)
	}, s.mutationGroups(sess.UserID, movieID)...)
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  sess.UserID,
		"movie_id": movieID,
	}).Info("Movie removed from shelf")
	return nil
}

// Close cancels any pending debounced writes.
func (s *ShelfService) Close() {
	s.notes.Stop()
}

func (s *ShelfService) mutationGroups(userID string, movieID int64) []string {
	return []string{
		ShelfIDsGroup(userID),
		ShelfListGroup(userID),
		ShelfEntryGroup(userID, movieID),
	}
}

func notesKey(userID string, movieID int64) string {
	return fmt.Sprintf("notes:%s:%d", userID, movieID)
}

func filterEntries(entries []models.ShelfEntry, filter models.ShelfFilter) []models.ShelfEntry {
	if filter.Status == "" && filter.GenreID == 0 {
		return entries
	}

	filtered := make([]models.ShelfEntry, 0, len(entries))
	for _, entry := range entries {
		if filter.Status != "" && entry.Status != filter.Status {
			continue
		}
		if filter.GenreID != 0 && !containsGenre(entry.GenreIDs, filter.GenreID) {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}

func containsGenre(ids []int64, id int64) bool {
	for _, have := range ids {
		if have == id {
			return true
		}
	}
	return false
}
