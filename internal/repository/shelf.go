package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/herzod/shelfview-cinema/internal/apperr"
	"github.com/herzod/shelfview-cinema/internal/models"
)

const pgUniqueViolation = "23505"

// ShelfRepository is the per-user shelf table. Every operation is scoped to
// one user id; at most one entry exists per (user, movie), enforced by the
// table's primary key rather than client-side coordination.
type ShelfRepository interface {
	Add(ctx context.Context, entry *models.ShelfEntry) error
	Get(ctx context.Context, userID string, movieID int64) (*models.ShelfEntry, error)
	List(ctx context.Context, userID string) ([]models.ShelfEntry, error)
	ListIDs(ctx context.Context, userID string) ([]int64, error)
	UpdateStatus(ctx context.Context, userID string, movieID int64, status models.WatchStatus, clearRating bool) error
	UpdateRating(ctx context.Context, userID string, movieID int64, rating *int) error
	UpdateNotes(ctx context.Context, userID string, movieID int64, notes string) error
	Remove(ctx context.Context, userID string, movieID int64) error
}

type shelfRepository struct {
	db *pgxpool.Pool
}

func NewShelfRepository(db *pgxpool.Pool) ShelfRepository {
	return &shelfRepository{db: db}
}

func (r *shelfRepository) Add(ctx context.Context, entry *models.ShelfEntry) error {
	query := `
	INSERT INTO shelf_entries (user_id, movie_id, title, poster_path, status, genre_ids, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, now(), now())
	`

	_, err := r.db.Exec(ctx, query,
		entry.UserID, entry.MovieID, entry.Title, entry.PosterPath, entry.Status, entry.GenreIDs)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperr.ErrDuplicate
		}
		return apperr.Store("add", err)
	}
	return nil
}

func (r *shelfRepository) Get(ctx context.Context, userID string, movieID int64) (*models.ShelfEntry, error) {
	query := `
	SELECT user_id, movie_id, title, poster_path, status, rating, notes, genre_ids, created_at, updated_at
	FROM shelf_entries
	WHERE user_id = $1 AND movie_id = $2
	`

	var entry models.ShelfEntry
	err := r.db.QueryRow(ctx, query, userID, movieID).Scan(
		&entry.UserID, &entry.MovieID, &entry.Title, &entry.PosterPath,
		&entry.Status, &entry.Rating, &entry.Notes, &entry.GenreIDs,
		&entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Store("get", err)
	}
	return &entry, nil
}

func (r *shelfRepository) List(ctx context.Context, userID string) ([]models.ShelfEntry, error) {
	query := `
	SELECT user_id, movie_id, title, poster_path, status, rating, notes, genre_ids, created_at, updated_at
	FROM shelf_entries
	WHERE user_id = $1
	ORDER BY updated_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, apperr.Store("list", err)
	}
	defer rows.Close()

	var entries []models.ShelfEntry
	for rows.Next() {
		var entry models.ShelfEntry
		err := rows.Scan(
			&entry.UserID, &entry.MovieID, &entry.Title, &entry.PosterPath,
			&entry.Status, &entry.Rating, &entry.Notes, &entry.GenreIDs,
			&entry.CreatedAt, &entry.UpdatedAt)
		if err != nil {
			return nil, apperr.Store("list", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("list", err)
	}
	return entries, nil
}

func (r *shelfRepository) ListIDs(ctx context.Context, userID string) ([]int64, error) {
	rows, err := r.db.Query(ctx, "SELECT movie_id FROM shelf_entries WHERE user_id = $1", userID)
	if err != nil {
		return nil, apperr.Store("list_ids", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperr.Store("list_ids", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Store("list_ids", err)
	}
	return ids, nil
}

func (r *shelfRepository) UpdateStatus(ctx context.Context, userID string, movieID int64, status models.WatchStatus, clearRating bool) error {
	query := `
	UPDATE shelf_entries
	SET status = $3,
	    rating = CASE WHEN $4 THEN NULL ELSE rating END,
	    updated_at = now()
	WHERE user_id = $1 AND movie_id = $2
	`

	tag, err := r.db.Exec(ctx, query, userID, movieID, status, clearRating)
	if err != nil {
		return apperr.Store("update_status", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *shelfRepository) UpdateRating(ctx context.Context, userID string, movieID int64, rating *int) error {
	query := `
	UPDATE shelf_entries
	SET rating = $3, updated_at = now()
	WHERE user_id = $1 AND movie_id = $2
	`

	tag, err := r.db.Exec(ctx, query, userID, movieID, rating)
	if err != nil {
		return apperr.Store("update_rating", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *shelfRepository) UpdateNotes(ctx context.Context, userID string, movieID int64, notes string) error {
	query := `
	UPDATE shelf_entries
	SET notes = $3, updated_at = now()
	WHERE user_id = $1 AND movie_id = $2
	`

	tag, err := r.db.Exec(ctx, query, userID, movieID, notes)
	if err != nil {
		return apperr.Store("update_notes", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *shelfRepository) Remove(ctx context.Context, userID string, movieID int64) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM shelf_entries WHERE user_id = $1 AND movie_id = $2", userID, movieID)
	if err != nil {
		return apperr.Store("remove", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
