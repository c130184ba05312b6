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

// AccountRepository stores email/password accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

type accountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
	INSERT INTO accounts (id, email, password_hash, created_at, updated_at)
	VALUES ($1, $2, $3, now(), now())
	`

	_, err := r.db.Exec(ctx, query, account.ID, account.Email, account.PasswordHash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperr.ErrDuplicate
		}
		return apperr.Store("create_account", err)
	}
	return nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.get(ctx, "SELECT id, email, password_hash, created_at, updated_at FROM accounts WHERE email = $1", email)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return r.get(ctx, "SELECT id, email, password_hash, created_at, updated_at FROM accounts WHERE id = $1", id)
}

func (r *accountRepository) get(ctx context.Context, query string, arg any) (*models.Account, error) {
	var account models.Account
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&account.ID, &account.Email, &account.PasswordHash,
		&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Store("get_account", err)
	}
	return &account, nil
}
