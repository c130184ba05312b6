package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/herzod/shelfview-cinema/internal/apperr"
	"github.com/herzod/shelfview-cinema/internal/models"
	"github.com/herzod/shelfview-cinema/internal/repository"
	"github.com/herzod/shelfview-cinema/internal/session"
)

const minPasswordLength = 8

// Claims are the JWT claims carried by a session token.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService owns email/password accounts and bearer-token sessions.
// Sign-in and sign-out are broadcast through the process-wide Notifier so
// dependents (the request cache) can react.
type AuthService struct {
	accounts repository.AccountRepository
	notifier *session.Notifier
	logger   *logrus.Logger
	secret   []byte
	lifetime time.Duration
}

type AuthServiceConfig struct {
	Accounts   repository.AccountRepository
	Notifier   *session.Notifier
	Logger     *logrus.Logger
	Secret     string
	SessionTTL time.Duration
}

func NewAuthService(config *AuthServiceConfig) (*AuthService, error) {
	if config.Secret == "" {
		return nil, fmt.Errorf("AUTH_SECRET is required but was empty")
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.SessionTTL == 0 {
		config.SessionTTL = 24 * time.Hour
	}

	return &AuthService{
		accounts: config.Accounts,
		notifier: config.Notifier,
		logger:   config.Logger,
		secret:   []byte(config.Secret),
		lifetime: config.SessionTTL,
	}, nil
}

// SignUp creates an account and signs it in.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (string, session.Session, error) {
	if len(password) < minPasswordLength {
		return "", session.Session{}, apperr.Validation("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", session.Session{}, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return "", session.Session{}, err
	}

	s.logger.WithField("user_id", account.ID).Info("Account created")
	return s.startSession(account)
}

// SignIn verifies credentials and issues a session token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, session.Session, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", session.Session{}, apperr.ErrUnauthorized
		}
		return "", session.Session{}, err
	}

	if err := bcrypt.CompareHashAndPassword(account.PasswordHash, []byte(password)); err != nil {
		s.logger.WithField("user_id", account.ID).Warn("Sign-in with wrong password")
		return "", session.Session{}, apperr.ErrUnauthorized
	}

	return s.startSession(account)
}

// SignOut broadcasts the sign-out. Tokens are stateless; the client discards
// its copy and the cache drops the user's entries.
func (s *AuthService) SignOut(ctx context.Context, sess session.Session) {
	s.logger.WithField("user_id", sess.UserID).Info("Signed out")
	if s.notifier != nil {
		s.notifier.Notify(session.Event{UserID: sess.UserID, SignedIn: false})
	}
}

// ParseToken validates a bearer token and recovers its session.
func (s *AuthService) ParseToken(tokenString string) (session.Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return session.Session{}, apperr.ErrUnauthorized
	}
	return session.Session{UserID: claims.UserID, Email: claims.Email}, nil
}

func (s *AuthService) startSession(account *models.Account) (string, session.Session, error) {
	now := time.Now()
	claims := &Claims{
		UserID: account.ID,
		Email:  account.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", session.Session{}, fmt.Errorf("failed to sign session token: %w", err)
	}

	sess := session.Session{UserID: account.ID, Email: account.Email}
	if s.notifier != nil {
		s.notifier.Notify(session.Event{UserID: account.ID, SignedIn: true})
	}
	return token, sess, nil
}
