package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/herzod/shelfview-cinema/internal/apperr"
	"github.com/herzod/shelfview-cinema/internal/models"
	"github.com/herzod/shelfview-cinema/internal/session"
)

type fakeAccountRepo struct {
	mu      sync.Mutex
	byEmail map[string]*models.Account
	byID    map[string]*models.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		byEmail: make(map[string]*models.Account),
		byID:    make(map[string]*models.Account),
	}
}

func (r *fakeAccountRepo) Create(ctx context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[account.Email]; ok {
		return apperr.ErrDuplicate
	}
	clone := *account
	r.byEmail[account.Email] = &clone
	r.byID[account.ID] = &clone
	return nil
}

func (r *fakeAccountRepo) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byEmail[email]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	clone := *account
	return &clone, nil
}

func (r *fakeAccountRepo) GetByID(ctx context.Context, id string) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byID[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	clone := *account
	return &clone, nil
}

func newTestAuth(t *testing.T, notifier *session.Notifier) (*AuthService, *fakeAccountRepo) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	repo := newFakeAccountRepo()
	svc, err := NewAuthService(&AuthServiceConfig{
		Accounts: repo,
		Notifier: notifier,
		Logger:   log,
		Secret:   "test-secret-test-secret-test-secret",
	})
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return svc, repo
}

func TestAuthServiceRequiresSecret(t *testing.T) {
	_, err := NewAuthService(&AuthServiceConfig{})
	if err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestSignUpSignInRoundtrip(t *testing.T) {
	svc, _ := newTestAuth(t, nil)
	ctx := context.Background()

	token, sess, err := svc.SignUp(ctx, "u@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if token == "" || sess.UserID == "" {
		t.Fatal("signup returned empty token or session")
	}

	parsed, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if parsed.UserID != sess.UserID || parsed.Email != "u@example.com" {
		t.Errorf("parsed session = %+v", parsed)
	}

	_, sess2, err := svc.SignIn(ctx, "u@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	if sess2.UserID != sess.UserID {
		t.Errorf("signin user = %q, want %q", sess2.UserID, sess.UserID)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc, _ := newTestAuth(t, nil)
	ctx := context.Background()

	if _, _, err := svc.SignUp(ctx, "u@example.com", "correct horse battery"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	_, _, err := svc.SignIn(ctx, "u@example.com", "wrong password!")
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSignInUnknownEmail(t *testing.T) {
	svc, _ := newTestAuth(t, nil)

	_, _, err := svc.SignIn(context.Background(), "nobody@example.com", "whatever password")
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuth(t, nil)
	ctx := context.Background()

	if _, _, err := svc.SignUp(ctx, "u@example.com", "correct horse battery"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	_, _, err := svc.SignUp(ctx, "u@example.com", "another password!!")
	if !errors.Is(err, apperr.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestShortPasswordRejected(t *testing.T) {
	svc, repo := newTestAuth(t, nil)

	_, _, err := svc.SignUp(context.Background(), "u@example.com", "short")
	var vErr *apperr.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(repo.byEmail) != 0 {
		t.Error("no account must be created for a rejected password")
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	svc, _ := newTestAuth(t, nil)

	if _, err := svc.ParseToken("not.a.token"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthEventsAreBroadcast(t *testing.T) {
	notifier := session.NewNotifier()

	var mu sync.Mutex
	var events []session.Event
	cancel := notifier.Subscribe(func(ev session.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	defer cancel()

	svc, _ := newTestAuth(t, notifier)
	ctx := context.Background()

	_, sess, err := svc.SignUp(ctx, "u@example.com", "correct horse battery")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	svc.SignOut(ctx, sess)

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if !events[0].SignedIn || events[0].UserID != sess.UserID {
		t.Errorf("first event = %+v, want sign-in", events[0])
	}
	if events[1].SignedIn {
		t.Errorf("second event = %+v, want sign-out", events[1])
	}
}
