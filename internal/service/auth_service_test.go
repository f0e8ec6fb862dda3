package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"voltshare/internal/models"
	"voltshare/internal/password"
	"voltshare/internal/repository"
)

type fakeUserStore struct {
	users  map[string]*models.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) Create(ctx context.Context, user *models.User) error {
	f.nextID++
	user.ID = f.nextID
	f.users[user.Email] = user
	return nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, ok := f.users[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func newTestAuthService(store *fakeUserStore) *AuthService {
	hasher := password.NewBcryptHasher(4)
	tokens := NewTokenService("test-secret", time.Hour)
	return NewAuthService(store, hasher, tokens, zap.NewNop())
}

func TestSignupAndLogin(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuthService(store)

	user, err := svc.Signup(context.Background(), "Ops@Example.com", "hunter2", "")
	if err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if user.Email != "ops@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.Role != "operator" {
		t.Fatalf("default role not applied: %q", user.Role)
	}
	if user.PasswordHash == "hunter2" {
		t.Fatalf("password stored in plaintext")
	}

	token, loggedIn, err := svc.Login(context.Background(), "ops@example.com", "hunter2")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" || loggedIn.ID != user.ID {
		t.Fatalf("unexpected login result: token=%q user=%+v", token, loggedIn)
	}
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuthService(store)

	if _, err := svc.Signup(context.Background(), "ops@example.com", "hunter2", ""); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, err := svc.Signup(context.Background(), "ops@example.com", "other", ""); !errors.Is(err, ErrEmailInUse) {
		t.Fatalf("expected ErrEmailInUse, got %v", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	store := newFakeUserStore()
	svc := newTestAuthService(store)

	if _, err := svc.Signup(context.Background(), "ops@example.com", "hunter2", ""); err != nil {
		t.Fatalf("signup failed: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "ops@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newTestAuthService(newFakeUserStore())

	if _, _, err := svc.Login(context.Background(), "nobody@example.com", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
