package authpw

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"cirs/api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type fakeUserStore struct {
	users map[string]store.User // keyed by email
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]store.User{}}
}

func (f *fakeUserStore) GetUserByEmail(_ context.Context, email string) (store.User, error) {
	user, ok := f.users[email]
	if !ok {
		return store.User{}, sql.ErrNoRows
	}
	return user, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, user store.User) error {
	f.users[user.Email] = user
	return nil
}

func TestRegisterCreatesCitizenWithHashedPassword(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterRequest{
		Name:     "Asha",
		Email:    "asha@example.com",
		Password: "s3cret-pass",
		Phone:    "555-0101",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if !strings.HasPrefix(user.ID, "usr_") {
		t.Errorf("expected usr_ id prefix, got %q", user.ID)
	}
	if user.Role != "citizen" {
		t.Errorf("expected citizen role, got %q", user.Role)
	}
	if user.Phone == nil || *user.Phone != "555-0101" {
		t.Errorf("expected phone to be stored, got %v", user.Phone)
	}
	if user.PasswordHash == "s3cret-pass" {
		t.Fatal("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestRegisterDuplicateEmailFails(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	req := RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "s3cret-pass"}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(ctx, req)
	if !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
}

func TestRegisterRequiresFields(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{Email: "x@example.com", Password: "pw"}); err == nil {
		t.Fatal("expected error when name missing")
	}
	if _, err := svc.Register(ctx, RegisterRequest{Name: "X", Password: "pw"}); err == nil {
		t.Fatal("expected error when email missing")
	}
	if _, err := svc.Register(ctx, RegisterRequest{Name: "X", Email: "x@example.com"}); err == nil {
		t.Fatal("expected error when password missing")
	}
}

func TestLoginSucceedsWithCorrectPassword(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	created, err := svc.Register(ctx, RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	user, err := svc.Login(ctx, "asha@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("expected user %s, got %s", created.ID, user.ID)
	}
}

func TestLoginWrongPasswordFails(t *testing.T) {
	svc := NewService(newFakeUserStore())
	ctx := context.Background()

	if _, err := svc.Register(ctx, RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "s3cret-pass"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, "asha@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownEmailFails(t *testing.T) {
	svc := NewService(newFakeUserStore())

	if _, err := svc.Login(context.Background(), "nobody@example.com", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
