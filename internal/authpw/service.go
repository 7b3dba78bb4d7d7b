// Package authpw provides email/password registration and login.
package authpw

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cirs/api/internal/store"
	"cirs/api/internal/util"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// UserStore defines the storage interface for auth
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) error
}

// Service provides email/password authentication
type Service struct {
	store UserStore
}

// NewService creates a new auth service
func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// RegisterRequest contains registration parameters
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// Register creates a new citizen account. Registration is first-writer-wins
// on email: the lookup catches most duplicates and the unique column catches
// the rest.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (store.User, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return store.User{}, errors.New("name, email, and password are required")
	}

	if _, err := s.store.GetUserByEmail(ctx, req.Email); err == nil {
		return store.User{}, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:           util.NewID("usr"),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         "citizen",
		CreatedAt:    time.Now().UTC(),
	}
	if req.Phone != "" {
		phone := req.Phone
		user.Phone = &phone
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login authenticates a user by email and password.
func (s *Service) Login(ctx context.Context, email, password string) (store.User, error) {
	if email == "" || password == "" {
		return store.User{}, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}

	return user, nil
}
