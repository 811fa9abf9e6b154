// Package auth handles sign-up, login and guest access. Accounts live in the
// remote store under users/{emailKey}; each account's data lives in its own
// namespace.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/notify"
	"github.com/Tomlord1122/join/internal/repository"
	"github.com/Tomlord1122/join/internal/validate"
)

var (
	ErrUserExists         = &notify.Conflict{Message: "This email is already registered"}
	ErrInvalidCredentials = fmt.Errorf("%w: check your email and password", notify.ErrInline)
)

type Service struct {
	users     repository.UserRepository
	validator *validate.Validator
	logger    *logrus.Logger
	cost      int
}

func NewService(users repository.UserRepository, v *validate.Validator, logger *logrus.Logger) *Service {
	return &Service{users: users, validator: v, logger: logger, cost: bcrypt.DefaultCost}
}

// Signup creates an account and returns the logged-in user.
func (s *Service) Signup(ctx context.Context, in validate.SignupInput) (domain.CurrentUser, error) {
	if err := s.validator.Signup(in); err != nil {
		return domain.CurrentUser{}, err
	}
	name := strings.Join(strings.Fields(in.Name), " ")
	email := domain.NormalizeEmail(in.Email)
	key := domain.UserKey(email)

	existing, err := s.users.Find(ctx, key)
	if err != nil {
		return domain.CurrentUser{}, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return domain.CurrentUser{}, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return domain.CurrentUser{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{Name: name, Email: email, PasswordHash: string(hash)}
	if err := s.users.Put(ctx, key, user); err != nil {
		return domain.CurrentUser{}, fmt.Errorf("store user: %w", err)
	}
	s.logger.WithField("user", key).Info("user signed up")
	return domain.CurrentUser{Key: key, Name: name, Email: email}, nil
}

// Login checks the password against the stored bcrypt hash.
func (s *Service) Login(ctx context.Context, email, password string) (domain.CurrentUser, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.CurrentUser{}, ErrInvalidCredentials
	}
	key := domain.UserKey(email)
	user, err := s.users.Find(ctx, key)
	if err != nil {
		return domain.CurrentUser{}, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return domain.CurrentUser{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.WithField("user", key).Warn("login with wrong password")
			return domain.CurrentUser{}, ErrInvalidCredentials
		}
		return domain.CurrentUser{}, fmt.Errorf("compare password: %w", err)
	}
	return domain.CurrentUser{Key: key, Name: user.Name, Email: user.Email}, nil
}

// Guest logs in to the shared guest namespace.
func (s *Service) Guest() domain.CurrentUser {
	return domain.CurrentUser{Key: domain.GuestKey, Name: "Guest", Guest: true}
}
