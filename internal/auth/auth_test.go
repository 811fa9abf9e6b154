package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Tomlord1122/join/internal/domain"
	"github.com/Tomlord1122/join/internal/logging"
	"github.com/Tomlord1122/join/internal/notify"
	"github.com/Tomlord1122/join/internal/remote"
	"github.com/Tomlord1122/join/internal/repository"
	"github.com/Tomlord1122/join/internal/validate"
)

func newService(t *testing.T) (*Service, repository.UserRepository) {
	t.Helper()
	users := repository.NewUserRepository(remote.NewMemory())
	s := NewService(users, validate.New(time.Second), logging.Discard())
	s.cost = bcrypt.MinCost
	return s, users
}

func signupInput() validate.SignupInput {
	return validate.SignupInput{Name: "Ada  Lovelace", Email: "Ada@Example.com", Password: "secret1", Confirm: "secret1"}
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	s, users := newService(t)

	cu, err := s.Signup(ctx, signupInput())
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if cu.Key != "ada@example,com" || cu.Name != "Ada Lovelace" || cu.Guest {
		t.Fatalf("unexpected user %+v", cu)
	}

	stored, err := users.Find(ctx, cu.Key)
	if err != nil || stored == nil {
		t.Fatalf("user not stored: %v", err)
	}
	if stored.PasswordHash == "" || strings.Contains(stored.PasswordHash, "secret1") {
		t.Fatalf("password must be stored hashed")
	}

	got, err := s.Login(ctx, " ADA@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got != cu {
		t.Fatalf("login user %+v, signup user %+v", got, cu)
	}
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	if _, err := s.Signup(ctx, signupInput()); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	in := signupInput()
	in.Email = "ada@example.com"
	_, err := s.Signup(ctx, in)
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
	if toast, ok := notify.FromError(err); !ok || toast.Message != ErrUserExists.Message {
		t.Fatalf("unexpected toast %+v", toast)
	}
}

func TestSignupValidation(t *testing.T) {
	s, _ := newService(t)
	in := signupInput()
	in.Confirm = "different"
	in.Password = "123"
	_, err := s.Signup(context.Background(), in)

	var warnings validate.Errors
	if !errors.As(err, &warnings) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if _, ok := warnings.For("password"); !ok {
		t.Fatalf("expected password warning: %v", warnings)
	}
	if w, ok := warnings.For("confirm"); !ok || w.Message != "Passwords do not match" {
		t.Fatalf("expected confirm warning: %v", warnings)
	}
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)
	if _, err := s.Signup(ctx, signupInput()); err != nil {
		t.Fatalf("Signup: %v", err)
	}

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "ada@example.com", "nope123"},
		{"unknown user", "bob@example.com", "secret1"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
			if _, toast := notify.FromError(err); toast {
				t.Fatalf("credential errors are shown inline")
			}
		})
	}
}

func TestGuest(t *testing.T) {
	s, _ := newService(t)
	g := s.Guest()
	if g.Key != domain.GuestKey || !g.Guest {
		t.Fatalf("unexpected guest %+v", g)
	}
}
