package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"syncmeet/internal/domain"
)

func TestUserService_RegisterAndAuthenticate(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:       " Ana@Example.com ",
		DisplayName: "Ana",
		Password:    "secret1",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.Email != "ana@example.com" {
		t.Fatalf("email should be normalized, got %q", user.Email)
	}
	if user.PasswordHash == "" || user.PasswordHash == "secret1" {
		t.Fatalf("password must be stored hashed")
	}
	if user.DefaultReminderMinutes != 15 {
		t.Fatalf("expected default reminder of 15 minutes, got %d", user.DefaultReminderMinutes)
	}

	logged, err := svc.Authenticate(context.Background(), "ana@example.com", "secret1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if logged.ID != user.ID {
		t.Fatalf("expected same user, got %q vs %q", logged.ID, user.ID)
	}

	if _, err := svc.Authenticate(context.Background(), "ana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody@example.com", "secret1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestUserService_RegisterValidations(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo)

	cases := []RegisterInput{
		{Email: "", DisplayName: "Ana", Password: "secret1"},
		{Email: "ana@example.com", DisplayName: "", Password: "secret1"},
		{Email: "ana@example.com", DisplayName: "Ana", Password: ""},
		{Email: "ana@example.com", DisplayName: "Ana", Password: "short"},
	}
	for i, input := range cases {
		var validationErr *domain.ValidationError
		if _, err := svc.Register(context.Background(), input); !errors.As(err, &validationErr) {
			t.Fatalf("case %d: expected ValidationError, got %v", i, err)
		}
	}
}

func TestUserService_RegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo)

	if _, err := svc.Register(context.Background(), RegisterInput{
		Email: "ana@example.com", DisplayName: "Ana", Password: "secret1",
	}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(context.Background(), RegisterInput{
		Email: "ANA@example.com", DisplayName: "Otra Ana", Password: "secret2",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUserService_UpdateReminderMinutes(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(domain.User{ID: "u1", Email: "ana@example.com", DefaultReminderMinutes: 15})
	svc := NewUserService(zap.NewNop(), repo)

	if err := svc.UpdateReminderMinutes(context.Background(), "u1", 30); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := repo.usersByID["u1"].DefaultReminderMinutes; got != 30 {
		t.Fatalf("preference not persisted, got %d", got)
	}

	var validationErr *domain.ValidationError
	if err := svc.UpdateReminderMinutes(context.Background(), "u1", -1); !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for negative minutes, got %v", err)
	}
	if err := svc.UpdateReminderMinutes(context.Background(), "u1", 1441); !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError for out of range minutes, got %v", err)
	}
	if err := svc.UpdateReminderMinutes(context.Background(), "missing", 30); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
