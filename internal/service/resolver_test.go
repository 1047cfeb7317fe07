package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"

	"syncmeet/internal/domain"
)

type mockUserRepo struct {
	usersByID    map[string]domain.User
	usersByEmail map[string]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		usersByID:    make(map[string]domain.User),
		usersByEmail: make(map[string]string),
	}
}

func (m *mockUserRepo) add(user domain.User) {
	m.usersByID[user.ID] = user
	if user.Email != "" {
		m.usersByEmail[strings.ToLower(user.Email)] = user.ID
	}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.add(user)
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	user, ok := m.usersByID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	id, ok := m.usersByEmail[strings.ToLower(email)]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

func (m *mockUserRepo) FindByEmails(_ context.Context, emails []string) ([]domain.UserSummary, error) {
	var out []domain.UserSummary
	for _, email := range emails {
		if id, ok := m.usersByEmail[strings.ToLower(email)]; ok {
			u := m.usersByID[id]
			out = append(out, domain.UserSummary{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email})
		}
	}
	return out, nil
}

func (m *mockUserRepo) UpdateReminderMinutes(_ context.Context, id string, minutes int) error {
	user, ok := m.usersByID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.DefaultReminderMinutes = minutes
	m.usersByID[id] = user
	return nil
}

func TestResolveParticipants_ResolvesEmailsCaseInsensitive(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(domain.User{ID: "u1", Email: "ana@example.com"})
	repo.add(domain.User{ID: "u2", Email: "bruno@example.com"})

	parts, err := ResolveParticipants(context.Background(), repo, []InviteEntry{
		{Email: " Ana@Example.com "},
		{Email: "bruno@example.com", Status: "accepted"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(parts))
	}
	if parts[0].UserID != "u1" || parts[0].Status != domain.StatusInvited {
		t.Fatalf("unexpected first participant: %+v", parts[0])
	}
	if parts[1].UserID != "u2" || parts[1].Status != domain.StatusAccepted {
		t.Fatalf("unexpected second participant: %+v", parts[1])
	}
}

func TestResolveParticipants_AllOrNothingOnUnknownEmails(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(domain.User{ID: "u1", Email: "ana@example.com"})

	_, err := ResolveParticipants(context.Background(), repo, []InviteEntry{
		{Email: "ana@example.com"},
		{Email: "ghost@example.com"},
		{Email: "ghost@example.com"},
	})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(validationErr.UnresolvedEmails) != 1 || validationErr.UnresolvedEmails[0] != "ghost@example.com" {
		t.Fatalf("unexpected unresolved emails: %+v", validationErr.UnresolvedEmails)
	}
	if !strings.Contains(validationErr.Error(), "ghost@example.com") {
		t.Fatalf("error should name the unresolved email: %v", validationErr)
	}
}

func TestResolveParticipants_PassesThroughIDEntries(t *testing.T) {
	repo := newMockUserRepo()

	parts, err := ResolveParticipants(context.Background(), repo, []InviteEntry{
		{UserID: "u9", Status: "declined", GoogleEventID: "ev-9"},
		{UserID: "u8", Status: "garbage"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(parts))
	}
	if parts[0].Status != domain.StatusDeclined || parts[0].GoogleEventID != "ev-9" {
		t.Fatalf("unexpected id participant: %+v", parts[0])
	}
	if parts[1].Status != domain.StatusInvited {
		t.Fatalf("invalid status should default to invited, got %q", parts[1].Status)
	}
}

func TestResolveParticipants_DeduplicatesByUser(t *testing.T) {
	repo := newMockUserRepo()
	repo.add(domain.User{ID: "u1", Email: "ana@example.com"})

	parts, err := ResolveParticipants(context.Background(), repo, []InviteEntry{
		{UserID: "u1", Status: "accepted"},
		{Email: "ana@example.com", Status: "declined"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(parts) != 1 {
		t.Fatalf("expected 1 participant after dedupe, got %d", len(parts))
	}
	if parts[0].Status != domain.StatusAccepted {
		t.Fatalf("first entry should win, got %+v", parts[0])
	}
}

func TestResolveParticipants_EmptyInput(t *testing.T) {
	repo := newMockUserRepo()
	parts, err := ResolveParticipants(context.Background(), repo, nil)
	if err != nil || parts != nil {
		t.Fatalf("expected nil,nil; got %v,%v", parts, err)
	}
}
