package gcal

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"syncmeet/internal/domain"
)

type mockCredRepo struct {
	creds  map[string]domain.GoogleCredential
	saves  int
	getErr error
}

func newMockCredRepo() *mockCredRepo {
	return &mockCredRepo{creds: make(map[string]domain.GoogleCredential)}
}

func (m *mockCredRepo) Get(_ context.Context, userID string) (domain.GoogleCredential, error) {
	if m.getErr != nil {
		return domain.GoogleCredential{}, m.getErr
	}
	return m.creds[userID], nil
}

func (m *mockCredRepo) Save(_ context.Context, cred domain.GoogleCredential) error {
	m.creds[cred.UserID] = cred
	m.saves++
	return nil
}

func (m *mockCredRepo) Clear(_ context.Context, userID string) error {
	delete(m.creds, userID)
	return nil
}

type staticTokenSource struct {
	tok *oauth2.Token
	err error
}

func (s *staticTokenSource) Token() (*oauth2.Token, error) {
	return s.tok, s.err
}

func TestTokenSource_FailsWhenNotConnected(t *testing.T) {
	creds := newMockCredRepo()
	client := NewClient(NewOAuthConfig("id", "secret", "http://localhost/cb"), creds, zap.NewNop())

	_, err := client.tokenSource(context.Background(), "u1")
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestPersistingTokenSource_SavesRefreshedToken(t *testing.T) {
	creds := newMockCredRepo()
	client := NewClient(NewOAuthConfig("id", "secret", "http://localhost/cb"), creds, zap.NewNop())
	prev := domain.GoogleCredential{
		UserID:       "u1",
		AccessToken:  "old-access",
		RefreshToken: "refresh-1",
	}
	creds.creds["u1"] = prev

	expiry := time.Now().UTC().Add(time.Hour)
	src := &persistingTokenSource{
		ctx:    context.Background(),
		userID: "u1",
		prev:   prev,
		// El token rotado viene sin refresh token nuevo, como hace Google.
		src:    &staticTokenSource{tok: &oauth2.Token{AccessToken: "new-access", Expiry: expiry}},
		client: client,
	}

	tok, err := src.Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if tok.AccessToken != "new-access" {
		t.Fatalf("unexpected access token %q", tok.AccessToken)
	}
	saved := creds.creds["u1"]
	if saved.AccessToken != "new-access" {
		t.Fatalf("refreshed access token not persisted: %+v", saved)
	}
	if saved.RefreshToken != "refresh-1" {
		t.Fatalf("old refresh token must be kept when none is issued, got %q", saved.RefreshToken)
	}
	if saved.Expiry == nil || !saved.Expiry.Equal(expiry) {
		t.Fatalf("expiry not persisted: %+v", saved.Expiry)
	}
}

func TestPersistingTokenSource_NoSaveWhenTokenUnchanged(t *testing.T) {
	creds := newMockCredRepo()
	client := NewClient(NewOAuthConfig("id", "secret", "http://localhost/cb"), creds, zap.NewNop())
	prev := domain.GoogleCredential{UserID: "u1", AccessToken: "same", RefreshToken: "r"}
	creds.creds["u1"] = prev

	src := &persistingTokenSource{
		ctx:    context.Background(),
		userID: "u1",
		prev:   prev,
		src:    &staticTokenSource{tok: &oauth2.Token{AccessToken: "same"}},
		client: client,
	}
	if _, err := src.Token(); err != nil {
		t.Fatalf("token: %v", err)
	}
	if creds.saves != 0 {
		t.Fatalf("unchanged token must not be re-persisted, got %d saves", creds.saves)
	}
}

func TestIsGone(t *testing.T) {
	if !IsGone(&googleapi.Error{Code: 404}) || !IsGone(&googleapi.Error{Code: 410}) {
		t.Fatalf("404 and 410 should count as gone")
	}
	if IsGone(&googleapi.Error{Code: 500}) || IsGone(errors.New("plain")) || IsGone(nil) {
		t.Fatalf("only 404/410 API errors are gone")
	}
}
