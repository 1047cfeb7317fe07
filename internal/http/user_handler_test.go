package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"syncmeet/internal/domain"
	"syncmeet/internal/service"
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

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	m.usersByID[user.ID] = user
	if user.Email != "" {
		m.usersByEmail[strings.ToLower(user.Email)] = user.ID
	}
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

func newUserTestRouter(t *testing.T) (*gin.Engine, *mockUserRepo, *service.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := newMockUserRepo()
	logger := zap.NewNop()
	userSvc := service.NewUserService(logger, repo)
	jwtSvc := service.NewJWTServiceWithStore("secret", 15*time.Minute, 30*time.Minute, service.NewMemoryRefreshTokenStore())
	h := NewUserHandler(logger, userSvc, jwtSvc)

	r := gin.New()
	r.POST("/users/register", h.Register)
	r.POST("/users/login", h.Login)
	r.POST("/auth/refresh", h.RefreshToken)
	r.GET("/users/me/preferences", JWTAuthMiddleware(jwtSvc), h.GetPreferences)
	r.PUT("/users/me/preferences", JWTAuthMiddleware(jwtSvc), h.UpdatePreferences)
	return r, repo, jwtSvc
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestUserHandler_RegisterLoginFlow(t *testing.T) {
	r, _, _ := newUserTestRouter(t)

	rec := postJSON(t, r, "/users/register", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "secret1",
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var created struct {
		User   domain.User       `json:"user"`
		Tokens service.TokenPair `json:"tokens"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if created.Tokens.AccessToken == "" {
		t.Fatalf("register should issue tokens")
	}

	// Registrar de nuevo el mismo email falla con 400.
	rec = postJSON(t, r, "/users/register", map[string]string{
		"name": "Ana", "email": "ana@example.com", "password": "secret1",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400, got %d", rec.Code)
	}

	rec = postJSON(t, r, "/users/login", map[string]string{
		"email": "ana@example.com", "password": "secret1",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = postJSON(t, r, "/users/login", map[string]string{
		"email": "ana@example.com", "password": "wrong",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login: expected 401, got %d", rec.Code)
	}
}

func TestUserHandler_PreferencesRoundTrip(t *testing.T) {
	r, repo, jwtSvc := newUserTestRouter(t)
	repo.Create(context.Background(), domain.User{ID: "u1", Email: "ana@example.com", DefaultReminderMinutes: 15})
	pair, err := jwtSvc.GeneratePair(domain.User{ID: "u1", Email: "ana@example.com"})
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}
	auth := map[string]string{"Authorization": "Bearer " + pair.AccessToken}

	req := httptest.NewRequest(http.MethodGet, "/users/me/preferences", nil)
	req.Header.Set("Authorization", auth["Authorization"])
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("get preferences: expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "15") {
		t.Fatalf("expected default of 15, got %s", rec.Body.String())
	}

	raw, _ := json.Marshal(map[string]int{"default_reminder_minutes": 30})
	putReq := httptest.NewRequest(http.MethodPut, "/users/me/preferences", bytes.NewReader(raw))
	putReq.Header.Set("Content-Type", "application/json")
	putReq.Header.Set("Authorization", auth["Authorization"])
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, putReq)
	if rec.Code != http.StatusOK {
		t.Fatalf("update preferences: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := repo.usersByID["u1"].DefaultReminderMinutes; got != 30 {
		t.Fatalf("preference not persisted, got %d", got)
	}

	raw, _ = json.Marshal(map[string]int{"default_reminder_minutes": 5000})
	putReq = httptest.NewRequest(http.MethodPut, "/users/me/preferences", bytes.NewReader(raw))
	putReq.Header.Set("Content-Type", "application/json")
	putReq.Header.Set("Authorization", auth["Authorization"])
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, putReq)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("out of range preference: expected 400, got %d", rec.Code)
	}
}
