package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"syncmeet/internal/domain"
)

func TestTimeZoneFrom(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	if tz := timeZoneFrom(c); tz != "UTC" {
		t.Fatalf("missing header should default to UTC, got %q", tz)
	}

	c.Request.Header.Set("X-Timezone", "America/Argentina/Buenos_Aires")
	if tz := timeZoneFrom(c); tz != "America/Argentina/Buenos_Aires" {
		t.Fatalf("expected header timezone, got %q", tz)
	}
}

func TestRespondDomainError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", domain.NewValidationError("bad input"), http.StatusBadRequest},
		{"unresolved emails", &domain.ValidationError{UnresolvedEmails: []string{"x@y.z"}}, http.StatusBadRequest},
		{"forbidden", domain.NewForbiddenError("not yours"), http.StatusForbidden},
		{"not found", &domain.NotFoundError{Resource: "meeting", ID: "m1"}, http.StatusNotFound},
		{"invalid state", &domain.InvalidStateError{Reason: "archived"}, http.StatusConflict},
		{"sync", &domain.SyncError{Op: "manual sync", MeetingID: "m1", Err: errors.New("boom")}, http.StatusBadGateway},
		{"unknown", errors.New("whatever"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		respondDomainError(c, logger, tc.err)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

// Un 403 nunca debe degradarse a 401: el cliente cerraria sesion por error.
func TestRespondDomainError_ForbiddenIsNeverUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	respondDomainError(c, zap.NewNop(), domain.NewForbiddenError("you are not invited to this meeting"))
	if rec.Code == http.StatusUnauthorized {
		t.Fatalf("forbidden mapped to 401")
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
