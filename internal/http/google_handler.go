package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"syncmeet/internal/gcal"
	"syncmeet/internal/repository"
	"syncmeet/internal/service"
)

// GoogleHandler mantiene dependencias para los endpoints de vinculacion
// con Google Calendar.
type GoogleHandler struct {
	logger      *zap.Logger
	oauth       *oauth2.Config
	cal         *gcal.Client
	creds       repository.CredentialRepository
	jwtServ     *service.JWTService
	settingsURL string
}

func NewGoogleHandler(logger *zap.Logger, oauth *oauth2.Config, cal *gcal.Client, creds repository.CredentialRepository, jwtServ *service.JWTService, settingsURL string) *GoogleHandler {
	return &GoogleHandler{
		logger:      logger,
		oauth:       oauth,
		cal:         cal,
		creds:       creds,
		jwtServ:     jwtServ,
		settingsURL: settingsURL,
	}
}

// AuthURL maneja GET /google-calendar/auth-url. El state es un JWT corto
// con el user id, porque el callback vuelve sin Authorization header.
func (h *GoogleHandler) AuthURL(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	state, err := h.jwtServ.CreateStateToken(claims.UserID)
	if err != nil {
		h.logger.Error("create oauth state failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start google authorization"})
		return
	}
	url := h.oauth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"))
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Callback maneja GET /google-calendar/oauth2callback. Es la unica ruta
// publica del grupo: Google redirige aca sin token nuestro.
func (h *GoogleHandler) Callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		c.Redirect(http.StatusFound, h.settingsURL+"?google=denied")
		return
	}
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing state or code"})
		return
	}

	userID, err := h.jwtServ.VerifyStateToken(state)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid state"})
		return
	}

	if err := h.cal.Exchange(c.Request.Context(), userID, code); err != nil {
		h.logger.Error("google oauth exchange failed",
			zap.String("user_id", userID), zap.Error(err))
		c.Redirect(http.StatusFound, h.settingsURL+"?google=error")
		return
	}
	c.Redirect(http.StatusFound, h.settingsURL+"?google=connected")
}

// Status maneja GET /google-calendar/status.
func (h *GoogleHandler) Status(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	cred, err := h.creds.Get(c.Request.Context(), claims.UserID)
	if err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected":         cred.Connected(),
		"has_refresh_token": cred.RefreshToken != "",
		"expiry":            cred.Expiry,
	})
}

// Disconnect maneja DELETE /google-calendar/connection. Borra los tokens
// guardados; los eventos ya sincronizados quedan en el calendario.
func (h *GoogleHandler) Disconnect(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	if err := h.creds.Clear(c.Request.Context(), claims.UserID); err != nil {
		respondDomainError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": false})
}

// Events maneja GET /google-calendar/events.
func (h *GoogleHandler) Events(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	events, err := h.cal.ListUpcoming(c.Request.Context(), claims.UserID, 5)
	if err != nil {
		if errors.Is(err, gcal.ErrNotConnected) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "google calendar not connected"})
			return
		}
		h.logger.Error("list google events failed",
			zap.String("user_id", claims.UserID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not fetch google calendar events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
