package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"syncmeet/internal/domain"
)

// timeZoneFrom saca la zona horaria explicita del request. Nunca cae a la
// hora local del servidor: sin header es UTC.
func timeZoneFrom(c *gin.Context) string {
	if tz := c.GetHeader("X-Timezone"); tz != "" {
		return tz
	}
	return "UTC"
}

// respondDomainError mapea la taxonomia de errores de dominio a status
// codes. 403 y 401 se mantienen separados a proposito: "no invitado" no es
// "no autenticado" y el cliente no debe cerrar sesion por un 403.
func respondDomainError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		validationErr   *domain.ValidationError
		forbiddenErr    *domain.ForbiddenError
		notFoundErr     *domain.NotFoundError
		invalidStateErr *domain.InvalidStateError
		syncErr         *domain.SyncError
	)
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &forbiddenErr):
		c.JSON(http.StatusForbidden, gin.H{"error": forbiddenErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &invalidStateErr):
		c.JSON(http.StatusConflict, gin.H{"error": invalidStateErr.Error()})
	case errors.As(err, &syncErr):
		logger.Error("manual calendar sync failed", zap.Error(syncErr))
		c.JSON(http.StatusBadGateway, gin.H{"error": "google calendar sync failed"})
	default:
		logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}
