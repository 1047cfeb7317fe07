package http

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"syncmeet/internal/service"
)

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(
	logger *zap.Logger,
	jwtServ *service.JWTService,
	authLimiter *RateLimiter,
	userH *UserHandler,
	meetingH *MeetingHandler,
	googleH *GoogleHandler,
) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), jsonContentTypeMiddleware())

	authRequired := JWTAuthMiddleware(jwtServ)

	// Rutas publicas. Registro y login van con rate limit por IP.
	users := r.Group("/users")
	users.POST("/register", authLimiter.Middleware(), userH.Register)
	users.POST("/login", authLimiter.Middleware(), userH.Login)

	auth := r.Group("/auth")
	auth.POST("/refresh", userH.RefreshToken)
	auth.POST("/logout", userH.Logout)

	me := users.Group("/me", authRequired)
	me.GET("/preferences", userH.GetPreferences)
	me.PUT("/preferences", userH.UpdatePreferences)

	meetings := r.Group("/meetings", authRequired)
	meetings.POST("", meetingH.Create)
	meetings.GET("", meetingH.List)
	meetings.GET("/invitations", meetingH.ListInvitations)
	meetings.GET("/archived", meetingH.ListArchived)
	meetings.POST("/archive-past", meetingH.ArchivePast)
	meetings.GET("/:id", meetingH.Get)
	meetings.PUT("/:id", meetingH.Update)
	meetings.DELETE("/:id", meetingH.Delete)
	meetings.POST("/:id/respond", meetingH.Respond)
	meetings.POST("/:id/sync", meetingH.Sync)

	// El callback de OAuth es publico: Google redirige sin nuestro token y
	// el state firmado identifica al usuario.
	google := r.Group("/google-calendar")
	google.GET("/oauth2callback", googleH.Callback)
	google.GET("/auth-url", authRequired, googleH.AuthURL)
	google.GET("/status", authRequired, googleH.Status)
	google.GET("/events", authRequired, googleH.Events)
	google.DELETE("/connection", authRequired, googleH.Disconnect)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
