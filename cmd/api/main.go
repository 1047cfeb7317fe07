package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"syncmeet/internal/config"
	"syncmeet/internal/db"
	"syncmeet/internal/email"
	"syncmeet/internal/gcal"
	apihttp "syncmeet/internal/http"
	"syncmeet/internal/repository"
	"syncmeet/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	userRepo := repository.NewPgUserRepository(pool)
	meetingRepo := repository.NewPgMeetingRepository(pool)
	credRepo := repository.NewPgCredentialRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var tokenStore service.RefreshTokenStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := service.NewJWTServiceWithStore(
		cfg.JWTSecret,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
		time.Duration(cfg.JWTRefreshTTLMinutes)*time.Minute,
		tokenStore,
	)

	oauthCfg := gcal.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	calClient := gcal.NewClient(oauthCfg, credRepo, logger)
	if cfg.GoogleClientID == "" {
		logger.Warn("google oauth not configured; calendar sync disabled for everyone")
	}

	syncSvc := service.NewSyncService(logger, calClient, credRepo, meetingRepo)
	reminders := service.NewReminderScheduler(logger, emailSender)
	userSvc := service.NewUserService(logger, userRepo)
	meetingSvc := service.NewMeetingService(logger, meetingRepo, userRepo, syncSvc, reminders, emailSender)

	authLimiter := apihttp.NewRateLimiter(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst)
	userHandler := apihttp.NewUserHandler(logger, userSvc, jwtSvc)
	meetingHandler := apihttp.NewMeetingHandler(logger, meetingSvc)
	googleHandler := apihttp.NewGoogleHandler(logger, oauthCfg, calClient, credRepo, jwtSvc, cfg.SettingsURL)
	router := apihttp.NewRouter(logger, jwtSvc, authLimiter, userHandler, meetingHandler, googleHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	reminders.CancelAll()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
