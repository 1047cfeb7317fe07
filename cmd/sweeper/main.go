package main

import (
	"context"
	"log"
	"time"

	"syncmeet/internal/config"
	"syncmeet/internal/db"
	"syncmeet/internal/repository"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Barrido de archivado pensado para correr por cron. Hace lo mismo que
// POST /meetings/archive-past pero sin levantar el servidor.
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

	meetingRepo := repository.NewPgMeetingRepository(pool)
	count, err := meetingRepo.ArchivePast(ctx, time.Now().UTC())
	if err != nil {
		logger.Fatal("archive past meetings", zap.Error(err))
	}
	logger.Info("archive sweep done", zap.Int64("archived", count))
}
