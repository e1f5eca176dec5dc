// Command durations fills in missing lecture durations by querying each
// lecture's video source. It is safe to run repeatedly.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"voltage-backend/internal/config"
	"voltage-backend/internal/database"
	"voltage-backend/internal/repository"
	"voltage-backend/internal/service"
	"voltage-backend/pkg/logger"
)

func main() {
	limit := flag.Int("limit", 200, "maximum number of lectures to process")
	flag.Parse()

	logger.Init()
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables", nil)
	}

	cfg := config.New()
	logger.SetLevel(cfg.LogLevel)

	db, err := database.Open(cfg)
	if err != nil {
		logger.Error(err, "Failed to open database", nil)
		os.Exit(1)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	durations := service.NewDurationService(
		repository.NewStore(db),
		service.NewYouTubeResolver(cfg.YouTubeAPIKey),
		service.NewLocalFileResolver(cfg.UploadDir),
	)

	updated, err := durations.BackfillMissing(ctx, *limit)
	if err != nil {
		logger.Error(err, "Duration backfill failed", map[string]interface{}{"updated": updated})
		os.Exit(1)
	}

	logger.Info("Duration backfill finished", map[string]interface{}{"updated": updated})
}
