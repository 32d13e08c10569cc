package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"clearstack/admin-console/admin-console-backend/internal/config"
	"clearstack/admin-console/admin-console-backend/internal/monitoring"
)

// The metrics worker recomputes the platform dashboard snapshot on a
// schedule and persists it to the shared snapshot row, so console API
// requests mostly read a precomputed snapshot instead of running the
// aggregation queries inline.
func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	cache := monitoring.NewSnapshotCache(cfg.Monitoring.CacheTTL)
	defer cache.Stop()
	aggregator := monitoring.NewAggregator(monitoring.NewSnapshotStore(db), cache, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Monitoring.RefreshSchedule, func() {
		if _, err := aggregator.Refresh(ctx); err != nil {
			logger.Error("snapshot refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("Invalid refresh schedule",
			zap.String("schedule", cfg.Monitoring.RefreshSchedule), zap.Error(err))
	}

	// Compute once on startup so the first dashboard request is warm
	if _, err := aggregator.Refresh(ctx); err != nil {
		logger.Warn("initial snapshot refresh failed", zap.Error(err))
	}

	scheduler.Start()
	logger.Info("Metrics worker started",
		zap.String("schedule", cfg.Monitoring.RefreshSchedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Metrics worker shutting down")
	<-scheduler.Stop().Done()
}
