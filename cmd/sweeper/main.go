package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/logger"
	"docvault/internal/repository/postgres"
	"docvault/internal/storage"
	"docvault/internal/sweeper"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StoreBackend != config.StoreBackendPostgres {
		log.Fatal("sweeper_unsupported_backend", zap.String("store_backend", cfg.StoreBackend))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatal("db_connect_failed", zap.Error(err))
	}
	defer db.Close()

	store, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		log.Fatal("object_storage_init_failed", zap.Error(err))
	}

	docs := postgres.NewDocumentPostgres(db)
	sw := sweeper.New(docs, docs, store, log, cfg.Sweeper.BatchSize)

	run := func() {
		if _, err := sw.Run(ctx); err != nil {
			log.Error("sweep_failed", zap.Error(err))
		}
	}

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.DelayIfStillRunning(cron.DefaultLogger),
		),
	)
	if _, err := c.AddFunc(cfg.Sweeper.Schedule, run); err != nil {
		log.Fatal("sweep_schedule_invalid", zap.String("schedule", cfg.Sweeper.Schedule), zap.Error(err))
	}

	log.Info("sweeper_start", zap.String("schedule", cfg.Sweeper.Schedule), zap.Int("batch", cfg.Sweeper.BatchSize))
	run()
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("sweeper_stopped")
}
