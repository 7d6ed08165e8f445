package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/ferdikurnia/mailblast/internal/app"
	"github.com/ferdikurnia/mailblast/internal/config"
	"github.com/ferdikurnia/mailblast/internal/infra/postgresql"
	"github.com/ferdikurnia/mailblast/internal/infra/postgresql/migrations"
	infraredis "github.com/ferdikurnia/mailblast/internal/infra/redis"
	"github.com/ferdikurnia/mailblast/internal/observability"
	"github.com/ferdikurnia/mailblast/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}
	if cfg.TriggerMode != config.TriggerModeQueue {
		log.Fatal("worker requires TRIGGER_MODE=queue")
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	deps, err := app.Build(cfg, db, rdb, logger)
	if err != nil {
		logger.Fatal("service assembly failed", zap.Error(err))
	}
	defer deps.Close()

	w, err := service.NewWorkerService(deps.Consumer, deps.Batches, cfg.WorkerConcurrency, logger)
	if err != nil {
		logger.Fatal("worker assembly failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("mailblast worker started", zap.Int("concurrency", cfg.WorkerConcurrency))

	if err := w.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}

	logger.Info("mailblast worker shut down")
}
