package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/ferdikurnia/mailblast/internal/app"
	"github.com/ferdikurnia/mailblast/internal/config"
	"github.com/ferdikurnia/mailblast/internal/handler"
	"github.com/ferdikurnia/mailblast/internal/infra/postgresql"
	"github.com/ferdikurnia/mailblast/internal/infra/postgresql/migrations"
	infraredis "github.com/ferdikurnia/mailblast/internal/infra/redis"
	"github.com/ferdikurnia/mailblast/internal/observability"
	"github.com/ferdikurnia/mailblast/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
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

	srv := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(logger),
	})
	srv.Use(recover.New())
	srv.Use(deps.Metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(srv, sqlDB, rdb)
	deps.Metrics.MetricsRoute(srv)

	if err := handler.RegisterCampaignRoutes(srv, deps.Campaigns); err != nil {
		logger.Fatal("campaign route registration failed", zap.Error(err))
	}
	if err := handler.RegisterBatchRoutes(srv, deps.Batches, cfg.BatchSecret); err != nil {
		logger.Fatal("batch route registration failed", zap.Error(err))
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down api")
		_ = srv.Shutdown()
	}()

	logger.Info("mailblast api started",
		zap.Int("port", cfg.APIPort),
		zap.String("triggerMode", cfg.TriggerMode),
	)

	if err := srv.Listen(fmt.Sprintf(":%d", cfg.APIPort)); err != nil {
		logger.Fatal("api server stopped", zap.Error(err))
	}
}
