package app

import (
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ferdikurnia/mailblast/internal/config"
	infraredis "github.com/ferdikurnia/mailblast/internal/infra/redis"
	"github.com/ferdikurnia/mailblast/internal/mail"
	"github.com/ferdikurnia/mailblast/internal/observability"
	"github.com/ferdikurnia/mailblast/internal/queue"
	"github.com/ferdikurnia/mailblast/internal/repository"
	"github.com/ferdikurnia/mailblast/internal/service"
	"github.com/ferdikurnia/mailblast/internal/trigger"
)

// Dependencies is the assembled service graph shared by the api and
// worker binaries.
type Dependencies struct {
	Metrics   *observability.Metrics
	Campaigns *service.CampaignService
	Batches   *service.BatchService
	Rabbit    *queue.RabbitMQ
	Consumer  queue.Consumer
}

// Build wires repositories, services, and the configured trigger mode.
func Build(cfg *config.Config, db *gorm.DB, rdb *goredis.Client, logger *zap.Logger) (*Dependencies, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics := observability.NewMetrics()

	campaignRepo := repository.NewGormCampaignRepo(db)
	recipientRepo := repository.NewGormRecipientRepo(db)
	smtpRepo := repository.NewGormSmtpConfigRepo(db)
	emailLogRepo := repository.NewGormEmailLogRepo(db)

	limiter, err := infraredis.NewSendRateLimiter(rdb, cfg.SendRatePerSec)
	if err != nil {
		return nil, fmt.Errorf("failed to build rate limiter: %w", err)
	}

	mailer := mail.NewGomailMailer()
	sender, err := service.NewRetryingSender(mailer, recipientRepo, emailLogRepo, metrics, cfg.BaseURL, cfg.SendMaxRetries, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build sender: %w", err)
	}

	finalizer, err := service.NewFinalizer(campaignRepo, recipientRepo, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build finalizer: %w", err)
	}

	deps := &Dependencies{Metrics: metrics}

	var batchTrigger trigger.Trigger
	switch cfg.TriggerMode {
	case config.TriggerModeQueue:
		rabbit, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		deps.Rabbit = rabbit
		deps.Consumer = queue.NewRabbitMQConsumer(rabbit, cfg.BatchSize, logger)

		batchTrigger, err = trigger.NewQueueTrigger(queue.NewRabbitMQPublisher(rabbit), logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build queue trigger: %w", err)
		}
	default:
		batchTrigger, err = trigger.NewHTTPTrigger(cfg.BaseURL, cfg.BatchSecret, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build http trigger: %w", err)
		}
	}

	batches, err := service.NewBatchService(
		campaignRepo, recipientRepo, smtpRepo,
		sender, finalizer, limiter, batchTrigger,
		metrics, logger,
		cfg.BatchSize,
		time.Duration(cfg.MaxBatchSeconds)*time.Second,
		time.Duration(cfg.BatchSafetySeconds)*time.Second,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build batch service: %w", err)
	}
	deps.Batches = batches

	campaigns, err := service.NewCampaignService(campaignRepo, recipientRepo, batchTrigger, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build campaign service: %w", err)
	}
	deps.Campaigns = campaigns

	return deps, nil
}

func (d *Dependencies) Close() {
	if d == nil || d.Rabbit == nil {
		return
	}
	_ = d.Rabbit.Close()
}
