package config

import (
	"fmt"
	"strings"

	"github.com/Netflix/go-env"
)

// Trigger modes for scheduling the next batch of a campaign.
const (
	TriggerModeHTTP  = "http"
	TriggerModeQueue = "queue"
)

type Config struct {
	DatabaseDSN        string `env:"DATABASE_DSN,required=true"`
	RedisURL           string `env:"REDIS_URL,required=true"`
	RabbitMQURL        string `env:"RABBITMQ_URL"`
	BaseURL            string `env:"BASE_URL,required=true"`
	BatchSecret        string `env:"BATCH_SECRET,required=true"`
	TriggerMode        string `env:"TRIGGER_MODE,default=http"`
	BatchSize          int    `env:"BATCH_SIZE,default=20"`
	MaxBatchSeconds    int    `env:"MAX_BATCH_SECONDS,default=60"`
	BatchSafetySeconds int    `env:"BATCH_SAFETY_SECONDS,default=8"`
	SendMaxRetries     int    `env:"SEND_MAX_RETRIES,default=3"`
	SendRatePerSec     int    `env:"SEND_RATE_PER_SEC,default=10"`
	WorkerConcurrency  int    `env:"WORKER_CONCURRENCY,default=4"`
	APIPort            int    `env:"API_PORT,default=8080"`
	LogLevel           string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.TriggerMode = strings.ToLower(strings.TrimSpace(cfg.TriggerMode))
	switch cfg.TriggerMode {
	case TriggerModeHTTP:
	case TriggerModeQueue:
		if strings.TrimSpace(cfg.RabbitMQURL) == "" {
			return nil, fmt.Errorf("RABBITMQ_URL is required when TRIGGER_MODE=queue")
		}
	default:
		return nil, fmt.Errorf("invalid TRIGGER_MODE %q", cfg.TriggerMode)
	}

	if cfg.BatchSafetySeconds >= cfg.MaxBatchSeconds {
		return nil, fmt.Errorf("BATCH_SAFETY_SECONDS must be smaller than MAX_BATCH_SECONDS")
	}

	return &cfg, nil
}
