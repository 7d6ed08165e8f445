package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ferdikurnia/mailblast/internal/domain"
	"github.com/ferdikurnia/mailblast/internal/queue"
)

const defaultWorkerConcurrency = 4

// WorkerService drains the batch queue when continuation runs in queue
// mode. Each consumed message is one batch hop; batch processing is
// idempotent, so redelivered hops are safe.
type WorkerService struct {
	consumer    queue.Consumer
	batches     *BatchService
	concurrency int
	logger      *zap.Logger
}

func NewWorkerService(consumer queue.Consumer, batches *BatchService, concurrency int, logger *zap.Logger) (*WorkerService, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if batches == nil {
		return nil, fmt.Errorf("batch service is required")
	}
	if concurrency < 1 {
		concurrency = defaultWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		consumer:    consumer,
		batches:     batches,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// Start runs the consume loops until the context is canceled.
func (w *WorkerService) Start(ctx context.Context) error {
	w.logger.Info("worker starting",
		zap.Int("concurrency", w.concurrency),
		zap.String("queue", queue.BatchQueueName),
	)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			return w.consumer.Consume(gctx, queue.BatchQueueName, w.handle)
		})
	}
	return g.Wait()
}

// handle processes one continuation hop. A nil return acknowledges the
// message; an error nacks it for redelivery. Lock contention is an ack,
// not a redelivery loop: the holder's own continuation carries the
// campaign forward.
func (w *WorkerService) handle(ctx context.Context, msg queue.BatchMessage) error {
	result, err := w.batches.ProcessBatch(ctx, msg.CampaignID, msg.BatchIndex)
	switch {
	case err == nil:
		if result.Completed {
			w.logger.Info("campaign hop completed",
				zap.String("campaignId", msg.CampaignID),
				zap.String("status", result.Status.String()),
			)
		}
		return nil
	case errors.Is(err, domain.ErrLockNotAcquired):
		w.logger.Debug("campaign locked by another invocation, skipping hop",
			zap.String("campaignId", msg.CampaignID),
			zap.Int("batchIndex", msg.BatchIndex),
		)
		return nil
	case errors.Is(err, domain.ErrNotFound):
		w.logger.Warn("campaign gone, dropping hop",
			zap.String("campaignId", msg.CampaignID),
		)
		return nil
	case errors.Is(err, domain.ErrNoSmtpConfig):
		// Redelivery cannot conjure an SMTP source; the error is
		// already on the campaign for operators.
		w.logger.Error("batch aborted: no smtp source",
			zap.String("campaignId", msg.CampaignID),
		)
		return nil
	default:
		w.logger.Error("batch hop failed, requeueing",
			zap.String("campaignId", msg.CampaignID),
			zap.Int("batchIndex", msg.BatchIndex),
			zap.Error(err),
		)
		return err
	}
}
