package trigger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ferdikurnia/mailblast/internal/queue"
)

// QueueTrigger publishes the next hop to the batch queue. The broker
// gives at-least-once delivery, so a crashed worker never strands a
// campaign the way a dropped HTTP self-call can.
type QueueTrigger struct {
	publisher queue.Publisher
	logger    *zap.Logger
}

func NewQueueTrigger(publisher queue.Publisher, logger *zap.Logger) (*QueueTrigger, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QueueTrigger{publisher: publisher, logger: logger}, nil
}

func (t *QueueTrigger) NextBatch(ctx context.Context, campaignID string, batchIndex int) error {
	msg := queue.BatchMessage{CampaignID: campaignID, BatchIndex: batchIndex}
	if err := t.publisher.Publish(ctx, queue.BatchQueueName, msg); err != nil {
		return fmt.Errorf("failed to enqueue batch %d for campaign %s: %w", batchIndex, campaignID, err)
	}

	t.logger.Debug("enqueued next batch",
		zap.String("campaignId", campaignID),
		zap.Int("batchIndex", batchIndex),
	)

	return nil
}
