package queue

import "context"

const (
	// BatchQueueName is the work queue carrying campaign batch
	// continuation messages.
	BatchQueueName = "campaign.batches"

	// BatchDLQName receives batch messages rejected as unprocessable.
	BatchDLQName = "dlq.campaign.batches"
)

// Publisher publishes batch continuation messages to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, msg BatchMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg BatchMessage) error

// Consumer consumes batch continuation messages from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
