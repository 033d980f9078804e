package stream

import (
	"context"
	"fmt"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const publishAttempts = 3

// Publisher appends order events to the stream with bounded retries. Once the
// entry is in the stream the order is considered accepted.
type Publisher struct {
	client *goRedis.Client
	key    string
	logger *zap.Logger
}

func NewPublisher(client *goRedis.Client, key string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{client: client, key: key, logger: logger}
}

// Publish appends the event, retrying transient failures with exponential
// backoff before giving up.
func (p *Publisher) Publish(ctx context.Context, event *OrderEvent) (string, error) {
	values := event.Values()

	var lastErr error
	for attempt := 1; attempt <= publishAttempts; attempt++ {
		entryID, err := p.client.XAdd(ctx, &goRedis.XAddArgs{
			Stream: p.key,
			Values: values,
		}).Result()
		if err == nil {
			return entryID, nil
		}

		lastErr = err
		p.logger.Warn("order event publish failed",
			zap.Int("attempt", attempt),
			zap.String("order_reference", event.OrderReference),
			zap.Error(err))

		if attempt == publishAttempts {
			break
		}
		backoff := time.Duration(1<<attempt) * time.Second
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "", fmt.Errorf("publish order event: %w", lastErr)
}
