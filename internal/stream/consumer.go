package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/internal/config"
	"github.com/minicrm/backend/internal/infrastructure/metrics"
	"github.com/minicrm/backend/repository"
)

// Consumer reads order events from the stream under a consumer group and
// applies them to the store. Entries are acknowledged only after the order is
// durably recorded or classified as a permanent reject, so a crash between
// read and ack leaves the entry pending for redelivery.
type Consumer struct {
	client   *goRedis.Client
	orders   repository.OrderRepository
	products repository.ProductRepository
	cfg      config.StreamConfig
	metrics  *metrics.Metrics
	logger   *zap.Logger

	wg sync.WaitGroup
}

func NewConsumer(
	client *goRedis.Client,
	orders repository.OrderRepository,
	products repository.ProductRepository,
	cfg config.StreamConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Consumer {
	if cfg.ReadCount <= 0 {
		cfg.ReadCount = 1
	}
	if cfg.BlockTime <= 0 {
		cfg.BlockTime = 5 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		client:   client,
		orders:   orders,
		products: products,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// EnsureGroup creates the consumer group, creating the stream alongside it.
// An already existing group is not an error.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Key, c.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Start ensures the consumer group exists and launches the read loop. The
// loop runs until ctx is cancelled; Wait blocks until it has drained.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}

	c.logger.Info("order stream consumer started",
		zap.String("stream", c.cfg.Key),
		zap.String("group", c.cfg.Group),
		zap.String("consumer", c.cfg.Consumer))

	c.wg.Add(1)
	go c.run(ctx)
	return nil
}

// Wait blocks until the read loop has exited.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) run(ctx context.Context) {
	defer c.wg.Done()

	for {
		if ctx.Err() != nil {
			c.logger.Info("order stream consumer stopped")
			return
		}

		streams, err := c.client.XReadGroup(ctx, &goRedis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			Streams:  []string{c.cfg.Key, ">"},
			Count:    int64(c.cfg.ReadCount),
			Block:    c.cfg.BlockTime,
		}).Result()
		if err != nil {
			if errors.Is(err, goRedis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				c.logger.Info("order stream consumer stopped")
				return
			}
			c.logger.Error("stream read failed", zap.Error(err))
			if !c.sleep(ctx, c.cfg.RetryDelay) {
				return
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				if ctx.Err() != nil {
					return
				}
				c.process(ctx, msg)
			}
		}
	}
}

// process applies one entry. Invalid events and events for unknown customers
// are acknowledged and dropped; infrastructure failures are retried in place
// so ordering within the entry is preserved.
func (c *Consumer) process(ctx context.Context, msg goRedis.XMessage) {
	event := ParseOrderEvent(msg.Values)
	if err := event.Validate(); err != nil {
		c.logger.Warn("discarding invalid order event",
			zap.String("entry_id", msg.ID),
			zap.Error(err))
		c.metrics.EventConsumed(metrics.ResultInvalid)
		c.ack(ctx, msg.ID)
		return
	}

	for {
		created, err := c.apply(ctx, event)
		if err == nil {
			if created {
				c.logger.Info("order recorded",
					zap.String("order_reference", event.OrderReference),
					zap.String("customer_id", event.CustomerID))
				c.metrics.EventConsumed(metrics.ResultApplied)
			} else {
				c.logger.Info("duplicate order event acknowledged",
					zap.String("order_reference", event.OrderReference))
				c.metrics.EventConsumed(metrics.ResultDuplicate)
			}
			c.ack(ctx, msg.ID)
			return
		}

		if errors.Is(err, domain.ErrCustomerNotFound) {
			c.logger.Warn("discarding order event for unknown customer",
				zap.String("entry_id", msg.ID),
				zap.String("customer_id", event.CustomerID))
			c.metrics.EventConsumed(metrics.ResultInvalid)
			c.ack(ctx, msg.ID)
			return
		}

		c.logger.Error("order event apply failed, retrying",
			zap.String("entry_id", msg.ID),
			zap.String("order_reference", event.OrderReference),
			zap.Error(err))
		if !c.sleep(ctx, c.cfg.RetryDelay) {
			return
		}
	}
}

// apply enriches the event lines with catalog prices and records the order.
func (c *Consumer) apply(ctx context.Context, event *OrderEvent) (bool, error) {
	ids := make([]string, 0, len(event.Lines))
	for _, line := range event.Lines {
		if line.Price == 0 {
			ids = append(ids, line.ProductID)
		}
	}

	var prices map[string]float64
	if len(ids) > 0 {
		var err error
		prices, err = c.products.Prices(ctx, ids)
		if err != nil {
			return false, err
		}
	}

	lines := make([]domain.OrderLine, 0, len(event.Lines))
	for _, line := range event.Lines {
		price := line.Price
		if price == 0 {
			price = prices[line.ProductID]
		}
		lines = append(lines, domain.OrderLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     price,
		})
	}

	order := &domain.Order{
		CustomerID:     event.CustomerID,
		Lines:          lines,
		TotalAmount:    event.TotalAmount,
		Status:         domain.OrderPending,
		OrderReference: event.OrderReference,
		CreatedAt:      event.Timestamp,
	}
	return c.orders.Record(ctx, order)
}

func (c *Consumer) ack(ctx context.Context, entryID string) {
	if err := c.client.XAck(ctx, c.cfg.Key, c.cfg.Group, entryID).Err(); err != nil {
		c.logger.Error("stream ack failed",
			zap.String("entry_id", entryID),
			zap.Error(err))
	}
}

func (c *Consumer) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
