package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/internal/infrastructure/metrics"
	"github.com/minicrm/backend/internal/vendorapi"
	"github.com/minicrm/backend/repository"
)

// OutcomeSink receives per-record delivery outcomes for batched application.
type OutcomeSink interface {
	AddOutcome(ctx context.Context, recordID string, outcome domain.DeliveryStatus) error
}

// ProcessorConfig controls how the delivery queue is drained.
type ProcessorConfig struct {
	Interval        time.Duration
	BatchSize       int
	MaxAttempts     int
	ProcessingLease time.Duration
}

// QueueProcessor polls the delivery queue, renders each owed message and
// submits it to the vendor. Outcomes flow into the sink; the synchronous
// result is authoritative and the vendor's delayed receipt only duplicates it.
type QueueProcessor struct {
	queue     repository.QueueRepository
	delivery  repository.DeliveryRepository
	customers repository.CustomerRepository
	sender    vendorapi.Sender
	receipts  vendorapi.ReceiptPusher
	sink      OutcomeSink
	metrics   *metrics.Metrics
	logger    *zap.Logger
	cron      *cron.Cron
	cfg       ProcessorConfig
}

func NewQueueProcessor(
	queue repository.QueueRepository,
	delivery repository.DeliveryRepository,
	customers repository.CustomerRepository,
	sender vendorapi.Sender,
	receipts vendorapi.ReceiptPusher,
	sink OutcomeSink,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *QueueProcessor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ProcessingLease <= 0 {
		cfg.ProcessingLease = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	qp := &QueueProcessor{
		queue:     queue,
		delivery:  delivery,
		customers: customers,
		sender:    sender,
		receipts:  receipts,
		sink:      sink,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(cron.WithSeconds()),
	}

	// A pass may outlive the poll interval while the vendor is slow, so the
	// drain timeout is decoupled from the schedule.
	drainTimeout := 6 * cfg.Interval
	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = qp.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := qp.Drain(ctx); err != nil {
			qp.logger.Error("delivery queue drain failed", zap.Error(err))
		}
	})

	return qp
}

func (qp *QueueProcessor) Start() {
	qp.cron.Start()
	qp.logger.Info("delivery queue processor started",
		zap.Duration("interval", qp.cfg.Interval),
		zap.Int("batch_size", qp.cfg.BatchSize))
}

func (qp *QueueProcessor) Stop() {
	ctx := qp.cron.Stop()
	<-ctx.Done()
	qp.logger.Info("delivery queue processor stopped")
}

// Drain runs one pass: reclaim expired claims, claim a batch and process each
// item. Per-item failures are classified here so one bad item never stalls
// the batch.
func (qp *QueueProcessor) Drain(ctx context.Context) error {
	reclaimed, err := qp.queue.ReleaseStale(ctx, qp.cfg.ProcessingLease)
	if err != nil {
		return err
	}
	if reclaimed > 0 {
		qp.logger.Warn("reclaimed stale queue items", zap.Int("count", reclaimed))
	}

	items, err := qp.queue.Claim(ctx, qp.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	qp.logger.Debug("claimed delivery queue items", zap.Int("count", len(items)))

	for _, item := range items {
		if ctx.Err() != nil {
			// Remaining claims go back via the stale reaper.
			return ctx.Err()
		}
		if err := qp.processItem(ctx, item); err != nil {
			qp.fail(ctx, item, err)
		}
	}
	return nil
}

func (qp *QueueProcessor) processItem(ctx context.Context, item domain.QueueItem) error {
	record, err := qp.delivery.GetRecord(ctx, item.RecordID)
	if errors.Is(err, domain.ErrRecordNotFound) {
		qp.logger.Error("queue item points at missing record",
			zap.String("item_id", item.ID),
			zap.String("record_id", item.RecordID))
		if err := qp.queue.Fail(ctx, item.ID); err != nil {
			return err
		}
		qp.metrics.QueueItemProcessed(metrics.ResultFailed)
		return nil
	}
	if err != nil {
		return err
	}

	// A record already resolved by an earlier attempt means this claim is a
	// duplicate; retire the item without touching the vendor.
	if record.Status != domain.DeliveryQueued {
		if err := qp.queue.Complete(ctx, item.ID); err != nil {
			return err
		}
		qp.metrics.QueueItemProcessed(metrics.ResultCompleted)
		return nil
	}

	name := ""
	customer, err := qp.customers.GetByID(ctx, record.CustomerID)
	switch {
	case err == nil:
		name = customer.Name
	case errors.Is(err, domain.ErrCustomerNotFound):
		// Recipient deleted after scheduling; send with the fallback name.
	default:
		return err
	}

	if err := qp.delivery.MarkAttempt(ctx, record.ID); err != nil {
		return err
	}

	result, err := qp.sender.Send(ctx, record.CustomerID, record.Render(name))
	if err != nil {
		return err
	}

	outcome := domain.DeliverySent
	if !result.Success {
		outcome = domain.DeliveryFailed
	}

	if err := qp.sink.AddOutcome(ctx, record.ID, outcome); err != nil {
		return err
	}
	qp.metrics.MessageOutcome(string(outcome))

	if qp.receipts != nil {
		qp.receipts.PushReceipt(record.ID, outcome, result)
	}

	if err := qp.queue.Complete(ctx, item.ID); err != nil {
		return err
	}
	qp.metrics.QueueItemProcessed(metrics.ResultCompleted)
	return nil
}

// fail decides between retry and terminal failure based on the attempt count
// the claim already incremented.
func (qp *QueueProcessor) fail(ctx context.Context, item domain.QueueItem, cause error) {
	if item.ProcessingAttempts >= qp.cfg.MaxAttempts {
		qp.logger.Warn("queue item exhausted its attempts",
			zap.String("item_id", item.ID),
			zap.String("record_id", item.RecordID),
			zap.Int("attempts", item.ProcessingAttempts),
			zap.Error(cause))
		if err := qp.queue.Fail(ctx, item.ID); err != nil {
			qp.logger.Error("queue item fail write lost", zap.String("item_id", item.ID), zap.Error(err))
			return
		}
		qp.metrics.QueueItemProcessed(metrics.ResultFailed)
		return
	}

	qp.logger.Error("queue item processing failed, will retry",
		zap.String("item_id", item.ID),
		zap.String("record_id", item.RecordID),
		zap.Int("attempts", item.ProcessingAttempts),
		zap.Error(cause))
	if err := qp.queue.Release(ctx, item.ID); err != nil {
		qp.logger.Error("queue item release lost", zap.String("item_id", item.ID), zap.Error(err))
		return
	}
	qp.metrics.QueueItemProcessed(metrics.ResultRetried)
}
