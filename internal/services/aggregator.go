package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/internal/infrastructure/metrics"
	"github.com/minicrm/backend/repository"
)

// AggregatorConfig controls how batch updates are flushed.
type AggregatorConfig struct {
	Interval   time.Duration
	ClaimLimit int
	Capacity   int
}

// BatchAggregator accumulates delivery outcomes into batch updates and flushes
// them: terminal record writes in bulk, then campaign counters once per batch.
// The batch's completed transition fences the counter increment, so a crashed
// flush retried later can rewrite records (idempotent) but never double-credit
// a campaign.
type BatchAggregator struct {
	batches   repository.BatchRepository
	delivery  repository.DeliveryRepository
	campaigns repository.CampaignRepository
	metrics   *metrics.Metrics
	logger    *zap.Logger
	cron      *cron.Cron
	cfg       AggregatorConfig
}

func NewBatchAggregator(
	batches repository.BatchRepository,
	delivery repository.DeliveryRepository,
	campaigns repository.CampaignRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg AggregatorConfig,
) *BatchAggregator {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.ClaimLimit <= 0 {
		cfg.ClaimLimit = 5
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = domain.BatchCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ba := &BatchAggregator{
		batches:   batches,
		delivery:  delivery,
		campaigns: campaigns,
		metrics:   m,
		logger:    logger,
		cfg:       cfg,
		cron:      cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = ba.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := ba.Flush(ctx); err != nil {
			ba.logger.Error("batch flush failed", zap.Error(err))
		}
	})

	return ba
}

func (ba *BatchAggregator) Start() {
	ba.cron.Start()
	ba.logger.Info("batch aggregator started",
		zap.Duration("interval", ba.cfg.Interval),
		zap.Int("claim_limit", ba.cfg.ClaimLimit),
		zap.Int("capacity", ba.cfg.Capacity))
}

func (ba *BatchAggregator) Stop() {
	ctx := ba.cron.Stop()
	<-ctx.Done()
	ba.logger.Info("batch aggregator stopped")
}

// AddOutcome records one terminal outcome for later bulk application.
func (ba *BatchAggregator) AddOutcome(ctx context.Context, recordID string, outcome domain.DeliveryStatus) error {
	if recordID == "" {
		return domain.WrapError(domain.ErrCodeInvalid, "outcome requires a record id", nil)
	}
	if outcome != domain.DeliverySent && outcome != domain.DeliveryFailed {
		return domain.WrapError(domain.ErrCodeInvalid, "outcome must be terminal", nil)
	}
	return ba.batches.Append(ctx, recordID, outcome, ba.cfg.Capacity)
}

// Flush claims pending batches and applies each one. A failed batch is
// released back to pending; the others still go through.
func (ba *BatchAggregator) Flush(ctx context.Context) error {
	claimed, err := ba.batches.Claim(ctx, ba.cfg.ClaimLimit)
	if err != nil {
		return err
	}
	if len(claimed) == 0 {
		return nil
	}

	for _, batch := range claimed {
		if err := ba.applyBatch(ctx, batch); err != nil {
			ba.logger.Error("batch apply failed",
				zap.String("batch_id", batch.ID),
				zap.Int("size", len(batch.RecordIDs)),
				zap.Error(err))
			if relErr := ba.batches.Release(ctx, batch.ID); relErr != nil {
				ba.logger.Error("batch release lost",
					zap.String("batch_id", batch.ID),
					zap.Error(relErr))
			}
		}
	}
	return nil
}

func (ba *BatchAggregator) applyBatch(ctx context.Context, batch domain.BatchUpdate) error {
	transitioned, err := ba.delivery.SetStatus(ctx, batch.RecordIDs, batch.Outcome, time.Now())
	if err != nil {
		return err
	}

	won, err := ba.batches.Complete(ctx, batch.ID)
	if err != nil {
		return err
	}
	if !won {
		ba.logger.Warn("batch already completed elsewhere, skipping counters",
			zap.String("batch_id", batch.ID))
		return nil
	}

	ba.metrics.BatchApplied(len(transitioned))
	if len(transitioned) == 0 {
		return nil
	}

	// The campaign to credit comes from a representative member; batches are
	// per-outcome and in practice per-campaign run.
	rep, err := ba.delivery.GetRecord(ctx, transitioned[0])
	if err != nil {
		return err
	}

	if err := ba.campaigns.IncrementCounter(ctx, rep.CampaignID, batch.Outcome, len(transitioned)); err != nil {
		return err
	}

	done, err := ba.campaigns.MarkSentIfResolved(ctx, rep.CampaignID)
	if err != nil {
		return err
	}
	if done {
		ba.logger.Info("campaign fully resolved", zap.String("campaign_id", rep.CampaignID))
	}

	ba.logger.Debug("batch applied",
		zap.String("batch_id", batch.ID),
		zap.String("outcome", string(batch.Outcome)),
		zap.Int("records", len(transitioned)))
	return nil
}
