package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/internal/segment"
	"github.com/minicrm/backend/repository"
)

// DeliveryProducer turns a draft campaign into queued work: it resolves the
// audience, claims the draft -> scheduled transition and materializes one
// delivery record plus one queue item per recipient.
type DeliveryProducer struct {
	campaigns repository.CampaignRepository
	segments  repository.SegmentRepository
	customers repository.CustomerRepository
	delivery  repository.DeliveryRepository
	logger    *zap.Logger
}

func NewDeliveryProducer(
	campaigns repository.CampaignRepository,
	segments repository.SegmentRepository,
	customers repository.CustomerRepository,
	delivery repository.DeliveryRepository,
	logger *zap.Logger,
) *DeliveryProducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeliveryProducer{
		campaigns: campaigns,
		segments:  segments,
		customers: customers,
		delivery:  delivery,
		logger:    logger,
	}
}

// Schedule fans the campaign out to its audience. The scheduled transition is
// the idempotency claim: a second call for the same campaign fails with a
// conflict and produces nothing.
func (p *DeliveryProducer) Schedule(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	campaign, err := p.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	seg, err := p.segments.GetByID(ctx, campaign.SegmentID)
	if err != nil {
		return nil, err
	}

	filter, err := segment.Compile(seg.Rules)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "segment rules are not valid", err)
	}

	audience, err := p.customers.Match(ctx, filter)
	if err != nil {
		return nil, err
	}

	claimed, err := p.campaigns.MarkScheduled(ctx, campaignID, len(audience))
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, domain.ErrAlreadyScheduled
	}

	records := make([]domain.DeliveryRecord, 0, len(audience))
	for _, customer := range audience {
		records = append(records, domain.DeliveryRecord{
			ID:         uuid.NewString(),
			CampaignID: campaign.ID,
			CustomerID: customer.ID,
			Message:    campaign.Message,
			Status:     domain.DeliveryQueued,
		})
	}

	if err := p.delivery.CreateBatch(ctx, records); err != nil {
		// Release the claim so a later Schedule call can retry the fan-out.
		if revertErr := p.campaigns.RevertSchedule(ctx, campaignID); revertErr != nil {
			p.logger.Error("campaign stuck scheduled without delivery records",
				zap.String("campaign_id", campaignID),
				zap.Error(revertErr))
		}
		return nil, err
	}

	p.logger.Info("campaign scheduled",
		zap.String("campaign_id", campaign.ID),
		zap.String("segment_id", campaign.SegmentID),
		zap.Int("audience_size", len(audience)))

	campaign.Status = domain.CampaignScheduled
	campaign.AudienceSize = len(audience)
	return campaign, nil
}
