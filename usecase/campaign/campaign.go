// Package campaign manages campaign lifecycle and reporting.
package campaign

import (
	"context"

	"go.uber.org/zap"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/repository"
)

// Scheduler fans a draft campaign out into delivery work.
type Scheduler interface {
	Schedule(ctx context.Context, campaignID string) (*domain.Campaign, error)
}

// Stats combines the campaign's own counters with the live per-status record
// counts, which can run ahead of the batched counters.
type Stats struct {
	Campaign *domain.Campaign              `json:"campaign"`
	Records  map[domain.DeliveryStatus]int `json:"records"`
}

type UseCase struct {
	campaigns repository.CampaignRepository
	segments  repository.SegmentRepository
	delivery  repository.DeliveryRepository
	scheduler Scheduler
	logger    *zap.Logger
}

func New(
	campaigns repository.CampaignRepository,
	segments repository.SegmentRepository,
	delivery repository.DeliveryRepository,
	scheduler Scheduler,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		campaigns: campaigns,
		segments:  segments,
		delivery:  delivery,
		scheduler: scheduler,
		logger:    logger,
	}
}

// CreateCampaign persists a draft. The segment must exist; an empty message
// falls back to the default template.
func (uc *UseCase) CreateCampaign(ctx context.Context, campaign *domain.Campaign) (*domain.Campaign, error) {
	if campaign.Name == "" {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "campaign requires a name", nil)
	}
	if campaign.SegmentID == "" {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "campaign requires a segment id", nil)
	}
	if _, err := uc.segments.GetByID(ctx, campaign.SegmentID); err != nil {
		return nil, err
	}
	if campaign.Message == "" {
		campaign.Message = domain.DefaultMessageTemplate
	}
	campaign.Status = domain.CampaignDraft
	return uc.campaigns.Create(ctx, campaign)
}

func (uc *UseCase) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	return uc.campaigns.GetByID(ctx, id)
}

func (uc *UseCase) ListCampaigns(ctx context.Context, limit, offset int) ([]domain.Campaign, error) {
	return uc.campaigns.List(ctx, limit, offset)
}

// ScheduleCampaign triggers delivery for a draft campaign.
func (uc *UseCase) ScheduleCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	return uc.scheduler.Schedule(ctx, id)
}

// CampaignStats reports delivery progress for one campaign.
func (uc *UseCase) CampaignStats(ctx context.Context, id string) (*Stats, error) {
	campaign, err := uc.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := uc.delivery.StatusCounts(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Stats{Campaign: campaign, Records: counts}, nil
}
