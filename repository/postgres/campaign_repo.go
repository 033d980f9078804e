package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/repository"
)

type campaignRepository struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository returns a Postgres-backed implementation of CampaignRepository.
func NewCampaignRepository(pool *pgxpool.Pool) repository.CampaignRepository {
	return &campaignRepository{pool: pool}
}

func (r *campaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	const query = `
	SELECT id, name, segment_id, message_template, audience_size, sent_count, failed_count, status, created_at
	FROM campaigns
	WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, id)
	return scanCampaign(row)
}

func (r *campaignRepository) Create(ctx context.Context, campaign *domain.Campaign) (*domain.Campaign, error) {
	if campaign == nil || campaign.Name == "" || campaign.SegmentID == "" {
		return nil, domain.ErrInvalidPayload
	}
	if campaign.ID == "" {
		campaign.ID = uuid.NewString()
	}
	if campaign.Message == "" {
		campaign.Message = domain.DefaultMessageTemplate
	}
	if campaign.Status == "" {
		campaign.Status = domain.CampaignDraft
	}

	const query = `
	INSERT INTO campaigns (id, name, segment_id, message_template, status)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at
	`
	if err := r.pool.QueryRow(ctx, query,
		campaign.ID,
		campaign.Name,
		campaign.SegmentID,
		campaign.Message,
		campaign.Status,
	).Scan(&campaign.CreatedAt); err != nil {
		return nil, err
	}
	return campaign, nil
}

func (r *campaignRepository) List(ctx context.Context, limit, offset int) ([]domain.Campaign, error) {
	const query = `
	SELECT id, name, segment_id, message_template, audience_size, sent_count, failed_count, status, created_at
	FROM campaigns
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []domain.Campaign
	for rows.Next() {
		campaign, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *campaign)
	}
	return campaigns, rows.Err()
}

func (r *campaignRepository) MarkScheduled(ctx context.Context, id string, audienceSize int) (bool, error) {
	const query = `
	UPDATE campaigns
	SET status = 'scheduled', audience_size = $2
	WHERE id = $1 AND status = 'draft'
	`
	tag, err := r.pool.Exec(ctx, query, id, audienceSize)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *campaignRepository) RevertSchedule(ctx context.Context, id string) error {
	const query = `
	UPDATE campaigns
	SET status = 'draft', audience_size = 0
	WHERE id = $1 AND status = 'scheduled' AND sent_count = 0 AND failed_count = 0
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

func (r *campaignRepository) IncrementCounter(ctx context.Context, id string, outcome domain.DeliveryStatus, n int) error {
	if n <= 0 {
		return nil
	}

	query := `UPDATE campaigns SET failed_count = failed_count + $2 WHERE id = $1`
	if outcome == domain.DeliverySent {
		query = `UPDATE campaigns SET sent_count = sent_count + $2 WHERE id = $1`
	}

	tag, err := r.pool.Exec(ctx, query, id, n)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCampaignNotFound
	}
	return nil
}

func (r *campaignRepository) MarkSentIfResolved(ctx context.Context, id string) (bool, error) {
	const query = `
	UPDATE campaigns
	SET status = 'sent'
	WHERE id = $1
	  AND status = 'scheduled'
	  AND audience_size > 0
	  AND sent_count + failed_count >= audience_size
	`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanCampaign(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Campaign, error) {
	var campaign domain.Campaign
	if err := row.Scan(
		&campaign.ID,
		&campaign.Name,
		&campaign.SegmentID,
		&campaign.Message,
		&campaign.AudienceSize,
		&campaign.SentCount,
		&campaign.FailedCount,
		&campaign.Status,
		&campaign.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCampaignNotFound
		}
		return nil, err
	}
	return &campaign, nil
}
