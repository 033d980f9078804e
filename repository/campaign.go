package repository

import (
	"context"

	"github.com/minicrm/backend/domain"
)

type CampaignRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)
	Create(ctx context.Context, campaign *domain.Campaign) (*domain.Campaign, error)
	List(ctx context.Context, limit, offset int) ([]domain.Campaign, error)
	// MarkScheduled performs the draft -> scheduled transition and sets the
	// audience size. It reports false when the campaign was not in draft,
	// which makes it the idempotency claim for queue production.
	MarkScheduled(ctx context.Context, id string, audienceSize int) (bool, error)
	// RevertSchedule undoes a scheduled claim whose fan-out never produced
	// records, returning the campaign to draft so scheduling can be retried.
	RevertSchedule(ctx context.Context, id string) error
	// IncrementCounter adds n to sent_count or failed_count in one atomic update.
	IncrementCounter(ctx context.Context, id string, outcome domain.DeliveryStatus, n int) error
	// MarkSentIfResolved flips scheduled -> sent once every recipient reached
	// a terminal state. Reports whether the transition happened.
	MarkSentIfResolved(ctx context.Context, id string) (bool, error)
}
