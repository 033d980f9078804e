package repository

import (
	"context"

	"github.com/minicrm/backend/domain"
)

type SegmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Segment, error)
	Create(ctx context.Context, segment *domain.Segment) (*domain.Segment, error)
	List(ctx context.Context, limit, offset int) ([]domain.Segment, error)
}
