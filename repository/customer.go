package repository

import (
	"context"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/internal/segment"
)

type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	Create(ctx context.Context, customer *domain.Customer) (*domain.Customer, error)
	List(ctx context.Context, limit, offset int) ([]domain.Customer, error)
	// Match resolves a compiled segment filter into the audience it selects.
	Match(ctx context.Context, filter segment.Filter) ([]domain.Customer, error)
	CountMatch(ctx context.Context, filter segment.Filter) (int, error)
}
