package repository

import (
	"context"

	"github.com/minicrm/backend/domain"
)

type OrderRepository interface {
	// Record persists the order and applies the owning customer's aggregate
	// update as one atomic unit. The unique order reference is the dedup
	// guard: a redelivered event returns (false, nil) and changes nothing.
	Record(ctx context.Context, order *domain.Order) (created bool, err error)
	GetByReference(ctx context.Context, reference string) (*domain.Order, error)
	CountByCustomer(ctx context.Context, customerID string) (int, error)
}
