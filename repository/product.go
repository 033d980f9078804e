package repository

import (
	"context"

	"github.com/minicrm/backend/domain"
)

type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	List(ctx context.Context, limit, offset int) ([]domain.Product, error)
	// Prices resolves current unit prices for the given product ids in one query.
	// Unknown ids are absent from the result rather than an error.
	Prices(ctx context.Context, ids []string) (map[string]float64, error)
}
