// Package catalog manages customers, products and segments.
package catalog

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/internal/segment"
	"github.com/minicrm/backend/repository"
)

type UseCase struct {
	customers repository.CustomerRepository
	products  repository.ProductRepository
	segments  repository.SegmentRepository
	logger    *zap.Logger
}

func New(
	customers repository.CustomerRepository,
	products repository.ProductRepository,
	segments repository.SegmentRepository,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		customers: customers,
		products:  products,
		segments:  segments,
		logger:    logger,
	}
}

func (uc *UseCase) CreateCustomer(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	if customer.Email == "" {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "customer requires an email", nil)
	}
	return uc.customers.Create(ctx, customer)
}

func (uc *UseCase) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return uc.customers.GetByID(ctx, id)
}

func (uc *UseCase) ListCustomers(ctx context.Context, limit, offset int) ([]domain.Customer, error) {
	return uc.customers.List(ctx, limit, offset)
}

func (uc *UseCase) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	if product.Name == "" {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "product requires a name", nil)
	}
	if product.Price < 0 {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "product price must not be negative", nil)
	}
	return uc.products.Create(ctx, product)
}

func (uc *UseCase) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return uc.products.GetByID(ctx, id)
}

func (uc *UseCase) ListProducts(ctx context.Context, limit, offset int) ([]domain.Product, error) {
	return uc.products.List(ctx, limit, offset)
}

// CreateSegment compiles the rule tree before persisting so malformed rules
// are rejected at write time rather than at campaign scheduling.
func (uc *UseCase) CreateSegment(ctx context.Context, seg *domain.Segment) (*domain.Segment, error) {
	if seg.Name == "" {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "segment requires a name", nil)
	}
	if _, err := segment.Compile(seg.Rules); err != nil {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "segment rules are not valid", err)
	}
	return uc.segments.Create(ctx, seg)
}

func (uc *UseCase) GetSegment(ctx context.Context, id string) (*domain.Segment, error) {
	return uc.segments.GetByID(ctx, id)
}

func (uc *UseCase) ListSegments(ctx context.Context, limit, offset int) ([]domain.Segment, error) {
	return uc.segments.List(ctx, limit, offset)
}

// PreviewAudience counts the customers a rule tree currently selects.
func (uc *UseCase) PreviewAudience(ctx context.Context, rules json.RawMessage) (int, error) {
	filter, err := segment.Compile(rules)
	if err != nil {
		return 0, domain.WrapError(domain.ErrCodeInvalid, "segment rules are not valid", err)
	}
	return uc.customers.CountMatch(ctx, filter)
}
