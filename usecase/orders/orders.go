// Package orders accepts order placements and hands them to the event log.
// Orders are not written here; the stream consumer owns the store write.
package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/internal/stream"
	"github.com/minicrm/backend/repository"
)

// EventPublisher appends an order event to the log.
type EventPublisher interface {
	Publish(ctx context.Context, event *stream.OrderEvent) (string, error)
}

// PlaceOrderInput is the validated intent of one order placement.
type PlaceOrderInput struct {
	CustomerID  string
	Lines       []domain.OrderLine
	TotalAmount float64
}

// Receipt acknowledges an accepted order. Acceptance means the event is in
// the log, not that the order is queryable yet.
type Receipt struct {
	OrderReference string    `json:"order_reference"`
	EntryID        string    `json:"entry_id"`
	AcceptedAt     time.Time `json:"accepted_at"`
}

type UseCase struct {
	customers repository.CustomerRepository
	products  repository.ProductRepository
	orders    repository.OrderRepository
	publisher EventPublisher
	logger    *zap.Logger
}

func New(
	customers repository.CustomerRepository,
	products repository.ProductRepository,
	orders repository.OrderRepository,
	publisher EventPublisher,
	logger *zap.Logger,
) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		customers: customers,
		products:  products,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
	}
}

// PlaceOrder validates the placement, enriches line prices from the catalog
// and publishes the event.
func (uc *UseCase) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*Receipt, error) {
	if input.CustomerID == "" {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "order requires a customer id", nil)
	}
	if len(input.Lines) == 0 {
		return nil, domain.WrapError(domain.ErrCodeInvalid, "order requires at least one product", nil)
	}
	for _, line := range input.Lines {
		if line.ProductID == "" {
			return nil, domain.WrapError(domain.ErrCodeInvalid, "order line requires a product id", nil)
		}
		if line.Quantity <= 0 {
			return nil, domain.WrapError(domain.ErrCodeInvalid, "order line quantity must be positive", nil)
		}
	}

	if _, err := uc.customers.GetByID(ctx, input.CustomerID); err != nil {
		return nil, err
	}

	lines, total, err := uc.enrich(ctx, input.Lines)
	if err != nil {
		return nil, err
	}
	if input.TotalAmount > 0 {
		total = input.TotalAmount
	}

	event := &stream.OrderEvent{
		CustomerID:     input.CustomerID,
		TotalAmount:    total,
		OrderReference: "order_" + uuid.NewString(),
		Timestamp:      time.Now(),
	}
	for _, line := range lines {
		event.Lines = append(event.Lines, stream.EventLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	entryID, err := uc.publisher.Publish(ctx, event)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("order accepted",
		zap.String("order_reference", event.OrderReference),
		zap.String("customer_id", input.CustomerID),
		zap.String("entry_id", entryID))

	return &Receipt{
		OrderReference: event.OrderReference,
		EntryID:        entryID,
		AcceptedAt:     event.Timestamp,
	}, nil
}

// GetOrder reads an already applied order by its reference.
func (uc *UseCase) GetOrder(ctx context.Context, reference string) (*domain.Order, error) {
	return uc.orders.GetByReference(ctx, reference)
}

func (uc *UseCase) enrich(ctx context.Context, input []domain.OrderLine) ([]domain.OrderLine, float64, error) {
	ids := make([]string, 0, len(input))
	for _, line := range input {
		if line.Price == 0 {
			ids = append(ids, line.ProductID)
		}
	}

	var prices map[string]float64
	if len(ids) > 0 {
		var err error
		prices, err = uc.products.Prices(ctx, ids)
		if err != nil {
			return nil, 0, err
		}
	}

	lines := make([]domain.OrderLine, 0, len(input))
	var total float64
	for _, line := range input {
		if line.Price == 0 {
			line.Price = prices[line.ProductID]
		}
		total += line.Price * float64(line.Quantity)
		lines = append(lines, line)
	}
	return lines, total, nil
}
