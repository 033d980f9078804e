package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/internal/segment"
	"github.com/minicrm/backend/internal/stream"
)

type customerStub struct {
	known map[string]bool
}

func (s *customerStub) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	if !s.known[id] {
		return nil, domain.ErrCustomerNotFound
	}
	return &domain.Customer{ID: id, Name: "Ada"}, nil
}

func (s *customerStub) Create(_ context.Context, customer *domain.Customer) (*domain.Customer, error) {
	return customer, nil
}

func (s *customerStub) List(_ context.Context, _, _ int) ([]domain.Customer, error) {
	return nil, nil
}

func (s *customerStub) Match(_ context.Context, _ segment.Filter) ([]domain.Customer, error) {
	return nil, nil
}

func (s *customerStub) CountMatch(_ context.Context, _ segment.Filter) (int, error) {
	return 0, nil
}

type productStub struct {
	prices map[string]float64
}

func (s *productStub) GetByID(_ context.Context, _ string) (*domain.Product, error) {
	return nil, domain.ErrProductNotFound
}

func (s *productStub) Create(_ context.Context, product *domain.Product) (*domain.Product, error) {
	return product, nil
}

func (s *productStub) List(_ context.Context, _, _ int) ([]domain.Product, error) {
	return nil, nil
}

func (s *productStub) Prices(_ context.Context, ids []string) (map[string]float64, error) {
	out := map[string]float64{}
	for _, id := range ids {
		if price, ok := s.prices[id]; ok {
			out[id] = price
		}
	}
	return out, nil
}

type orderStub struct{}

func (orderStub) Record(_ context.Context, _ *domain.Order) (bool, error) { return false, nil }

func (orderStub) GetByReference(_ context.Context, _ string) (*domain.Order, error) {
	return nil, domain.ErrOrderNotFound
}

func (orderStub) CountByCustomer(_ context.Context, _ string) (int, error) { return 0, nil }

type publisherStub struct {
	published []*stream.OrderEvent
	err       error
}

func (s *publisherStub) Publish(_ context.Context, event *stream.OrderEvent) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.published = append(s.published, event)
	return "1-0", nil
}

func fixture(prices map[string]float64) (*UseCase, *publisherStub) {
	publisher := &publisherStub{}
	uc := New(
		&customerStub{known: map[string]bool{"cust-1": true}},
		&productStub{prices: prices},
		orderStub{},
		publisher,
		zap.NewNop(),
	)
	return uc, publisher
}

func TestPlaceOrderPublishesEnrichedEvent(t *testing.T) {
	uc, publisher := fixture(map[string]float64{"prod-1": 10, "prod-2": 4})

	receipt, err := uc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "cust-1",
		Lines: []domain.OrderLine{
			{ProductID: "prod-1", Quantity: 2},
			{ProductID: "prod-2", Quantity: 3},
		},
	})
	require.NoError(t, err)

	assert.Contains(t, receipt.OrderReference, "order_")
	assert.Equal(t, "1-0", receipt.EntryID)

	require.Len(t, publisher.published, 1)
	event := publisher.published[0]
	assert.Equal(t, "cust-1", event.CustomerID)
	assert.Equal(t, float64(32), event.TotalAmount)
	require.Len(t, event.Lines, 2)
	assert.Equal(t, float64(10), event.Lines[0].Price)
	assert.Equal(t, float64(4), event.Lines[1].Price)
}

func TestPlaceOrderKeepsDeclaredTotal(t *testing.T) {
	uc, publisher := fixture(map[string]float64{"prod-1": 10})

	_, err := uc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID:  "cust-1",
		Lines:       []domain.OrderLine{{ProductID: "prod-1", Quantity: 1}},
		TotalAmount: 8.5,
	})
	require.NoError(t, err)

	require.Len(t, publisher.published, 1)
	assert.Equal(t, 8.5, publisher.published[0].TotalAmount)
}

func TestPlaceOrderValidation(t *testing.T) {
	uc, publisher := fixture(nil)
	ctx := context.Background()

	cases := []PlaceOrderInput{
		{Lines: []domain.OrderLine{{ProductID: "prod-1", Quantity: 1}}},
		{CustomerID: "cust-1"},
		{CustomerID: "cust-1", Lines: []domain.OrderLine{{Quantity: 1}}},
		{CustomerID: "cust-1", Lines: []domain.OrderLine{{ProductID: "prod-1", Quantity: 0}}},
	}
	for _, input := range cases {
		_, err := uc.PlaceOrder(ctx, input)
		require.Error(t, err)
		assert.True(t, domain.IsDomainError(err, domain.ErrCodeInvalid))
	}
	assert.Empty(t, publisher.published)
}

func TestPlaceOrderUnknownCustomer(t *testing.T) {
	uc, publisher := fixture(nil)

	_, err := uc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "ghost",
		Lines:      []domain.OrderLine{{ProductID: "prod-1", Quantity: 1}},
	})
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)
	assert.Empty(t, publisher.published)
}

func TestPlaceOrderPublishFailure(t *testing.T) {
	uc, publisher := fixture(map[string]float64{"prod-1": 10})
	publisher.err = errors.New("stream unavailable")

	_, err := uc.PlaceOrder(context.Background(), PlaceOrderInput{
		CustomerID: "cust-1",
		Lines:      []domain.OrderLine{{ProductID: "prod-1", Quantity: 1}},
	})
	require.Error(t, err)
}
