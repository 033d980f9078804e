package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/repository"
)

type orderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns a Postgres-backed implementation of OrderRepository.
func NewOrderRepository(pool *pgxpool.Pool) repository.OrderRepository {
	return &orderRepository{pool: pool}
}

// Record inserts the order and applies the customer aggregate update in one
// transaction. The unique order_reference constraint is the idempotency
// guard: a redelivered event conflicts on insert and leaves the customer
// aggregate untouched.
func (r *orderRepository) Record(ctx context.Context, order *domain.Order) (bool, error) {
	if order == nil || order.CustomerID == "" || order.OrderReference == "" {
		return false, domain.ErrInvalidPayload
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.Status == "" {
		order.Status = domain.OrderPending
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	const insertOrder = `
	INSERT INTO orders (id, customer_id, products, total_amount, status, order_reference, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (order_reference) DO NOTHING
	`
	tag, err := tx.Exec(ctx, insertOrder,
		order.ID,
		order.CustomerID,
		marshalJSON(order.Lines),
		order.TotalAmount,
		order.Status,
		order.OrderReference,
		order.CreatedAt,
	)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		// Already applied by a previous delivery of the same event.
		return false, nil
	}

	now := time.Now()
	historyEntry := marshalJSON([]domain.OrderHistoryEntry{{
		OrderID: order.ID,
		Amount:  order.TotalAmount,
		Date:    now,
		Items:   order.ItemIDs(),
	}})

	const updateCustomer = `
	UPDATE customers
	SET order_count = order_count + 1,
		total_spent = total_spent + $2,
		total_order_value = total_order_value + $2,
		last_ordered = $3,
		last_active = $3,
		first_purchase_date = COALESCE(first_purchase_date, $3),
		order_history = order_history || $4::jsonb
	WHERE id = $1
	`
	tag, err = tx.Exec(ctx, updateCustomer, order.CustomerID, order.TotalAmount, now, historyEntry)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, domain.ErrCustomerNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *orderRepository) GetByReference(ctx context.Context, reference string) (*domain.Order, error) {
	const query = `
	SELECT id, customer_id, products, total_amount, status, order_reference, created_at
	FROM orders
	WHERE order_reference = $1
	`
	var (
		order domain.Order
		lines []byte
	)
	if err := r.pool.QueryRow(ctx, query, reference).Scan(
		&order.ID,
		&order.CustomerID,
		&lines,
		&order.TotalAmount,
		&order.Status,
		&order.OrderReference,
		&order.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	if len(lines) > 0 {
		_ = json.Unmarshal(lines, &order.Lines)
	}
	return &order, nil
}

func (r *orderRepository) CountByCustomer(ctx context.Context, customerID string) (int, error) {
	const query = `SELECT COUNT(*) FROM orders WHERE customer_id = $1`

	var count int
	if err := r.pool.QueryRow(ctx, query, customerID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
