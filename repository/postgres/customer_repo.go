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
	"github.com/minicrm/backend/internal/segment"
	"github.com/minicrm/backend/repository"
)

const customerColumns = `
	id, name, email, login_count, visit_count, order_count,
	total_spent, total_order_value, last_active, last_ordered,
	first_purchase_date, order_history, is_inactive, created_at`

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a Postgres-backed implementation of CustomerRepository.
func NewCustomerRepository(pool *pgxpool.Pool) repository.CustomerRepository {
	return &customerRepository{pool: pool}
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	const query = `SELECT` + customerColumns + ` FROM customers WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanCustomer(row)
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) (*domain.Customer, error) {
	if customer == nil || customer.Email == "" {
		return nil, domain.ErrInvalidPayload
	}
	if customer.ID == "" {
		customer.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO customers (id, name, email, login_count, visit_count, last_active, is_inactive)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING created_at
	`

	lastActive := customer.LastActive
	if lastActive.IsZero() {
		lastActive = time.Now()
	}

	if err := r.pool.QueryRow(ctx, query,
		customer.ID,
		customer.Name,
		customer.Email,
		customer.LoginCount,
		customer.VisitCount,
		lastActive,
		customer.IsInactive,
	).Scan(&customer.CreatedAt); err != nil {
		return nil, err
	}
	customer.LastActive = lastActive

	return customer, nil
}

func (r *customerRepository) List(ctx context.Context, limit, offset int) ([]domain.Customer, error) {
	const query = `SELECT` + customerColumns + `
	FROM customers
	ORDER BY created_at DESC
	LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, clampLimit(limit), offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCustomers(rows)
}

func (r *customerRepository) Match(ctx context.Context, filter segment.Filter) ([]domain.Customer, error) {
	where := filter.Where
	if where == "" {
		where = "TRUE"
	}

	query := `SELECT` + customerColumns + ` FROM customers WHERE ` + where + ` ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, filter.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectCustomers(rows)
}

func (r *customerRepository) CountMatch(ctx context.Context, filter segment.Filter) (int, error) {
	where := filter.Where
	if where == "" {
		where = "TRUE"
	}

	var count int
	query := `SELECT COUNT(*) FROM customers WHERE ` + where
	if err := r.pool.QueryRow(ctx, query, filter.Args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func collectCustomers(rows pgx.Rows) ([]domain.Customer, error) {
	var customers []domain.Customer
	for rows.Next() {
		customer, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *customer)
	}
	return customers, rows.Err()
}

func scanCustomer(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Customer, error) {
	var customer domain.Customer
	var (
		firstPurchase *time.Time
		history       []byte
	)

	if err := row.Scan(
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.LoginCount,
		&customer.VisitCount,
		&customer.OrderCount,
		&customer.TotalSpent,
		&customer.TotalOrderValue,
		&customer.LastActive,
		&customer.LastOrdered,
		&firstPurchase,
		&history,
		&customer.IsInactive,
		&customer.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}

	customer.FirstPurchaseDate = firstPurchase
	if len(history) > 0 {
		_ = json.Unmarshal(history, &customer.OrderHistory)
	}

	return &customer, nil
}
