package domain

import "time"

// Customer is the aggregate tracking a recipient's order and activity statistics.
// The order-derived fields (OrderCount, TotalSpent, TotalOrderValue, LastOrdered,
// FirstPurchaseDate, OrderHistory) are mutated only by the order stream consumer.
type Customer struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"`
	Email             string              `json:"email"`
	LoginCount        int                 `json:"login_count"`
	VisitCount        int                 `json:"visit_count"`
	OrderCount        int                 `json:"order_count"`
	TotalSpent        float64             `json:"total_spent"`
	TotalOrderValue   float64             `json:"total_order_value"`
	LastActive        time.Time           `json:"last_active"`
	LastOrdered       time.Time           `json:"last_ordered"`
	FirstPurchaseDate *time.Time          `json:"first_purchase_date,omitempty"`
	OrderHistory      []OrderHistoryEntry `json:"order_history,omitempty"`
	IsInactive        bool                `json:"is_inactive"`
	CreatedAt         time.Time           `json:"created_at"`
}

// OrderHistoryEntry is one append-only line in a customer's purchase history.
type OrderHistoryEntry struct {
	OrderID string    `json:"order_id"`
	Amount  float64   `json:"amount"`
	Date    time.Time `json:"date"`
	Items   []string  `json:"items"`
}

func (c *Customer) HasPurchased() bool {
	return c != nil && c.FirstPurchaseDate != nil
}
