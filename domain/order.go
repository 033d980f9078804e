package domain

import "time"

// OrderStatus enumerates the lifecycle of a persisted order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

// OrderLine is one product position with the unit price resolved at enrichment time.
type OrderLine struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order is the normalized record written by the stream consumer. Immutable
// after creation except for externally driven status transitions.
type Order struct {
	ID             string      `json:"id"`
	CustomerID     string      `json:"customer_id"`
	Lines          []OrderLine `json:"products"`
	TotalAmount    float64     `json:"total_amount"`
	Status         OrderStatus `json:"status"`
	OrderReference string      `json:"order_reference"`
	CreatedAt      time.Time   `json:"created_at"`
}

// ItemIDs lists the product ids of the order, in line order.
func (o *Order) ItemIDs() []string {
	if o == nil {
		return nil
	}
	ids := make([]string, 0, len(o.Lines))
	for _, line := range o.Lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}
