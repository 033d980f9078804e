package domain

import "time"

// Product is a catalog entry; its price is the source of truth when the
// stream consumer enriches order lines at consumption time.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	CreatedAt time.Time `json:"created_at"`
}
