package transport

import "encoding/json"

type OrderLineRequest struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type PlaceOrderRequest struct {
	CustomerID  string             `json:"customer_id"`
	Lines       []OrderLineRequest `json:"products"`
	TotalAmount float64            `json:"total_amount"`
}

type CustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type ProductRequest struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type SegmentRequest struct {
	Name  string          `json:"name"`
	Rules json.RawMessage `json:"rules"`
}

type SegmentPreviewRequest struct {
	Rules json.RawMessage `json:"rules"`
}

type CampaignRequest struct {
	Name      string `json:"name"`
	SegmentID string `json:"segment_id"`
	Message   string `json:"message_template"`
}

// DeliveryReceiptRequest is the vendor's asynchronous delivery confirmation.
type DeliveryReceiptRequest struct {
	RecordID  string `json:"record_id"`
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	Timestamp string `json:"timestamp"`
}
