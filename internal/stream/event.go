// Package stream implements the order event log: publishing order-placed
// events to a Redis stream and consuming them under a consumer group.
package stream

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Wire field names of a stream entry.
const (
	fieldCustomerID     = "customerId"
	fieldProducts       = "products"
	fieldTotalAmount    = "totalAmount"
	fieldOrderReference = "orderReference"
	fieldTimestamp      = "timestamp"
)

// Validation failures; these mark an event as undeliverable rather than retryable.
var (
	ErrMissingCustomer = errors.New("order event missing customer id")
	ErrEmptyProducts   = errors.New("order event has no products")
)

// EventLine is one product position of an order event. Price is optional on
// the wire: the publisher enriches it when it can, the consumer resolves
// missing prices from the catalog.
type EventLine struct {
	ProductID string
	Quantity  int
	Price     float64
}

func (l *EventLine) UnmarshalJSON(data []byte) error {
	var raw struct {
		ProductID string      `json:"productId"`
		Quantity  interface{} `json:"quantity"`
		Price     interface{} `json:"price"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.ProductID = raw.ProductID
	l.Quantity = int(normalizeNumeric(raw.Quantity, 1))
	l.Price = normalizeNumeric(raw.Price, 0)
	return nil
}

func (l EventLine) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ProductID string  `json:"productId"`
		Quantity  int     `json:"quantity"`
		Price     float64 `json:"price"`
	}{l.ProductID, l.Quantity, l.Price})
}

// OrderEvent is the transient log record of one placed order.
type OrderEvent struct {
	CustomerID     string
	Lines          []EventLine
	TotalAmount    float64
	OrderReference string
	Timestamp      time.Time
}

// ParseOrderEvent decodes a stream entry defensively: malformed numeric or
// JSON fields fall back to safe defaults instead of failing the entry.
func ParseOrderEvent(values map[string]interface{}) *OrderEvent {
	event := &OrderEvent{
		CustomerID:     stringField(values, fieldCustomerID),
		OrderReference: stringField(values, fieldOrderReference),
	}

	if raw := stringField(values, fieldProducts); raw != "" {
		var lines []EventLine
		if err := json.Unmarshal([]byte(raw), &lines); err == nil {
			event.Lines = lines
		}
	}

	if raw := stringField(values, fieldTotalAmount); raw != "" {
		if amount, err := strconv.ParseFloat(raw, 64); err == nil {
			event.TotalAmount = amount
		}
	}

	if event.OrderReference == "" {
		event.OrderReference = "order_" + uuid.NewString()
	}

	event.Timestamp = time.Now()
	if raw := stringField(values, fieldTimestamp); raw != "" {
		if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
			event.Timestamp = time.UnixMilli(millis)
		}
	}

	return event
}

// Validate reports whether the event is fit to apply. Failures are
// data-quality defects: the entry will never become valid on retry.
func (e *OrderEvent) Validate() error {
	if e.CustomerID == "" {
		return ErrMissingCustomer
	}
	if len(e.Lines) == 0 {
		return ErrEmptyProducts
	}
	return nil
}

// Values renders the event as stream entry fields.
func (e *OrderEvent) Values() map[string]interface{} {
	lines, _ := json.Marshal(e.Lines)
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return map[string]interface{}{
		fieldCustomerID:     e.CustomerID,
		fieldProducts:       string(lines),
		fieldTotalAmount:    strconv.FormatFloat(e.TotalAmount, 'f', -1, 64),
		fieldOrderReference: e.OrderReference,
		fieldTimestamp:      strconv.FormatInt(ts.UnixMilli(), 10),
	}
}

// stringField reads a stream entry field, tolerating JSON-quoted values
// written by older producers.
func stringField(values map[string]interface{}, key string) string {
	raw, ok := values[key].(string)
	if !ok {
		return ""
	}
	if strings.HasPrefix(raw, `"`) {
		var unquoted string
		if err := json.Unmarshal([]byte(raw), &unquoted); err == nil {
			return unquoted
		}
	}
	return raw
}

func normalizeNumeric(v interface{}, fallback float64) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case string:
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	case json.Number:
		if parsed, err := value.Float64(); err == nil {
			return parsed
		}
	}
	return fallback
}
