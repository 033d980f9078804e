package stream

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderEvent(t *testing.T) {
	values := map[string]interface{}{
		"customerId":     "cust-1",
		"products":       `[{"productId":"prod-1","quantity":2,"price":19.5},{"productId":"prod-2","quantity":1}]`,
		"totalAmount":    "49.5",
		"orderReference": "order_abc",
		"timestamp":      strconv.FormatInt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli(), 10),
	}

	event := ParseOrderEvent(values)
	require.NoError(t, event.Validate())

	assert.Equal(t, "cust-1", event.CustomerID)
	assert.Equal(t, "order_abc", event.OrderReference)
	assert.Equal(t, 49.5, event.TotalAmount)
	require.Len(t, event.Lines, 2)
	assert.Equal(t, EventLine{ProductID: "prod-1", Quantity: 2, Price: 19.5}, event.Lines[0])
	assert.Equal(t, EventLine{ProductID: "prod-2", Quantity: 1}, event.Lines[1])
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), event.Timestamp.UTC())
}

func TestParseOrderEventQuotedFields(t *testing.T) {
	values := map[string]interface{}{
		"customerId":     `"cust-1"`,
		"products":       `[{"productId":"prod-1","quantity":"3"}]`,
		"totalAmount":    "100",
		"orderReference": `"order_xyz"`,
	}

	event := ParseOrderEvent(values)
	require.NoError(t, event.Validate())

	assert.Equal(t, "cust-1", event.CustomerID)
	assert.Equal(t, "order_xyz", event.OrderReference)
	require.Len(t, event.Lines, 1)
	assert.Equal(t, 3, event.Lines[0].Quantity)
}

func TestParseOrderEventDefaults(t *testing.T) {
	event := ParseOrderEvent(map[string]interface{}{
		"customerId": "cust-1",
		"products":   `[{"productId":"prod-1"}]`,
	})

	assert.True(t, len(event.OrderReference) > len("order_"))
	assert.Contains(t, event.OrderReference, "order_")
	assert.Equal(t, float64(0), event.TotalAmount)
	assert.WithinDuration(t, time.Now(), event.Timestamp, time.Minute)
	require.Len(t, event.Lines, 1)
	assert.Equal(t, 1, event.Lines[0].Quantity)
}

func TestParseOrderEventMalformedProducts(t *testing.T) {
	event := ParseOrderEvent(map[string]interface{}{
		"customerId": "cust-1",
		"products":   `not json`,
	})

	assert.Empty(t, event.Lines)
	assert.ErrorIs(t, event.Validate(), ErrEmptyProducts)
}

func TestParseOrderEventMalformedAmount(t *testing.T) {
	event := ParseOrderEvent(map[string]interface{}{
		"customerId":  "cust-1",
		"products":    `[{"productId":"prod-1","quantity":1}]`,
		"totalAmount": "lots",
	})

	assert.Equal(t, float64(0), event.TotalAmount)
	require.NoError(t, event.Validate())
}

func TestValidateMissingCustomer(t *testing.T) {
	event := ParseOrderEvent(map[string]interface{}{
		"products": `[{"productId":"prod-1","quantity":1}]`,
	})
	assert.ErrorIs(t, event.Validate(), ErrMissingCustomer)
}

func TestValuesRoundTrip(t *testing.T) {
	original := &OrderEvent{
		CustomerID:     "cust-1",
		Lines:          []EventLine{{ProductID: "prod-1", Quantity: 2, Price: 10}},
		TotalAmount:    20,
		OrderReference: "order_rt",
		Timestamp:      time.Now().Truncate(time.Millisecond),
	}

	parsed := ParseOrderEvent(original.Values())
	require.NoError(t, parsed.Validate())

	assert.Equal(t, original.CustomerID, parsed.CustomerID)
	assert.Equal(t, original.OrderReference, parsed.OrderReference)
	assert.Equal(t, original.TotalAmount, parsed.TotalAmount)
	assert.Equal(t, original.Lines, parsed.Lines)
	assert.True(t, original.Timestamp.Equal(parsed.Timestamp))
}
