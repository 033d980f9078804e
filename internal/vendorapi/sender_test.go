package vendorapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/internal/config"
)

func TestSendAlwaysSucceedsAtFullRate(t *testing.T) {
	sim := NewSimulator(config.VendorConfig{SuccessRate: 1}, zap.NewNop())

	for i := 0; i < 10; i++ {
		result, err := sim.Send(context.Background(), "cust-1", "hello")
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.True(t, strings.HasPrefix(result.MessageID, "msg_"))
		assert.Empty(t, result.Error)
		assert.False(t, result.Timestamp.IsZero())
	}
}

func TestSendAlwaysFailsAtZeroRate(t *testing.T) {
	sim := NewSimulator(config.VendorConfig{SuccessRate: 0}, zap.NewNop())

	result, err := sim.Send(context.Background(), "cust-1", "hello")
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.NotEmpty(t, result.MessageID)
}

func TestSendRespectsContextCancellation(t *testing.T) {
	sim := NewSimulator(config.VendorConfig{
		SuccessRate: 1,
		MinLatency:  time.Second,
		MaxLatency:  2 * time.Second,
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Send(ctx, "cust-1", "hello")
	require.ErrorIs(t, err, context.Canceled)
}

func TestPushReceiptPostsCallback(t *testing.T) {
	received := make(chan receiptPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload receiptPayload
		_ = json.Unmarshal(body, &payload)
		received <- payload
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sim := NewSimulator(config.VendorConfig{
		CallbackEnabled: true,
		CallbackURL:     server.URL,
	}, zap.NewNop())

	sim.PushReceipt("rec-1", domain.DeliverySent, Result{
		MessageID: "msg_42",
		Timestamp: time.Now(),
	})

	select {
	case payload := <-received:
		assert.Equal(t, "rec-1", payload.RecordID)
		assert.Equal(t, "SENT", payload.Status)
		assert.Equal(t, "msg_42", payload.MessageID)
		assert.NotEmpty(t, payload.Timestamp)
	case <-time.After(3 * time.Second):
		t.Fatal("callback was never delivered")
	}
}

func TestPushReceiptDisabledIsNoop(t *testing.T) {
	sim := NewSimulator(config.VendorConfig{CallbackEnabled: false, CallbackURL: "http://localhost:1"}, zap.NewNop())

	assert.NotPanics(t, func() {
		sim.PushReceipt("rec-1", domain.DeliveryFailed, Result{})
	})
}

func TestLatencyStaysWithinBounds(t *testing.T) {
	sim := NewSimulator(config.VendorConfig{
		SuccessRate: 1,
		MinLatency:  10 * time.Millisecond,
		MaxLatency:  30 * time.Millisecond,
	}, zap.NewNop())

	for i := 0; i < 20; i++ {
		d := sim.latency()
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.Less(t, d, 30*time.Millisecond)
	}
}
