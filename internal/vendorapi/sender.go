// Package vendorapi models the external message vendor: a synchronous send
// call plus an asynchronous delivery receipt pushed back to our HTTP edge.
package vendorapi

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/internal/config"
)

// Result is the vendor's synchronous response to a send attempt.
type Result struct {
	Success   bool
	MessageID string
	Timestamp time.Time
	Error     string
}

// Sender submits one message to the vendor. The returned error covers
// transport failures only; a declined delivery is Success=false with a nil
// error.
type Sender interface {
	Send(ctx context.Context, customerID, message string) (Result, error)
}

// ReceiptPusher schedules the vendor's delayed delivery receipt callback.
type ReceiptPusher interface {
	PushReceipt(recordID string, status domain.DeliveryStatus, result Result)
}

type receiptPayload struct {
	RecordID  string `json:"record_id"`
	Status    string `json:"status"`
	MessageID string `json:"message_id"`
	Timestamp string `json:"timestamp"`
}

// Simulator is an in-process vendor with configurable latency and success
// rate. It posts delivery receipts back over real HTTP so the receipt path is
// exercised end to end.
type Simulator struct {
	cfg    config.VendorConfig
	client *fasthttp.Client
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulator(cfg config.VendorConfig, logger *zap.Logger) *Simulator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Simulator{
		cfg:    cfg,
		client: &fasthttp.Client{MaxIdleConnDuration: 30 * time.Second},
		logger: logger,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulator) Send(ctx context.Context, customerID, message string) (Result, error) {
	select {
	case <-time.After(s.latency()):
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}

	result := Result{
		Success:   s.roll() < s.cfg.SuccessRate,
		MessageID: "msg_" + uuid.NewString(),
		Timestamp: time.Now(),
	}
	if !result.Success {
		result.Error = "delivery failed - recipient unavailable"
	}

	s.logger.Debug("vendor send completed",
		zap.String("customer_id", customerID),
		zap.Bool("success", result.Success),
		zap.Int("message_len", len(message)))
	return result, nil
}

// PushReceipt fires the delayed callback in the background. Callback failures
// are logged and dropped; the synchronous outcome already reached the batch
// aggregator, so a lost receipt costs nothing.
func (s *Simulator) PushReceipt(recordID string, status domain.DeliveryStatus, result Result) {
	if !s.cfg.CallbackEnabled || s.cfg.CallbackURL == "" {
		return
	}

	delay := s.callbackDelay()
	go func() {
		time.Sleep(delay)

		body, err := json.Marshal(receiptPayload{
			RecordID:  recordID,
			Status:    string(status),
			MessageID: result.MessageID,
			Timestamp: result.Timestamp.Format(time.RFC3339),
		})
		if err != nil {
			s.logger.Error("receipt payload marshal failed", zap.Error(err))
			return
		}

		req := fasthttp.AcquireRequest()
		resp := fasthttp.AcquireResponse()
		defer fasthttp.ReleaseRequest(req)
		defer fasthttp.ReleaseResponse(resp)

		req.SetRequestURI(s.cfg.CallbackURL)
		req.Header.SetMethod(fasthttp.MethodPost)
		req.Header.SetContentType("application/json")
		req.SetBody(body)

		if err := s.client.DoTimeout(req, resp, 5*time.Second); err != nil {
			s.logger.Warn("delivery receipt callback failed",
				zap.String("record_id", recordID),
				zap.Error(err))
			return
		}
		if resp.StatusCode() >= fasthttp.StatusBadRequest {
			s.logger.Warn("delivery receipt callback rejected",
				zap.String("record_id", recordID),
				zap.Int("status_code", resp.StatusCode()))
		}
	}()
}

func (s *Simulator) latency() time.Duration {
	min, max := s.cfg.MinLatency, s.cfg.MaxLatency
	if max <= min {
		return min
	}
	return min + time.Duration(s.roll()*float64(max-min))
}

func (s *Simulator) callbackDelay() time.Duration {
	min, max := s.cfg.CallbackMinDelay, s.cfg.CallbackMaxDelay
	if max <= min {
		return min
	}
	return min + time.Duration(s.roll()*float64(max-min))
}

func (s *Simulator) roll() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
