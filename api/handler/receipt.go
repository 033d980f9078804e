package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/minicrm/backend/api/transport"
	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/internal/services"
	"github.com/minicrm/backend/pkg/httpcontext"
)

// DeliveryLookup resolves the delivery record referenced by an incoming receipt.
type DeliveryLookup interface {
	GetRecord(ctx context.Context, id string) (*domain.DeliveryRecord, error)
}

// ReceiptHandler ingests the vendor's asynchronous delivery receipts. A
// receipt duplicates the synchronous outcome already queued for the record, so
// applying it is naturally idempotent downstream.
type ReceiptHandler struct {
	baseHandler
	sink    services.OutcomeSink
	records DeliveryLookup
}

func NewReceiptHandler(sink services.OutcomeSink, records DeliveryLookup, adapter *httpcontext.Adapter, logger *zap.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		baseHandler: newBaseHandler(adapter, logger),
		sink:        sink,
		records:     records,
	}
}

// @Summary Ingest delivery receipt
// @Tags delivery
// @Router /api/v1/delivery-receipt [post]
func (h *ReceiptHandler) Ingest(ctx *fasthttp.RequestCtx) {
	var req transport.DeliveryReceiptRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}
	if req.RecordID == "" {
		h.respondInvalid(ctx, "missing record id")
		return
	}

	outcome := domain.DeliveryStatus(req.Status)
	if outcome != domain.DeliverySent && outcome != domain.DeliveryFailed {
		h.respondInvalid(ctx, "status must be SENT or FAILED")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	// Receipts for records this service never queued are rejected, not buffered.
	if _, err := h.records.GetRecord(stdCtx, req.RecordID); err != nil {
		h.respondError(ctx, err)
		return
	}

	if err := h.sink.AddOutcome(stdCtx, req.RecordID, outcome); err != nil {
		h.respondError(ctx, err)
		return
	}

	h.logger.Debug("delivery receipt accepted",
		zap.String("record_id", req.RecordID),
		zap.String("status", req.Status))
	h.respondSuccess(ctx, http.StatusAccepted, map[string]string{"record_id": req.RecordID})
}
