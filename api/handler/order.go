package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/minicrm/backend/api/transport"
	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/pkg/httpcontext"
	ordersUC "github.com/minicrm/backend/usecase/orders"
)

type OrderHandler struct {
	baseHandler
	uc *ordersUC.UseCase
}

func NewOrderHandler(uc *ordersUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Place order
// @Tags orders
// @Router /api/v1/orders [post]
func (h *OrderHandler) PlaceOrder(ctx *fasthttp.RequestCtx) {
	var req transport.PlaceOrderRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	input := ordersUC.PlaceOrderInput{
		CustomerID:  req.CustomerID,
		TotalAmount: req.TotalAmount,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, domain.OrderLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     line.Price,
		})
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	receipt, err := h.uc.PlaceOrder(stdCtx, input)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusAccepted, receipt)
}

// @Summary Get order by reference
// @Tags orders
// @Router /api/v1/orders/{reference} [get]
func (h *OrderHandler) GetOrder(ctx *fasthttp.RequestCtx) {
	reference, _ := ctx.UserValue("reference").(string)
	if reference == "" {
		h.respondInvalid(ctx, "missing order reference")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	order, err := h.uc.GetOrder(stdCtx, reference)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, order)
}
