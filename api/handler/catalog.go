package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/minicrm/backend/api/transport"
	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/pkg/httpcontext"
	catalogUC "github.com/minicrm/backend/usecase/catalog"
)

type CatalogHandler struct {
	baseHandler
	uc *catalogUC.UseCase
}

func NewCatalogHandler(uc *catalogUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Create customer
// @Tags customers
// @Router /api/v1/customers [post]
func (h *CatalogHandler) CreateCustomer(ctx *fasthttp.RequestCtx) {
	var req transport.CustomerRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateCustomer(stdCtx, &domain.Customer{Name: req.Name, Email: req.Email})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary Get customer
// @Tags customers
// @Router /api/v1/customers/{id} [get]
func (h *CatalogHandler) GetCustomer(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondInvalid(ctx, "missing customer id")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	customer, err := h.uc.GetCustomer(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, customer)
}

// @Summary List customers
// @Tags customers
// @Router /api/v1/customers [get]
func (h *CatalogHandler) ListCustomers(ctx *fasthttp.RequestCtx) {
	limit, offset := pagination(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	customers, err := h.uc.ListCustomers(stdCtx, limit, offset)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, customers)
}

// @Summary Create product
// @Tags products
// @Router /api/v1/products [post]
func (h *CatalogHandler) CreateProduct(ctx *fasthttp.RequestCtx) {
	var req transport.ProductRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateProduct(stdCtx, &domain.Product{Name: req.Name, Price: req.Price})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary List products
// @Tags products
// @Router /api/v1/products [get]
func (h *CatalogHandler) ListProducts(ctx *fasthttp.RequestCtx) {
	limit, offset := pagination(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	products, err := h.uc.ListProducts(stdCtx, limit, offset)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, products)
}

// @Summary Create segment
// @Tags segments
// @Router /api/v1/segments [post]
func (h *CatalogHandler) CreateSegment(ctx *fasthttp.RequestCtx) {
	var req transport.SegmentRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateSegment(stdCtx, &domain.Segment{Name: req.Name, Rules: req.Rules})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary List segments
// @Tags segments
// @Router /api/v1/segments [get]
func (h *CatalogHandler) ListSegments(ctx *fasthttp.RequestCtx) {
	limit, offset := pagination(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	segments, err := h.uc.ListSegments(stdCtx, limit, offset)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, segments)
}

// @Summary Preview segment audience size
// @Tags segments
// @Router /api/v1/segments/preview [post]
func (h *CatalogHandler) PreviewSegment(ctx *fasthttp.RequestCtx) {
	var req transport.SegmentPreviewRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	count, err := h.uc.PreviewAudience(stdCtx, req.Rules)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, map[string]int{"audience_size": count})
}
