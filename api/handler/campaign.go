package handler

import (
	"encoding/json"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/minicrm/backend/api/transport"
	"github.com/minicrm/backend/domain"
	"github.com/minicrm/backend/pkg/httpcontext"
	campaignUC "github.com/minicrm/backend/usecase/campaign"
)

type CampaignHandler struct {
	baseHandler
	uc *campaignUC.UseCase
}

func NewCampaignHandler(uc *campaignUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *CampaignHandler {
	return &CampaignHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Create campaign
// @Tags campaigns
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(ctx *fasthttp.RequestCtx) {
	var req transport.CampaignRequest
	if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
		h.respondInvalid(ctx, "invalid payload")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateCampaign(stdCtx, &domain.Campaign{
		Name:      req.Name,
		SegmentID: req.SegmentID,
		Message:   req.Message,
	})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, created)
}

// @Summary List campaigns
// @Tags campaigns
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(ctx *fasthttp.RequestCtx) {
	limit, offset := pagination(ctx)

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	campaigns, err := h.uc.ListCampaigns(stdCtx, limit, offset)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, campaigns)
}

// @Summary Get campaign
// @Tags campaigns
// @Router /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondInvalid(ctx, "missing campaign id")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	campaign, err := h.uc.GetCampaign(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, campaign)
}

// @Summary Schedule campaign delivery
// @Tags campaigns
// @Router /api/v1/campaigns/{id}/schedule [post]
func (h *CampaignHandler) ScheduleCampaign(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondInvalid(ctx, "missing campaign id")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	scheduled, err := h.uc.ScheduleCampaign(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusAccepted, scheduled)
}

// @Summary Campaign delivery stats
// @Tags campaigns
// @Router /api/v1/campaigns/{id}/stats [get]
func (h *CampaignHandler) CampaignStats(ctx *fasthttp.RequestCtx) {
	id, _ := ctx.UserValue("id").(string)
	if id == "" {
		h.respondInvalid(ctx, "missing campaign id")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	stats, err := h.uc.CampaignStats(stdCtx, id)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, stats)
}
