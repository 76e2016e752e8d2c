package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vtu-wallet-ledger/internal/api_gateway/service"
	"github.com/vtu-wallet-ledger/internal/catalog"
)

// PlanHandler serves the data plan catalog.
type PlanHandler struct {
	plans  service.PlanService
	logger *slog.Logger
}

func NewPlanHandler(logger *slog.Logger, plans service.PlanService) *PlanHandler {
	return &PlanHandler{
		plans:  plans,
		logger: logger,
	}
}

func (h *PlanHandler) List(c *gin.Context) {
	plans, err := h.plans.ListPlans(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	out := make([]PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, mapPlanToResponse(p))
	}
	RespondOK(c, out)
}

func (h *PlanHandler) Get(c *gin.Context) {
	id, ok := planIDParam(c)
	if !ok {
		return
	}

	p, err := h.plans.GetPlan(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondOK(c, mapPlanToResponse(p))
}

// Upsert creates or refreshes a plan keyed by provider and provider plan id.
func (h *PlanHandler) Upsert(c *gin.Context) {
	var req UpsertPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, err := h.plans.UpsertPlan(c.Request.Context(), catalog.UpsertPlanInput{
		Provider:       req.Provider,
		ProviderPlanID: req.ProviderPlanID,
		NetworkID:      req.NetworkID,
		NetworkName:    req.NetworkName,
		PlanSize:       req.PlanSize,
		PlanType:       req.PlanType,
		Validity:       req.Validity,
		CostPrice:      req.CostPrice,
		SellingPrice:   req.SellingPrice,
		ResellerPrice:  req.ResellerPrice,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondOK(c, mapPlanToResponse(p))
}

func (h *PlanHandler) UpdatePrice(c *gin.Context) {
	id, ok := planIDParam(c)
	if !ok {
		return
	}
	var req UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	p, err := h.plans.UpdateSellingPrice(c.Request.Context(), id, req.SellingPrice)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	RespondOK(c, mapPlanToResponse(p))
}

func planIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid plan ID")
		return uuid.Nil, false
	}
	return id, true
}
