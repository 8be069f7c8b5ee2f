package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/udhaarpay/backend/internal/services"
)

// PlatformHandler serves the owner's platform controls.
type PlatformHandler struct {
	commission *services.CommissionService
	policy     *services.PolicyService
	validator  *services.ValidationHelper
}

func NewPlatformHandler(commission *services.CommissionService, policy *services.PolicyService) *PlatformHandler {
	return &PlatformHandler{
		commission: commission,
		policy:     policy,
		validator:  services.NewValidationHelper(),
	}
}

type commissionRateRequest struct {
	Rate *decimal.Decimal `json:"rate" validate:"required"`
}

type limitBoundsRequest struct {
	Min *amount `json:"min" validate:"required"`
	Max *amount `json:"max" validate:"required"`
}

// SetCommissionRate changes the rate stamped on future payments
// @Summary Set commission rate
// @Description Percentage in [0, 100]; recorded payments keep their stamped rate
// @Tags platform
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body commissionRateRequest true "Rate"
// @Success 200 {object} object{rate=string}
// @Failure 422 {object} services.ErrorResponse "OutOfRange"
// @Router /platform/commission-rate [put]
func (h *PlatformHandler) SetCommissionRate(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}

	var req commissionRateRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	if err := h.commission.SetRate(r.Context(), *req.Rate, session.AccountID); err != nil {
		sendError(w, "PLATFORM", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"rate": req.Rate.String()})
}

// Commission returns commission analytics
// @Summary Commission analytics
// @Tags platform
// @Produce json
// @Security BearerAuth
// @Param shopkeeperId query string false "Restrict to one shopkeeper"
// @Success 200 {object} models.CommissionAnalytics
// @Router /platform/commission [get]
func (h *PlatformHandler) Commission(w http.ResponseWriter, r *http.Request) {
	a, err := h.commission.Analytics(r.Context(), r.URL.Query().Get("shopkeeperId"))
	if err != nil {
		sendError(w, "PLATFORM", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// SetLimitBounds changes the range shopkeeper default limits must fall in
// @Summary Set credit limit bounds
// @Tags platform
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body limitBoundsRequest true "Bounds"
// @Success 200 {object} models.LimitBounds
// @Failure 422 {object} services.ErrorResponse "OutOfRange"
// @Router /platform/credit-limit-bounds [put]
func (h *PlatformHandler) SetLimitBounds(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}

	var req limitBoundsRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	bounds, err := h.policy.SetLimitBounds(r.Context(), req.Min.Decimal, req.Max.Decimal, session.AccountID)
	if err != nil {
		sendError(w, "PLATFORM", err)
		return
	}
	writeJSON(w, http.StatusOK, bounds)
}
