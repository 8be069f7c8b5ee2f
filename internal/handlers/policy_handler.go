package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/services"
)

type PolicyHandler struct {
	policy    *services.PolicyService
	validator *services.ValidationHelper
}

func NewPolicyHandler(policy *services.PolicyService) *PolicyHandler {
	return &PolicyHandler{
		policy:    policy,
		validator: services.NewValidationHelper(),
	}
}

type defaultLimitRequest struct {
	Value *amount `json:"value" validate:"required"`
}

type customerLimitRequest struct {
	LimitType     string  `json:"limitType" validate:"required,oneof=default manual"`
	ManualLimit   *amount `json:"manualLimit,omitempty"`
	CreditEnabled *bool   `json:"creditEnabled" validate:"required"`
}

// Authorize previews a credit decision without writing
// @Summary Authorize credit
// @Description Advisory: the append re-checks under the pair lock
// @Tags policy
// @Produce json
// @Security BearerAuth
// @Param customerId query string true "Customer ID"
// @Param shopkeeperId query string false "Shopkeeper ID (defaults to caller)"
// @Param amount query string true "Amount"
// @Success 200 {object} models.Decision
// @Router /policy/authorize [get]
func (h *PolicyHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	customerID, shopkeeperID := q.Get("customerId"), q.Get("shopkeeperId")
	if err := scopePair(session, &customerID, &shopkeeperID); err != nil {
		sendError(w, "POLICY", err)
		return
	}
	amt, err := models.ParseAmount(q.Get("amount"))
	if err != nil {
		sendError(w, "POLICY", err)
		return
	}

	d, err := h.policy.Authorize(r.Context(), customerID, shopkeeperID, amt)
	if err != nil {
		sendError(w, "POLICY", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// GetDefaultLimit returns the shopkeeper's default credit limit
// @Summary Get default limit
// @Tags policy
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shopkeeper ID"
// @Success 200 {object} models.CreditPolicy
// @Router /policy/shopkeeper/{id}/default-limit [get]
func (h *PolicyHandler) GetDefaultLimit(w http.ResponseWriter, r *http.Request) {
	shopkeeperID, ok := h.shopkeeperParam(w, r)
	if !ok {
		return
	}
	p, err := h.policy.GetPolicy(r.Context(), shopkeeperID)
	if err != nil {
		sendError(w, "POLICY", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// SetDefaultLimit changes the shopkeeper's default credit limit
// @Summary Set default limit
// @Description Must fall inside the platform bounds
// @Tags policy
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shopkeeper ID"
// @Param request body defaultLimitRequest true "Limit"
// @Success 200 {object} models.CreditPolicy
// @Failure 422 {object} services.ErrorResponse "OutOfRange"
// @Router /policy/shopkeeper/{id}/default-limit [put]
func (h *PolicyHandler) SetDefaultLimit(w http.ResponseWriter, r *http.Request) {
	shopkeeperID, ok := h.shopkeeperParam(w, r)
	if !ok {
		return
	}

	var req defaultLimitRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	p, err := h.policy.SetDefaultLimit(r.Context(), shopkeeperID, req.Value.Decimal)
	if err != nil {
		sendError(w, "POLICY", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetCustomerLimit returns the per-customer override and the limit in effect
// @Summary Get customer limit
// @Tags policy
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shopkeeper ID"
// @Param cid path string true "Customer ID"
// @Success 200 {object} object{limit=models.CustomerLimit,effectiveLimit=string}
// @Router /policy/shopkeeper/{id}/customer/{cid} [get]
func (h *PolicyHandler) GetCustomerLimit(w http.ResponseWriter, r *http.Request) {
	shopkeeperID, ok := h.shopkeeperParam(w, r)
	if !ok {
		return
	}
	customerID := chi.URLParam(r, "cid")

	limit, policy, err := h.policy.Resolve(r.Context(), shopkeeperID, customerID)
	if err != nil {
		sendError(w, "POLICY", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"limit":          limit,
		"effectiveLimit": limit.EffectiveLimit(policy).StringFixed(models.MinorUnits),
	})
}

// SetCustomerLimit stores a per-customer override
// @Summary Set customer limit
// @Tags policy
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Shopkeeper ID"
// @Param cid path string true "Customer ID"
// @Param request body customerLimitRequest true "Override"
// @Success 200 {object} models.CustomerLimit
// @Failure 400 {object} services.ErrorResponse
// @Router /policy/shopkeeper/{id}/customer/{cid} [put]
func (h *PolicyHandler) SetCustomerLimit(w http.ResponseWriter, r *http.Request) {
	shopkeeperID, ok := h.shopkeeperParam(w, r)
	if !ok {
		return
	}

	var req customerLimitRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	l, err := h.policy.SetCustomerLimit(r.Context(), shopkeeperID, chi.URLParam(r, "cid"),
		models.LimitType(req.LimitType), req.ManualLimit.ptr(), *req.CreditEnabled)
	if err != nil {
		sendError(w, "POLICY", err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

// shopkeeperParam reads {id} and checks the caller may manage that shopkeeper's policy.
func (h *PolicyHandler) shopkeeperParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return "", false
	}
	shopkeeperID := chi.URLParam(r, "id")
	if err := requireSelfOrPrivileged(session, shopkeeperID); err != nil {
		sendError(w, "POLICY", err)
		return "", false
	}
	return shopkeeperID, true
}
