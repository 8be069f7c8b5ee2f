package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/udhaarpay/backend/internal/services"
)

type SettlementHandler struct {
	settlement *services.SettlementService
	validator  *services.ValidationHelper
}

func NewSettlementHandler(settlement *services.SettlementService) *SettlementHandler {
	return &SettlementHandler{
		settlement: settlement,
		validator:  services.NewValidationHelper(),
	}
}

type markSettledRequest struct {
	Amount *amount `json:"amount" validate:"required"`
	Note   string  `json:"note,omitempty" validate:"max=250"`
}

// Pending returns what the platform owes a shopkeeper
// @Summary Pending settlement
// @Tags settlements
// @Produce json
// @Security BearerAuth
// @Param shopkeeperId path string true "Shopkeeper ID"
// @Success 200 {object} models.SettlementSummary
// @Router /settlements/pending/{shopkeeperId} [get]
func (h *SettlementHandler) Pending(w http.ResponseWriter, r *http.Request) {
	shopkeeperID, ok := h.scoped(w, r)
	if !ok {
		return
	}
	summary, err := h.settlement.Summary(r.Context(), shopkeeperID)
	if err != nil {
		sendError(w, "SETTLEMENT", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// MarkSettled records an owner payout
// @Summary Mark settled
// @Description Rejected with OutOfRange when the amount exceeds the pending settlement
// @Tags settlements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param shopkeeperId path string true "Shopkeeper ID"
// @Param request body markSettledRequest true "Payout"
// @Success 201 {object} models.SettlementRecord
// @Failure 422 {object} services.ErrorResponse "OutOfRange"
// @Router /settlements/{shopkeeperId}/mark-settled [post]
func (h *SettlementHandler) MarkSettled(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}

	var req markSettledRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	rec, err := h.settlement.MarkSettled(r.Context(), chi.URLParam(r, "shopkeeperId"), req.Amount.Decimal, req.Note, session.AccountID)
	if err != nil {
		sendError(w, "SETTLEMENT", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// List is the owner wallet: every shopkeeper with payments, largest pending first
// @Summary List pending settlements
// @Tags settlements
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.SettlementSummary
// @Router /settlements [get]
func (h *SettlementHandler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.settlement.ListPending(r.Context())
	if err != nil {
		sendError(w, "SETTLEMENT", err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// History lists recorded payouts for a shopkeeper
// @Summary Settlement history
// @Tags settlements
// @Produce json
// @Security BearerAuth
// @Param shopkeeperId path string true "Shopkeeper ID"
// @Success 200 {array} models.SettlementRecord
// @Router /settlements/{shopkeeperId}/history [get]
func (h *SettlementHandler) History(w http.ResponseWriter, r *http.Request) {
	shopkeeperID, ok := h.scoped(w, r)
	if !ok {
		return
	}
	records, err := h.settlement.ListSettlements(r.Context(), shopkeeperID)
	if err != nil {
		sendError(w, "SETTLEMENT", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// Payout renders the pending amount as a pacs.008 credit transfer
// @Summary Payout instruction
// @Description Advisory document for an external payout rail; nothing is recorded
// @Tags settlements
// @Produce json
// @Security BearerAuth
// @Param shopkeeperId path string true "Shopkeeper ID"
// @Success 200 {object} services.Payout
// @Failure 409 {object} services.ErrorResponse "Nothing pending"
// @Router /settlements/{shopkeeperId}/payout [get]
func (h *SettlementHandler) Payout(w http.ResponseWriter, r *http.Request) {
	payout, err := h.settlement.PayoutInstruction(r.Context(), chi.URLParam(r, "shopkeeperId"))
	if err != nil {
		sendError(w, "SETTLEMENT", err)
		return
	}
	writeJSON(w, http.StatusOK, payout)
}

func (h *SettlementHandler) scoped(w http.ResponseWriter, r *http.Request) (string, bool) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return "", false
	}
	shopkeeperID := chi.URLParam(r, "shopkeeperId")
	if err := requireSelfOrPrivileged(session, shopkeeperID); err != nil {
		sendError(w, "SETTLEMENT", err)
		return "", false
	}
	return shopkeeperID, true
}
