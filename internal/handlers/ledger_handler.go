package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/services"
)

type LedgerHandler struct {
	ledger    *services.LedgerService
	validator *services.ValidationHelper
}

func NewLedgerHandler(ledger *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		ledger:    ledger,
		validator: services.NewValidationHelper(),
	}
}

type creditRequest struct {
	CustomerID   string  `json:"customerId" validate:"required"`
	ShopkeeperID string  `json:"shopkeeperId,omitempty"`
	Amount       *amount `json:"amount" validate:"required"`
	Notes        string  `json:"notes,omitempty" validate:"max=500"`
}

type paymentRequest struct {
	CustomerID   string  `json:"customerId" validate:"required"`
	ShopkeeperID string  `json:"shopkeeperId" validate:"required"`
	Amount       *amount `json:"amount" validate:"required"`
	Reference    string  `json:"reference,omitempty" validate:"max=100"`
}

// Credit records udhaar given by the calling shopkeeper
// @Summary Append credit
// @Description Fails with CreditLimitExceeded when the pair's balance plus amount would pass the effective limit
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body creditRequest true "Credit"
// @Success 201 {object} services.CreditResult
// @Failure 400 {object} services.ErrorResponse "InvalidAmount"
// @Failure 422 {object} services.ErrorResponse "NotConnected or CreditLimitExceeded"
// @Router /transactions/credit [post]
func (h *LedgerHandler) Credit(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}

	var req creditRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}
	if err := scopePair(session, &req.CustomerID, &req.ShopkeeperID); err != nil {
		sendError(w, "LEDGER", err)
		return
	}

	res, err := h.ledger.AppendCredit(r.Context(), req.CustomerID, req.ShopkeeperID, req.Amount.Decimal, req.Notes)
	if err != nil {
		sendError(w, "LEDGER", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// Payment records a repayment confirmed by the payment gateway
// @Summary Append payment
// @Description Called after external confirmation. A repeated reference returns the recorded payment with replayed=true.
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body paymentRequest true "Payment"
// @Success 201 {object} services.PaymentResult
// @Success 200 {object} services.PaymentResult "Replayed"
// @Failure 400 {object} services.ErrorResponse
// @Router /transactions/payment [post]
func (h *LedgerHandler) Payment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	res, err := h.ledger.AppendPayment(r.Context(), req.CustomerID, req.ShopkeeperID, req.Amount.Decimal, req.Reference)
	if err != nil {
		sendError(w, "LEDGER", err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSON(w, status, res)
}

// ListTransactions reads the log, newest first
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param customerId query string false "Customer ID"
// @Param shopkeeperId query string false "Shopkeeper ID"
// @Param type query string false "credit, payment or commission"
// @Param since query string false "RFC3339 lower bound"
// @Param until query string false "RFC3339 upper bound"
// @Param limit query int false "Max rows (500)"
// @Success 200 {array} models.Transaction
// @Router /transactions [get]
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := models.TransactionFilter{
		CustomerID:   q.Get("customerId"),
		ShopkeeperID: q.Get("shopkeeperId"),
		Type:         models.TransactionType(q.Get("type")),
	}

	// Non-privileged callers only see their own side.
	switch session.Role {
	case models.RoleCustomer:
		if filter.CustomerID != "" && filter.CustomerID != session.AccountID {
			services.SendCodedErrorResponse(w, "customers can only read their own transactions", "Forbidden", http.StatusForbidden, nil)
			return
		}
		filter.CustomerID = session.AccountID
	case models.RoleShopkeeper:
		if filter.ShopkeeperID != "" && filter.ShopkeeperID != session.AccountID {
			services.SendCodedErrorResponse(w, "shopkeepers can only read their own transactions", "Forbidden", http.StatusForbidden, nil)
			return
		}
		filter.ShopkeeperID = session.AccountID
	}

	for param, dst := range map[string]**time.Time{"since": &filter.Since, "until": &filter.Until} {
		raw := q.Get(param)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			services.SendCodedErrorResponse(w, param+" must be an RFC3339 timestamp", "InvalidInput", http.StatusBadRequest, nil)
			return
		}
		*dst = &t
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			services.SendCodedErrorResponse(w, "limit must be a non-negative integer", "InvalidInput", http.StatusBadRequest, nil)
			return
		}
		filter.Limit = n
	}

	txs, err := h.ledger.ListTransactions(r.Context(), filter)
	if err != nil {
		sendError(w, "LEDGER", err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}
