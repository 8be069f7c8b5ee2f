package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/services"
)

const streamKeepAlive = 25 * time.Second

type BalanceHandler struct {
	balances  *services.BalanceService
	validator *services.ValidationHelper
}

func NewBalanceHandler(balances *services.BalanceService) *BalanceHandler {
	return &BalanceHandler{
		balances:  balances,
		validator: services.NewValidationHelper(),
	}
}

// Get folds the pair's transaction log
// @Summary Get balance
// @Description Positive means the customer owes the shopkeeper; negative is an advance
// @Tags balance
// @Produce json
// @Security BearerAuth
// @Param customerId query string false "Customer ID (defaults to caller)"
// @Param shopkeeperId query string false "Shopkeeper ID (defaults to caller)"
// @Success 200 {object} object{customerId=string,shopkeeperId=string,balance=string}
// @Failure 403 {object} services.ErrorResponse
// @Router /balance [get]
func (h *BalanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}

	customerID, shopkeeperID := r.URL.Query().Get("customerId"), r.URL.Query().Get("shopkeeperId")
	if err := scopePair(session, &customerID, &shopkeeperID); err != nil {
		sendError(w, "BALANCE", err)
		return
	}

	balance, err := h.balances.GetBalance(r.Context(), customerID, shopkeeperID)
	if err != nil {
		sendError(w, "BALANCE", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"customerId":   customerID,
		"shopkeeperId": shopkeeperID,
		"balance":      balance.StringFixed(models.MinorUnits),
	})
}

// Stream pushes balance updates for a pair as server-sent events
// @Summary Stream balance updates
// @Description Sends the current balance, then one "balance" event per committed append
// @Tags balance
// @Produce text/event-stream
// @Security BearerAuth
// @Param customerId query string false "Customer ID (defaults to caller)"
// @Param shopkeeperId query string false "Shopkeeper ID (defaults to caller)"
// @Success 200 {object} services.BalanceUpdate
// @Router /balance/stream [get]
func (h *BalanceHandler) Stream(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}

	customerID, shopkeeperID := r.URL.Query().Get("customerId"), r.URL.Query().Get("shopkeeperId")
	if err := scopePair(session, &customerID, &shopkeeperID); err != nil {
		sendError(w, "BALANCE", err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		services.SendErrorResponse(w, "Streaming unsupported", http.StatusInternalServerError, nil)
		return
	}

	// The server write timeout would cut long-lived streams.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Printf("[BALANCE] stream write deadline not cleared: %v", err)
	}

	ctx := r.Context()
	updates := h.balances.Subscribe(ctx, customerID, shopkeeperID)

	// Snapshot after subscribing so no append falls between the two.
	balance, err := h.balances.GetBalance(ctx, customerID, shopkeeperID)
	if err != nil {
		sendError(w, "BALANCE", err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, services.BalanceUpdate{
		CustomerID:   customerID,
		ShopkeeperID: shopkeeperID,
		Balance:      balance,
		At:           time.Now().UTC(),
	})
	flusher.Flush()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case u, open := <-updates:
			if !open {
				return
			}
			writeEvent(w, u)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, u services.BalanceUpdate) {
	data, err := json.Marshal(u)
	if err != nil {
		log.Printf("[BALANCE] failed to encode stream event: %v", err)
		return
	}
	fmt.Fprintf(w, "event: balance\ndata: %s\n\n", data)
}

// List returns the materialized balances visible to the caller
// @Summary List balances
// @Description Dashboard view; owners see every pair
// @Tags balance
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.PairBalance
// @Router /balances [get]
func (h *BalanceHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}
	rows, err := h.balances.ListBalances(r.Context(), session.AccountID, session.Role)
	if err != nil {
		sendError(w, "BALANCE", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type reconcileRequest struct {
	CustomerID   string `json:"customerId" validate:"required"`
	ShopkeeperID string `json:"shopkeeperId" validate:"required"`
}

// Reconcile compares the folded log with the materialized balance row
// @Summary Reconcile balance
// @Tags balance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reconcileRequest true "Pair"
// @Success 200 {object} services.Reconciliation
// @Router /balance/reconcile [post]
func (h *BalanceHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}
	rec, err := h.balances.Reconcile(r.Context(), req.CustomerID, req.ShopkeeperID)
	if err != nil {
		sendError(w, "BALANCE", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
