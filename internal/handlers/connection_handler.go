package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/services"
)

type ConnectionHandler struct {
	connections *services.ConnectionService
	validator   *services.ValidationHelper
}

func NewConnectionHandler(connections *services.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{
		connections: connections,
		validator:   services.NewValidationHelper(),
	}
}

type connectionRequestBody struct {
	CustomerID   string `json:"customerId,omitempty"`
	ShopkeeperID string `json:"shopkeeperId,omitempty" validate:"required_without=ShopCode"`
	ShopCode     string `json:"shopCode,omitempty" validate:"required_without=ShopkeeperID"`
}

// Create opens a connection request from the calling customer
// @Summary Request connection
// @Description Customer asks a shopkeeper to connect, by shopkeeper id or shop short code
// @Tags connections
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body connectionRequestBody true "Connection request"
// @Success 201 {object} models.ConnectionRequest
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse "DuplicatePending or AlreadyConnected"
// @Router /connections [post]
func (h *ConnectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}

	var body connectionRequestBody
	if !decodeJSON(w, r, h.validator, &body) {
		return
	}
	if body.CustomerID != "" && body.CustomerID != session.AccountID {
		services.SendCodedErrorResponse(w, "customers can only request connections for themselves", "Forbidden", http.StatusForbidden, nil)
		return
	}

	var (
		req *models.ConnectionRequest
		err error
	)
	if body.ShopkeeperID != "" {
		req, err = h.connections.CreateRequest(r.Context(), session.AccountID, body.ShopkeeperID, models.RequestSourceManual)
	} else {
		req, err = h.connections.CreateRequestByCode(r.Context(), session.AccountID, body.ShopCode)
	}
	if err != nil {
		sendError(w, "CONNECTIONS", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// Approve accepts a pending request
// @Summary Approve connection request
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} models.ConnectionRequest
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse "InvalidState"
// @Router /connections/{id}/approve [post]
func (h *ConnectionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.connections.Approve)
}

// Reject declines a pending request
// @Summary Reject connection request
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} models.ConnectionRequest
// @Failure 403 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse "InvalidState"
// @Router /connections/{id}/reject [post]
func (h *ConnectionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.connections.Reject)
}

func (h *ConnectionHandler) resolve(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, requestID, actorID string) (*models.ConnectionRequest, error)) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}
	req, err := fn(r.Context(), chi.URLParam(r, "id"), session.AccountID)
	if err != nil {
		sendError(w, "CONNECTIONS", err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// List returns the caller's approved connections
// @Summary List connections
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Connection
// @Router /connections [get]
func (h *ConnectionHandler) List(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}
	conns, err := h.connections.ListConnections(r.Context(), session.AccountID)
	if err != nil {
		sendError(w, "CONNECTIONS", err)
		return
	}
	writeJSON(w, http.StatusOK, conns)
}

// ListRequests returns requests the caller is party to
// @Summary List connection requests
// @Tags connections
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, approved or rejected"
// @Success 200 {array} models.ConnectionRequest
// @Router /connections/requests [get]
func (h *ConnectionHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}

	status := models.RequestStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.RequestStatusPending, models.RequestStatusApproved, models.RequestStatusRejected:
	default:
		services.SendCodedErrorResponse(w, "status must be pending, approved or rejected", "InvalidInput", http.StatusBadRequest, nil)
		return
	}

	reqs, err := h.connections.ListRequests(r.Context(), session.AccountID, status)
	if err != nil {
		sendError(w, "CONNECTIONS", err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}
