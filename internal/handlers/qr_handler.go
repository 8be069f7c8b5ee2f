package handlers

import (
	"net/http"

	"github.com/udhaarpay/backend/internal/services"
)

type QRHandler struct {
	service   *services.QRService
	validator *services.ValidationHelper
}

func NewQRHandler(service *services.QRService) *QRHandler {
	return &QRHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GeneratePairing issues a single-use pairing QR for the calling shopkeeper
// @Summary Generate pairing QR
// @Description Customers scan the code to send a connection request
// @Tags QR
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.PairingQR
// @Failure 401 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse
// @Router /qr/pairing [post]
func (h *QRHandler) GeneratePairing(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}

	qr, err := h.service.GeneratePairingQR(r.Context(), session.AccountID)
	if err != nil {
		sendError(w, "QR", err)
		return
	}
	writeJSON(w, http.StatusOK, qr)
}

// Scan consumes a pairing token and opens a connection request
// @Summary Scan pairing QR
// @Tags QR
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{token=string} true "Scanned token"
// @Success 201 {object} models.ConnectionRequest
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse "Invalid or expired QR code"
// @Router /qr/scan [post]
func (h *QRHandler) Scan(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}

	var req struct {
		Token string `json:"token" validate:"required"`
	}
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	connReq, err := h.service.ScanPairingQR(r.Context(), session.AccountID, req.Token)
	if err != nil {
		sendError(w, "QR", err)
		return
	}
	writeJSON(w, http.StatusCreated, connReq)
}
