package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/services"
)

type AccountHandler struct {
	directory *services.DirectoryService
	validator *services.ValidationHelper
}

func NewAccountHandler(directory *services.DirectoryService) *AccountHandler {
	return &AccountHandler{
		directory: directory,
		validator: services.NewValidationHelper(),
	}
}

type enrollRequest struct {
	AccountID   string `json:"accountId,omitempty"`
	Role        string `json:"role,omitempty" validate:"omitempty,oneof=customer shopkeeper"`
	DisplayName string `json:"displayName" validate:"required,max=120"`
	PhoneNumber string `json:"phoneNumber,omitempty" validate:"omitempty,e164"`
	ShopName    string `json:"shopName,omitempty" validate:"max=120"`
	Address     string `json:"address,omitempty" validate:"max=250"`
}

// Enroll registers an account and assigns its short code
// @Summary Enroll account
// @Description Customers and shopkeepers enroll themselves; the system principal may enroll any account id.
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body enrollRequest true "Enrollment request"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /accounts/enroll [post]
func (h *AccountHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionOrFail(w, r)
	if !ok {
		return
	}

	var req enrollRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	acct := &models.Account{DisplayName: req.DisplayName}
	if privileged(session) {
		if req.AccountID == "" || req.Role == "" {
			services.SendCodedErrorResponse(w, "accountId and role are required", "InvalidInput", http.StatusBadRequest, nil)
			return
		}
		acct.ID = req.AccountID
		acct.Role = models.Role(req.Role)
	} else {
		acct.ID = session.AccountID
		acct.Role = session.Role
	}

	switch acct.Role {
	case models.RoleCustomer:
		acct.Customer = &models.CustomerProfile{PhoneNumber: req.PhoneNumber}
	case models.RoleShopkeeper:
		acct.Shopkeeper = &models.ShopkeeperProfile{ShopName: req.ShopName, Address: req.Address}
	}

	enrolled, err := h.directory.Enroll(r.Context(), acct)
	if err != nil {
		sendError(w, "ACCOUNTS", err)
		return
	}
	writeJSON(w, http.StatusCreated, enrolled)
}

// Resolve maps a short code to an account id
// @Summary Resolve short code
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param role query string true "customer or shopkeeper"
// @Param code query string true "Short code"
// @Success 200 {object} object{accountId=string}
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/resolve [get]
func (h *AccountHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := h.directory.ResolveByCode(r.Context(), models.Role(q.Get("role")), q.Get("code"))
	if err != nil {
		sendError(w, "ACCOUNTS", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"accountId": id})
}

// Get returns an account
// @Summary Get account
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Account ID"
// @Success 200 {object} models.Account
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id} [get]
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	acct, err := h.directory.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "ACCOUNTS", err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}
