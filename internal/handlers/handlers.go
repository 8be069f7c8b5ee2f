// Package handlers exposes the ledger services over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/udhaarpay/backend/internal/middleware"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/services"
)

const maxBodyBytes = 1_048_576

// decodeJSON reads exactly one JSON object into dst and validates it.
// It writes the error response itself and reports whether to continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, v *services.ValidationHelper, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, models.ErrInvalidAmount) {
			services.SendCodedErrorResponse(w, err.Error(), "InvalidAmount", http.StatusBadRequest, nil)
			return false
		}
		services.SendCodedErrorResponse(w, "Invalid request body", "InvalidInput", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendCodedErrorResponse(w, "Request body must only contain a single JSON object", "InvalidInput", http.StatusBadRequest, nil)
		return false
	}

	if err := v.ValidateStruct(dst); err != nil {
		services.SendCodedErrorResponse(w, "Validation failed", "InvalidInput", http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// statusFor maps a ledger error code to its HTTP status.
func statusFor(code string) int {
	switch code {
	case "InvalidAmount", "InvalidInput":
		return http.StatusBadRequest
	case "Forbidden":
		return http.StatusForbidden
	case "NotFound":
		return http.StatusNotFound
	case "DuplicatePending", "AlreadyConnected", "InvalidState", "Conflict":
		return http.StatusConflict
	case "NotConnected", "CreditLimitExceeded", "OutOfRange":
		return http.StatusUnprocessableEntity
	case "RateLimited":
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// sendError writes err as {"error", "code", "details"}. Internal errors are
// logged and reported without their message.
func sendError(w http.ResponseWriter, tag string, err error) {
	if errors.Is(err, services.ErrQRUnavailable) {
		services.SendCodedErrorResponse(w, err.Error(), "Unavailable", http.StatusServiceUnavailable, nil)
		return
	}

	code := models.ErrorCode(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		log.Printf("[%s] internal error: %v", tag, err)
		services.SendCodedErrorResponse(w, "Internal server error", code, status, nil)
		return
	}

	resp := services.ErrorResponse{Error: err.Error(), Code: code}
	var denial *models.DenialError
	if errors.As(err, &denial) {
		resp.Details = map[string]string{
			"reason":  string(denial.Reason),
			"balance": denial.Balance.StringFixed(models.MinorUnits),
			"amount":  denial.Amount.StringFixed(models.MinorUnits),
			"limit":   denial.Limit.StringFixed(models.MinorUnits),
		}
	}
	writeJSON(w, status, resp)
}

func sessionOrFail(w http.ResponseWriter, r *http.Request) (*middleware.Session, bool) {
	s, ok := middleware.SessionFrom(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return nil, false
	}
	return s, true
}

// privileged sessions may act on any account.
func privileged(s *middleware.Session) bool {
	return s.Role == models.RoleOwner || s.Role == models.RoleSystem
}

// scopePair fills in the caller's own side of a pair and rejects access to
// pairs the caller is not part of.
func scopePair(s *middleware.Session, customerID, shopkeeperID *string) error {
	switch s.Role {
	case models.RoleCustomer:
		if *customerID == "" {
			*customerID = s.AccountID
		}
		if *customerID != s.AccountID {
			return fmt.Errorf("%w: customers can only act on their own ledger", models.ErrForbidden)
		}
	case models.RoleShopkeeper:
		if *shopkeeperID == "" {
			*shopkeeperID = s.AccountID
		}
		if *shopkeeperID != s.AccountID {
			return fmt.Errorf("%w: shopkeepers can only act on their own ledger", models.ErrForbidden)
		}
	}
	if *customerID == "" || *shopkeeperID == "" {
		return fmt.Errorf("%w: customerId and shopkeeperId are required", models.ErrInvalidInput)
	}
	return nil
}

// requireSelfOrPrivileged allows owner and system sessions, or the account itself.
func requireSelfOrPrivileged(s *middleware.Session, accountID string) error {
	if privileged(s) || s.AccountID == accountID {
		return nil
	}
	return fmt.Errorf("%w: not allowed to act for account %s", models.ErrForbidden, accountID)
}

// amount is a money field in a request body. It accepts a JSON number or a
// numeric string and fails decoding with ErrInvalidAmount otherwise.
type amount struct {
	decimal.Decimal
}

func (a *amount) UnmarshalJSON(b []byte) error {
	raw := string(b)
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(b, &raw); err != nil {
			return fmt.Errorf("%w: %s", models.ErrInvalidAmount, b)
		}
	}
	v, err := models.ParseAmount(raw)
	if err != nil {
		return err
	}
	a.Decimal = v
	return nil
}

// ptr returns nil for an absent field.
func (a *amount) ptr() *decimal.Decimal {
	if a == nil {
		return nil
	}
	v := a.Decimal
	return &v
}
