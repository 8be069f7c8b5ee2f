package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNotConnected        = errors.New("customer and shopkeeper are not connected")
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")
	ErrDuplicatePending    = errors.New("a pending request already exists for this pair")
	ErrAlreadyConnected    = errors.New("customer and shopkeeper are already connected")
	ErrOutOfRange          = errors.New("value out of range")
	ErrInvalidState        = errors.New("request is no longer pending")
	ErrNotFound            = errors.New("not found")
	ErrConflict            = errors.New("concurrent update conflict")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidInput        = errors.New("invalid input")
	ErrRateLimited         = errors.New("rate limit exceeded")

	// Storage-level signals, handled inside the services.
	ErrShortCodeTaken   = errors.New("short code already taken")
	ErrDuplicatePayment = errors.New("payment reference already recorded")
)

// DenialError is a CreditLimitExceeded failure with its reason attached.
type DenialError struct {
	Reason  DenyReason
	Balance decimal.Decimal
	Amount  decimal.Decimal
	Limit   decimal.Decimal
}

func (e *DenialError) Error() string {
	if e.Reason == DenyCreditDisabled {
		return fmt.Sprintf("%s: credit disabled for this customer", ErrCreditLimitExceeded)
	}
	return fmt.Sprintf("%s: balance %s + amount %s exceeds limit %s",
		ErrCreditLimitExceeded, e.Balance.StringFixed(MinorUnits), e.Amount.StringFixed(MinorUnits), e.Limit.StringFixed(MinorUnits))
}

func (e *DenialError) Is(target error) bool {
	return target == ErrCreditLimitExceeded
}

// ErrorCode maps an error to the code reported by the API.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidAmount):
		return "InvalidAmount"
	case errors.Is(err, ErrNotConnected):
		return "NotConnected"
	case errors.Is(err, ErrCreditLimitExceeded):
		return "CreditLimitExceeded"
	case errors.Is(err, ErrDuplicatePending):
		return "DuplicatePending"
	case errors.Is(err, ErrAlreadyConnected):
		return "AlreadyConnected"
	case errors.Is(err, ErrOutOfRange):
		return "OutOfRange"
	case errors.Is(err, ErrInvalidState):
		return "InvalidState"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrConflict):
		return "Conflict"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrRateLimited):
		return "RateLimited"
	default:
		return "Internal"
	}
}
