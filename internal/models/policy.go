package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LimitType string

const (
	LimitTypeDefault LimitType = "default"
	LimitTypeManual  LimitType = "manual"
)

// CreditPolicy is the shopkeeper-wide credit configuration
type CreditPolicy struct {
	ShopkeeperID string          `json:"shopkeeperId" db:"shopkeeper_id"`
	DefaultLimit decimal.Decimal `json:"defaultLimit" db:"default_limit"`
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}

// CustomerLimit is a shopkeeper's override for a single customer
type CustomerLimit struct {
	ShopkeeperID  string          `json:"shopkeeperId" db:"shopkeeper_id"`
	CustomerID    string          `json:"customerId" db:"customer_id"`
	LimitType     LimitType       `json:"limitType" db:"limit_type"`
	ManualLimit   decimal.Decimal `json:"manualLimit" db:"manual_limit"`
	CreditEnabled bool            `json:"creditEnabled" db:"credit_enabled"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// DefaultCustomerLimit is what applies when the shopkeeper never configured the customer.
func DefaultCustomerLimit(shopkeeperID, customerID string) *CustomerLimit {
	return &CustomerLimit{
		ShopkeeperID:  shopkeeperID,
		CustomerID:    customerID,
		LimitType:     LimitTypeDefault,
		CreditEnabled: true,
	}
}

// EffectiveLimit resolves the ceiling enforced for the customer.
func (l *CustomerLimit) EffectiveLimit(policy *CreditPolicy) decimal.Decimal {
	if l.LimitType == LimitTypeManual {
		return l.ManualLimit
	}
	return policy.DefaultLimit
}

// LimitBounds is the platform range a shopkeeper default limit must fall in
type LimitBounds struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Contains reports whether v is within [Min, Max]
func (b LimitBounds) Contains(v decimal.Decimal) bool {
	return !v.LessThan(b.Min) && !v.GreaterThan(b.Max)
}

type DenyReason string

const (
	DenyCreditDisabled DenyReason = "CreditDisabled"
	DenyLimitExceeded  DenyReason = "LimitExceeded"
)

// Decision is the outcome of a credit authorization
type Decision struct {
	Allowed        bool            `json:"allowed"`
	Reason         DenyReason      `json:"reason,omitempty"`
	Balance        decimal.Decimal `json:"balance"`
	Amount         decimal.Decimal `json:"amount"`
	EffectiveLimit decimal.Decimal `json:"effectiveLimit"`
	Available      decimal.Decimal `json:"available"`
}

// Err converts a denial into a *DenialError, nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DenialError{
		Reason:  d.Reason,
		Balance: d.Balance,
		Amount:  d.Amount,
		Limit:   d.EffectiveLimit,
	}
}

// Evaluate applies a resolved policy to the balance at authorization time.
// Reaching the limit exactly is allowed.
func Evaluate(limit *CustomerLimit, policy *CreditPolicy, balance, amount decimal.Decimal) Decision {
	effective := limit.EffectiveLimit(policy)
	available := effective.Sub(balance)
	if available.IsNegative() {
		available = decimal.Zero
	}

	d := Decision{
		Allowed:        true,
		Balance:        balance,
		Amount:         amount,
		EffectiveLimit: effective,
		Available:      available,
	}

	switch {
	case !limit.CreditEnabled:
		d.Allowed = false
		d.Reason = DenyCreditDisabled
	case balance.Add(amount).GreaterThan(effective):
		d.Allowed = false
		d.Reason = DenyLimitExceeded
	}
	return d
}
