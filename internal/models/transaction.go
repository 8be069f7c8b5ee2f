package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxTypeCredit     TransactionType = "credit"
	TxTypePayment    TransactionType = "payment"
	TxTypeCommission TransactionType = "commission"
)

// Valid reports whether t is a known ledger entry type
func (t TransactionType) Valid() bool {
	switch t {
	case TxTypeCredit, TxTypePayment, TxTypeCommission:
		return true
	}
	return false
}

// Transaction is an immutable ledger entry
type Transaction struct {
	ID           string          `json:"id" db:"id"`
	CustomerID   string          `json:"customerId" db:"customer_id"`
	ShopkeeperID string          `json:"shopkeeperId" db:"shopkeeper_id"`
	Type         TransactionType `json:"type" db:"type"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Notes        string          `json:"notes,omitempty" db:"notes"`
	// Percentage stamped on payment and commission entries, nil on credits.
	CommissionRate *decimal.Decimal `json:"commissionRate,omitempty" db:"commission_rate"`
	// Commission entries point at the payment they were derived from.
	RelatedID string `json:"relatedId,omitempty" db:"related_id"`
	// Gateway payment id; unique across the ledger when set.
	Reference string    `json:"reference,omitempty" db:"reference"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// BalanceEffect is the signed change this entry makes to the pair balance.
func (t *Transaction) BalanceEffect() decimal.Decimal {
	switch t.Type {
	case TxTypeCredit:
		return t.Amount
	case TxTypePayment:
		return t.Amount.Neg()
	default:
		return decimal.Zero
	}
}

// Principal is the share of a payment owed to the shopkeeper. Zero for other types.
func (t *Transaction) Principal() decimal.Decimal {
	if t.Type != TxTypePayment {
		return decimal.Zero
	}
	rate := decimal.Zero
	if t.CommissionRate != nil {
		rate = *t.CommissionRate
	}
	principal, _ := SplitPayment(t.Amount, rate)
	return principal
}

// FoldBalance sums credits minus payments.
func FoldBalance(txs []*Transaction) decimal.Decimal {
	balance := decimal.Zero
	for _, tx := range txs {
		balance = balance.Add(tx.BalanceEffect())
	}
	return balance
}

// TransactionFilter narrows ledger reads. Empty fields match everything.
type TransactionFilter struct {
	CustomerID   string
	ShopkeeperID string
	Type         TransactionType
	Since        *time.Time
	Until        *time.Time
	Limit        int
}

// Matches reports whether tx passes the filter, ignoring Limit.
func (f TransactionFilter) Matches(tx *Transaction) bool {
	if f.CustomerID != "" && tx.CustomerID != f.CustomerID {
		return false
	}
	if f.ShopkeeperID != "" && tx.ShopkeeperID != f.ShopkeeperID {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Since != nil && tx.CreatedAt.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !tx.CreatedAt.Before(*f.Until) {
		return false
	}
	return true
}

// PairBalance is the materialized balance row for a (customer, shopkeeper) pair.
// It is rewritten from the log inside every append and never written on its own.
type PairBalance struct {
	CustomerID   string          `json:"customerId" db:"customer_id"`
	ShopkeeperID string          `json:"shopkeeperId" db:"shopkeeper_id"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	Version      int             `json:"version" db:"version"` // for optimistic locking
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"`
}
