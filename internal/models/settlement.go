package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementRecord is one owner payout marked against a shopkeeper
type SettlementRecord struct {
	ID           string          `json:"id" db:"id"`
	ShopkeeperID string          `json:"shopkeeperId" db:"shopkeeper_id"`
	Amount       decimal.Decimal `json:"amount" db:"amount"`
	Note         string          `json:"note,omitempty" db:"note"`
	SettledBy    string          `json:"settledBy" db:"settled_by"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"`
}

// SettlementSummary is the wallet view for one shopkeeper.
// PendingSettlement + SettledAmount == TotalPrincipal always holds.
type SettlementSummary struct {
	ShopkeeperID      string          `json:"shopkeeperId"`
	TotalCollected    decimal.Decimal `json:"totalCollected"`
	TotalPrincipal    decimal.Decimal `json:"totalPrincipal"`
	TotalCommission   decimal.Decimal `json:"totalCommission"`
	SettledAmount     decimal.Decimal `json:"settledAmount"`
	PendingSettlement decimal.Decimal `json:"pendingSettlement"`
	PaymentCount      int             `json:"paymentCount"`
}

// SummarizePayments folds payment entries into a settlement summary.
func SummarizePayments(shopkeeperID string, payments []*Transaction, settled decimal.Decimal) *SettlementSummary {
	s := &SettlementSummary{
		ShopkeeperID:    shopkeeperID,
		TotalCollected:  decimal.Zero,
		TotalPrincipal:  decimal.Zero,
		TotalCommission: decimal.Zero,
		SettledAmount:   settled,
	}
	for _, p := range payments {
		if p.Type != TxTypePayment {
			continue
		}
		principal := p.Principal()
		s.TotalCollected = s.TotalCollected.Add(p.Amount)
		s.TotalPrincipal = s.TotalPrincipal.Add(principal)
		s.TotalCommission = s.TotalCommission.Add(p.Amount.Sub(principal))
		s.PaymentCount++
	}
	s.PendingSettlement = s.TotalPrincipal.Sub(settled)
	return s
}

// CommissionAnalytics are time-windowed sums of realized commission plus an
// advisory estimate on still-outstanding credit.
type CommissionAnalytics struct {
	CurrentRate          decimal.Decimal `json:"currentRate"`
	TotalEarned          decimal.Decimal `json:"totalEarned"`
	Earned24h            decimal.Decimal `json:"earned24h"`
	Earned30d            decimal.Decimal `json:"earned30d"`
	OutstandingPrincipal decimal.Decimal `json:"outstandingPrincipal"`
	// Estimate at the current rate; realized commission uses the rate stamped at payment time.
	PendingOnCredit decimal.Decimal `json:"pendingOnCredit"`
	Advisory        bool            `json:"pendingOnCreditAdvisory"`
}

// PlatformSetting is a single owner-controlled key/value
type PlatformSetting struct {
	Key       string    `json:"key" db:"key"`
	Value     string    `json:"value" db:"value"`
	UpdatedBy string    `json:"updatedBy" db:"updated_by"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

const (
	SettingCommissionRate = "commission_rate"
	SettingLimitMin       = "credit_limit_min"
	SettingLimitMax       = "credit_limit_max"
)
