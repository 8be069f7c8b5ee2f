package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/udhaarpay/backend/internal/audit"
	"github.com/udhaarpay/backend/internal/config"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/store"
)

var maxCommissionRate = decimal.NewFromInt(100)

// CommissionService holds the platform rate and the commission analytics.
// Commission is realized on payments only, at the rate stamped on the payment.
type CommissionService struct {
	store store.Store
	cfg   *config.LedgerConfig
	audit *audit.Logger
	now   func() time.Time
}

func NewCommissionService(st store.Store, cfg *config.LedgerConfig, auditLogger *audit.Logger) *CommissionService {
	return &CommissionService{
		store: st,
		cfg:   cfg,
		audit: auditLogger,
		now:   time.Now,
	}
}

// RateInEffect returns the current platform percentage.
func (s *CommissionService) RateInEffect(ctx context.Context) (decimal.Decimal, error) {
	setting, err := s.store.GetSetting(ctx, models.SettingCommissionRate)
	if errors.Is(err, models.ErrNotFound) {
		return s.cfg.DefaultCommissionRate, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	rate, err := decimal.NewFromString(setting.Value)
	if err != nil || !validRate(rate) {
		log.Printf("[COMMISSION] ignoring invalid stored rate %q, using default %s", setting.Value, s.cfg.DefaultCommissionRate)
		return s.cfg.DefaultCommissionRate, nil
	}
	return rate, nil
}

func (s *CommissionService) SetRate(ctx context.Context, rate decimal.Decimal, by string) error {
	if !validRate(rate) {
		return fmt.Errorf("%w: commission rate must be within [0, 100]", models.ErrOutOfRange)
	}
	if !rate.Equal(rate.Round(models.MinorUnits)) {
		return fmt.Errorf("%w: commission rate has more than %d decimal places", models.ErrInvalidInput, models.MinorUnits)
	}

	if err := s.store.PutSetting(ctx, &models.PlatformSetting{
		Key:       models.SettingCommissionRate,
		Value:     rate.String(),
		UpdatedBy: by,
		UpdatedAt: s.now().UTC(),
	}); err != nil {
		return err
	}

	s.audit.LogOperation(by, "COMMISSION_RATE_UPDATED", map[string]string{"rate": rate.String()})
	return nil
}

// Split divides a payment into principal and commission at the given rate.
func (s *CommissionService) Split(amount, rate decimal.Decimal) (principal, commission decimal.Decimal) {
	return models.SplitPayment(amount, rate)
}

// Analytics sums realized commission, optionally for one shopkeeper. The
// pending-on-credit figure applies today's rate to outstanding balances and is
// only an estimate.
func (s *CommissionService) Analytics(ctx context.Context, shopkeeperID string) (*models.CommissionAnalytics, error) {
	rate, err := s.RateInEffect(ctx)
	if err != nil {
		return nil, err
	}

	commissions, err := s.store.ListTransactions(ctx, models.TransactionFilter{
		ShopkeeperID: shopkeeperID,
		Type:         models.TxTypeCommission,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	dayAgo := now.Add(-24 * time.Hour)
	monthAgo := now.Add(-30 * 24 * time.Hour)

	out := &models.CommissionAnalytics{
		CurrentRate:          rate,
		TotalEarned:          decimal.Zero,
		Earned24h:            decimal.Zero,
		Earned30d:            decimal.Zero,
		OutstandingPrincipal: decimal.Zero,
		Advisory:             true,
	}
	for _, c := range commissions {
		out.TotalEarned = out.TotalEarned.Add(c.Amount)
		if !c.CreatedAt.Before(dayAgo) {
			out.Earned24h = out.Earned24h.Add(c.Amount)
		}
		if !c.CreatedAt.Before(monthAgo) {
			out.Earned30d = out.Earned30d.Add(c.Amount)
		}
	}

	balances, err := s.store.ListPairBalances(ctx, store.PairFilter{ShopkeeperID: shopkeeperID})
	if err != nil {
		return nil, err
	}
	for _, b := range balances {
		if b.Balance.IsPositive() {
			out.OutstandingPrincipal = out.OutstandingPrincipal.Add(b.Balance)
		}
	}
	out.PendingOnCredit = models.PercentOf(out.OutstandingPrincipal, rate)

	return out, nil
}

func validRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && !rate.GreaterThan(maxCommissionRate)
}
