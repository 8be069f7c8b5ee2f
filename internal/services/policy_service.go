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

// BalanceReader is the read side PolicyService needs for advisory checks.
type BalanceReader interface {
	GetBalance(ctx context.Context, customerID, shopkeeperID string) (decimal.Decimal, error)
}

// PolicyService owns shopkeeper credit policies and the platform limit bounds.
type PolicyService struct {
	store     store.Store
	directory *DirectoryService
	balances  BalanceReader
	cfg       *config.LedgerConfig
	audit     *audit.Logger
	now       func() time.Time
}

func NewPolicyService(st store.Store, directory *DirectoryService, balances BalanceReader, cfg *config.LedgerConfig, auditLogger *audit.Logger) *PolicyService {
	return &PolicyService{
		store:     st,
		directory: directory,
		balances:  balances,
		cfg:       cfg,
		audit:     auditLogger,
		now:       time.Now,
	}
}

// Bounds returns the platform range for shopkeeper default limits.
func (s *PolicyService) Bounds(ctx context.Context) (models.LimitBounds, error) {
	min, err := s.decimalSetting(ctx, models.SettingLimitMin, s.cfg.MinCreditLimit)
	if err != nil {
		return models.LimitBounds{}, err
	}
	max, err := s.decimalSetting(ctx, models.SettingLimitMax, s.cfg.MaxCreditLimit)
	if err != nil {
		return models.LimitBounds{}, err
	}
	return models.LimitBounds{Min: min, Max: max}, nil
}

// SetLimitBounds changes the platform range. Existing policies are left as they are.
func (s *PolicyService) SetLimitBounds(ctx context.Context, min, max decimal.Decimal, by string) (models.LimitBounds, error) {
	if !min.IsPositive() || min.GreaterThan(max) {
		return models.LimitBounds{}, fmt.Errorf("%w: bounds must satisfy 0 < min <= max", models.ErrOutOfRange)
	}
	if err := models.ValidateAmount(max); err != nil {
		return models.LimitBounds{}, err
	}
	if err := models.ValidateAmount(min); err != nil {
		return models.LimitBounds{}, err
	}

	now := s.now().UTC()
	if err := s.store.PutSetting(ctx,
		&models.PlatformSetting{Key: models.SettingLimitMin, Value: min.StringFixed(models.MinorUnits), UpdatedBy: by, UpdatedAt: now},
		&models.PlatformSetting{Key: models.SettingLimitMax, Value: max.StringFixed(models.MinorUnits), UpdatedBy: by, UpdatedAt: now},
	); err != nil {
		return models.LimitBounds{}, err
	}

	s.audit.LogOperation(by, "LIMIT_BOUNDS_UPDATED", map[string]string{
		"min": min.StringFixed(models.MinorUnits),
		"max": max.StringFixed(models.MinorUnits),
	})
	return models.LimitBounds{Min: min, Max: max}, nil
}

// GetPolicy returns the shopkeeper policy, or the platform default when none is stored.
func (s *PolicyService) GetPolicy(ctx context.Context, shopkeeperID string) (*models.CreditPolicy, error) {
	p, err := s.store.GetCreditPolicy(ctx, shopkeeperID)
	if errors.Is(err, models.ErrNotFound) {
		return &models.CreditPolicy{ShopkeeperID: shopkeeperID, DefaultLimit: s.cfg.DefaultCreditLimit}, nil
	}
	return p, err
}

// SetDefaultLimit stores the shopkeeper's default limit. Anything outside the
// platform bounds, zero and negatives included, is OutOfRange.
func (s *PolicyService) SetDefaultLimit(ctx context.Context, shopkeeperID string, value decimal.Decimal) (*models.CreditPolicy, error) {
	bounds, err := s.Bounds(ctx)
	if err != nil {
		return nil, err
	}
	if !bounds.Contains(value) {
		return nil, fmt.Errorf("%w: default limit %s outside [%s, %s]", models.ErrOutOfRange,
			value.StringFixed(models.MinorUnits), bounds.Min.StringFixed(models.MinorUnits), bounds.Max.StringFixed(models.MinorUnits))
	}
	if err := models.ValidateAmount(value); err != nil {
		return nil, err
	}
	if _, err := s.directory.RequireRole(ctx, shopkeeperID, models.RoleShopkeeper); err != nil {
		return nil, err
	}

	p := &models.CreditPolicy{
		ShopkeeperID: shopkeeperID,
		DefaultLimit: value,
		UpdatedAt:    s.now().UTC(),
	}
	if err := s.store.UpsertCreditPolicy(ctx, p); err != nil {
		return nil, err
	}

	s.audit.LogOperation(shopkeeperID, "DEFAULT_LIMIT_UPDATED", map[string]string{
		"default_limit": value.StringFixed(models.MinorUnits),
	})
	return p, nil
}

// GetCustomerLimit returns the stored override, or the default-type entry.
func (s *PolicyService) GetCustomerLimit(ctx context.Context, shopkeeperID, customerID string) (*models.CustomerLimit, error) {
	l, err := s.store.GetCustomerLimit(ctx, shopkeeperID, customerID)
	if errors.Is(err, models.ErrNotFound) {
		return models.DefaultCustomerLimit(shopkeeperID, customerID), nil
	}
	return l, err
}

// SetCustomerLimit stores a per-customer override. manualLimit is required and
// positive for manual limits and ignored otherwise.
func (s *PolicyService) SetCustomerLimit(ctx context.Context, shopkeeperID, customerID string, limitType models.LimitType, manualLimit *decimal.Decimal, creditEnabled bool) (*models.CustomerLimit, error) {
	l := &models.CustomerLimit{
		ShopkeeperID:  shopkeeperID,
		CustomerID:    customerID,
		LimitType:     limitType,
		ManualLimit:   decimal.Zero,
		CreditEnabled: creditEnabled,
		UpdatedAt:     s.now().UTC(),
	}

	switch limitType {
	case models.LimitTypeManual:
		if manualLimit == nil {
			return nil, fmt.Errorf("%w: manual limit is required", models.ErrInvalidAmount)
		}
		if err := models.ValidateAmount(*manualLimit); err != nil {
			return nil, err
		}
		l.ManualLimit = *manualLimit
	case models.LimitTypeDefault:
	default:
		return nil, fmt.Errorf("%w: unknown limit type %q", models.ErrInvalidInput, limitType)
	}

	if _, err := s.directory.RequireRole(ctx, shopkeeperID, models.RoleShopkeeper); err != nil {
		return nil, err
	}
	if _, err := s.directory.RequireRole(ctx, customerID, models.RoleCustomer); err != nil {
		return nil, err
	}

	if err := s.store.UpsertCustomerLimit(ctx, l); err != nil {
		return nil, err
	}

	s.audit.LogOperation(shopkeeperID, "CUSTOMER_LIMIT_UPDATED", map[string]string{
		"customer_id":    customerID,
		"limit_type":     string(limitType),
		"manual_limit":   l.ManualLimit.StringFixed(models.MinorUnits),
		"credit_enabled": fmt.Sprint(creditEnabled),
	})
	return l, nil
}

// Resolve loads both policy documents for a pair.
func (s *PolicyService) Resolve(ctx context.Context, shopkeeperID, customerID string) (*models.CustomerLimit, *models.CreditPolicy, error) {
	policy, err := s.GetPolicy(ctx, shopkeeperID)
	if err != nil {
		return nil, nil, err
	}
	limit, err := s.GetCustomerLimit(ctx, shopkeeperID, customerID)
	if err != nil {
		return nil, nil, err
	}
	return limit, policy, nil
}

func (s *PolicyService) EffectiveLimit(ctx context.Context, shopkeeperID, customerID string) (decimal.Decimal, error) {
	limit, policy, err := s.Resolve(ctx, shopkeeperID, customerID)
	if err != nil {
		return decimal.Zero, err
	}
	return limit.EffectiveLimit(policy), nil
}

// Authorize evaluates a credit against the current balance. The result is
// advisory; LedgerService re-evaluates under the pair lock when appending.
func (s *PolicyService) Authorize(ctx context.Context, customerID, shopkeeperID string, amount decimal.Decimal) (models.Decision, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return models.Decision{}, err
	}
	limit, policy, err := s.Resolve(ctx, shopkeeperID, customerID)
	if err != nil {
		return models.Decision{}, err
	}
	balance, err := s.balances.GetBalance(ctx, customerID, shopkeeperID)
	if err != nil {
		return models.Decision{}, err
	}
	return models.Evaluate(limit, policy, balance, amount), nil
}

func (s *PolicyService) decimalSetting(ctx context.Context, key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	setting, err := s.store.GetSetting(ctx, key)
	if errors.Is(err, models.ErrNotFound) {
		return fallback, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	v, err := decimal.NewFromString(setting.Value)
	if err != nil {
		log.Printf("[POLICY] unparsable setting %s=%q, using %s", key, setting.Value, fallback)
		return fallback, nil
	}
	return v, nil
}
