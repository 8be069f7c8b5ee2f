package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/udhaarpay/backend/internal/audit"
	"github.com/udhaarpay/backend/internal/config"
	"github.com/udhaarpay/backend/internal/metrics"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/store"
)

const maxListLimit = 500

// PaymentResult is what a payment append produced. Replayed is set when the
// reference had already been recorded and nothing was written.
type PaymentResult struct {
	Payment    *models.Transaction `json:"payment"`
	Commission *models.Transaction `json:"commission,omitempty"`
	Balance    *models.PairBalance `json:"balance,omitempty"`
	Replayed   bool                `json:"replayed"`
}

// CreditResult is a committed credit with the pair's new balance.
type CreditResult struct {
	Credit  *models.Transaction `json:"credit"`
	Balance *models.PairBalance `json:"balance"`
}

// LedgerService appends to the transaction log. Every append for a pair runs
// under that pair's lock in the store.
type LedgerService struct {
	store       store.Store
	connections *ConnectionService
	directory   *DirectoryService
	policy      *PolicyService
	commission  *CommissionService
	feed        *BalanceFeed
	notifier    Notifier
	audit       *audit.Logger
	cfg         *config.LedgerConfig
	now         func() time.Time
}

func NewLedgerService(
	st store.Store,
	connections *ConnectionService,
	directory *DirectoryService,
	policy *PolicyService,
	commission *CommissionService,
	feed *BalanceFeed,
	notifier Notifier,
	cfg *config.LedgerConfig,
	auditLogger *audit.Logger,
) *LedgerService {
	return &LedgerService{
		store:       st,
		connections: connections,
		directory:   directory,
		policy:      policy,
		commission:  commission,
		feed:        feed,
		notifier:    notifier,
		audit:       auditLogger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// AppendCredit records udhaar extended by the shopkeeper. The limit check runs
// against the balance read under the pair lock.
func (s *LedgerService) AppendCredit(ctx context.Context, customerID, shopkeeperID string, amount decimal.Decimal, notes string) (*CreditResult, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return nil, err
	}

	connected, err := s.connections.IsConnected(ctx, customerID, shopkeeperID)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, fmt.Errorf("%w: customer %s, shopkeeper %s", models.ErrNotConnected, customerID, shopkeeperID)
	}

	limit, policy, err := s.policy.Resolve(ctx, shopkeeperID, customerID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var decision models.Decision
	entries, row, err := s.appendWithRetry(ctx, customerID, shopkeeperID, func(state store.PairState) ([]*models.Transaction, error) {
		decision = models.Evaluate(limit, policy, state.Balance, amount)
		if !decision.Allowed {
			return nil, decision.Err()
		}
		return []*models.Transaction{{
			ID:           uuid.NewString(),
			CustomerID:   customerID,
			ShopkeeperID: shopkeeperID,
			Type:         models.TxTypeCredit,
			Amount:       amount,
			Notes:        notes,
			CreatedAt:    s.now().UTC(),
		}}, nil
	})
	metrics.AppendLatency.WithLabelValues(string(models.TxTypeCredit)).Observe(time.Since(start).Seconds())

	if err != nil {
		var denial *models.DenialError
		if errors.As(err, &denial) {
			metrics.CreditDenials.WithLabelValues(string(denial.Reason)).Inc()
			s.audit.LogDenial(customerID, shopkeeperID, amount, string(denial.Reason))
			if denial.Reason == models.DenyLimitExceeded {
				s.notify(ctx, Notification{
					Event:        EventCreditLimitReached,
					CustomerID:   customerID,
					ShopkeeperID: shopkeeperID,
					Balance:      denial.Balance,
					Limit:        denial.Limit,
					Attempted:    amount,
				})
			}
		} else {
			s.audit.LogError(customerID, shopkeeperID, err)
		}
		return nil, err
	}

	credit := entries[0]
	s.recordAppend(ctx, entries, row)

	if row.Balance.Equal(decision.EffectiveLimit) {
		s.notify(ctx, Notification{
			Event:        EventCreditLimitReached,
			CustomerID:   customerID,
			ShopkeeperID: shopkeeperID,
			Balance:      row.Balance,
			Limit:        decision.EffectiveLimit,
			Attempted:    amount,
		})
	}

	return &CreditResult{Credit: credit, Balance: row}, nil
}

// AppendPayment records a gateway-confirmed repayment and, when the stamped
// rate yields a commission, the derived commission entry in the same write.
// A reference seen before returns the original payment unchanged.
func (s *LedgerService) AppendPayment(ctx context.Context, customerID, shopkeeperID string, amount decimal.Decimal, reference string) (*PaymentResult, error) {
	if err := models.ValidateAmount(amount); err != nil {
		return nil, err
	}

	if reference != "" {
		if res, err := s.replay(ctx, customerID, shopkeeperID, amount, reference); res != nil || err != nil {
			return res, err
		}
	}

	if _, err := s.directory.RequireRole(ctx, customerID, models.RoleCustomer); err != nil {
		return nil, err
	}
	if _, err := s.directory.RequireRole(ctx, shopkeeperID, models.RoleShopkeeper); err != nil {
		return nil, err
	}

	rate, err := s.commission.RateInEffect(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	entries, row, err := s.appendWithRetry(ctx, customerID, shopkeeperID, func(state store.PairState) ([]*models.Transaction, error) {
		now := s.now().UTC()
		stamped := rate
		payment := &models.Transaction{
			ID:             uuid.NewString(),
			CustomerID:     customerID,
			ShopkeeperID:   shopkeeperID,
			Type:           models.TxTypePayment,
			Amount:         amount,
			CommissionRate: &stamped,
			Reference:      reference,
			CreatedAt:      now,
		}
		out := []*models.Transaction{payment}

		_, commission := models.SplitPayment(amount, rate)
		if commission.IsPositive() {
			out = append(out, &models.Transaction{
				ID:             uuid.NewString(),
				CustomerID:     customerID,
				ShopkeeperID:   shopkeeperID,
				Type:           models.TxTypeCommission,
				Amount:         commission,
				Notes:          "platform commission on payment",
				CommissionRate: &stamped,
				RelatedID:      payment.ID,
				CreatedAt:      now,
			})
		}
		return out, nil
	})
	metrics.AppendLatency.WithLabelValues(string(models.TxTypePayment)).Observe(time.Since(start).Seconds())

	if errors.Is(err, models.ErrDuplicatePayment) {
		// Lost a race with a concurrent delivery of the same webhook.
		if res, rerr := s.replay(ctx, customerID, shopkeeperID, amount, reference); res != nil || rerr != nil {
			return res, rerr
		}
	}
	if err != nil {
		s.audit.LogError(customerID, shopkeeperID, err)
		return nil, err
	}

	s.recordAppend(ctx, entries, row)

	res := &PaymentResult{Payment: entries[0], Balance: row}
	if len(entries) > 1 {
		res.Commission = entries[1]
	}
	return res, nil
}

// replay returns the recorded payment for reference, nil if there is none.
func (s *LedgerService) replay(ctx context.Context, customerID, shopkeeperID string, amount decimal.Decimal, reference string) (*PaymentResult, error) {
	existing, err := s.store.GetTransactionByReference(ctx, reference)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if existing.CustomerID != customerID || existing.ShopkeeperID != shopkeeperID || !existing.Amount.Equal(amount) {
		return nil, fmt.Errorf("%w: reference %s already recorded for a different payment", models.ErrInvalidInput, reference)
	}

	metrics.PaymentReplays.Inc()
	log.Printf("[LEDGER] payment reference %s replayed, returning %s", reference, existing.ID)

	res := &PaymentResult{Payment: existing, Replayed: true}
	related, err := s.store.ListTransactions(ctx, models.TransactionFilter{
		CustomerID:   customerID,
		ShopkeeperID: shopkeeperID,
		Type:         models.TxTypeCommission,
	})
	if err != nil {
		return nil, err
	}
	for _, c := range related {
		if c.RelatedID == existing.ID {
			res.Commission = c
			break
		}
	}
	return res, nil
}

// ListTransactions reads the log newest first.
func (s *LedgerService) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction type %q", models.ErrInvalidInput, filter.Type)
	}
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return s.store.ListTransactions(ctx, filter)
}

func (s *LedgerService) appendWithRetry(ctx context.Context, customerID, shopkeeperID string, fn store.AppendFunc) ([]*models.Transaction, *models.PairBalance, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAppendAttempts; attempt++ {
		entries, row, err := s.store.AppendToPair(ctx, customerID, shopkeeperID, fn)
		if err == nil {
			return entries, row, nil
		}
		if !errors.Is(err, models.ErrConflict) {
			return nil, nil, err
		}

		metrics.AppendConflicts.Inc()
		log.Printf("[LEDGER] append conflict on %s/%s (attempt %d/%d): %v",
			customerID, shopkeeperID, attempt, s.cfg.MaxAppendAttempts, err)
		lastErr = err
	}
	return nil, nil, fmt.Errorf("append to %s/%s abandoned after %d attempts: %w",
		customerID, shopkeeperID, s.cfg.MaxAppendAttempts, lastErr)
}

func (s *LedgerService) recordAppend(ctx context.Context, entries []*models.Transaction, row *models.PairBalance) {
	for _, e := range entries {
		metrics.LedgerAppends.WithLabelValues(string(e.Type)).Inc()
		s.audit.LogAppend(e.ID, e.CustomerID, e.ShopkeeperID, string(e.Type), e.Amount)
	}
	s.feed.Publish(ctx, BalanceUpdate{
		CustomerID:    row.CustomerID,
		ShopkeeperID:  row.ShopkeeperID,
		Balance:       row.Balance,
		Version:       row.Version,
		TransactionID: entries[0].ID,
		At:            row.UpdatedAt,
	})
}

func (s *LedgerService) notify(ctx context.Context, n Notification) {
	n.At = s.now().UTC()
	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Printf("[LEDGER] failed to queue %s for %s/%s: %v", n.Event, n.CustomerID, n.ShopkeeperID, err)
	}
}
