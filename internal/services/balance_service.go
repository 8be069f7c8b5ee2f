package services

import (
	"context"
	"errors"
	"log"

	"github.com/shopspring/decimal"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/store"
)

// Reconciliation compares the folded log with the materialized row.
type Reconciliation struct {
	CustomerID   string          `json:"customerId"`
	ShopkeeperID string          `json:"shopkeeperId"`
	Folded       decimal.Decimal `json:"folded"`
	Cached       decimal.Decimal `json:"cached"`
	Drift        decimal.Decimal `json:"drift"`
	InSync       bool            `json:"inSync"`
}

// BalanceService derives balances from the transaction log. The log is the
// only source of truth; pair_balances is a read optimization.
type BalanceService struct {
	store store.Store
	feed  *BalanceFeed
}

func NewBalanceService(st store.Store, feed *BalanceFeed) *BalanceService {
	return &BalanceService{store: st, feed: feed}
}

func (s *BalanceService) GetBalance(ctx context.Context, customerID, shopkeeperID string) (decimal.Decimal, error) {
	txs, err := s.store.ListTransactions(ctx, models.TransactionFilter{
		CustomerID:   customerID,
		ShopkeeperID: shopkeeperID,
	})
	if err != nil {
		return decimal.Zero, err
	}
	return models.FoldBalance(txs), nil
}

func (s *BalanceService) Reconcile(ctx context.Context, customerID, shopkeeperID string) (*Reconciliation, error) {
	folded, err := s.GetBalance(ctx, customerID, shopkeeperID)
	if err != nil {
		return nil, err
	}

	cached := decimal.Zero
	row, err := s.store.GetPairBalance(ctx, customerID, shopkeeperID)
	switch {
	case err == nil:
		cached = row.Balance
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}

	r := &Reconciliation{
		CustomerID:   customerID,
		ShopkeeperID: shopkeeperID,
		Folded:       folded,
		Cached:       cached,
		Drift:        cached.Sub(folded),
		InSync:       cached.Equal(folded),
	}
	if !r.InSync {
		log.Printf("[BALANCE] drift on %s/%s: cached=%s folded=%s", customerID, shopkeeperID, cached, folded)
	}
	return r, nil
}

// ListBalances reads the materialized rows for one side of the pairs.
func (s *BalanceService) ListBalances(ctx context.Context, accountID string, role models.Role) ([]*models.PairBalance, error) {
	filter := store.PairFilter{}
	switch role {
	case models.RoleCustomer:
		filter.CustomerID = accountID
	case models.RoleShopkeeper:
		filter.ShopkeeperID = accountID
	}
	return s.store.ListPairBalances(ctx, filter)
}

func (s *BalanceService) Subscribe(ctx context.Context, customerID, shopkeeperID string) <-chan BalanceUpdate {
	return s.feed.Subscribe(ctx, customerID, shopkeeperID)
}
