// Package store defines the persistence contract shared by the Postgres and
// in-memory backends.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/udhaarpay/backend/internal/models"
)

// PairState is what an append sees while holding the pair lock.
// Balance is folded from the log; Cached is the materialized row before the append.
type PairState struct {
	CustomerID   string
	ShopkeeperID string
	Balance      decimal.Decimal
	Cached       decimal.Decimal
	Version      int
}

// AppendFunc decides, under the pair lock, which entries to append.
// Returning an error aborts the append with nothing written.
type AppendFunc func(state PairState) ([]*models.Transaction, error)

// SettleFunc decides, under the shopkeeper settlement lock, what to record.
// payments holds every payment entry for the shopkeeper.
type SettleFunc func(payments []*models.Transaction, settled decimal.Decimal) (*models.SettlementRecord, error)

// PairFilter narrows balance listings. Empty fields match everything.
type PairFilter struct {
	CustomerID   string
	ShopkeeperID string
}

// Store is the unified storage interface for the ledger.
type Store interface {
	// Account methods
	CreateAccount(ctx context.Context, a *models.Account) error
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	GetAccountByCode(ctx context.Context, role models.Role, code string) (*models.Account, error)

	// Connection methods
	CreateConnectionRequest(ctx context.Context, req *models.ConnectionRequest) error
	GetConnectionRequest(ctx context.Context, requestID string) (*models.ConnectionRequest, error)
	ResolveConnectionRequest(ctx context.Context, requestID string, status models.RequestStatus, at time.Time) (*models.ConnectionRequest, error)
	ListConnectionRequests(ctx context.Context, accountID string, status models.RequestStatus) ([]*models.ConnectionRequest, error)
	GetConnection(ctx context.Context, customerID, shopkeeperID string) (*models.Connection, error)
	ListConnections(ctx context.Context, accountID string) ([]*models.Connection, error)

	// Credit policy methods
	GetCreditPolicy(ctx context.Context, shopkeeperID string) (*models.CreditPolicy, error)
	UpsertCreditPolicy(ctx context.Context, p *models.CreditPolicy) error
	GetCustomerLimit(ctx context.Context, shopkeeperID, customerID string) (*models.CustomerLimit, error)
	UpsertCustomerLimit(ctx context.Context, l *models.CustomerLimit) error

	// Ledger methods
	AppendToPair(ctx context.Context, customerID, shopkeeperID string, fn AppendFunc) ([]*models.Transaction, *models.PairBalance, error)
	ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error)
	GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error)
	GetPairBalance(ctx context.Context, customerID, shopkeeperID string) (*models.PairBalance, error)
	ListPairBalances(ctx context.Context, filter PairFilter) ([]*models.PairBalance, error)

	// Platform settings
	GetSetting(ctx context.Context, key string) (*models.PlatformSetting, error)
	// PutSetting writes every setting or none of them.
	PutSetting(ctx context.Context, settings ...*models.PlatformSetting) error

	// Settlement methods
	RecordSettlement(ctx context.Context, shopkeeperID string, fn SettleFunc) (*models.SettlementRecord, error)
	ListSettlements(ctx context.Context, shopkeeperID string) ([]*models.SettlementRecord, error)
	SettledAmount(ctx context.Context, shopkeeperID string) (decimal.Decimal, error)
	SettledAmounts(ctx context.Context) (map[string]decimal.Decimal, error)

	// Core methods
	Ping(ctx context.Context) error
	Close() error
}
