package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/udhaarpay/backend/internal/audit"
	"github.com/udhaarpay/backend/internal/config"
	"github.com/udhaarpay/backend/internal/database/memory"
	"github.com/udhaarpay/backend/internal/models"
)

type recordingNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return nil
}

func (r *recordingNotifier) all() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.notes...)
}

// fixture wires every service over the in-memory store without Redis.
type fixture struct {
	store       *memory.Store
	cfg         *config.LedgerConfig
	audit       *audit.Logger
	directory   *DirectoryService
	connections *ConnectionService
	balances    *BalanceService
	policy      *PolicyService
	commission  *CommissionService
	feed        *BalanceFeed
	notifier    *recordingNotifier
	ledger      *LedgerService
	settlement  *SettlementService

	codes int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    memory.New(),
		cfg:      config.DefaultLedgerConfig(),
		audit:    audit.NewLogger(),
		notifier: &recordingNotifier{},
	}
	f.directory = NewDirectoryService(f.store, nil, f.cfg, f.audit)
	f.directory.newCode = func(int) (string, error) {
		f.codes++
		return fmt.Sprintf("C%05d", f.codes), nil
	}
	f.connections = NewConnectionService(f.store, f.directory, nil, f.audit)
	f.feed = NewBalanceFeed(nil, f.cfg.BalanceChannel)
	f.balances = NewBalanceService(f.store, f.feed)
	f.policy = NewPolicyService(f.store, f.directory, f.balances, f.cfg, f.audit)
	f.commission = NewCommissionService(f.store, f.cfg, f.audit)
	f.ledger = NewLedgerService(f.store, f.connections, f.directory, f.policy, f.commission, f.feed, f.notifier, f.cfg, f.audit)
	f.settlement = NewSettlementService(f.store, f.directory, NewISO20022Service(), f.cfg, f.audit)
	return f
}

func (f *fixture) enroll(t *testing.T, role models.Role, name string) *models.Account {
	t.Helper()
	acct, err := f.directory.Enroll(context.Background(), &models.Account{Role: role, DisplayName: name})
	require.NoError(t, err)
	return acct
}

// pair enrolls a customer and a shopkeeper and connects them.
func (f *fixture) pair(t *testing.T) (customer, shopkeeper *models.Account) {
	t.Helper()
	ctx := context.Background()
	customer = f.enroll(t, models.RoleCustomer, "Asha")
	shopkeeper = f.enroll(t, models.RoleShopkeeper, "Kirana Store")

	req, err := f.connections.CreateRequest(ctx, customer.ID, shopkeeper.ID, models.RequestSourceManual)
	require.NoError(t, err)
	_, err = f.connections.Approve(ctx, req.ID, shopkeeper.ID)
	require.NoError(t, err)
	return customer, shopkeeper
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
