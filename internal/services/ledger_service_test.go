package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/store"
)

func TestLedgerService_AppendCredit(t *testing.T) {
	ctx := context.Background()

	t.Run("limit boundary", func(t *testing.T) {
		f := newFixture(t)
		customer, shop := f.pair(t)

		res, err := f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec("1000"), "groceries")
		require.NoError(t, err)
		assert.Equal(t, models.TxTypeCredit, res.Credit.Type)
		assert.True(t, res.Balance.Balance.Equal(dec("1000")))

		_, err = f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec("1"), "")
		assert.ErrorIs(t, err, models.ErrCreditLimitExceeded)

		var denial *models.DenialError
		require.True(t, errors.As(err, &denial))
		assert.Equal(t, models.DenyLimitExceeded, denial.Reason)
		assert.True(t, denial.Limit.Equal(dec("1000")))

		balance, err := f.balances.GetBalance(ctx, customer.ID, shop.ID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(dec("1000")))

		// One when the limit is reached exactly, one on the denial.
		notes := f.notifier.all()
		require.Len(t, notes, 2)
		assert.Equal(t, EventCreditLimitReached, notes[0].Event)
		assert.True(t, notes[1].Attempted.Equal(dec("1")))
	})

	t.Run("credit disabled", func(t *testing.T) {
		f := newFixture(t)
		customer, shop := f.pair(t)
		_, err := f.policy.SetCustomerLimit(ctx, shop.ID, customer.ID, models.LimitTypeDefault, nil, false)
		require.NoError(t, err)

		_, err = f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec("10"), "")
		var denial *models.DenialError
		require.True(t, errors.As(err, &denial))
		assert.Equal(t, models.DenyCreditDisabled, denial.Reason)
		assert.Empty(t, f.notifier.all())
	})

	t.Run("manual limit", func(t *testing.T) {
		f := newFixture(t)
		customer, shop := f.pair(t)
		manual := dec("50")
		_, err := f.policy.SetCustomerLimit(ctx, shop.ID, customer.ID, models.LimitTypeManual, &manual, true)
		require.NoError(t, err)

		_, err = f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec("50.01"), "")
		assert.ErrorIs(t, err, models.ErrCreditLimitExceeded)
		_, err = f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec("49.99"), "")
		assert.NoError(t, err)
	})

	t.Run("not connected", func(t *testing.T) {
		f := newFixture(t)
		customer := f.enroll(t, models.RoleCustomer, "Asha")
		shop := f.enroll(t, models.RoleShopkeeper, "Kirana")

		_, err := f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec("10"), "")
		assert.ErrorIs(t, err, models.ErrNotConnected)
	})

	t.Run("invalid amounts", func(t *testing.T) {
		f := newFixture(t)
		customer, shop := f.pair(t)

		for _, amt := range []string{"0", "-5", "1.005"} {
			_, err := f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec(amt), "")
			assert.ErrorIs(t, err, models.ErrInvalidAmount, amt)
		}
		txs, err := f.ledger.ListTransactions(ctx, models.TransactionFilter{CustomerID: customer.ID})
		require.NoError(t, err)
		assert.Empty(t, txs)
	})

	t.Run("payments make room for more credit", func(t *testing.T) {
		f := newFixture(t)
		customer, shop := f.pair(t)

		_, err := f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec("1000"), "")
		require.NoError(t, err)
		_, err = f.ledger.AppendPayment(ctx, customer.ID, shop.ID, dec("400"), "")
		require.NoError(t, err)
		res, err := f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec("400"), "")
		require.NoError(t, err)
		assert.True(t, res.Balance.Balance.Equal(dec("1000")))
	})
}

func TestLedgerService_ConcurrentCreditsRespectLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	customer, shop := f.pair(t)

	const workers = 25
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		denials int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec("100"), "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, models.ErrCreditLimitExceeded):
				denials++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, workers-10, denials)

	balance, err := f.balances.GetBalance(ctx, customer.ID, shop.ID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("1000")), balance.String())

	rec, err := f.balances.Reconcile(ctx, customer.ID, shop.ID)
	require.NoError(t, err)
	assert.True(t, rec.InSync)
}

func TestLedgerService_AppendPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("commission split", func(t *testing.T) {
		f := newFixture(t)
		customer, shop := f.pair(t)
		_, err := f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec("1000"), "")
		require.NoError(t, err)

		res, err := f.ledger.AppendPayment(ctx, customer.ID, shop.ID, dec("1025"), "pay_001")
		require.NoError(t, err)
		require.NotNil(t, res.Commission)

		assert.False(t, res.Replayed)
		assert.True(t, res.Payment.Principal().Equal(dec("1000")))
		assert.True(t, res.Commission.Amount.Equal(dec("25")))
		assert.Equal(t, res.Payment.ID, res.Commission.RelatedID)
		assert.True(t, res.Payment.CommissionRate.Equal(dec("2.5")))

		// Credits minus payments; commission entries do not move the balance.
		assert.True(t, res.Balance.Balance.Equal(dec("-25")), res.Balance.Balance.String())
		balance, err := f.balances.GetBalance(ctx, customer.ID, shop.ID)
		require.NoError(t, err)
		assert.True(t, balance.Equal(dec("-25")))
	})

	t.Run("zero rate writes no commission entry", func(t *testing.T) {
		f := newFixture(t)
		customer, shop := f.pair(t)
		require.NoError(t, f.commission.SetRate(ctx, decimal.Zero, "owner"))

		res, err := f.ledger.AppendPayment(ctx, customer.ID, shop.ID, dec("100"), "")
		require.NoError(t, err)
		assert.Nil(t, res.Commission)

		commissions, err := f.ledger.ListTransactions(ctx, models.TransactionFilter{Type: models.TxTypeCommission})
		require.NoError(t, err)
		assert.Empty(t, commissions)
	})

	t.Run("rate change does not touch recorded payments", func(t *testing.T) {
		f := newFixture(t)
		customer, shop := f.pair(t)

		first, err := f.ledger.AppendPayment(ctx, customer.ID, shop.ID, dec("1025"), "")
		require.NoError(t, err)
		require.NoError(t, f.commission.SetRate(ctx, dec("5"), "owner"))
		second, err := f.ledger.AppendPayment(ctx, customer.ID, shop.ID, dec("1050"), "")
		require.NoError(t, err)

		assert.True(t, first.Commission.Amount.Equal(dec("25")))
		assert.True(t, second.Commission.Amount.Equal(dec("50")))

		summary, err := f.settlement.Summary(ctx, shop.ID)
		require.NoError(t, err)
		assert.True(t, summary.TotalPrincipal.Equal(dec("2000")))
	})

	t.Run("payment does not require a connection", func(t *testing.T) {
		f := newFixture(t)
		customer := f.enroll(t, models.RoleCustomer, "Asha")
		shop := f.enroll(t, models.RoleShopkeeper, "Kirana")

		_, err := f.ledger.AppendPayment(ctx, customer.ID, shop.ID, dec("10"), "")
		assert.NoError(t, err)
	})

	t.Run("unknown accounts", func(t *testing.T) {
		f := newFixture(t)
		customer := f.enroll(t, models.RoleCustomer, "Asha")

		_, err := f.ledger.AppendPayment(ctx, customer.ID, "ghost", dec("10"), "")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestLedgerService_PaymentIdempotency(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	customer, shop := f.pair(t)

	first, err := f.ledger.AppendPayment(ctx, customer.ID, shop.ID, dec("205"), "pay_abc")
	require.NoError(t, err)

	replay, err := f.ledger.AppendPayment(ctx, customer.ID, shop.ID, dec("205"), "pay_abc")
	require.NoError(t, err)
	assert.True(t, replay.Replayed)
	assert.Equal(t, first.Payment.ID, replay.Payment.ID)
	require.NotNil(t, replay.Commission)
	assert.Equal(t, first.Commission.ID, replay.Commission.ID)

	payments, err := f.ledger.ListTransactions(ctx, models.TransactionFilter{Type: models.TxTypePayment})
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	t.Run("mismatched replay", func(t *testing.T) {
		_, err := f.ledger.AppendPayment(ctx, customer.ID, shop.ID, dec("999"), "pay_abc")
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestLedgerService_ListTransactions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	customer, shop := f.pair(t)

	for _, amt := range []string{"10", "20", "30"} {
		_, err := f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec(amt), "")
		require.NoError(t, err)
	}

	txs, err := f.ledger.ListTransactions(ctx, models.TransactionFilter{ShopkeeperID: shop.ID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Amount.Equal(dec("30")))

	_, err = f.ledger.ListTransactions(ctx, models.TransactionFilter{Type: "refund"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

// conflictingStore fails the first appends with ErrConflict.
type conflictingStore struct {
	store.Store
	failures int
	calls    int
}

func (s *conflictingStore) AppendToPair(ctx context.Context, customerID, shopkeeperID string, fn store.AppendFunc) ([]*models.Transaction, *models.PairBalance, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, nil, models.ErrConflict
	}
	return s.Store.AppendToPair(ctx, customerID, shopkeeperID, fn)
}

func TestLedgerService_RetriesConflicts(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds within attempts", func(t *testing.T) {
		f := newFixture(t)
		customer, shop := f.pair(t)
		cs := &conflictingStore{Store: f.store, failures: 2}
		f.ledger.store = cs

		_, err := f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec("10"), "")
		require.NoError(t, err)
		assert.Equal(t, 3, cs.calls)
	})

	t.Run("abandons after max attempts", func(t *testing.T) {
		f := newFixture(t)
		customer, shop := f.pair(t)
		cs := &conflictingStore{Store: f.store, failures: 10}
		f.ledger.store = cs

		_, err := f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec("10"), "")
		assert.ErrorIs(t, err, models.ErrConflict)
		assert.Equal(t, f.cfg.MaxAppendAttempts, cs.calls)
	})
}

func TestLedgerService_PublishesBalanceUpdates(t *testing.T) {
	f := newFixture(t)
	customer, shop := f.pair(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := f.balances.Subscribe(ctx, customer.ID, shop.ID)

	res, err := f.ledger.AppendCredit(context.Background(), customer.ID, shop.ID, dec("75"), "")
	require.NoError(t, err)

	u := <-updates
	assert.Equal(t, res.Credit.ID, u.TransactionID)
	assert.True(t, u.Balance.Equal(dec("75")))
	assert.Equal(t, 1, u.Version)
}
