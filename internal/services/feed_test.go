package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/udhaarpay/backend/internal/models"
)

func TestBalanceFeed_LocalDelivery(t *testing.T) {
	feed := NewBalanceFeed(nil, "ledger:balances")

	ctx, cancel := context.WithCancel(context.Background())
	mine := feed.Subscribe(ctx, "c1", "s1")
	other := feed.Subscribe(ctx, "c2", "s1")

	feed.Publish(context.Background(), BalanceUpdate{CustomerID: "c1", ShopkeeperID: "s1", Balance: dec("10"), Version: 1})

	select {
	case u := <-mine:
		assert.True(t, u.Balance.Equal(dec("10")))
	case <-time.After(time.Second):
		t.Fatal("update not delivered")
	}

	select {
	case u := <-other:
		t.Fatalf("unexpected update for another pair: %+v", u)
	default:
	}

	cancel()
	select {
	case _, ok := <-mine:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestBalanceFeed_SlowSubscriberDoesNotBlock(t *testing.T) {
	feed := NewBalanceFeed(nil, "ledger:balances")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := feed.Subscribe(ctx, "c1", "s1")

	for i := 0; i < feedBuffer+5; i++ {
		feed.Publish(context.Background(), BalanceUpdate{CustomerID: "c1", ShopkeeperID: "s1", Version: i + 1})
	}
	assert.Len(t, ch, feedBuffer)
}

func TestBalanceFeed_PublishesToRedis(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	feed := NewBalanceFeed(rdb, "ledger:balances")

	u := BalanceUpdate{CustomerID: "c1", ShopkeeperID: "s1", Balance: dec("12.5"), Version: 3, At: time.Unix(1700000000, 0).UTC()}
	payload, err := json.Marshal(u)
	require.NoError(t, err)
	mock.ExpectPublish("ledger:balances", payload).SetVal(1)

	feed.Publish(context.Background(), u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotifier(t *testing.T) {
	t.Run("queues on redis", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		n := NewNotifier(rdb, "notifications:queue")

		note := Notification{
			Event:        EventCreditLimitReached,
			CustomerID:   "c1",
			ShopkeeperID: "s1",
			Balance:      dec("1000"),
			Limit:        dec("1000"),
			Attempted:    dec("5"),
			At:           time.Unix(1700000000, 0).UTC(),
		}
		payload, err := json.Marshal(note)
		require.NoError(t, err)
		mock.ExpectRPush("notifications:queue", payload).SetVal(1)

		assert.NoError(t, n.Notify(context.Background(), note))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("falls back to log", func(t *testing.T) {
		n := NewNotifier(nil, "notifications:queue")
		_, ok := n.(LogNotifier)
		assert.True(t, ok)
		assert.NoError(t, n.Notify(context.Background(), Notification{Event: EventCreditLimitReached}))
	})
}

func TestBalanceService_ListBalances(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	customer, shop := f.pair(t)

	_, err := f.ledger.AppendCredit(ctx, customer.ID, shop.ID, dec("120"), "")
	require.NoError(t, err)

	for _, tc := range []struct {
		id   string
		role models.Role
	}{
		{customer.ID, models.RoleCustomer},
		{shop.ID, models.RoleShopkeeper},
		{"owner-1", models.RoleOwner},
	} {
		rows, err := f.balances.ListBalances(ctx, tc.id, tc.role)
		require.NoError(t, err)
		require.Len(t, rows, 1, tc.role)
		assert.True(t, rows[0].Balance.Equal(dec("120")))
	}

	rows, err := f.balances.ListBalances(ctx, "someone-else", models.RoleCustomer)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rec, err := f.balances.Reconcile(ctx, customer.ID, shop.ID)
	require.NoError(t, err)
	assert.True(t, rec.InSync)
	assert.True(t, rec.Drift.IsZero())
}
