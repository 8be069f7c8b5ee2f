package services

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/udhaarpay/backend/internal/models"
)

func TestConnectionService_Workflow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	customer := f.enroll(t, models.RoleCustomer, "Asha")
	shop := f.enroll(t, models.RoleShopkeeper, "Kirana")
	other := f.enroll(t, models.RoleShopkeeper, "Other Shop")

	req, err := f.connections.CreateRequest(ctx, customer.ID, shop.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Equal(t, models.RequestSourceManual, req.Source)

	t.Run("duplicate pending", func(t *testing.T) {
		_, err := f.connections.CreateRequest(ctx, customer.ID, shop.ID, models.RequestSourceQR)
		assert.ErrorIs(t, err, models.ErrDuplicatePending)
	})

	t.Run("only the shopkeeper resolves", func(t *testing.T) {
		_, err := f.connections.Approve(ctx, req.ID, other.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)
		_, err = f.connections.Approve(ctx, req.ID, customer.ID)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("approve creates the edge", func(t *testing.T) {
		approved, err := f.connections.Approve(ctx, req.ID, shop.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusApproved, approved.Status)
		assert.NotNil(t, approved.ResolvedAt)

		connected, err := f.connections.IsConnected(ctx, customer.ID, shop.ID)
		require.NoError(t, err)
		assert.True(t, connected)

		fromShop, err := f.connections.ListConnections(ctx, shop.ID)
		require.NoError(t, err)
		require.Len(t, fromShop, 1)
		assert.Equal(t, customer.ID, fromShop[0].Counterparty(shop.ID))

		fromCustomer, err := f.connections.ListConnections(ctx, customer.ID)
		require.NoError(t, err)
		require.Len(t, fromCustomer, 1)
		assert.Equal(t, shop.ID, fromCustomer[0].Counterparty(customer.ID))
	})

	t.Run("resolved requests are terminal", func(t *testing.T) {
		_, err := f.connections.Approve(ctx, req.ID, shop.ID)
		assert.ErrorIs(t, err, models.ErrInvalidState)
		_, err = f.connections.Reject(ctx, req.ID, shop.ID)
		assert.ErrorIs(t, err, models.ErrInvalidState)
	})

	t.Run("already connected", func(t *testing.T) {
		_, err := f.connections.CreateRequest(ctx, customer.ID, shop.ID, models.RequestSourceManual)
		assert.ErrorIs(t, err, models.ErrAlreadyConnected)
	})

	t.Run("unknown request", func(t *testing.T) {
		_, err := f.connections.Approve(ctx, "nope", shop.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestConnectionService_RejectThenRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	customer := f.enroll(t, models.RoleCustomer, "Asha")
	shop := f.enroll(t, models.RoleShopkeeper, "Kirana")

	req, err := f.connections.CreateRequest(ctx, customer.ID, shop.ID, models.RequestSourceManual)
	require.NoError(t, err)

	rejected, err := f.connections.Reject(ctx, req.ID, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, rejected.Status)

	connected, err := f.connections.IsConnected(ctx, customer.ID, shop.ID)
	require.NoError(t, err)
	assert.False(t, connected)

	retry, err := f.connections.CreateRequest(ctx, customer.ID, shop.ID, models.RequestSourceManual)
	require.NoError(t, err)
	assert.NotEqual(t, req.ID, retry.ID)

	pending, err := f.connections.ListRequests(ctx, shop.ID, models.RequestStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, retry.ID, pending[0].ID)

	all, err := f.connections.ListRequests(ctx, customer.ID, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestConnectionService_CreateRequestByCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	customer := f.enroll(t, models.RoleCustomer, "Asha")
	shop := f.enroll(t, models.RoleShopkeeper, "Kirana")

	req, err := f.connections.CreateRequestByCode(ctx, customer.ID, shop.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, shop.ID, req.ShopkeeperID)

	t.Run("code of a customer does not resolve", func(t *testing.T) {
		_, err := f.connections.CreateRequestByCode(ctx, customer.ID, customer.ShortCode)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("roles must match", func(t *testing.T) {
		_, err := f.connections.CreateRequest(ctx, shop.ID, customer.ID, models.RequestSourceManual)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestConnectionService_RateLimit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	customer := f.enroll(t, models.RoleCustomer, "Asha")
	shopA := f.enroll(t, models.RoleShopkeeper, "Shop A")
	shopB := f.enroll(t, models.RoleShopkeeper, "Shop B")

	rdb, mock := redismock.NewClientMock()
	f.connections.limiter = NewRequestLimiter(rdb, 1, time.Hour)
	key := "connreq:ratelimit:" + customer.ID

	mock.ExpectGet(key).RedisNil()
	mock.ExpectIncr(key).SetVal(1)
	mock.ExpectExpire(key, time.Hour).SetVal(true)

	_, err := f.connections.CreateRequest(ctx, customer.ID, shopA.ID, models.RequestSourceManual)
	require.NoError(t, err)

	mock.ExpectGet(key).SetVal("1")

	_, err = f.connections.CreateRequest(ctx, customer.ID, shopB.ID, models.RequestSourceManual)
	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.Equal(t, "RateLimited", models.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
