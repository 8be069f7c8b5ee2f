package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/udhaarpay/backend/internal/models"
)

func TestQRService_Pairing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	customer := f.enroll(t, models.RoleCustomer, "Asha")
	shop := f.enroll(t, models.RoleShopkeeper, "Kirana")

	rdb, mock := redismock.NewClientMock()
	qr := NewQRService(rdb, f.directory, f.connections, 5*time.Minute)
	issued := time.Unix(1700000000, 0)
	qr.now = func() time.Time { return issued }
	qr.nonce = func() (string, error) { return "tok123", nil }

	claim, err := json.Marshal(pairingClaim{ShopkeeperID: shop.ID, IssuedAt: issued.Unix()})
	require.NoError(t, err)

	mock.ExpectSet("pairing:tok123", claim, 5*time.Minute).SetVal("OK")

	code, err := qr.GeneratePairingQR(ctx, shop.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok123", code.Token)
	assert.Equal(t, shop.ShortCode, code.ShortCode)
	assert.NotEmpty(t, code.Image)
	assert.Equal(t, issued.Add(5*time.Minute), code.ExpiresAt)

	mock.ExpectGet("pairing:tok123").SetVal(string(claim))
	mock.ExpectDel("pairing:tok123").SetVal(1)

	req, err := qr.ScanPairingQR(ctx, customer.ID, "tok123")
	require.NoError(t, err)
	assert.Equal(t, shop.ID, req.ShopkeeperID)
	assert.Equal(t, models.RequestSourceQR, req.Source)

	t.Run("token is single use", func(t *testing.T) {
		mock.ExpectGet("pairing:tok123").RedisNil()

		_, err := qr.ScanPairingQR(ctx, customer.ID, "tok123")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("concurrent scan loses the delete", func(t *testing.T) {
		other := f.enroll(t, models.RoleCustomer, "Ravi")
		mock.ExpectGet("pairing:tok123").SetVal(string(claim))
		mock.ExpectDel("pairing:tok123").SetVal(0)

		req, err := qr.ScanPairingQR(ctx, other.ID, "tok123")
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.Nil(t, req)

		pending, err := f.connections.ListRequests(ctx, other.ID, models.RequestStatusPending)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("nonce failure", func(t *testing.T) {
		qr.nonce = func() (string, error) { return "", errors.New("entropy exhausted") }
		defer func() { qr.nonce = func() (string, error) { return "tok123", nil } }()

		_, err := qr.GeneratePairingQR(ctx, shop.ID)
		assert.ErrorContains(t, err, "entropy exhausted")
	})

	t.Run("only shopkeepers issue codes", func(t *testing.T) {
		_, err := qr.GeneratePairingQR(ctx, customer.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateNonce(t *testing.T) {
	a, err := generateNonce()
	require.NoError(t, err)
	b, err := generateNonce()
	require.NoError(t, err)
	assert.Len(t, a, 22)
	assert.NotEqual(t, a, b)
}

func TestQRService_WithoutRedis(t *testing.T) {
	f := newFixture(t)
	qr := NewQRService(nil, f.directory, f.connections, time.Minute)

	_, err := qr.GeneratePairingQR(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrQRUnavailable)
	_, err = qr.ScanPairingQR(context.Background(), "c1", "tok")
	assert.ErrorIs(t, err, ErrQRUnavailable)
}
