package services

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skip2/go-qrcode"
	"github.com/udhaarpay/backend/internal/models"
)

// ErrQRUnavailable is returned when pairing QR codes cannot be issued (no Redis).
var ErrQRUnavailable = errors.New("pairing QR codes are unavailable")

// PairingQR is shown by a shopkeeper and scanned by a customer.
type PairingQR struct {
	Token     string    `json:"token"`
	Image     string    `json:"qrImage"` // base64 PNG
	ShortCode string    `json:"shortCode"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type pairingClaim struct {
	ShopkeeperID string `json:"shopkeeperId"`
	IssuedAt     int64  `json:"issuedAt"`
}

// QRService issues single-use pairing tokens stored in Redis with a TTL.
type QRService struct {
	redis       *redis.Client
	directory   *DirectoryService
	connections *ConnectionService
	ttl         time.Duration
	nonce       func() (string, error)
	now         func() time.Time
}

func NewQRService(rdb *redis.Client, directory *DirectoryService, connections *ConnectionService, ttl time.Duration) *QRService {
	return &QRService{
		redis:       rdb,
		directory:   directory,
		connections: connections,
		ttl:         ttl,
		nonce:       generateNonce,
		now:         time.Now,
	}
}

func (s *QRService) GeneratePairingQR(ctx context.Context, shopkeeperID string) (*PairingQR, error) {
	if s.redis == nil {
		return nil, ErrQRUnavailable
	}
	shop, err := s.directory.RequireRole(ctx, shopkeeperID, models.RoleShopkeeper)
	if err != nil {
		return nil, err
	}

	now := s.now()
	claim, err := json.Marshal(pairingClaim{ShopkeeperID: shop.ID, IssuedAt: now.Unix()})
	if err != nil {
		return nil, err
	}

	token, err := s.nonce()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("pairing:%s", token)
	if err := s.redis.Set(ctx, key, claim, s.ttl).Err(); err != nil {
		return nil, err
	}

	qr, err := qrcode.New(token, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(256)); err != nil {
		return nil, err
	}

	return &PairingQR{
		Token:     token,
		Image:     base64.StdEncoding.EncodeToString(buf.Bytes()),
		ShortCode: shop.ShortCode,
		ExpiresAt: now.Add(s.ttl),
	}, nil
}

// ScanPairingQR consumes the token and opens a connection request from the
// scanning customer to the issuing shopkeeper.
func (s *QRService) ScanPairingQR(ctx context.Context, customerID, token string) (*models.ConnectionRequest, error) {
	if s.redis == nil {
		return nil, ErrQRUnavailable
	}
	key := fmt.Sprintf("pairing:%s", token)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("%w: invalid or expired QR code", models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var claim pairingClaim
	if err := json.Unmarshal(data, &claim); err != nil {
		return nil, err
	}

	// Del decides the winner when two customers scan the same code.
	removed, err := s.redis.Del(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if removed == 0 {
		return nil, fmt.Errorf("%w: QR code already used", models.ErrNotFound)
	}

	return s.connections.CreateRequest(ctx, customerID, claim.ShopkeeperID, models.RequestSourceQR)
}

func generateNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate pairing token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
