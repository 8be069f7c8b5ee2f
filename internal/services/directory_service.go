package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/udhaarpay/backend/internal/audit"
	"github.com/udhaarpay/backend/internal/config"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/store"
)

// shortCodeAlphabet leaves out characters that are easy to misread (0/O, 1/I/L).
const shortCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

type DirectoryService struct {
	store   store.Store
	redis   *redis.Client
	cfg     *config.LedgerConfig
	audit   *audit.Logger
	newCode func(length int) (string, error)
	now     func() time.Time
}

func NewDirectoryService(st store.Store, rdb *redis.Client, cfg *config.LedgerConfig, auditLogger *audit.Logger) *DirectoryService {
	return &DirectoryService{
		store:   st,
		redis:   rdb,
		cfg:     cfg,
		audit:   auditLogger,
		newCode: randomShortCode,
		now:     time.Now,
	}
}

// Enroll registers an account under a freshly generated short code, retrying
// on collision.
func (s *DirectoryService) Enroll(ctx context.Context, a *models.Account) (*models.Account, error) {
	if !a.Role.IsAccountRole() {
		return nil, fmt.Errorf("%w: role %q cannot be enrolled", models.ErrInvalidInput, a.Role)
	}
	if strings.TrimSpace(a.DisplayName) == "" {
		return nil, fmt.Errorf("%w: display name is required", models.ErrInvalidInput)
	}

	acct := *a
	if acct.ID == "" {
		acct.ID = uuid.NewString()
	}
	acct.CreatedAt = s.now().UTC()
	switch acct.Role {
	case models.RoleCustomer:
		acct.Shopkeeper = nil
		if acct.Customer == nil {
			acct.Customer = &models.CustomerProfile{}
		}
	case models.RoleShopkeeper:
		acct.Customer = nil
		if acct.Shopkeeper == nil {
			acct.Shopkeeper = &models.ShopkeeperProfile{}
		}
	}

	for attempt := 1; attempt <= s.cfg.ShortCodeAttempts; attempt++ {
		code, err := s.newCode(s.cfg.ShortCodeLength)
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}
		acct.ShortCode = code

		err = s.store.CreateAccount(ctx, &acct)
		if err == nil {
			s.audit.LogOperation(acct.ID, "ACCOUNT_ENROLLED", map[string]string{
				"role":       string(acct.Role),
				"short_code": acct.ShortCode,
			})
			return &acct, nil
		}
		if !errors.Is(err, models.ErrShortCodeTaken) {
			return nil, err
		}
		log.Printf("[DIRECTORY] short code collision for %s (attempt %d/%d)", acct.Role, attempt, s.cfg.ShortCodeAttempts)
	}

	return nil, fmt.Errorf("could not allocate a %s short code after %d attempts: %w",
		acct.Role, s.cfg.ShortCodeAttempts, models.ErrConflict)
}

func (s *DirectoryService) Get(ctx context.Context, accountID string) (*models.Account, error) {
	return s.store.GetAccount(ctx, accountID)
}

// RequireRole loads an account and checks it holds the given role.
func (s *DirectoryService) RequireRole(ctx context.Context, accountID string, role models.Role) (*models.Account, error) {
	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", role, accountID, err)
	}
	if acct.Role != role {
		return nil, fmt.Errorf("%s %s: %w", role, accountID, models.ErrNotFound)
	}
	return acct, nil
}

// ResolveByCode maps a short code to its account id. Redis is a read-through
// cache; the store stays authoritative.
func (s *DirectoryService) ResolveByCode(ctx context.Context, role models.Role, code string) (string, error) {
	if !role.IsAccountRole() {
		return "", fmt.Errorf("%w: unknown role %q", models.ErrInvalidInput, role)
	}
	code = NormalizeShortCode(code)
	if code == "" {
		return "", fmt.Errorf("%w: short code is required", models.ErrInvalidInput)
	}

	key := fmt.Sprintf("shortcode:%s:%s", role, code)
	if s.redis != nil {
		id, err := s.redis.Get(ctx, key).Result()
		if err == nil {
			return id, nil
		}
		if err != redis.Nil {
			log.Printf("[DIRECTORY] cache read failed for %s: %v", key, err)
		}
	}

	acct, err := s.store.GetAccountByCode(ctx, role, code)
	if err != nil {
		return "", err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, acct.ID, s.cfg.ShortCodeCacheTTL).Err(); err != nil {
			log.Printf("[DIRECTORY] cache write failed for %s: %v", key, err)
		}
	}
	return acct.ID, nil
}

// NormalizeShortCode upper-cases and strips separators people type by habit.
func NormalizeShortCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.NewReplacer("-", "", " ", "").Replace(code)
}

func randomShortCode(length int) (string, error) {
	max := big.NewInt(int64(len(shortCodeAlphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = shortCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}
