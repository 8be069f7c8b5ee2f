package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/store"
)

// PostgresStore implements store.Store on database/sql and lib/pq.
type PostgresStore struct {
	db *sql.DB
}

var _ store.Store = (*PostgresStore)(nil)

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// uniqueViolations maps unique constraints to the domain error they signal.
var uniqueViolations = map[string]error{
	"accounts_short_code_unique":      models.ErrShortCodeTaken,
	"connection_requests_one_pending": models.ErrDuplicatePending,
	"connections_pkey":                models.ErrAlreadyConnected,
	"transactions_reference":          models.ErrDuplicatePayment,
}

// mapError translates driver errors into domain sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505":
		if mapped, ok := uniqueViolations[pqErr.Constraint]; ok {
			return mapped
		}
	case "40001", "40P01":
		return fmt.Errorf("%w: %s", models.ErrConflict, pqErr.Message)
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// Account methods

func (s *PostgresStore) CreateAccount(ctx context.Context, a *models.Account) error {
	var phone, shopName, address string
	if a.Customer != nil {
		phone = a.Customer.PhoneNumber
	}
	if a.Shopkeeper != nil {
		shopName = a.Shopkeeper.ShopName
		address = a.Shopkeeper.Address
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, role, short_code, display_name, phone_number, shop_name, address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, string(a.Role), a.ShortCode, a.DisplayName, phone, shopName, address, a.CreatedAt)
	return mapError(err)
}

const accountColumns = `id, role, short_code, display_name, phone_number, shop_name, address, created_at`

func scanAccount(row rowScanner) (*models.Account, error) {
	var a models.Account
	var role, phone, shopName, address string
	if err := row.Scan(&a.ID, &role, &a.ShortCode, &a.DisplayName, &phone, &shopName, &address, &a.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	a.Role = models.Role(role)
	switch a.Role {
	case models.RoleCustomer:
		a.Customer = &models.CustomerProfile{PhoneNumber: phone}
	case models.RoleShopkeeper:
		a.Shopkeeper = &models.ShopkeeperProfile{ShopName: shopName, Address: address}
	}
	return &a, nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, accountID)
	return scanAccount(row)
}

func (s *PostgresStore) GetAccountByCode(ctx context.Context, role models.Role, code string) (*models.Account, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE role = $1 AND short_code = $2`, string(role), code)
	return scanAccount(row)
}

// Connection methods

func (s *PostgresStore) CreateConnectionRequest(ctx context.Context, req *models.ConnectionRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM connections WHERE customer_id = $1 AND shopkeeper_id = $2)`,
		req.CustomerID, req.ShopkeeperID).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return models.ErrAlreadyConnected
	}

	// connection_requests_one_pending rejects a second pending row for the pair.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO connection_requests (id, customer_id, shopkeeper_id, status, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.CustomerID, req.ShopkeeperID, string(req.Status), string(req.Source), req.CreatedAt)
	if err != nil {
		return mapError(err)
	}

	return mapError(tx.Commit())
}

const requestColumns = `id, customer_id, shopkeeper_id, status, source, created_at, resolved_at`

func scanRequest(row rowScanner) (*models.ConnectionRequest, error) {
	var r models.ConnectionRequest
	var status, source string
	var resolved sql.NullTime
	if err := row.Scan(&r.ID, &r.CustomerID, &r.ShopkeeperID, &status, &source, &r.CreatedAt, &resolved); err != nil {
		return nil, mapError(err)
	}
	r.Status = models.RequestStatus(status)
	r.Source = models.RequestSource(source)
	if resolved.Valid {
		t := resolved.Time
		r.ResolvedAt = &t
	}
	return &r, nil
}

func (s *PostgresStore) GetConnectionRequest(ctx context.Context, requestID string) (*models.ConnectionRequest, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM connection_requests WHERE id = $1`, requestID)
	return scanRequest(row)
}

// ResolveConnectionRequest moves a pending request to its terminal status and,
// on approval, inserts the edge in the same transaction.
func (s *PostgresStore) ResolveConnectionRequest(ctx context.Context, requestID string, status models.RequestStatus, at time.Time) (*models.ConnectionRequest, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	req, err := scanRequest(tx.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM connection_requests WHERE id = $1 FOR UPDATE`, requestID))
	if err != nil {
		return nil, err
	}
	if !req.IsPending() {
		return nil, models.ErrInvalidState
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE connection_requests SET status = $1, resolved_at = $2 WHERE id = $3`,
		string(status), at, requestID); err != nil {
		return nil, mapError(err)
	}

	if status == models.RequestStatusApproved {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO connections (customer_id, shopkeeper_id, request_id, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (customer_id, shopkeeper_id) DO NOTHING`,
			req.CustomerID, req.ShopkeeperID, req.ID, at); err != nil {
			return nil, mapError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, mapError(err)
	}

	req.Status = status
	req.ResolvedAt = &at
	return req, nil
}

func (s *PostgresStore) ListConnectionRequests(ctx context.Context, accountID string, status models.RequestStatus) ([]*models.ConnectionRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM connection_requests
		WHERE (customer_id = $1 OR shopkeeper_id = $1)`
	args := []any{accountID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.ConnectionRequest{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetConnection(ctx context.Context, customerID, shopkeeperID string) (*models.Connection, error) {
	var c models.Connection
	err := s.db.QueryRowContext(ctx, `
		SELECT customer_id, shopkeeper_id, request_id, created_at
		FROM connections WHERE customer_id = $1 AND shopkeeper_id = $2`,
		customerID, shopkeeperID).Scan(&c.CustomerID, &c.ShopkeeperID, &c.RequestID, &c.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (s *PostgresStore) ListConnections(ctx context.Context, accountID string) ([]*models.Connection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_id, shopkeeper_id, request_id, created_at
		FROM connections WHERE customer_id = $1 OR shopkeeper_id = $1
		ORDER BY created_at`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.Connection{}
	for rows.Next() {
		var c models.Connection
		if err := rows.Scan(&c.CustomerID, &c.ShopkeeperID, &c.RequestID, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Credit policy methods

func (s *PostgresStore) GetCreditPolicy(ctx context.Context, shopkeeperID string) (*models.CreditPolicy, error) {
	var p models.CreditPolicy
	err := s.db.QueryRowContext(ctx, `
		SELECT shopkeeper_id, default_limit, updated_at FROM credit_policies WHERE shopkeeper_id = $1`,
		shopkeeperID).Scan(&p.ShopkeeperID, &p.DefaultLimit, &p.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &p, nil
}

func (s *PostgresStore) UpsertCreditPolicy(ctx context.Context, p *models.CreditPolicy) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credit_policies (shopkeeper_id, default_limit, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (shopkeeper_id) DO UPDATE SET default_limit = EXCLUDED.default_limit, updated_at = EXCLUDED.updated_at`,
		p.ShopkeeperID, p.DefaultLimit, p.UpdatedAt)
	return mapError(err)
}

func (s *PostgresStore) GetCustomerLimit(ctx context.Context, shopkeeperID, customerID string) (*models.CustomerLimit, error) {
	var l models.CustomerLimit
	var limitType string
	err := s.db.QueryRowContext(ctx, `
		SELECT shopkeeper_id, customer_id, limit_type, manual_limit, credit_enabled, updated_at
		FROM customer_limits WHERE shopkeeper_id = $1 AND customer_id = $2`,
		shopkeeperID, customerID).Scan(&l.ShopkeeperID, &l.CustomerID, &limitType, &l.ManualLimit, &l.CreditEnabled, &l.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	l.LimitType = models.LimitType(limitType)
	return &l, nil
}

func (s *PostgresStore) UpsertCustomerLimit(ctx context.Context, l *models.CustomerLimit) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customer_limits (shopkeeper_id, customer_id, limit_type, manual_limit, credit_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (shopkeeper_id, customer_id) DO UPDATE SET
			limit_type = EXCLUDED.limit_type,
			manual_limit = EXCLUDED.manual_limit,
			credit_enabled = EXCLUDED.credit_enabled,
			updated_at = EXCLUDED.updated_at`,
		l.ShopkeeperID, l.CustomerID, string(l.LimitType), l.ManualLimit, l.CreditEnabled, l.UpdatedAt)
	return mapError(err)
}

// Platform settings

func (s *PostgresStore) GetSetting(ctx context.Context, key string) (*models.PlatformSetting, error) {
	var ps models.PlatformSetting
	err := s.db.QueryRowContext(ctx, `
		SELECT key, value, updated_by, updated_at FROM platform_settings WHERE key = $1`,
		key).Scan(&ps.Key, &ps.Value, &ps.UpdatedBy, &ps.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &ps, nil
}

func (s *PostgresStore) PutSetting(ctx context.Context, settings ...*models.PlatformSetting) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, ps := range settings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO platform_settings (key, value, updated_by, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`,
			ps.Key, ps.Value, ps.UpdatedBy, ps.UpdatedAt); err != nil {
			return mapError(err)
		}
	}
	return tx.Commit()
}

// Core methods

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
