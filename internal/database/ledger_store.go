package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/store"
)

const transactionColumns = `id, customer_id, shopkeeper_id, type, amount, notes, commission_rate, related_id, reference, created_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var txType string
	var rate decimal.NullDecimal
	var related, reference sql.NullString
	if err := row.Scan(&tx.ID, &tx.CustomerID, &tx.ShopkeeperID, &txType, &tx.Amount, &tx.Notes,
		&rate, &related, &reference, &tx.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	tx.Type = models.TransactionType(txType)
	if rate.Valid {
		r := rate.Decimal
		tx.CommissionRate = &r
	}
	tx.RelatedID = related.String
	tx.Reference = reference.String
	return &tx, nil
}

// AppendToPair runs fn and the resulting inserts in one transaction holding
// the pair_balances row lock. The row is rewritten from the folded log with a
// version check.
func (s *PostgresStore) AppendToPair(ctx context.Context, customerID, shopkeeperID string, fn store.AppendFunc) ([]*models.Transaction, *models.PairBalance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	cached, version, err := s.lockPair(ctx, tx, customerID, shopkeeperID)
	if err != nil {
		return nil, nil, err
	}

	balance, err := s.foldPair(ctx, tx, customerID, shopkeeperID)
	if err != nil {
		return nil, nil, err
	}

	entries, err := fn(store.PairState{
		CustomerID:   customerID,
		ShopkeeperID: shopkeeperID,
		Balance:      balance,
		Cached:       cached,
		Version:      version,
	})
	if err != nil {
		return nil, nil, err
	}

	for _, e := range entries {
		if err := s.insertTransaction(ctx, tx, e); err != nil {
			return nil, nil, err
		}
		balance = balance.Add(e.BalanceEffect())
	}

	now := time.Now()
	if err := s.updatePairBalance(ctx, tx, customerID, shopkeeperID, balance, version, now); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, mapError(err)
	}

	return entries, &models.PairBalance{
		CustomerID:   customerID,
		ShopkeeperID: shopkeeperID,
		Balance:      balance,
		Version:      version + 1,
		UpdatedAt:    now,
	}, nil
}

func (s *PostgresStore) lockPair(ctx context.Context, tx *sql.Tx, customerID, shopkeeperID string) (decimal.Decimal, int, error) {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO pair_balances (customer_id, shopkeeper_id, balance, version, updated_at)
		VALUES ($1, $2, 0, 0, $3)
		ON CONFLICT (customer_id, shopkeeper_id) DO NOTHING`,
		customerID, shopkeeperID, time.Now()); err != nil {
		return decimal.Zero, 0, mapError(err)
	}

	var balance decimal.Decimal
	var version int
	err := tx.QueryRowContext(ctx, `
		SELECT balance, version FROM pair_balances
		WHERE customer_id = $1 AND shopkeeper_id = $2
		FOR UPDATE`, customerID, shopkeeperID).Scan(&balance, &version)
	if err != nil {
		return decimal.Zero, 0, mapError(err)
	}
	return balance, version, nil
}

func (s *PostgresStore) foldPair(ctx context.Context, tx *sql.Tx, customerID, shopkeeperID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type = 'credit' THEN amount WHEN type = 'payment' THEN -amount ELSE 0 END), 0)
		FROM transactions WHERE customer_id = $1 AND shopkeeper_id = $2`,
		customerID, shopkeeperID).Scan(&balance)
	if err != nil {
		return decimal.Zero, mapError(err)
	}
	return balance, nil
}

func (s *PostgresStore) insertTransaction(ctx context.Context, tx *sql.Tx, t *models.Transaction) error {
	rate := decimal.NullDecimal{}
	if t.CommissionRate != nil {
		rate = decimal.NewNullDecimal(*t.CommissionRate)
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.CustomerID, t.ShopkeeperID, string(t.Type), t.Amount, t.Notes,
		rate, nullString(t.RelatedID), nullString(t.Reference), t.CreatedAt)
	return mapError(err)
}

func (s *PostgresStore) updatePairBalance(ctx context.Context, tx *sql.Tx, customerID, shopkeeperID string, balance decimal.Decimal, version int, at time.Time) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE pair_balances
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE customer_id = $3 AND shopkeeper_id = $4 AND version = $5`,
		balance, at, customerID, shopkeeperID, version)
	if err != nil {
		return mapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("optimistic lock failed for pair %s/%s: %w", customerID, shopkeeperID, models.ErrConflict)
	}

	return nil
}

// ListTransactions returns matching entries newest first.
func (s *PostgresStore) ListTransactions(ctx context.Context, filter models.TransactionFilter) ([]*models.Transaction, error) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.CustomerID != "" {
		add("customer_id = $%d", filter.CustomerID)
	}
	if filter.ShopkeeperID != "" {
		add("shopkeeper_id = $%d", filter.ShopkeeperID)
	}
	if filter.Type != "" {
		add("type = $%d", string(filter.Type))
	}
	if filter.Since != nil {
		add("created_at >= $%d", *filter.Since)
	}
	if filter.Until != nil {
		add("created_at < $%d", *filter.Until)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetTransactionByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE reference = $1`, reference)
	return scanTransaction(row)
}

func (s *PostgresStore) GetPairBalance(ctx context.Context, customerID, shopkeeperID string) (*models.PairBalance, error) {
	var b models.PairBalance
	err := s.db.QueryRowContext(ctx, `
		SELECT customer_id, shopkeeper_id, balance, version, updated_at
		FROM pair_balances WHERE customer_id = $1 AND shopkeeper_id = $2`,
		customerID, shopkeeperID).Scan(&b.CustomerID, &b.ShopkeeperID, &b.Balance, &b.Version, &b.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &b, nil
}

func (s *PostgresStore) ListPairBalances(ctx context.Context, filter store.PairFilter) ([]*models.PairBalance, error) {
	query := `SELECT customer_id, shopkeeper_id, balance, version, updated_at FROM pair_balances`
	var conds []string
	var args []any
	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		conds = append(conds, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.ShopkeeperID != "" {
		args = append(args, filter.ShopkeeperID)
		conds = append(conds, fmt.Sprintf("shopkeeper_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.PairBalance{}
	for rows.Next() {
		var b models.PairBalance
		if err := rows.Scan(&b.CustomerID, &b.ShopkeeperID, &b.Balance, &b.Version, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}
