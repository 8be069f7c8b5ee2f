package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/udhaarpay/backend/internal/models"
	"github.com/udhaarpay/backend/internal/store"
)

// RecordSettlement serializes settlements per shopkeeper on the
// settlement_accounts row, the same way appends lock pair_balances.
func (s *PostgresStore) RecordSettlement(ctx context.Context, shopkeeperID string, fn store.SettleFunc) (*models.SettlementRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO settlement_accounts (shopkeeper_id, settled_amount, version, updated_at)
		VALUES ($1, 0, 0, $2)
		ON CONFLICT (shopkeeper_id) DO NOTHING`, shopkeeperID, time.Now()); err != nil {
		return nil, mapError(err)
	}

	var settled decimal.Decimal
	var version int
	if err := tx.QueryRowContext(ctx, `
		SELECT settled_amount, version FROM settlement_accounts
		WHERE shopkeeper_id = $1
		FOR UPDATE`, shopkeeperID).Scan(&settled, &version); err != nil {
		return nil, mapError(err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE shopkeeper_id = $1 AND type = 'payment'`, shopkeeperID)
	if err != nil {
		return nil, err
	}
	payments := []*models.Transaction{}
	for rows.Next() {
		p, err := scanTransaction(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	rec, err := fn(payments, settled)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO settlements (id, shopkeeper_id, amount, note, settled_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.ShopkeeperID, rec.Amount, rec.Note, rec.SettledBy, rec.CreatedAt); err != nil {
		return nil, mapError(err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE settlement_accounts
		SET settled_amount = $1, version = version + 1, updated_at = $2
		WHERE shopkeeper_id = $3 AND version = $4`,
		settled.Add(rec.Amount), rec.CreatedAt, shopkeeperID, version)
	if err != nil {
		return nil, mapError(err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, fmt.Errorf("optimistic lock failed for settlement account %s: %w", shopkeeperID, models.ErrConflict)
	}

	if err := tx.Commit(); err != nil {
		return nil, mapError(err)
	}
	return rec, nil
}

func (s *PostgresStore) ListSettlements(ctx context.Context, shopkeeperID string) ([]*models.SettlementRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, shopkeeper_id, amount, note, settled_by, created_at
		FROM settlements WHERE shopkeeper_id = $1
		ORDER BY created_at DESC`, shopkeeperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*models.SettlementRecord{}
	for rows.Next() {
		var r models.SettlementRecord
		if err := rows.Scan(&r.ID, &r.ShopkeeperID, &r.Amount, &r.Note, &r.SettledBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SettledAmount(ctx context.Context, shopkeeperID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM settlements WHERE shopkeeper_id = $1`,
		shopkeeperID).Scan(&total)
	if err != nil {
		return decimal.Zero, mapError(err)
	}
	return total, nil
}

func (s *PostgresStore) SettledAmounts(ctx context.Context) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT shopkeeper_id, SUM(amount) FROM settlements GROUP BY shopkeeper_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var id string
		var total decimal.Decimal
		if err := rows.Scan(&id, &total); err != nil {
			return nil, err
		}
		out[id] = total
	}
	return out, rows.Err()
}
