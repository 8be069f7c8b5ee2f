package database

import (
	"database/sql"
	"fmt"
	"log"
)

// schema is applied in order on startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id            TEXT PRIMARY KEY,
		role          TEXT NOT NULL CHECK (role IN ('customer', 'shopkeeper')),
		short_code    TEXT NOT NULL,
		display_name  TEXT NOT NULL DEFAULT '',
		phone_number  TEXT NOT NULL DEFAULT '',
		shop_name     TEXT NOT NULL DEFAULT '',
		address       TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT accounts_short_code_unique UNIQUE (role, short_code)
	)`,

	`CREATE TABLE IF NOT EXISTS connection_requests (
		id             TEXT PRIMARY KEY,
		customer_id    TEXT NOT NULL REFERENCES accounts (id),
		shopkeeper_id  TEXT NOT NULL REFERENCES accounts (id),
		status         TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'rejected')),
		source         TEXT NOT NULL DEFAULT 'manual',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		resolved_at    TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS connection_requests_one_pending
		ON connection_requests (customer_id, shopkeeper_id) WHERE status = 'pending'`,

	`CREATE TABLE IF NOT EXISTS connections (
		customer_id    TEXT NOT NULL REFERENCES accounts (id),
		shopkeeper_id  TEXT NOT NULL REFERENCES accounts (id),
		request_id     TEXT NOT NULL REFERENCES connection_requests (id),
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT connections_pkey PRIMARY KEY (customer_id, shopkeeper_id)
	)`,
	`CREATE INDEX IF NOT EXISTS connections_shopkeeper ON connections (shopkeeper_id)`,

	`CREATE TABLE IF NOT EXISTS credit_policies (
		shopkeeper_id  TEXT PRIMARY KEY REFERENCES accounts (id),
		default_limit  NUMERIC(14,2) NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS customer_limits (
		shopkeeper_id   TEXT NOT NULL REFERENCES accounts (id),
		customer_id     TEXT NOT NULL REFERENCES accounts (id),
		limit_type      TEXT NOT NULL CHECK (limit_type IN ('default', 'manual')),
		manual_limit    NUMERIC(14,2) NOT NULL DEFAULT 0,
		credit_enabled  BOOLEAN NOT NULL DEFAULT TRUE,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (shopkeeper_id, customer_id)
	)`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id               TEXT PRIMARY KEY,
		customer_id      TEXT NOT NULL,
		shopkeeper_id    TEXT NOT NULL,
		type             TEXT NOT NULL CHECK (type IN ('credit', 'payment', 'commission')),
		amount           NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		notes            TEXT NOT NULL DEFAULT '',
		commission_rate  NUMERIC(5,2),
		related_id       TEXT,
		reference        TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS transactions_reference
		ON transactions (reference) WHERE reference IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS transactions_pair ON transactions (customer_id, shopkeeper_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS transactions_shopkeeper_type ON transactions (shopkeeper_id, type, created_at)`,

	`CREATE OR REPLACE FUNCTION transactions_append_only() RETURNS trigger AS $$
	BEGIN
		RAISE EXCEPTION 'transactions are append-only';
	END;
	$$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS transactions_no_mutation ON transactions`,
	`CREATE TRIGGER transactions_no_mutation
		BEFORE UPDATE OR DELETE ON transactions
		FOR EACH ROW EXECUTE FUNCTION transactions_append_only()`,

	`CREATE TABLE IF NOT EXISTS pair_balances (
		customer_id    TEXT NOT NULL,
		shopkeeper_id  TEXT NOT NULL,
		balance        NUMERIC(14,2) NOT NULL DEFAULT 0,
		version        INTEGER NOT NULL DEFAULT 0,
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (customer_id, shopkeeper_id)
	)`,

	`CREATE TABLE IF NOT EXISTS platform_settings (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		updated_by  TEXT NOT NULL DEFAULT '',
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS settlement_accounts (
		shopkeeper_id   TEXT PRIMARY KEY,
		settled_amount  NUMERIC(14,2) NOT NULL DEFAULT 0,
		version         INTEGER NOT NULL DEFAULT 0,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS settlements (
		id             TEXT PRIMARY KEY,
		shopkeeper_id  TEXT NOT NULL,
		amount         NUMERIC(14,2) NOT NULL CHECK (amount > 0),
		note           TEXT NOT NULL DEFAULT '',
		settled_by     TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS settlements_shopkeeper ON settlements (shopkeeper_id, created_at)`,
}

// Migrate creates the ledger schema
func Migrate(db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	log.Printf("[DB] schema up to date (%d statements)", len(schema))
	return nil
}
