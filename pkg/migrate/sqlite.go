package migrate

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// sqliteSchema mirrors the goose migrations for the SQLite demo database and
// the in-memory databases used by package tests. Money columns are TEXT so
// decimal values round-trip without float conversion.
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS branches (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT NOT NULL,
		phone TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slug TEXT NOT NULL UNIQUE,
		sort_order INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS brands (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		logo_url TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		price TEXT NOT NULL,
		sale_price TEXT,
		weight TEXT,
		image_url TEXT,
		in_stock BOOLEAN NOT NULL DEFAULT 1,
		category_id TEXT,
		brand_id TEXT,
		branch_id TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		branch_id TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		id TEXT PRIMARY KEY,
		cart_id TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL,
		name TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		weight TEXT,
		quantity INTEGER NOT NULL CHECK (quantity >= 1),
		substitution_preference TEXT NOT NULL DEFAULT 'call_me'
			CHECK (substitution_preference IN ('call_me', 'similar_product', 'cancel_item')),
		position INTEGER NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (cart_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS loyalty_accounts (
		user_id TEXT PRIMARY KEY,
		points_balance INTEGER NOT NULL DEFAULT 0 CHECK (points_balance >= 0),
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS loyalty_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		points INTEGER NOT NULL CHECK (points <> 0),
		type TEXT NOT NULL CHECK (type IN ('earned', 'redeemed')),
		description TEXT NOT NULL,
		order_id TEXT,
		barcode_id TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS loyalty_transactions_order_earn_key
		ON loyalty_transactions (user_id, order_id)
		WHERE type = 'earned' AND order_id IS NOT NULL`,
	`CREATE UNIQUE INDEX IF NOT EXISTS loyalty_transactions_refund_barcode_key
		ON loyalty_transactions (barcode_id)
		WHERE type = 'earned' AND barcode_id IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS redemption_barcodes (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		code TEXT NOT NULL UNIQUE,
		points_value INTEGER NOT NULL CHECK (points_value >= 1000 AND points_value % 1000 = 0),
		monetary_value TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active'
			CHECK (status IN ('active', 'used', 'cancelled', 'expired')),
		order_id TEXT,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		used_at DATETIME,
		cancelled_at DATETIME,
		expired_at DATETIME,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		published_at DATETIME,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		last_error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_dlq (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		payload_json BLOB NOT NULL,
		error_reason TEXT NOT NULL CHECK (error_reason IN ('max_attempts', 'unresolvable', 'rejected')),
		error_message TEXT,
		attempt_count INTEGER NOT NULL DEFAULT 0,
		failed_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
}

// ApplySQLite creates the storefront schema on a SQLite connection. It is
// idempotent.
func ApplySQLite(ctx context.Context, conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db is required")
	}
	if name := conn.Dialector.Name(); name != "sqlite" {
		return fmt.Errorf("sqlite schema cannot be applied to %s", name)
	}
	for _, stmt := range sqliteSchema {
		if err := conn.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply sqlite schema: %w", err)
		}
	}
	return nil
}
