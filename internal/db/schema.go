package db

import (
	"context"
	"fmt"
	"log"
)

// schema is applied in order on every start; each statement is idempotent.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email         TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_users_email ON users (LOWER(email))`,

	`CREATE TABLE IF NOT EXISTS roles (
		id   SERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`INSERT INTO roles (name) VALUES ('admin') ON CONFLICT (name) DO NOTHING`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		role_id    INTEGER NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, role_id)
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		token_hash TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		revoked    BOOLEAN NOT NULL DEFAULT false,
		ip_address TEXT,
		user_agent TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens (user_id)`,

	`CREATE TABLE IF NOT EXISTS ranks (
		id              SERIAL PRIMARY KEY,
		name            TEXT NOT NULL UNIQUE,
		level           INTEGER NOT NULL UNIQUE,
		pv_threshold    NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (pv_threshold >= 0),
		gv_threshold    NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (gv_threshold >= 0),
		commission_rate NUMERIC(5,2) NOT NULL DEFAULT 0 CHECK (commission_rate BETWEEN 0 AND 100),
		version         INTEGER NOT NULL DEFAULT 1,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS profiles (
		id              UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
		full_name       TEXT NOT NULL DEFAULT '',
		phone           TEXT,
		rank_name       TEXT NOT NULL DEFAULT '',
		personal_volume NUMERIC(14,2) NOT NULL DEFAULT 0,
		group_volume    NUMERIC(14,2) NOT NULL DEFAULT 0,
		team_size       INTEGER NOT NULL DEFAULT 0,
		referral_code   TEXT NOT NULL UNIQUE,
		upline_id       UUID REFERENCES profiles(id) ON DELETE SET NULL,
		avatar_url      TEXT,
		address_line1   TEXT NOT NULL DEFAULT '',
		address_line2   TEXT NOT NULL DEFAULT '',
		city            TEXT NOT NULL DEFAULT '',
		province        TEXT NOT NULL DEFAULT '',
		postal_code     TEXT NOT NULL DEFAULT '',
		country         TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (upline_id IS NULL OR upline_id <> id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_profiles_upline ON profiles (upline_id)`,
	`CREATE INDEX IF NOT EXISTS idx_profiles_rank ON profiles (rank_name)`,

	`CREATE TABLE IF NOT EXISTS products (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price       NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		vp          NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (vp >= 0),
		category    TEXT NOT NULL DEFAULT '',
		subcategory TEXT NOT NULL DEFAULT '',
		stock       INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		image_url   TEXT,
		is_active   BOOLEAN NOT NULL DEFAULT true,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category, subcategory)`,

	`CREATE TABLE IF NOT EXISTS cart_items (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		product_id UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		quantity   INTEGER NOT NULL CHECK (quantity > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, product_id)
	)`,

	`CREATE TABLE IF NOT EXISTS sales (
		id                  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id             UUID NOT NULL REFERENCES users(id) ON DELETE RESTRICT,
		status              TEXT NOT NULL DEFAULT 'pending_payment',
		subtotal            NUMERIC(12,2) NOT NULL,
		tax                 NUMERIC(12,2) NOT NULL,
		total               NUMERIC(12,2) NOT NULL,
		total_vp            NUMERIC(12,2) NOT NULL DEFAULT 0,
		payment_reference   TEXT NOT NULL UNIQUE,
		payment_provider    TEXT,
		provider_payment_id TEXT,
		address_line1       TEXT NOT NULL DEFAULT '',
		address_line2       TEXT NOT NULL DEFAULT '',
		city                TEXT NOT NULL DEFAULT '',
		province            TEXT NOT NULL DEFAULT '',
		postal_code         TEXT NOT NULL DEFAULT '',
		country             TEXT NOT NULL DEFAULT '',
		paid_at             TIMESTAMPTZ,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (status IN ('pending_payment','paid','processing','shipped','delivered','cancelled'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_user ON sales (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_status ON sales (status, created_at)`,

	`CREATE TABLE IF NOT EXISTS sale_items (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		sale_id      UUID NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		product_id   UUID REFERENCES products(id) ON DELETE SET NULL,
		product_name TEXT NOT NULL,
		quantity     INTEGER NOT NULL CHECK (quantity > 0),
		unit_price   NUMERIC(12,2) NOT NULL,
		unit_vp      NUMERIC(12,2) NOT NULL DEFAULT 0,
		line_total   NUMERIC(12,2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sale_items_sale ON sale_items (sale_id)`,

	`CREATE TABLE IF NOT EXISTS order_status_history (
		id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		sale_id    UUID NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		old_status TEXT,
		new_status TEXT NOT NULL,
		changed_by UUID REFERENCES users(id) ON DELETE SET NULL,
		reason     TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_order_status_history_sale ON order_status_history (sale_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS bonuses (
		id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id        UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		source_user_id UUID REFERENCES users(id) ON DELETE SET NULL,
		sale_id        UUID REFERENCES sales(id) ON DELETE SET NULL,
		amount         NUMERIC(12,2) NOT NULL CHECK (amount >= 0),
		bonus_type     TEXT NOT NULL,
		description    TEXT NOT NULL DEFAULT '',
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bonuses_user ON bonuses (user_id, created_at DESC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_bonuses_sale_type ON bonuses (sale_id, bonus_type) WHERE sale_id IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS transactions (
		id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id        UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		amount         NUMERIC(12,2) NOT NULL CHECK (amount > 0),
		status         TEXT NOT NULL DEFAULT 'pending',
		bank_name      TEXT NOT NULL,
		account_holder TEXT NOT NULL,
		account_number TEXT NOT NULL,
		notes          TEXT,
		processed_by   UUID REFERENCES users(id) ON DELETE SET NULL,
		processed_at   TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (status IN ('pending','approved','rejected','paid'))
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user ON transactions (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_status ON transactions (status, created_at)`,
}

// InitSchema creates every table and index the service needs.
func (db *Database) InitSchema(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i+1, err)
		}
	}
	log.Println("[DB] Database schema verified successfully")
	return nil
}
