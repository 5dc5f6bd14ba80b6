package repository

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS tokens (
		mint       TEXT PRIMARY KEY,
		name       TEXT NOT NULL DEFAULT '',
		ticker     TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS price_samples (
		asset      TEXT NOT NULL,
		price_usd  DOUBLE PRECISION NOT NULL,
		price_sol  DOUBLE PRECISION NOT NULL,
		sampled_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (asset, sampled_at)
	)`,
	`CREATE TABLE IF NOT EXISTS trend_states (
		asset      TEXT PRIMARY KEY,
		trend      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		owner_id       BIGINT PRIMARY KEY,
		public_address TEXT NOT NULL,
		signing_secret TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		owner_id   BIGINT NOT NULL,
		asset      TEXT NOT NULL REFERENCES tokens (mint),
		auto_trade BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (owner_id, asset)
	)`,
	`CREATE TABLE IF NOT EXISTS settings (
		owner_id BIGINT PRIMARY KEY,
		currency TEXT NOT NULL,
		amount   DOUBLE PRECISION NOT NULL
	)`,
}

// RunMigrations creates the tables used by the repositories. It is idempotent.
func RunMigrations(ctx context.Context, pool PgxPool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
