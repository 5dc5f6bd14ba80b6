package repository

import (
	"context"
	"errors"

	"trendbot/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

// AccountRepository reads per-owner data: wallets, subscriptions and trade
// settings.
type AccountRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewAccountRepository(pool PgxPool, tracer trace.Tracer) *AccountRepository {
	return &AccountRepository{pool: pool, tracer: tracer}
}

func (r *AccountRepository) WalletByOwner(ctx context.Context, ownerID int64) (*domain.Wallet, error) {
	ctx, span := r.tracer.Start(ctx, "account-repo.wallet-by-owner")
	defer span.End()

	w := &domain.Wallet{}
	err := r.pool.QueryRow(ctx,
		`SELECT owner_id, public_address, signing_secret FROM wallets WHERE owner_id = $1`,
		ownerID,
	).Scan(&w.OwnerID, &w.PublicAddress, &w.SigningSecret)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *AccountRepository) SubscriptionsByAsset(ctx context.Context, asset string) ([]domain.Subscription, error) {
	ctx, span := r.tracer.Start(ctx, "account-repo.subscriptions-by-asset")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT owner_id, asset, auto_trade FROM subscriptions
		 WHERE asset = $1
		 ORDER BY owner_id ASC`,
		asset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var s domain.Subscription
		if err := rows.Scan(&s.OwnerID, &s.Asset, &s.AutoTrade); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// SettingsByOwner returns nil, nil when the owner never saved settings.
func (r *AccountRepository) SettingsByOwner(ctx context.Context, ownerID int64) (*domain.Settings, error) {
	ctx, span := r.tracer.Start(ctx, "account-repo.settings-by-owner")
	defer span.End()

	s := &domain.Settings{}
	err := r.pool.QueryRow(ctx,
		`SELECT owner_id, currency, amount FROM settings WHERE owner_id = $1`,
		ownerID,
	).Scan(&s.OwnerID, &s.Currency, &s.Amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
