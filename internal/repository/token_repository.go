package repository

import (
	"context"
	"errors"

	"trendbot/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

type TokenRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewTokenRepository(pool PgxPool, tracer trace.Tracer) *TokenRepository {
	return &TokenRepository{pool: pool, tracer: tracer}
}

// ListTokens returns every tracked asset, oldest first.
func (r *TokenRepository) ListTokens(ctx context.Context) ([]*domain.Token, error) {
	ctx, span := r.tracer.Start(ctx, "token-repo.list-tokens")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT mint, name, ticker, created_at FROM tokens ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []*domain.Token
	for rows.Next() {
		t := &domain.Token{}
		if err := rows.Scan(&t.Mint, &t.Name, &t.Ticker, &t.CreatedAt); err != nil {
			return nil, err
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// TokenByMint returns nil, nil for an untracked mint.
func (r *TokenRepository) TokenByMint(ctx context.Context, mint string) (*domain.Token, error) {
	ctx, span := r.tracer.Start(ctx, "token-repo.token-by-mint")
	defer span.End()

	t := &domain.Token{}
	err := r.pool.QueryRow(ctx,
		`SELECT mint, name, ticker, created_at FROM tokens WHERE mint = $1`,
		mint,
	).Scan(&t.Mint, &t.Name, &t.Ticker, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TokenRepository) UpsertToken(ctx context.Context, token domain.Token) error {
	ctx, span := r.tracer.Start(ctx, "token-repo.upsert-token")
	defer span.End()

	_, err := r.pool.Exec(ctx,
		`INSERT INTO tokens (mint, name, ticker) VALUES ($1, $2, $3)
		 ON CONFLICT (mint) DO UPDATE SET name = EXCLUDED.name, ticker = EXCLUDED.ticker`,
		token.Mint, token.Name, token.Ticker,
	)
	return err
}
