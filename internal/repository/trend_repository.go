package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trendbot/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type TrendRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewTrendRepository(pool PgxPool, tracer trace.Tracer) *TrendRepository {
	return &TrendRepository{pool: pool, tracer: tracer}
}

// GetTrend returns nil, nil when the asset has never been classified.
func (r *TrendRepository) GetTrend(ctx context.Context, asset string) (*domain.TrendState, error) {
	ctx, span := r.tracer.Start(ctx, "trend-repo.get-trend")
	defer span.End()
	span.SetAttributes(attribute.String("asset", asset))

	var (
		state domain.TrendState
		trend string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT asset, trend, updated_at FROM trend_states WHERE asset = $1`,
		asset,
	).Scan(&state.Asset, &trend, &state.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	state.Trend = domain.ParseTrend(trend)
	return &state, nil
}

// CompareAndSetTrend stores next for asset if the persisted trend is still
// expected. A missing row counts as None. Losing the race returns
// domain.ErrTrendConflict.
func (r *TrendRepository) CompareAndSetTrend(ctx context.Context, asset string, expected, next domain.Trend, at time.Time) error {
	ctx, span := r.tracer.Start(ctx, "trend-repo.compare-and-set")
	defer span.End()
	span.SetAttributes(
		attribute.String("asset", asset),
		attribute.String("expected", string(expected)),
		attribute.String("next", string(next)),
	)

	var stored string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO trend_states AS ts (asset, trend, updated_at)
		 SELECT $1::text, $3::text, $4::timestamptz WHERE $2::text = 'None'
		 ON CONFLICT (asset) DO UPDATE SET
		     trend = EXCLUDED.trend,
		     updated_at = EXCLUDED.updated_at
		 WHERE ts.trend = $2
		 RETURNING ts.asset`,
		asset, string(expected), string(next), at.UTC(),
	).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		if expected == domain.TrendNone {
			return domain.ErrTrendConflict
		}
		return r.updateExisting(ctx, asset, expected, next, at)
	}
	if err != nil {
		return fmt.Errorf("compare and set trend: %w", err)
	}
	return nil
}

func (r *TrendRepository) updateExisting(ctx context.Context, asset string, expected, next domain.Trend, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE trend_states SET trend = $3, updated_at = $4
		 WHERE asset = $1 AND trend = $2`,
		asset, string(expected), string(next), at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("compare and set trend: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTrendConflict
	}
	return nil
}
