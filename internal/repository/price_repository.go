package repository

import (
	"context"
	"fmt"
	"time"

	"trendbot/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type PriceRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPriceRepository(pool PgxPool, tracer trace.Tracer) *PriceRepository {
	return &PriceRepository{pool: pool, tracer: tracer}
}

// InsertSamples appends samples. A sample already stored for the same asset
// and timestamp is left untouched.
func (r *PriceRepository) InsertSamples(ctx context.Context, samples []*domain.PriceSample) error {
	if len(samples) == 0 {
		return nil
	}

	ctx, span := r.tracer.Start(ctx, "price-repo.insert-samples")
	defer span.End()
	span.SetAttributes(attribute.Int("samples", len(samples)))

	batch := &pgx.Batch{}
	queued := 0
	for _, s := range samples {
		if s == nil {
			continue
		}
		batch.Queue(
			`INSERT INTO price_samples (asset, price_usd, price_sol, sampled_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (asset, sampled_at) DO NOTHING`,
			s.Asset, s.PriceUSD, s.PriceSOL, s.Timestamp.UTC(),
		)
		queued++
	}
	if queued == 0 {
		return nil
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range queued {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("insert price sample: %w", err)
		}
	}
	return nil
}

// QuerySince returns samples for asset taken at or after since, oldest first.
func (r *PriceRepository) QuerySince(ctx context.Context, asset string, since time.Time) ([]*domain.PriceSample, error) {
	ctx, span := r.tracer.Start(ctx, "price-repo.query-since")
	defer span.End()
	span.SetAttributes(attribute.String("asset", asset))

	rows, err := r.pool.Query(ctx,
		`SELECT asset, price_usd, price_sol, sampled_at
		 FROM price_samples
		 WHERE asset = $1 AND sampled_at >= $2
		 ORDER BY sampled_at ASC`,
		asset, since.UTC(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []*domain.PriceSample
	for rows.Next() {
		s := &domain.PriceSample{}
		if err := rows.Scan(&s.Asset, &s.PriceUSD, &s.PriceSOL, &s.Timestamp); err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}
