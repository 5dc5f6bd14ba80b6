package mcp

import (
	"context"

	"trendbot/internal/domain"
)

// TrendReader exposes stored trends and the live indicator window.
type TrendReader interface {
	CurrentTrend(ctx context.Context, asset string) (*domain.TrendState, error)
	Indicators(ctx context.Context, asset string) (domain.IndicatorSnapshot, error)
	Window(ctx context.Context, asset string) ([]*domain.PriceSample, error)
}

// AssetLister exposes the tracked asset catalog.
type AssetLister interface {
	ListTokens(ctx context.Context) ([]*domain.Token, error)
}

// Recomputer runs an on-demand trend recompute.
type Recomputer interface {
	RecomputeNow(ctx context.Context, asset string) (*domain.TrendUpdate, error)
}
