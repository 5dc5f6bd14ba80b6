package tui

import (
	"context"

	"trendbot/internal/domain"
)

// TrendQuerier provides trend state and live indicators to the TUI.
type TrendQuerier interface {
	CurrentTrend(ctx context.Context, asset string) (*domain.TrendState, error)
	Indicators(ctx context.Context, asset string) (domain.IndicatorSnapshot, error)
}

// AssetCatalog lists the tracked assets.
type AssetCatalog interface {
	ListTokens(ctx context.Context) ([]*domain.Token, error)
	TokenByMint(ctx context.Context, mint string) (*domain.Token, error)
}

// Services bundles the dependencies injected into one TUI session.
type Services struct {
	Trends   TrendQuerier
	Assets   AssetCatalog
	Username string
}
