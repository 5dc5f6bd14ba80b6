package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trendbot/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultTrendWindow = 30 * time.Minute

type PriceStore interface {
	QuerySince(ctx context.Context, asset string, since time.Time) ([]*domain.PriceSample, error)
}

// TrendStateStore persists one trend per asset. GetTrend returns nil, nil when
// the asset has no state yet. CompareAndSetTrend writes next only while the
// stored trend still equals expected and returns domain.ErrTrendConflict
// otherwise.
type TrendStateStore interface {
	GetTrend(ctx context.Context, asset string) (*domain.TrendState, error)
	CompareAndSetTrend(ctx context.Context, asset string, expected, next domain.Trend, at time.Time) error
}

type IndicatorEngine interface {
	Compute(samples []*domain.PriceSample) (domain.IndicatorSnapshot, error)
}

type TrendClassifier func(snap domain.IndicatorSnapshot, previous domain.Trend) domain.Trend

type TrendService struct {
	tracer   trace.Tracer
	logger   *zap.Logger
	prices   PriceStore
	trends   TrendStateStore
	engine   IndicatorEngine
	classify TrendClassifier
	window   time.Duration
	now      func() time.Time
}

func NewTrendService(
	tracer trace.Tracer,
	logger *zap.Logger,
	prices PriceStore,
	trends TrendStateStore,
	engine IndicatorEngine,
	classify TrendClassifier,
	window time.Duration,
) *TrendService {
	if window <= 0 {
		window = defaultTrendWindow
	}
	return &TrendService{
		tracer:   tracer,
		logger:   logger,
		prices:   prices,
		trends:   trends,
		engine:   engine,
		classify: classify,
		window:   window,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RecomputeTrend reads the trailing window for asset, classifies it against
// the stored trend and persists the result. It returns
// domain.ErrInsufficientData without touching state when the window is short.
func (s *TrendService) RecomputeTrend(ctx context.Context, asset string) (*domain.TrendUpdate, error) {
	ctx, span := s.tracer.Start(ctx, "trend-service.recompute")
	defer span.End()

	if s.prices == nil || s.trends == nil || s.engine == nil || s.classify == nil {
		return nil, fmt.Errorf("trend service is not fully initialized")
	}
	asset = strings.TrimSpace(asset)
	if asset == "" {
		return nil, fmt.Errorf("asset is required")
	}
	span.SetAttributes(attribute.String("asset", asset))

	now := s.now()
	samples, err := s.prices.QuerySince(ctx, asset, now.Add(-s.window))
	if err != nil {
		return nil, fmt.Errorf("query prices for %s: %w", asset, err)
	}

	snap, err := s.engine.Compute(samples)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			span.SetAttributes(attribute.Int("samples", len(samples)))
		}
		return nil, err
	}

	previous := domain.TrendNone
	state, err := s.trends.GetTrend(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("get trend for %s: %w", asset, err)
	}
	if state != nil {
		previous = domain.ParseTrend(string(state.Trend))
	}

	next := s.classify(snap, previous)
	if err := s.trends.CompareAndSetTrend(ctx, asset, previous, next, now); err != nil {
		return nil, fmt.Errorf("store trend for %s: %w", asset, err)
	}

	update := &domain.TrendUpdate{
		Asset:        asset,
		Indicators:   snap,
		Previous:     previous,
		Trend:        next,
		Transitioned: previous != next,
		UpdatedAt:    now,
	}
	span.SetAttributes(
		attribute.String("trend", string(next)),
		attribute.Bool("transitioned", update.Transitioned),
	)
	if update.Transitioned {
		s.logger.Info("trend transition",
			zap.String("asset", asset),
			zap.String("from", string(previous)),
			zap.String("to", string(next)),
			zap.Float64("rsi", snap.RSI),
		)
	}
	return update, nil
}

// CurrentTrend returns the stored trend, defaulting to None.
func (s *TrendService) CurrentTrend(ctx context.Context, asset string) (*domain.TrendState, error) {
	ctx, span := s.tracer.Start(ctx, "trend-service.current")
	defer span.End()

	if s.trends == nil {
		return nil, fmt.Errorf("trend service is not fully initialized")
	}
	state, err := s.trends.GetTrend(ctx, strings.TrimSpace(asset))
	if err != nil {
		return nil, err
	}
	if state == nil {
		return &domain.TrendState{Asset: asset, Trend: domain.TrendNone}, nil
	}
	return state, nil
}

// Indicators computes the current snapshot without touching stored state.
func (s *TrendService) Indicators(ctx context.Context, asset string) (domain.IndicatorSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "trend-service.indicators")
	defer span.End()

	if s.engine == nil {
		return domain.IndicatorSnapshot{}, fmt.Errorf("trend service is not fully initialized")
	}
	samples, err := s.Window(ctx, asset)
	if err != nil {
		return domain.IndicatorSnapshot{}, err
	}
	return s.engine.Compute(samples)
}

// Window returns the trailing samples a recompute of asset would read.
func (s *TrendService) Window(ctx context.Context, asset string) ([]*domain.PriceSample, error) {
	if s.prices == nil {
		return nil, fmt.Errorf("trend service is not fully initialized")
	}
	samples, err := s.prices.QuerySince(ctx, asset, s.now().Add(-s.window))
	if err != nil {
		return nil, fmt.Errorf("query prices for %s: %w", asset, err)
	}
	return samples, nil
}
