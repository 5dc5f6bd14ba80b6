package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trendbot/internal/domain"
	"trendbot/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const defaultTrendInterval = 60 * time.Second

// ErrLeaseHeld is returned by RecomputeNow when another process holds the
// asset's lease.
var ErrLeaseHeld = errors.New("asset lease held elsewhere")

type TrendRecomputer interface {
	RecomputeTrend(ctx context.Context, asset string) (*domain.TrendUpdate, error)
}

type TransitionHandler interface {
	HandleTransition(ctx context.Context, update domain.TrendUpdate) []service.TradeOutcome
}

type AssetLister interface {
	ListTokens(ctx context.Context) ([]*domain.Token, error)
}

// AssetLease guards an asset across processes. A nil AssetLease disables the
// cross-process guard.
type AssetLease interface {
	TryAcquire(ctx context.Context, name string) (func(context.Context) error, bool, error)
}

// TrendScheduler recomputes the trend of every tracked asset on a fixed
// interval and hands transitions to the trade handler. Each asset has one
// exclusive slot shared by scheduled ticks and RecomputeNow.
type TrendScheduler struct {
	tracer   trace.Tracer
	logger   *zap.Logger
	trends   TrendRecomputer
	trades   TransitionHandler
	assets   AssetLister
	lease    AssetLease
	interval time.Duration

	mu      sync.Mutex
	root    context.Context
	slots   map[string]*semaphore.Weighted
	tracked map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewTrendScheduler(
	tracer trace.Tracer,
	logger *zap.Logger,
	trends TrendRecomputer,
	trades TransitionHandler,
	assets AssetLister,
	lease AssetLease,
	interval time.Duration,
) *TrendScheduler {
	if interval <= 0 {
		interval = defaultTrendInterval
	}
	return &TrendScheduler{
		tracer:   tracer,
		logger:   logger,
		trends:   trends,
		trades:   trades,
		assets:   assets,
		lease:    lease,
		interval: interval,
		slots:    make(map[string]*semaphore.Weighted),
		tracked:  make(map[string]context.CancelFunc),
	}
}

// Start tracks every listed asset and blocks until ctx is cancelled and all
// per-asset loops have returned.
func (s *TrendScheduler) Start(ctx context.Context) {
	if s.trends == nil {
		s.logger.Warn("trend scheduler disabled: no trend service")
		<-ctx.Done()
		return
	}

	s.mu.Lock()
	s.root = ctx
	pending := make([]string, 0, len(s.tracked))
	for asset := range s.tracked {
		pending = append(pending, asset)
	}
	s.mu.Unlock()

	for _, asset := range pending {
		s.launch(asset)
	}
	if s.assets != nil {
		tokens, err := s.assets.ListTokens(ctx)
		if err != nil {
			s.logger.Error("list tracked assets", zap.Error(err))
		}
		for _, t := range tokens {
			if t != nil {
				s.Track(t.Mint)
			}
		}
	}

	s.logger.Info("trend scheduler started", zap.Duration("interval", s.interval))
	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("trend scheduler stopped")
}

// Track starts the loop for asset. It reports false if asset is already
// tracked. Assets tracked before Start begin when Start runs.
func (s *TrendScheduler) Track(asset string) bool {
	if asset == "" {
		return false
	}
	s.mu.Lock()
	if _, ok := s.tracked[asset]; ok {
		s.mu.Unlock()
		return false
	}
	s.tracked[asset] = nil
	started := s.root != nil
	s.mu.Unlock()

	if started {
		s.launch(asset)
	}
	return true
}

// Untrack stops the loop for asset. An in-flight tick finishes normally.
func (s *TrendScheduler) Untrack(asset string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cancel, ok := s.tracked[asset]
	if !ok {
		return false
	}
	if cancel != nil {
		cancel()
	}
	delete(s.tracked, asset)
	return true
}

func (s *TrendScheduler) Tracked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tracked))
	for asset := range s.tracked {
		out = append(out, asset)
	}
	return out
}

func (s *TrendScheduler) launch(asset string) {
	s.mu.Lock()
	cancel, ok := s.tracked[asset]
	if !ok || cancel != nil || s.root == nil || s.root.Err() != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(s.root)
	s.tracked[asset] = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx, asset)
}

func (s *TrendScheduler) run(ctx context.Context, asset string) {
	defer s.wg.Done()

	var ticks sync.WaitGroup
	defer ticks.Wait()

	fire := func() {
		ticks.Add(1)
		go func() {
			defer ticks.Done()
			s.tick(ctx, asset)
		}()
	}

	fire()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fire()
		}
	}
}

// tick skips when the asset's slot is busy.
func (s *TrendScheduler) tick(ctx context.Context, asset string) {
	slot := s.slot(asset)
	if !slot.TryAcquire(1) {
		s.logger.Debug("trend tick skipped: slot busy", zap.String("asset", asset))
		return
	}
	defer slot.Release(1)

	if _, err := s.recompute(ctx, asset); err != nil && !errors.Is(err, context.Canceled) {
		switch {
		case errors.Is(err, domain.ErrInsufficientData):
			s.logger.Debug("trend tick: insufficient data", zap.String("asset", asset))
		case errors.Is(err, ErrLeaseHeld):
			s.logger.Debug("trend tick skipped: lease held", zap.String("asset", asset))
		case errors.Is(err, domain.ErrTrendConflict):
			s.logger.Info("trend tick lost a concurrent update", zap.String("asset", asset))
		default:
			s.logger.Error("trend tick failed", zap.String("asset", asset), zap.Error(err))
		}
	}
}

// RecomputeNow waits for the asset's slot and recomputes immediately.
// Transitions are traded exactly as on a scheduled tick.
func (s *TrendScheduler) RecomputeNow(ctx context.Context, asset string) (*domain.TrendUpdate, error) {
	slot := s.slot(asset)
	if err := slot.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer slot.Release(1)
	return s.recompute(ctx, asset)
}

func (s *TrendScheduler) recompute(ctx context.Context, asset string) (*domain.TrendUpdate, error) {
	ctx, span := s.tracer.Start(ctx, "trend-scheduler.tick")
	defer span.End()
	span.SetAttributes(attribute.String("asset", asset))

	if s.trends == nil {
		return nil, errors.New("trend scheduler has no trend service")
	}

	if s.lease != nil {
		release, ok, err := s.lease.TryAcquire(ctx, asset)
		if err != nil {
			return nil, fmt.Errorf("acquire lease: %w", err)
		}
		if !ok {
			return nil, ErrLeaseHeld
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release asset lease", zap.String("asset", asset), zap.Error(err))
			}
		}()
	}

	update, err := s.trends.RecomputeTrend(ctx, asset)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(
		attribute.String("trend", string(update.Trend)),
		attribute.Bool("transitioned", update.Transitioned),
	)

	if update.Transitioned && s.trades != nil {
		outcomes := s.trades.HandleTransition(ctx, *update)
		confirmed := 0
		for _, o := range outcomes {
			if o.Result.Confirmed {
				confirmed++
			}
		}
		s.logger.Info("trend transition handled",
			zap.String("asset", asset),
			zap.String("from", string(update.Previous)),
			zap.String("to", string(update.Trend)),
			zap.Int("trades", len(outcomes)),
			zap.Int("confirmed", confirmed),
		)
	}
	return update, nil
}

func (s *TrendScheduler) slot(asset string) *semaphore.Weighted {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.slots[asset]
	if !ok {
		sem = semaphore.NewWeighted(1)
		s.slots[asset] = sem
	}
	return sem
}
