package job

import (
	"context"
	"time"

	"trendbot/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultPricePollInterval = 15 * time.Second

type PriceSource interface {
	Prices(ctx context.Context, mints []string) ([]*domain.PriceSample, error)
}

type SampleWriter interface {
	InsertSamples(ctx context.Context, samples []*domain.PriceSample) error
}

// PricePoller appends a price sample for every tracked asset on each tick.
type PricePoller struct {
	tracer   trace.Tracer
	logger   *zap.Logger
	source   PriceSource
	writer   SampleWriter
	assets   AssetLister
	interval time.Duration
}

func NewPricePoller(tracer trace.Tracer, logger *zap.Logger, source PriceSource, writer SampleWriter, assets AssetLister, interval time.Duration) *PricePoller {
	if interval <= 0 {
		interval = defaultPricePollInterval
	}
	return &PricePoller{
		tracer:   tracer,
		logger:   logger,
		source:   source,
		writer:   writer,
		assets:   assets,
		interval: interval,
	}
}

// Start polls immediately and then on every interval. Blocks until ctx is
// cancelled.
func (p *PricePoller) Start(ctx context.Context) {
	if p.source == nil || p.writer == nil || p.assets == nil {
		p.logger.Warn("price poller disabled: missing dependencies")
		<-ctx.Done()
		return
	}

	p.logger.Info("price poller starting", zap.Duration("interval", p.interval))
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("price poller stopped")
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *PricePoller) poll(ctx context.Context) int {
	ctx, span := p.tracer.Start(ctx, "price-poller.poll")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, p.interval)
	defer cancel()

	tokens, err := p.assets.ListTokens(ctx)
	if err != nil {
		p.logger.Error("list tracked assets", zap.Error(err))
		return 0
	}
	mints := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t != nil && t.Mint != "" {
			mints = append(mints, t.Mint)
		}
	}
	if len(mints) == 0 {
		return 0
	}

	samples, err := p.source.Prices(ctx, mints)
	if err != nil {
		p.logger.Warn("fetch prices", zap.Int("mints", len(mints)), zap.Error(err))
		return 0
	}
	if missing := len(mints) - len(samples); missing > 0 {
		p.logger.Debug("prices missing for some assets", zap.Int("missing", missing))
	}
	if err := p.writer.InsertSamples(ctx, samples); err != nil {
		p.logger.Error("store price samples", zap.Error(err))
		return 0
	}
	span.SetAttributes(attribute.Int("samples", len(samples)))
	return len(samples)
}
