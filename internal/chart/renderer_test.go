package chart

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"testing"
	"time"

	"trendbot/internal/domain"
)

func TestRenderTrendProducesPNG(t *testing.T) {
	samples := buildSamples(90)
	for _, trend := range []domain.Trend{domain.TrendBullish, domain.TrendBearish, domain.TrendNone} {
		t.Run(string(trend), func(t *testing.T) {
			out, err := NewRenderer().RenderTrend(samples, trend)
			if err != nil {
				t.Fatalf("render failed: %v", err)
			}
			img, err := png.Decode(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("decode png: %v", err)
			}
			if b := img.Bounds(); b.Dx() != chartWidth || b.Dy() != chartHeight {
				t.Fatalf("unexpected size %v", b)
			}
		})
	}
}

func TestRenderTrendNeedsTwoSamples(t *testing.T) {
	_, err := NewRenderer().RenderTrend([]*domain.PriceSample{nil, {PriceUSD: 1, Timestamp: time.Now()}}, domain.TrendNone)
	if !errors.Is(err, ErrTooFewSamples) {
		t.Fatalf("expected ErrTooFewSamples, got %v", err)
	}
}

func TestRenderTrendShortWindow(t *testing.T) {
	if _, err := NewRenderer().RenderTrend(buildSamples(5), domain.TrendNone); err != nil {
		t.Fatalf("expected a chart without indicator lines, got %v", err)
	}
}

func TestSMASeriesPrefixIsNaN(t *testing.T) {
	out := smaSeries([]float64{1, 2, 3, 4}, 3)
	if !math.IsNaN(out[0]) || !math.IsNaN(out[1]) {
		t.Fatalf("expected NaN prefix, got %v", out)
	}
	if out[2] != 2 || out[3] != 3 {
		t.Fatalf("unexpected averages %v", out)
	}
}

func TestNormalizePricesOrdersByTime(t *testing.T) {
	now := time.Now()
	got := normalizePrices([]*domain.PriceSample{
		{PriceUSD: 3, Timestamp: now.Add(2 * time.Minute)},
		nil,
		{PriceUSD: 1, Timestamp: now},
		{PriceUSD: 2, Timestamp: now.Add(time.Minute)},
	})
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("unexpected order %v", got)
	}
}

func buildSamples(count int) []*domain.PriceSample {
	base := time.Now().UTC().Add(-time.Duration(count) * 20 * time.Second)
	out := make([]*domain.PriceSample, 0, count)
	price := 150.0
	for i := range count {
		price += float64((i%9)-4) * 0.3
		out = append(out, &domain.PriceSample{
			Asset:     "SOL",
			PriceUSD:  price,
			Timestamp: base.Add(time.Duration(i) * 20 * time.Second),
		})
	}
	return out
}
