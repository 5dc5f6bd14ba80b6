package signal

import (
	"math"
	"sort"
	"time"

	"trendbot/internal/domain"

	"github.com/markcheno/go-talib"
)

const (
	MinSamples      = 14
	shortPeriod     = 9
	longPeriod      = 20
	rsiPeriod       = 14
	overboughtLevel = 70
	oversoldLevel   = 30
)

// Window is the trailing span of price samples the engine is fed.
const Window = 30 * time.Minute

type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Compute derives the latest indicator values from a window of samples.
func (e *Engine) Compute(samples []*domain.PriceSample) (domain.IndicatorSnapshot, error) {
	normalized := normalizeSamples(samples)
	if len(normalized) < MinSamples {
		return domain.IndicatorSnapshot{}, domain.ErrInsufficientData
	}

	prices := extractPrices(normalized)
	return domain.IndicatorSnapshot{
		SMAShort: lastSMA(prices, shortPeriod),
		SMALong:  lastSMA(prices, longPeriod),
		EMAShort: lastEMA(prices, shortPeriod),
		EMALong:  lastEMA(prices, longPeriod),
		RSI:      lastRSI(prices, rsiPeriod),
	}, nil
}

// Classify applies the trend rules in order; the first match wins.
func Classify(snap domain.IndicatorSnapshot, previous domain.Trend) domain.Trend {
	if snap.SMAShort > snap.SMALong && snap.RSI > overboughtLevel {
		return domain.TrendBullish
	}
	if snap.SMAShort < snap.SMALong || snap.RSI < oversoldLevel {
		return domain.TrendBearish
	}
	if !previous.IsValid() {
		return domain.TrendNone
	}
	return previous
}

func normalizeSamples(in []*domain.PriceSample) []domain.PriceSample {
	out := make([]domain.PriceSample, 0, len(in))
	for _, s := range in {
		if s == nil {
			continue
		}
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

func extractPrices(samples []domain.PriceSample) []float64 {
	values := make([]float64, len(samples))
	for i := range samples {
		values[i] = samples[i].PriceUSD
	}
	return values
}

func lastSMA(values []float64, period int) float64 {
	if len(values) < period {
		return math.NaN()
	}
	series := talib.Sma(values, period)
	return series[len(series)-1]
}

func lastEMA(values []float64, period int) float64 {
	if len(values) < period {
		return math.NaN()
	}
	series := talib.Ema(values, period)
	return series[len(series)-1]
}

func lastRSI(values []float64, period int) float64 {
	series := rsiSeries(values, period)
	if len(series) == 0 {
		return math.NaN()
	}
	return series[len(series)-1]
}

func rsiSeries(closes []float64, period int) []float64 {
	if len(closes) <= period {
		return nil
	}
	series := make([]float64, len(closes))
	for i := range series {
		series[i] = math.NaN()
	}

	var gainSum float64
	var lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	series[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		series[i] = rsiFromAvg(avgGain, avgLoss)
	}

	return series
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}
