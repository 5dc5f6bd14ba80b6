package mcp

import (
	"fmt"
	"math"
	"strings"
	"time"

	"trendbot/internal/domain"

	"github.com/gagliardetto/solana-go"
)

const maxWindowSamples = 500

type mintInput struct {
	Mint string `json:"mint" jsonschema:"asset mint address (base58)"`
}

type assetsListInput struct{}

type assetsListOutput struct {
	Assets []*domain.Token `json:"assets"`
}

type indicatorsOutput struct {
	SMAShort *float64 `json:"sma_short"`
	SMALong  *float64 `json:"sma_long"`
	EMAShort *float64 `json:"ema_short"`
	EMALong  *float64 `json:"ema_long"`
	RSI      *float64 `json:"rsi"`
}

type trendOutput struct {
	Asset        string            `json:"asset"`
	Trend        string            `json:"trend"`
	Previous     string            `json:"previous,omitempty"`
	Transitioned bool              `json:"transitioned,omitempty"`
	UpdatedAt    string            `json:"updated_at,omitempty"`
	Indicators   *indicatorsOutput `json:"indicators"`
}

type windowInput struct {
	Mint  string `json:"mint" jsonschema:"asset mint address (base58)"`
	Limit int    `json:"limit,omitempty" jsonschema:"return only the most recent samples, max 500"`
}

type windowOutput struct {
	Asset   string                `json:"asset"`
	Samples []*domain.PriceSample `json:"samples"`
}

func normalizeMint(mint string) (string, error) {
	mint = strings.TrimSpace(mint)
	if mint == "" {
		return "", fmt.Errorf("mint is required")
	}
	if _, err := solana.PublicKeyFromBase58(mint); err != nil {
		return "", fmt.Errorf("invalid mint address: %s", mint)
	}
	return mint, nil
}

func normalizeWindowLimit(limit int) int {
	if limit <= 0 || limit > maxWindowSamples {
		return maxWindowSamples
	}
	return limit
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func toIndicators(s domain.IndicatorSnapshot) *indicatorsOutput {
	return &indicatorsOutput{
		SMAShort: finite(s.SMAShort),
		SMALong:  finite(s.SMALong),
		EMAShort: finite(s.EMAShort),
		EMALong:  finite(s.EMALong),
		RSI:      finite(s.RSI),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func fromUpdate(u *domain.TrendUpdate) trendOutput {
	return trendOutput{
		Asset:        u.Asset,
		Trend:        string(u.Trend),
		Previous:     string(u.Previous),
		Transitioned: u.Transitioned,
		UpdatedAt:    formatTime(u.UpdatedAt),
		Indicators:   toIndicators(u.Indicators),
	}
}
