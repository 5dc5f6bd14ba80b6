package tui

import (
	"fmt"
	"math"

	"trendbot/internal/domain"
)

// AssetRow is one tracked asset on the dashboard.
type AssetRow struct {
	Token      *domain.Token
	Trend      domain.Trend
	Indicators *domain.IndicatorSnapshot
	Err        error
}

// FormatTrend renders a trend label in its color.
func FormatTrend(trend domain.Trend) string {
	if !trend.IsValid() {
		trend = domain.TrendNone
	}
	return TrendStyle(trend).Render(fmt.Sprintf("%-8s", trend))
}

// FormatAssetRow renders a dashboard row as a single line.
func FormatAssetRow(r AssetRow) string {
	label := shortMint(r.Token.Mint)
	if r.Token.Ticker != "" {
		label = r.Token.Ticker
	}
	if r.Err != nil {
		return fmt.Sprintf("%-10s %s", label, ErrorStyle.Render("error: "+r.Err.Error()))
	}
	if r.Indicators == nil {
		return fmt.Sprintf("%-10s %s %s", label, FormatTrend(r.Trend), SubtextStyle.Render("not enough data"))
	}
	s := r.Indicators
	return fmt.Sprintf("%-10s %s RSI %6s  SMA %10s / %-10s  EMA %10s / %s",
		label,
		FormatTrend(r.Trend),
		formatValue(s.RSI, 1),
		formatValue(s.SMAShort, 4),
		formatValue(s.SMALong, 4),
		formatValue(s.EMAShort, 4),
		formatValue(s.EMALong, 4),
	)
}

func formatValue(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", decimals, v)
}

func shortMint(mint string) string {
	if len(mint) <= 10 {
		return mint
	}
	return mint[:4] + ".." + mint[len(mint)-4:]
}
