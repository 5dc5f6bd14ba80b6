package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"trendbot/internal/domain"
)

func tokenLabel(token *domain.Token, mint string) string {
	if token == nil || (token.Name == "" && token.Ticker == "") {
		return mint
	}
	return fmt.Sprintf("%s (%s)", token.Name, token.Ticker)
}

func formatValue(v float64, precision int) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.*f", precision, v)
}

func writeIndicators(b *strings.Builder, snap domain.IndicatorSnapshot) {
	b.WriteString("📈 Current Indicators:\n")
	fmt.Fprintf(b, "• SMA (9): %s\n", formatValue(snap.SMAShort, 10))
	fmt.Fprintf(b, "• SMA (20): %s\n", formatValue(snap.SMALong, 10))
	fmt.Fprintf(b, "• EMA (9): %s\n", formatValue(snap.EMAShort, 10))
	fmt.Fprintf(b, "• EMA (20): %s\n", formatValue(snap.EMALong, 10))
	fmt.Fprintf(b, "• RSI: %s\n", formatValue(snap.RSI, 2))
}

// FormatSignal renders the alert sent to subscribers on a transition.
func FormatSignal(update domain.TrendUpdate, token *domain.Token) string {
	heading := "🔴 Sell Signal"
	if update.Trend == domain.TrendBullish {
		heading = "🟢 Buy Signal"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s for %s\n", heading, tokenLabel(token, update.Asset))
	fmt.Fprintf(&b, "Mint Address: %s\n\n", update.Asset)
	writeIndicators(&b, update.Indicators)
	fmt.Fprintf(&b, "\nUpdated: %s", update.UpdatedAt.UTC().Format(time.RFC1123))
	return b.String()
}

// FormatTrend renders the reply to an on-demand trend query.
func FormatTrend(state domain.TrendState, snap *domain.IndicatorSnapshot, token *domain.Token) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Current Trend for %s:\n\n", tokenLabel(token, state.Asset))
	fmt.Fprintf(&b, "Trend: %s\n", state.Trend)
	if !state.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "Last Updated: %s\n", state.UpdatedAt.UTC().Format(time.RFC1123))
	}
	if snap != nil {
		b.WriteString("\n")
		writeIndicators(&b, *snap)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatTradeOutcome renders a trade result for the subscriber.
func FormatTradeOutcome(side TradeSide, asset string, token *domain.Token, res domain.SwapResult) string {
	label := tokenLabel(token, asset)
	if res.Confirmed {
		return fmt.Sprintf("✅ %s %s confirmed\n%s", side, label, res.ExplorerURL)
	}

	msg := fmt.Sprintf("❌ %s %s failed", side, label)
	if res.Failure != nil {
		msg += ": " + res.Failure.Reason()
	}
	if res.Signature != "" {
		msg += "\n" + domain.ExplorerURL(res.Signature)
	}
	return msg
}
