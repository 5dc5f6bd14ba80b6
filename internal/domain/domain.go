package domain

import (
	"errors"
	"strings"
	"time"
)

type Trend string

const (
	TrendBullish Trend = "Bullish"
	TrendBearish Trend = "Bearish"
	TrendNone    Trend = "None"
)

func (t Trend) IsValid() bool {
	switch t {
	case TrendBullish, TrendBearish, TrendNone:
		return true
	}
	return false
}

// ParseTrend maps a stored value to a Trend, defaulting to None.
func ParseTrend(raw string) Trend {
	t := Trend(strings.TrimSpace(raw))
	if !t.IsValid() {
		return TrendNone
	}
	return t
}

var (
	ErrInsufficientData = errors.New("not enough price data for calculations")
	ErrTrendConflict    = errors.New("trend state changed concurrently")
)

type Token struct {
	Mint      string    `json:"mint"`
	Name      string    `json:"name"`
	Ticker    string    `json:"ticker"`
	CreatedAt time.Time `json:"created_at"`
}

type PriceSample struct {
	Asset     string    `json:"asset"`
	PriceUSD  float64   `json:"price_usd"`
	PriceSOL  float64   `json:"price_sol"`
	Timestamp time.Time `json:"timestamp"`
}

type TrendState struct {
	Asset     string    `json:"asset"`
	Trend     Trend     `json:"trend"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IndicatorSnapshot holds the latest value of each series. A series that the
// window was too short to produce is NaN.
type IndicatorSnapshot struct {
	SMAShort float64 `json:"sma_short"`
	SMALong  float64 `json:"sma_long"`
	EMAShort float64 `json:"ema_short"`
	EMALong  float64 `json:"ema_long"`
	RSI      float64 `json:"rsi"`
}

type TrendUpdate struct {
	Asset        string            `json:"asset"`
	Indicators   IndicatorSnapshot `json:"indicators"`
	Previous     Trend             `json:"previous"`
	Trend        Trend             `json:"trend"`
	Transitioned bool              `json:"transitioned"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type Subscription struct {
	OwnerID   int64
	Asset     string
	AutoTrade bool
}

type Settings struct {
	OwnerID  int64
	Currency string
	Amount   float64
}

type Wallet struct {
	OwnerID       int64
	PublicAddress string
	SigningSecret string
}

type Holding struct {
	Mint      string
	UIBalance float64
	Decimals  uint8
	Amount    uint64
}

const (
	DefaultCurrency  = "SOL"
	DefaultBuyAmount = 0.1
)

const (
	WrappedSOLMint = "So11111111111111111111111111111111111111112"
	USDCMint       = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

type Currency struct {
	Symbol   string
	Mint     string
	Decimals int32
}

var Currencies = map[string]Currency{
	"SOL":  {Symbol: "SOL", Mint: WrappedSOLMint, Decimals: 9},
	"USDC": {Symbol: "USDC", Mint: USDCMint, Decimals: 6},
}

func LookupCurrency(symbol string) (Currency, bool) {
	c, ok := Currencies[strings.ToUpper(strings.TrimSpace(symbol))]
	return c, ok
}
