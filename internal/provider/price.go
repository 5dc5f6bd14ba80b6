package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trendbot/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultPriceAPIURL = "https://lite-api.jup.ag/price/v3"
	maxPriceIDs        = 50
)

type priceEntry struct {
	USDPrice float64 `json:"usdPrice"`
}

// Prices returns one sample per mint that the price API knows about. Mints
// without a quote are left out. PriceSOL is derived from the wrapped SOL
// price fetched in the same request.
func (c *JupiterClient) Prices(ctx context.Context, mints []string) ([]*domain.PriceSample, error) {
	ctx, span := c.tracer.Start(ctx, "jupiter.prices")
	defer span.End()
	span.SetAttributes(attribute.Int("mint_count", len(mints)))

	if len(mints) == 0 {
		return nil, nil
	}
	ids := dedupeMints(append([]string{domain.WrappedSOLMint}, mints...))
	now := time.Now().UTC()
	quotes := make(map[string]priceEntry, len(ids))

	for start := 0; start < len(ids); start += maxPriceIDs {
		end := start + maxPriceIDs
		if end > len(ids) {
			end = len(ids)
		}
		q := url.Values{}
		q.Set("ids", strings.Join(ids[start:end], ","))

		body, status, err := c.do(ctx, http.MethodGet, c.priceURL+"?"+q.Encode(), nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "price request failed")
			return nil, fmt.Errorf("fetch prices: %w", err)
		}
		if status != http.StatusOK {
			err := fmt.Errorf("fetch prices: status %d", status)
			span.RecordError(err)
			span.SetStatus(codes.Error, "price request rejected")
			return nil, err
		}

		var page map[string]*priceEntry
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode prices: %w", err)
		}
		for mint, entry := range page {
			if entry == nil || entry.USDPrice <= 0 {
				continue
			}
			quotes[mint] = *entry
		}
	}

	solUSD := quotes[domain.WrappedSOLMint].USDPrice
	samples := make([]*domain.PriceSample, 0, len(mints))
	for _, mint := range dedupeMints(mints) {
		entry, ok := quotes[mint]
		if !ok {
			continue
		}
		sample := &domain.PriceSample{
			Asset:     mint,
			PriceUSD:  entry.USDPrice,
			Timestamp: now,
		}
		if solUSD > 0 {
			sample.PriceSOL = entry.USDPrice / solUSD
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

func dedupeMints(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, m := range in {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
