package mcp

import (
	"context"
	"errors"
	"fmt"

	"trendbot/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerTools(server *mcp.Server, trends TrendReader, assets AssetLister, recomputer Recomputer) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "assets_list",
		Description: "List the tracked assets",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ assetsListInput) (*mcp.CallToolResult, assetsListOutput, error) {
		if assets == nil {
			return nil, assetsListOutput{}, fmt.Errorf("asset catalog unavailable")
		}
		list, err := assets.ListTokens(ctx)
		if err != nil {
			return nil, assetsListOutput{}, err
		}
		if list == nil {
			list = []*domain.Token{}
		}
		return nil, assetsListOutput{Assets: list}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "trends_get",
		Description: "Get the stored trend of an asset and its live indicator values",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in mintInput) (*mcp.CallToolResult, trendOutput, error) {
		if trends == nil {
			return nil, trendOutput{}, fmt.Errorf("trend service unavailable")
		}
		out, err := readTrend(ctx, trends, in.Mint)
		if err != nil {
			return nil, trendOutput{}, err
		}
		return nil, out, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "trends_window",
		Description: "Get the recent price samples the trend is computed from, oldest first",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in windowInput) (*mcp.CallToolResult, windowOutput, error) {
		if trends == nil {
			return nil, windowOutput{}, fmt.Errorf("trend service unavailable")
		}
		mint, err := normalizeMint(in.Mint)
		if err != nil {
			return nil, windowOutput{}, err
		}
		samples, err := trends.Window(ctx, mint)
		if err != nil {
			return nil, windowOutput{}, err
		}
		if limit := normalizeWindowLimit(in.Limit); len(samples) > limit {
			samples = samples[len(samples)-limit:]
		}
		if samples == nil {
			samples = []*domain.PriceSample{}
		}
		return nil, windowOutput{Asset: mint, Samples: samples}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "trends_recompute",
		Description: "Recompute an asset's trend now; a transition triggers the same trades as a scheduled tick",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in mintInput) (*mcp.CallToolResult, trendOutput, error) {
		if recomputer == nil {
			return nil, trendOutput{}, fmt.Errorf("trend scheduler unavailable")
		}
		mint, err := normalizeMint(in.Mint)
		if err != nil {
			return nil, trendOutput{}, err
		}
		update, err := recomputer.RecomputeNow(ctx, mint)
		if errors.Is(err, domain.ErrInsufficientData) {
			return nil, trendOutput{}, fmt.Errorf("not enough recent price samples for %s", mint)
		}
		if err != nil {
			return nil, trendOutput{}, err
		}
		return nil, fromUpdate(update), nil
	})
}

func readTrend(ctx context.Context, trends TrendReader, raw string) (trendOutput, error) {
	mint, err := normalizeMint(raw)
	if err != nil {
		return trendOutput{}, err
	}
	state, err := trends.CurrentTrend(ctx, mint)
	if err != nil {
		return trendOutput{}, err
	}
	out := trendOutput{Asset: mint, Trend: string(state.Trend), UpdatedAt: formatTime(state.UpdatedAt)}

	snap, err := trends.Indicators(ctx, mint)
	switch {
	case err == nil:
		out.Indicators = toIndicators(snap)
	case errors.Is(err, domain.ErrInsufficientData):
	default:
		return trendOutput{}, err
	}
	return out, nil
}
