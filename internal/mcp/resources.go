package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerResources(server *mcp.Server, trends TrendReader, assets AssetLister) {
	server.AddResource(&mcp.Resource{
		URI:         "assets://tracked",
		Name:        "tracked-assets",
		Description: "Assets whose trend is recomputed every tick",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if assets == nil {
			return nil, fmt.Errorf("asset catalog unavailable")
		}
		list, err := assets.ListTokens(ctx)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, assetsListOutput{Assets: list})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "trend://{mint}",
		Name:        "trend-by-mint",
		Description: "Stored trend and live indicators for one asset",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if trends == nil {
			return nil, fmt.Errorf("trend service unavailable")
		}
		parsed, err := url.Parse(req.Params.URI)
		if err != nil || parsed.Scheme != "trend" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		mint := parsed.Host
		if mint == "" {
			mint = strings.Trim(parsed.Opaque+parsed.Path, "/")
		}
		out, err := readTrend(ctx, trends, mint)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, out)
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
