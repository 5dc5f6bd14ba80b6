package mcp

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"trendbot/internal/domain"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"
)

type stubTrends struct {
	states  map[string]*domain.TrendState
	snap    domain.IndicatorSnapshot
	snapErr error
	window  []*domain.PriceSample
}

func (s *stubTrends) CurrentTrend(ctx context.Context, asset string) (*domain.TrendState, error) {
	if st, ok := s.states[asset]; ok {
		copy := *st
		return &copy, nil
	}
	return &domain.TrendState{Asset: asset, Trend: domain.TrendNone}, nil
}

func (s *stubTrends) Indicators(ctx context.Context, asset string) (domain.IndicatorSnapshot, error) {
	return s.snap, s.snapErr
}

func (s *stubTrends) Window(ctx context.Context, asset string) ([]*domain.PriceSample, error) {
	return append([]*domain.PriceSample(nil), s.window...), nil
}

type stubAssets struct {
	tokens []*domain.Token
}

func (s *stubAssets) ListTokens(ctx context.Context) ([]*domain.Token, error) {
	return append([]*domain.Token(nil), s.tokens...), nil
}

type stubRecomputer struct {
	update *domain.TrendUpdate
	err    error
	asset  string
}

func (s *stubRecomputer) RecomputeNow(ctx context.Context, asset string) (*domain.TrendUpdate, error) {
	s.asset = asset
	return s.update, s.err
}

var testUpdatedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testServer() (*Server, *stubTrends, *stubRecomputer) {
	base := time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC)
	trends := &stubTrends{
		states: map[string]*domain.TrendState{
			domain.WrappedSOLMint: {Asset: domain.WrappedSOLMint, Trend: domain.TrendBullish, UpdatedAt: testUpdatedAt},
		},
		snap: domain.IndicatorSnapshot{SMAShort: 101, SMALong: 100, EMAShort: 101.5, EMALong: 100.5, RSI: math.NaN()},
		window: []*domain.PriceSample{
			{Asset: domain.WrappedSOLMint, PriceUSD: 100, Timestamp: base},
			{Asset: domain.WrappedSOLMint, PriceUSD: 101, Timestamp: base.Add(time.Minute)},
			{Asset: domain.WrappedSOLMint, PriceUSD: 102, Timestamp: base.Add(2 * time.Minute)},
		},
	}
	assets := &stubAssets{tokens: []*domain.Token{
		{Mint: domain.WrappedSOLMint, Name: "Wrapped SOL", Ticker: "SOL", CreatedAt: base},
	}}
	recomputer := &stubRecomputer{update: &domain.TrendUpdate{
		Asset:        domain.WrappedSOLMint,
		Previous:     domain.TrendBullish,
		Trend:        domain.TrendBearish,
		Transitioned: true,
		UpdatedAt:    testUpdatedAt,
		Indicators:   domain.IndicatorSnapshot{SMAShort: 99, SMALong: 100, EMAShort: 99, EMALong: 100, RSI: 40},
	}}

	tracer := trace.NewNoopTracerProvider().Tracer("test")
	srv := NewServer(tracer, trends, assets, recomputer, ServerConfig{RequestTimeout: time.Second})
	return srv, trends, recomputer
}

func connectInMemory(ctx context.Context, srv *Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

type authRoundTripper struct {
	token string
	base  http.RoundTripper
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.token != "" {
		clone.Header.Set("Authorization", "Bearer "+t.token)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}

func decodeStructured(result *sdkmcp.CallToolResult, out any) error {
	body, err := json.Marshal(result.StructuredContent)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}
