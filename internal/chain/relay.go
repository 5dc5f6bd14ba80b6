package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var DefaultRelayEndpoints = []string{
	"https://mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://amsterdam.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://frankfurt.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://ny.mainnet.block-engine.jito.wtf/api/v1/bundles",
	"https://tokyo.mainnet.block-engine.jito.wtf/api/v1/bundles",
}

// DefaultTipAccounts are the validator tip accounts a priority fee is paid to.
var DefaultTipAccounts = []string{
	"DfXygSm4jCyNCybVYYK6DwvWqjKee8pbDmJGcLWNDXjh",
	"ADuUkR4vqLUMWXxW9gh6D6L8pMSawimctcNZ5pGwDcEt",
	"3AVi9Tg9Uo68tJfuvoKvqKNWKkC5wPdSSdeBnizKZ6jT",
	"HFqU5x63VTqvQss8hp11i4wVV8bD44PvwucfZ2bU7gRe",
	"ADaUMid9yfUytqMBgopwjb2DTLSokTSzL1zt6iGPaS49",
	"Cw8CFyM9FkoMi7K7Crf6HNQqf4uEMzpKw6QNghXLvLkY",
	"DttWaMuVvTiduZRnguLF7jNxTgiMBZ1hyAumKUiL2KRL",
	"96gYZGLnJYVFmbjzopPSU6QiEV5fGqZNyN9nmNhvrZU5",
}

// EndpointResult is the outcome of one endpoint in a bundle fan-out.
type EndpointResult struct {
	Endpoint string
	Accepted bool
	BundleID string
	Err      error
}

// AnyAccepted reports whether at least one endpoint took the bundle.
func AnyAccepted(results []EndpointResult) bool {
	for _, r := range results {
		if r.Accepted {
			return true
		}
	}
	return false
}

type RelayClient struct {
	tracer    trace.Tracer
	logger    *zap.Logger
	endpoints []string
	http      *http.Client
	timeout   time.Duration
}

func NewRelayClient(tracer trace.Tracer, logger *zap.Logger, endpoints []string, timeout time.Duration) *RelayClient {
	if len(endpoints) == 0 {
		endpoints = DefaultRelayEndpoints
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RelayClient{
		tracer:    tracer,
		logger:    logger,
		endpoints: append([]string(nil), endpoints...),
		http:      &http.Client{},
		timeout:   timeout,
	}
}

type bundleRequest struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      int        `json:"id"`
	Method  string     `json:"method"`
	Params  [][]string `json:"params"`
}

type bundleResponse struct {
	Result string `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SendBundle submits the base58 encoded transactions to every endpoint at once
// and waits for all of them. Individual endpoint failures are captured in the
// returned results, never returned as an error.
func (c *RelayClient) SendBundle(ctx context.Context, encoded []string) []EndpointResult {
	ctx, span := c.tracer.Start(ctx, "relay.send-bundle")
	defer span.End()

	payload, err := json.Marshal(bundleRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "sendBundle",
		Params:  [][]string{encoded},
	})
	results := make([]EndpointResult, len(c.endpoints))
	if err != nil {
		for i, ep := range c.endpoints {
			results[i] = EndpointResult{Endpoint: ep, Err: err}
		}
		return results
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var g errgroup.Group
	for i, ep := range c.endpoints {
		g.Go(func() error {
			results[i] = c.post(ctx, ep, payload)
			return nil
		})
	}
	_ = g.Wait()

	accepted := 0
	for _, r := range results {
		if r.Accepted {
			accepted++
			continue
		}
		c.logger.Debug("relay endpoint rejected bundle", zap.String("endpoint", r.Endpoint), zap.Error(r.Err))
	}
	span.SetAttributes(
		attribute.Int("endpoints", len(results)),
		attribute.Int("accepted", accepted),
	)
	return results
}

func (c *RelayClient) post(ctx context.Context, endpoint string, payload []byte) EndpointResult {
	result := EndpointResult{Endpoint: endpoint}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		result.Err = err
		return result
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		result.Err = err
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		result.Err = err
		return result
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Err = fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
		return result
	}

	var parsed bundleResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error != nil {
			result.Err = fmt.Errorf("rpc error %d: %s", parsed.Error.Code, parsed.Error.Message)
			return result
		}
		result.BundleID = parsed.Result
	}
	result.Accepted = true
	return result
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
