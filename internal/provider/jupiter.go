package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trendbot/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	DefaultSwapAPIURL   = "https://api.jup.ag/swap/v1"
	maxPriorityLamports = 50_000_000
	priorityLevel       = "veryHigh"
)

var (
	ErrNoRoute          = errors.New("no route found")
	ErrQuoteUnavailable = errors.New("quote service unavailable")
)

var noRouteCodes = map[string]struct{}{
	"COULD_NOT_FIND_ANY_ROUTE": {},
	"NO_ROUTES_FOUND":          {},
	"TOKEN_NOT_TRADABLE":       {},
}

type QuoteRequest struct {
	InputMint   string
	OutputMint  string
	Amount      uint64
	Mode        domain.SwapMode
	SlippageBps int
}

type JupiterOptions struct {
	BaseURL    string
	PriceURL   string
	APIKey     string
	RatePerSec float64
	HTTPClient *http.Client
}

// JupiterClient talks to the Jupiter swap API. It does not apply request
// deadlines of its own beyond the HTTP client timeout; callers bound each
// call with their context.
type JupiterClient struct {
	tracer   trace.Tracer
	baseURL  string
	priceURL string
	apiKey   string
	http     *http.Client
	limiter  *rate.Limiter
}

func NewJupiterClient(tracer trace.Tracer, opts JupiterOptions) *JupiterClient {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultSwapAPIURL
	}
	priceURL := strings.TrimRight(strings.TrimSpace(opts.PriceURL), "/")
	if priceURL == "" {
		priceURL = DefaultPriceAPIURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	limit := rate.Inf
	if opts.RatePerSec > 0 {
		limit = rate.Limit(opts.RatePerSec)
	}
	return &JupiterClient{
		tracer:   tracer,
		baseURL:  baseURL,
		priceURL: priceURL,
		apiKey:   opts.APIKey,
		http:     httpClient,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

type quoteResponse struct {
	InputMint  string `json:"inputMint"`
	OutputMint string `json:"outputMint"`
	InAmount   string `json:"inAmount"`
	OutAmount  string `json:"outAmount"`
}

type apiError struct {
	Error     string `json:"error"`
	ErrorCode string `json:"errorCode"`
}

func (c *JupiterClient) Quote(ctx context.Context, req QuoteRequest) (*domain.Route, error) {
	ctx, span := c.tracer.Start(ctx, "jupiter.quote")
	defer span.End()
	span.SetAttributes(
		attribute.String("input_mint", req.InputMint),
		attribute.String("output_mint", req.OutputMint),
		attribute.String("swap_mode", string(req.Mode)),
	)

	if req.Amount == 0 {
		return nil, fmt.Errorf("%w: zero amount", ErrQuoteUnavailable)
	}
	mode := req.Mode
	if mode == "" {
		mode = domain.SwapModeExactIn
	}

	q := url.Values{}
	q.Set("inputMint", req.InputMint)
	q.Set("outputMint", req.OutputMint)
	q.Set("amount", strconv.FormatUint(req.Amount, 10))
	q.Set("slippageBps", strconv.Itoa(req.SlippageBps))
	q.Set("swapMode", string(mode))

	body, status, err := c.do(ctx, http.MethodGet, c.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote request failed")
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	if status != http.StatusOK {
		err := classifyQuoteError(status, body)
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote rejected")
		return nil, err
	}

	var parsed quoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode quote: %v", ErrQuoteUnavailable, err)
	}
	if parsed.OutAmount == "" {
		if apiErr := decodeAPIError(body); apiErr.Error != "" || apiErr.ErrorCode != "" {
			return nil, classifyQuoteError(http.StatusBadRequest, body)
		}
		return nil, fmt.Errorf("%w: quote without out amount", ErrQuoteUnavailable)
	}

	inAmount, _ := strconv.ParseUint(parsed.InAmount, 10, 64)
	outAmount, err := strconv.ParseUint(parsed.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: parse out amount %q: %v", ErrQuoteUnavailable, parsed.OutAmount, err)
	}

	return &domain.Route{
		InputMint:  parsed.InputMint,
		OutputMint: parsed.OutputMint,
		InAmount:   inAmount,
		OutAmount:  outAmount,
		Raw:        json.RawMessage(body),
	}, nil
}

type swapInstructionsRequest struct {
	QuoteResponse             json.RawMessage `json:"quoteResponse"`
	UserPublicKey             string          `json:"userPublicKey"`
	WrapAndUnwrapSol          bool            `json:"wrapAndUnwrapSol"`
	DynamicComputeUnitLimit   bool            `json:"dynamicComputeUnitLimit"`
	PrioritizationFeeLamports priorityFee     `json:"prioritizationFeeLamports"`
}

type priorityFee struct {
	PriorityLevelWithMaxLamports struct {
		MaxLamports   uint64 `json:"maxLamports"`
		PriorityLevel string `json:"priorityLevel"`
	} `json:"priorityLevelWithMaxLamports"`
}

type swapInstructionsResponse struct {
	ComputeBudgetInstructions   []domain.RawInstruction `json:"computeBudgetInstructions"`
	SetupInstructions           []domain.RawInstruction `json:"setupInstructions"`
	SwapInstruction             *domain.RawInstruction  `json:"swapInstruction"`
	CleanupInstruction          *domain.RawInstruction  `json:"cleanupInstruction"`
	AddressLookupTableAddresses []string                `json:"addressLookupTableAddresses"`
	Error                       string                  `json:"error"`
}

// Instructions fetches the raw instruction payloads that execute route for payer.
func (c *JupiterClient) Instructions(ctx context.Context, route *domain.Route, payer string) (*domain.InstructionSet, error) {
	ctx, span := c.tracer.Start(ctx, "jupiter.swap-instructions")
	defer span.End()

	if route == nil || len(route.Raw) == 0 {
		return nil, fmt.Errorf("swap instructions: empty route")
	}

	reqBody := swapInstructionsRequest{
		QuoteResponse:           route.Raw,
		UserPublicKey:           payer,
		WrapAndUnwrapSol:        true,
		DynamicComputeUnitLimit: true,
	}
	reqBody.PrioritizationFeeLamports.PriorityLevelWithMaxLamports.MaxLamports = maxPriorityLamports
	reqBody.PrioritizationFeeLamports.PriorityLevelWithMaxLamports.PriorityLevel = priorityLevel

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode swap instructions request: %w", err)
	}

	body, status, err := c.do(ctx, http.MethodPost, c.baseURL+"/swap-instructions", payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "swap instructions request failed")
		return nil, fmt.Errorf("swap instructions: %w", err)
	}

	var parsed swapInstructionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode swap instructions (status %d): %w", status, err)
	}
	if status != http.StatusOK || parsed.Error != "" {
		err := fmt.Errorf("swap instructions error (status %d): %s", status, parsed.Error)
		span.RecordError(err)
		span.SetStatus(codes.Error, "swap instructions rejected")
		return nil, err
	}
	if parsed.SwapInstruction == nil {
		return nil, fmt.Errorf("swap instructions: response has no swap instruction")
	}

	return &domain.InstructionSet{
		ComputeBudget:    parsed.ComputeBudgetInstructions,
		Setup:            parsed.SetupInstructions,
		Swap:             *parsed.SwapInstruction,
		Cleanup:          parsed.CleanupInstruction,
		LookupTableAddrs: parsed.AddressLookupTableAddresses,
	}, nil
}

func (c *JupiterClient) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

func decodeAPIError(body []byte) apiError {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)
	return apiErr
}

func classifyQuoteError(status int, body []byte) error {
	apiErr := decodeAPIError(body)
	if _, ok := noRouteCodes[apiErr.ErrorCode]; ok {
		return fmt.Errorf("%w: %s", ErrNoRoute, apiErr.Error)
	}
	if status >= 400 && status < 500 && strings.Contains(strings.ToLower(apiErr.Error), "route") {
		return fmt.Errorf("%w: %s", ErrNoRoute, apiErr.Error)
	}
	msg := apiErr.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	return fmt.Errorf("%w: status %d: %s", ErrQuoteUnavailable, status, msg)
}
