package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"trendbot/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *JupiterClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewJupiterClient(trace.NewNoopTracerProvider().Tracer("test"), JupiterOptions{
		BaseURL:  srv.URL,
		PriceURL: srv.URL + "/price",
		APIKey:   "secret",
	})
}

func TestQuoteParsesRoute(t *testing.T) {
	var gotQuery string
	var gotKey string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("x-api-key")
		_, _ = w.Write([]byte(`{"inputMint":"IN","outputMint":"OUT","inAmount":"100000000","outAmount":"4200","routePlan":[]}`))
	})

	route, err := client.Quote(context.Background(), QuoteRequest{
		InputMint:   "IN",
		OutputMint:  "OUT",
		Amount:      100000000,
		Mode:        domain.SwapModeExactIn,
		SlippageBps: 500,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if route.InAmount != 100000000 || route.OutAmount != 4200 {
		t.Fatalf("unexpected route amounts: %+v", route)
	}
	if !json.Valid(route.Raw) || !strings.Contains(string(route.Raw), "routePlan") {
		t.Fatalf("expected raw quote to be kept verbatim, got %s", route.Raw)
	}
	for _, want := range []string{"inputMint=IN", "outputMint=OUT", "amount=100000000", "slippageBps=500", "swapMode=ExactIn"} {
		if !strings.Contains(gotQuery, want) {
			t.Fatalf("expected query to contain %q, got %q", want, gotQuery)
		}
	}
	if gotKey != "secret" {
		t.Fatalf("expected api key header, got %q", gotKey)
	}
}

func TestQuoteNoRouteIsDistinguishable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Could not find any route","errorCode":"COULD_NOT_FIND_ANY_ROUTE"}`))
	})

	_, err := client.Quote(context.Background(), QuoteRequest{InputMint: "IN", OutputMint: "OUT", Amount: 1})
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
	if errors.Is(err, ErrQuoteUnavailable) {
		t.Fatalf("no-route must not also be quote-unavailable: %v", err)
	}
}

func TestQuoteServerErrorIsUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Quote(context.Background(), QuoteRequest{InputMint: "IN", OutputMint: "OUT", Amount: 1})
	if !errors.Is(err, ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
}

func TestQuoteRejectsZeroAmount(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("zero amount must not reach the API")
	})
	if _, err := client.Quote(context.Background(), QuoteRequest{InputMint: "IN", OutputMint: "OUT"}); !errors.Is(err, ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
}

func TestInstructionsPostsQuoteAndDecodesSet(t *testing.T) {
	var posted map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/swap-instructions" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &posted); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"computeBudgetInstructions":[{"programId":"CB","accounts":[],"data":"AQ=="}],
			"setupInstructions":[],
			"swapInstruction":{"programId":"SWAP","accounts":[{"pubkey":"A","isSigner":true,"isWritable":true}],"data":"Ag=="},
			"cleanupInstruction":null,
			"addressLookupTableAddresses":["LUT1"]
		}`))
	})

	route := &domain.Route{Raw: json.RawMessage(`{"outAmount":"1"}`)}
	set, err := client.Instructions(context.Background(), route, "PAYER")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Swap.ProgramID != "SWAP" || len(set.Swap.Accounts) != 1 || !set.Swap.Accounts[0].IsSigner {
		t.Fatalf("unexpected swap instruction: %+v", set.Swap)
	}
	if set.Cleanup != nil {
		t.Fatalf("expected missing cleanup, got %+v", set.Cleanup)
	}
	if len(set.LookupTableAddrs) != 1 || set.LookupTableAddrs[0] != "LUT1" {
		t.Fatalf("unexpected lookup tables: %v", set.LookupTableAddrs)
	}

	if posted["userPublicKey"] != "PAYER" || posted["wrapAndUnwrapSol"] != true || posted["dynamicComputeUnitLimit"] != true {
		t.Fatalf("unexpected request body: %v", posted)
	}
	fee := posted["prioritizationFeeLamports"].(map[string]any)["priorityLevelWithMaxLamports"].(map[string]any)
	if fee["priorityLevel"] != "veryHigh" || fee["maxLamports"].(float64) != 50000000 {
		t.Fatalf("unexpected priority fee: %v", fee)
	}
	if quote, ok := posted["quoteResponse"].(map[string]any); !ok || quote["outAmount"] != "1" {
		t.Fatalf("expected quote forwarded verbatim, got %v", posted["quoteResponse"])
	}
}

func TestInstructionsSurfacesAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid quote"}`))
	})
	_, err := client.Instructions(context.Background(), &domain.Route{Raw: json.RawMessage(`{}`)}, "PAYER")
	if err == nil || !strings.Contains(err.Error(), "invalid quote") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestPricesDerivesSOLQuote(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/price" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		ids := r.URL.Query().Get("ids")
		if !strings.Contains(ids, domain.WrappedSOLMint) || !strings.Contains(ids, "MINT") {
			t.Fatalf("unexpected ids %q", ids)
		}
		_, _ = w.Write([]byte(`{"` + domain.WrappedSOLMint + `":{"usdPrice":200},"MINT":{"usdPrice":2},"GONE":null}`))
	})

	samples, err := client.Prices(context.Background(), []string{"MINT", "GONE", "MINT"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("expected one sample, got %d", len(samples))
	}
	if samples[0].Asset != "MINT" || samples[0].PriceUSD != 2 || samples[0].PriceSOL != 0.01 {
		t.Fatalf("unexpected sample: %+v", samples[0])
	}
	if samples[0].Timestamp.IsZero() {
		t.Fatal("expected sample timestamp to be set")
	}
}
