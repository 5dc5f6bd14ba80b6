package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

func TestSendBundleFansOutToEveryEndpoint(t *testing.T) {
	bodies := make(chan map[string]any, 5)
	handler := func(status int, payload string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			bodies <- body
			w.WriteHeader(status)
			_, _ = w.Write([]byte(payload))
		}
	}

	servers := []*httptest.Server{
		httptest.NewServer(handler(http.StatusInternalServerError, `oops`)),
		httptest.NewServer(handler(http.StatusOK, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"bundle invalid"}}`)),
		httptest.NewServer(handler(http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":"bundle-1"}`)),
		httptest.NewServer(handler(http.StatusTooManyRequests, `{}`)),
	}
	endpoints := make([]string, 0, 5)
	for _, s := range servers {
		defer s.Close()
		endpoints = append(endpoints, s.URL)
	}
	dead := httptest.NewServer(http.NotFoundHandler())
	endpoints = append(endpoints, dead.URL)
	dead.Close()

	client := NewRelayClient(trace.NewNoopTracerProvider().Tracer("test"), zap.NewNop(), endpoints, 2*time.Second)
	results := client.SendBundle(context.Background(), []string{"tip", "main"})

	if len(results) != 5 {
		t.Fatalf("expected one result per endpoint, got %d", len(results))
	}
	if !AnyAccepted(results) {
		t.Fatalf("expected one endpoint to accept: %+v", results)
	}
	for i, r := range results {
		if r.Endpoint != endpoints[i] {
			t.Fatalf("result %d tagged with %s, want %s", i, r.Endpoint, endpoints[i])
		}
		if (i == 2) != r.Accepted {
			t.Fatalf("result %d: unexpected acceptance %+v", i, r)
		}
	}
	if results[2].BundleID != "bundle-1" {
		t.Fatalf("expected bundle id, got %q", results[2].BundleID)
	}
	if results[1].Err == nil || results[4].Err == nil {
		t.Fatalf("expected rpc error and network error to be captured: %+v", results)
	}

	close(bodies)
	count := 0
	for body := range bodies {
		count++
		if body["method"] != "sendBundle" {
			t.Fatalf("unexpected method: %v", body["method"])
		}
		params := body["params"].([]any)
		txs := params[0].([]any)
		if len(txs) != 2 || txs[0] != "tip" || txs[1] != "main" {
			t.Fatalf("unexpected bundle payload: %v", params)
		}
	}
	if count != 4 {
		t.Fatalf("expected four live endpoints to be hit, got %d", count)
	}
}

func TestSendBundleAllRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewRelayClient(trace.NewNoopTracerProvider().Tracer("test"), zap.NewNop(), []string{srv.URL, srv.URL}, time.Second)
	if results := client.SendBundle(context.Background(), []string{"a"}); AnyAccepted(results) {
		t.Fatalf("expected no acceptance, got %+v", results)
	}
}
