package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"trendbot/internal/chain"
	"trendbot/internal/domain"
	"trendbot/internal/provider"

	"github.com/gagliardetto/solana-go"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type stubQuotes struct {
	mu          sync.Mutex
	noRouteFrom map[string]bool
	quoteErr    error
	instrErr    error
	requests    []provider.QuoteRequest
}

func (s *stubQuotes) Quote(ctx context.Context, req provider.QuoteRequest) (*domain.Route, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.noRouteFrom[req.InputMint] {
		return nil, fmt.Errorf("%w: no path", provider.ErrNoRoute)
	}
	if s.quoteErr != nil {
		return nil, s.quoteErr
	}
	return &domain.Route{InputMint: req.InputMint, OutputMint: req.OutputMint, InAmount: req.Amount, OutAmount: 4200, Raw: []byte(`{}`)}, nil
}

func (s *stubQuotes) Instructions(ctx context.Context, route *domain.Route, payer string) (*domain.InstructionSet, error) {
	if s.instrErr != nil {
		return nil, s.instrErr
	}
	return &domain.InstructionSet{Swap: domain.RawInstruction{ProgramID: solana.SystemProgramID.String()}}, nil
}

type stubBuilder struct{ err error }

func (b stubBuilder) Build(ctx context.Context, set *domain.InstructionSet) (*chain.Compiled, error) {
	if b.err != nil {
		return nil, b.err
	}
	return &chain.Compiled{}, nil
}

type stubBroadcaster struct {
	mu     sync.Mutex
	result chain.BroadcastResult
	subs   []chain.Submission
}

func (b *stubBroadcaster) Broadcast(ctx context.Context, sub chain.Submission) chain.BroadcastResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, sub)
	return b.result
}

type stubPoller struct {
	mu       sync.Mutex
	outcome  chain.PollOutcome
	policies []string
}

func (p *stubPoller) Await(ctx context.Context, signature string, policy chain.PollPolicy) chain.PollOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.policies = append(p.policies, policy.Name)
	out := p.outcome
	out.Signature = signature
	return out
}

func newSecret(t *testing.T) string {
	t.Helper()
	pk, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return pk.String()
}

func newTestSwapService(q SwapQuoteClient, b InstructionBuilder, bc RelayBroadcaster, p ConfirmationPoller) *SwapService {
	return NewSwapService(trace.NewNoopTracerProvider().Tracer("test"), zap.NewNop(), q, b, bc, p, 0)
}

func swapRequest(t *testing.T, relay bool) domain.SwapRequest {
	return domain.SwapRequest{
		PayerSecret: newSecret(t),
		InputMint:   domain.WrappedSOLMint,
		OutputMint:  "X",
		Amount:      100_000_000,
		SlippageBps: 500,
		UseRelay:    relay,
	}
}

func TestSwapConfirmedUsesRelayPolicy(t *testing.T) {
	bc := &stubBroadcaster{result: chain.BroadcastResult{Accepted: true, Signature: "SIG", Attempts: 1}}
	poller := &stubPoller{outcome: chain.PollOutcome{Confirmed: true}}
	quotes := &stubQuotes{}
	svc := newTestSwapService(quotes, stubBuilder{}, bc, poller)

	res := svc.Swap(context.Background(), swapRequest(t, true))
	if !res.Confirmed || res.Failure != nil {
		t.Fatalf("expected confirmation, got %+v", res)
	}
	if res.Signature != "SIG" || res.ExplorerURL != "https://solscan.io/tx/SIG" || res.OutAmount != 4200 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.AttemptID == "" {
		t.Fatal("expected attempt id")
	}
	if len(poller.policies) != 1 || poller.policies[0] != chain.RelayPolicy.Name {
		t.Fatalf("expected relay policy, got %v", poller.policies)
	}
	if len(bc.subs) != 1 || !bc.subs[0].UseRelay || len(bc.subs[0].Payer) == 0 {
		t.Fatalf("unexpected submission: %+v", bc.subs)
	}
	if quotes.requests[0].Mode != domain.SwapModeExactIn {
		t.Fatalf("expected ExactIn default, got %q", quotes.requests[0].Mode)
	}
}

func TestSwapDirectUsesDirectPolicy(t *testing.T) {
	bc := &stubBroadcaster{result: chain.BroadcastResult{Accepted: true, Signature: "SIG"}}
	poller := &stubPoller{outcome: chain.PollOutcome{Confirmed: true}}
	svc := newTestSwapService(&stubQuotes{}, stubBuilder{}, bc, poller)

	if res := svc.Swap(context.Background(), swapRequest(t, false)); !res.Confirmed {
		t.Fatalf("expected confirmation, got %+v", res)
	}
	if poller.policies[0] != chain.DirectPolicy.Name {
		t.Fatalf("expected direct policy, got %v", poller.policies)
	}
}

func TestSwapFailureTaxonomy(t *testing.T) {
	cases := []struct {
		name   string
		quotes *stubQuotes
		build  stubBuilder
		bc     chain.BroadcastResult
		poll   chain.PollOutcome
		want   domain.FailureKind
	}{
		{
			name:   "no route",
			quotes: &stubQuotes{noRouteFrom: map[string]bool{domain.WrappedSOLMint: true}},
			want:   domain.FailureNoRoute,
		},
		{
			name:   "quote unavailable",
			quotes: &stubQuotes{quoteErr: provider.ErrQuoteUnavailable},
			want:   domain.FailureQuoteUnavailable,
		},
		{
			name:   "instructions unavailable",
			quotes: &stubQuotes{instrErr: errors.New("502")},
			want:   domain.FailureQuoteUnavailable,
		},
		{
			name:   "build failure",
			quotes: &stubQuotes{},
			build:  stubBuilder{err: chain.ErrBuild},
			want:   domain.FailureBuildFailure,
		},
		{
			name:   "relay rejected",
			quotes: &stubQuotes{},
			bc:     chain.BroadcastResult{Signature: "SIG", Attempts: 3, Err: chain.ErrRelayRejected},
			poll:   chain.PollOutcome{Failure: domain.NewFailure(domain.FailureConfirmationTimeout, "")},
			want:   domain.FailureRelayRejected,
		},
		{
			name:   "on-chain slippage",
			quotes: &stubQuotes{},
			bc:     chain.BroadcastResult{Accepted: true, Signature: "SIG"},
			poll:   chain.PollOutcome{Failure: &domain.Failure{Kind: domain.FailureSlippageExceededInput, Code: 6002}},
			want:   domain.FailureSlippageExceededInput,
		},
		{
			name:   "confirmation timeout",
			quotes: &stubQuotes{},
			bc:     chain.BroadcastResult{Accepted: true, Signature: "SIG"},
			poll:   chain.PollOutcome{Failure: domain.NewFailure(domain.FailureConfirmationTimeout, "")},
			want:   domain.FailureConfirmationTimeout,
		},
	}

	for _, tc := range cases {
		svc := newTestSwapService(tc.quotes, tc.build, &stubBroadcaster{result: tc.bc}, &stubPoller{outcome: tc.poll})
		res := svc.Swap(context.Background(), swapRequest(t, true))
		if res.Confirmed || res.Failure == nil {
			t.Fatalf("%s: expected failure, got %+v", tc.name, res)
		}
		if res.Failure.Kind != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, res.Failure.Kind)
		}
		if tc.bc.Signature != "" && res.Signature != tc.bc.Signature {
			t.Fatalf("%s: expected signature surfaced, got %+v", tc.name, res)
		}
	}
}

func TestSwapRejectedButLandedIsConfirmed(t *testing.T) {
	bc := &stubBroadcaster{result: chain.BroadcastResult{Signature: "SIG", Attempts: 3, Err: chain.ErrRelayRejected}}
	poller := &stubPoller{outcome: chain.PollOutcome{Confirmed: true}}
	svc := newTestSwapService(&stubQuotes{}, stubBuilder{}, bc, poller)

	res := svc.Swap(context.Background(), swapRequest(t, true))
	if !res.Confirmed || res.Signature != "SIG" {
		t.Fatalf("expected late confirmation, got %+v", res)
	}
}

func TestSwapRejectedButLandedKeepsOnChainReason(t *testing.T) {
	bc := &stubBroadcaster{result: chain.BroadcastResult{Signature: "SIG", Attempts: 3, Err: chain.ErrRelayRejected}}
	poller := &stubPoller{outcome: chain.PollOutcome{
		Failure: domain.NewFailure(domain.FailureSlippageExceededInput, "custom program error: 6002"),
	}}
	svc := newTestSwapService(&stubQuotes{}, stubBuilder{}, bc, poller)

	res := svc.Swap(context.Background(), swapRequest(t, true))
	if res.Confirmed || res.Failure == nil || res.Failure.Kind != domain.FailureSlippageExceededInput {
		t.Fatalf("expected slippage failure from the landed transaction, got %+v", res)
	}
	if res.Signature != "SIG" {
		t.Fatalf("expected signature kept, got %q", res.Signature)
	}
}

func TestSwapRejectedAndUnseenIsRelayRejected(t *testing.T) {
	bc := &stubBroadcaster{result: chain.BroadcastResult{Signature: "SIG", Attempts: 3, Err: chain.ErrRelayRejected}}
	poller := &stubPoller{outcome: chain.PollOutcome{
		Failure: domain.NewFailure(domain.FailureConfirmationTimeout, "confirmation timeout"),
	}}
	svc := newTestSwapService(&stubQuotes{}, stubBuilder{}, bc, poller)

	res := svc.Swap(context.Background(), swapRequest(t, true))
	if res.Failure == nil || res.Failure.Kind != domain.FailureRelayRejected {
		t.Fatalf("expected relay-rejected, got %+v", res)
	}
}

func TestSwapRejectsInvalidRequest(t *testing.T) {
	svc := newTestSwapService(&stubQuotes{}, stubBuilder{}, &stubBroadcaster{}, &stubPoller{})

	bad := swapRequest(t, true)
	bad.PayerSecret = "not a key"
	if res := svc.Swap(context.Background(), bad); res.Failure == nil || res.Failure.Kind != domain.FailureInvalidRequest {
		t.Fatalf("expected invalid-request for bad key, got %+v", res)
	}

	zero := swapRequest(t, true)
	zero.Amount = 0
	if res := svc.Swap(context.Background(), zero); res.Failure == nil || res.Failure.Kind != domain.FailureInvalidRequest {
		t.Fatalf("expected invalid-request for zero amount, got %+v", res)
	}
}
