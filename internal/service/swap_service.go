package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trendbot/internal/chain"
	"trendbot/internal/domain"
	"trendbot/internal/provider"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultQuoteTimeout = 15 * time.Second

type SwapQuoteClient interface {
	Quote(ctx context.Context, req provider.QuoteRequest) (*domain.Route, error)
	Instructions(ctx context.Context, route *domain.Route, payer string) (*domain.InstructionSet, error)
}

type InstructionBuilder interface {
	Build(ctx context.Context, set *domain.InstructionSet) (*chain.Compiled, error)
}

type RelayBroadcaster interface {
	Broadcast(ctx context.Context, sub chain.Submission) chain.BroadcastResult
}

type ConfirmationPoller interface {
	Await(ctx context.Context, signature string, policy chain.PollPolicy) chain.PollOutcome
}

// SwapService runs one swap end to end: quote, build, broadcast, confirm.
type SwapService struct {
	tracer       trace.Tracer
	logger       *zap.Logger
	quotes       SwapQuoteClient
	builder      InstructionBuilder
	broadcaster  RelayBroadcaster
	poller       ConfirmationPoller
	quoteTimeout time.Duration
}

func NewSwapService(
	tracer trace.Tracer,
	logger *zap.Logger,
	quotes SwapQuoteClient,
	builder InstructionBuilder,
	broadcaster RelayBroadcaster,
	poller ConfirmationPoller,
	quoteTimeout time.Duration,
) *SwapService {
	if quoteTimeout <= 0 {
		quoteTimeout = defaultQuoteTimeout
	}
	return &SwapService{
		tracer:       tracer,
		logger:       logger,
		quotes:       quotes,
		builder:      builder,
		broadcaster:  broadcaster,
		poller:       poller,
		quoteTimeout: quoteTimeout,
	}
}

// Swap never returns an error: every outcome is a SwapResult carrying either
// a confirmed signature or exactly one classified failure.
func (s *SwapService) Swap(ctx context.Context, req domain.SwapRequest) domain.SwapResult {
	ctx, span := s.tracer.Start(ctx, "swap-service.swap")
	defer span.End()

	res := domain.SwapResult{AttemptID: uuid.NewString()}
	log := s.logger.With(
		zap.String("attempt_id", res.AttemptID),
		zap.String("input_mint", req.InputMint),
		zap.String("output_mint", req.OutputMint),
		zap.Uint64("amount", req.Amount),
		zap.Bool("relay", req.UseRelay),
	)
	span.SetAttributes(
		attribute.String("attempt_id", res.AttemptID),
		attribute.String("input_mint", req.InputMint),
		attribute.String("output_mint", req.OutputMint),
	)

	fail := func(f *domain.Failure) domain.SwapResult {
		res.Failure = f
		res.ExplorerURL = domain.ExplorerURL(res.Signature)
		span.SetStatus(codes.Error, f.Reason())
		log.Warn("swap failed", zap.String("reason", f.Reason()), zap.String("detail", f.Detail), zap.String("signature", res.Signature))
		return res
	}

	if s.quotes == nil || s.builder == nil || s.broadcaster == nil || s.poller == nil {
		return fail(domain.NewFailure(domain.FailureInvalidRequest, "swap service is not fully initialized"))
	}
	if req.Amount == 0 || req.InputMint == "" || req.OutputMint == "" || req.InputMint == req.OutputMint {
		return fail(domain.NewFailure(domain.FailureInvalidRequest, "amount and two distinct mints are required"))
	}
	payer, err := solana.PrivateKeyFromBase58(req.PayerSecret)
	if err != nil {
		return fail(domain.NewFailure(domain.FailureInvalidRequest, "invalid signing key"))
	}
	payerAddress := payer.PublicKey().String()
	mode := req.Mode
	if mode == "" {
		mode = domain.SwapModeExactIn
	}

	route, err := s.quote(ctx, provider.QuoteRequest{
		InputMint:   req.InputMint,
		OutputMint:  req.OutputMint,
		Amount:      req.Amount,
		Mode:        mode,
		SlippageBps: req.SlippageBps,
	})
	if err != nil {
		if errors.Is(err, provider.ErrNoRoute) {
			return fail(domain.NewFailure(domain.FailureNoRoute, err.Error()))
		}
		return fail(domain.NewFailure(domain.FailureQuoteUnavailable, err.Error()))
	}

	set, err := s.instructions(ctx, route, payerAddress)
	if err != nil {
		return fail(domain.NewFailure(domain.FailureQuoteUnavailable, err.Error()))
	}

	compiled, err := s.builder.Build(ctx, set)
	if err != nil {
		return fail(domain.NewFailure(domain.FailureBuildFailure, err.Error()))
	}

	sent := s.broadcaster.Broadcast(ctx, chain.Submission{
		Compiled: compiled,
		Payer:    payer,
		UseRelay: req.UseRelay,
	})
	res.Signature = sent.Signature

	if !sent.Accepted {
		// a rejected submission may still have landed
		if sent.Signature != "" {
			out := s.poller.Await(ctx, sent.Signature, chain.RelayPolicy)
			if out.Confirmed {
				log.Info("rejected submission landed on chain", zap.String("signature", sent.Signature))
				return s.confirmed(res, route, log)
			}
			if out.Failure != nil && out.Failure.Kind.OnChain() {
				return fail(out.Failure)
			}
		}
		detail := "no endpoint accepted the transaction"
		if sent.Err != nil {
			detail = sent.Err.Error()
		}
		return fail(domain.NewFailure(domain.FailureRelayRejected, detail))
	}

	policy := chain.DirectPolicy
	if req.UseRelay {
		policy = chain.RelayPolicy
	}
	out := s.poller.Await(ctx, sent.Signature, policy)
	if !out.Confirmed {
		f := out.Failure
		if f == nil {
			f = domain.NewFailure(domain.FailureConfirmationTimeout, "transaction was not confirmed")
		}
		return fail(f)
	}
	return s.confirmed(res, route, log)
}

func (s *SwapService) confirmed(res domain.SwapResult, route *domain.Route, log *zap.Logger) domain.SwapResult {
	res.Confirmed = true
	res.OutAmount = route.OutAmount
	res.ExplorerURL = domain.ExplorerURL(res.Signature)
	log.Info("swap confirmed", zap.String("signature", res.Signature), zap.Uint64("out_amount", res.OutAmount))
	return res
}

func (s *SwapService) quote(ctx context.Context, req provider.QuoteRequest) (*domain.Route, error) {
	ctx, cancel := context.WithTimeout(ctx, s.quoteTimeout)
	defer cancel()
	route, err := s.quotes.Quote(ctx, req)
	if err != nil {
		return nil, err
	}
	if route == nil {
		return nil, fmt.Errorf("%w: empty route", provider.ErrQuoteUnavailable)
	}
	return route, nil
}

func (s *SwapService) instructions(ctx context.Context, route *domain.Route, payer string) (*domain.InstructionSet, error) {
	ctx, cancel := context.WithTimeout(ctx, s.quoteTimeout)
	defer cancel()
	return s.quotes.Instructions(ctx, route, payer)
}
