package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trendbot/internal/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	ErrStatusUnavailable   = errors.New("signature status unavailable")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
)

// PollPolicy is the budget and success rule of one confirmation loop. The
// poll budget is MaxPolls, or Timeout/Interval when MaxPolls is zero. Timeout
// also caps the wall-clock time of the whole loop.
type PollPolicy struct {
	Name          string
	Interval      time.Duration
	Timeout       time.Duration
	MaxPolls      int
	SearchHistory bool
	// RequireCommitment waits for confirmed or finalized. Without it any
	// status that carries no error counts as landed.
	RequireCommitment bool
	RetryRPCErrors    bool
}

var (
	DirectPolicy = PollPolicy{
		Name:              "direct",
		Interval:          time.Second,
		Timeout:           30 * time.Second,
		RequireCommitment: true,
	}
	RelayPolicy = PollPolicy{
		Name:           "relay",
		Interval:       500 * time.Millisecond,
		Timeout:        15 * time.Second,
		MaxPolls:       20,
		SearchHistory:  true,
		RetryRPCErrors: true,
	}
)

func (p PollPolicy) budget() int {
	if p.MaxPolls > 0 {
		return p.MaxPolls
	}
	if p.Interval <= 0 || p.Timeout <= 0 {
		return 1
	}
	n := int(p.Timeout / p.Interval)
	if n < 1 {
		n = 1
	}
	return n
}

// PollOutcome is the terminal state of a confirmation loop.
type PollOutcome struct {
	Signature string
	Confirmed bool
	Status    rpc.ConfirmationStatusType
	Polls     int
	Failure   *domain.Failure
	Err       error
}

type Poller struct {
	tracer trace.Tracer
	logger *zap.Logger
	node   StatusGetter
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewPoller(tracer trace.Tracer, logger *zap.Logger, node StatusGetter) *Poller {
	return &Poller{tracer: tracer, logger: logger, node: node, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Await polls signature until it lands, fails on chain, or the policy budget
// runs out. A null status means the node has not seen the signature yet.
func (p *Poller) Await(ctx context.Context, signature string, policy PollPolicy) PollOutcome {
	ctx, span := p.tracer.Start(ctx, "chain.await-confirmation")
	defer span.End()
	span.SetAttributes(attribute.String("policy", policy.Name), attribute.String("signature", signature))

	out := PollOutcome{Signature: signature}
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		out.Err = fmt.Errorf("%w: invalid signature: %v", ErrStatusUnavailable, err)
		out.Failure = domain.NewFailure(domain.FailureStatusUnavailable, out.Err.Error())
		return out
	}

	if policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	budget := policy.budget()
	for out.Polls < budget {
		out.Polls++
		done := p.poll(ctx, sig, policy, &out)
		if done {
			if out.Failure != nil {
				span.SetStatus(codes.Error, out.Failure.Reason())
			}
			span.SetAttributes(attribute.Int("polls", out.Polls))
			return out
		}
		if out.Polls == budget {
			break
		}
		if err := p.sleep(ctx, policy.Interval); err != nil {
			break
		}
	}

	out.Err = fmt.Errorf("%w after %d polls (%s policy)", ErrConfirmationTimeout, out.Polls, policy.Name)
	out.Failure = domain.NewFailure(domain.FailureConfirmationTimeout, out.Err.Error())
	span.SetStatus(codes.Error, out.Failure.Reason())
	span.SetAttributes(attribute.Int("polls", out.Polls))
	return out
}

// poll runs a single status lookup and reports whether the loop is finished.
func (p *Poller) poll(ctx context.Context, sig solana.Signature, policy PollPolicy, out *PollOutcome) bool {
	res, err := p.node.GetSignatureStatuses(ctx, policy.SearchHistory, sig)
	if err != nil {
		// The loop deadline expiring mid-call is a timeout, not a node failure.
		if ctx.Err() != nil {
			return false
		}
		if policy.RetryRPCErrors {
			p.logger.Debug("signature status lookup failed, retrying",
				zap.String("signature", out.Signature),
				zap.Int("poll", out.Polls),
				zap.Error(err),
			)
			return false
		}
		out.Err = fmt.Errorf("%w: %v", ErrStatusUnavailable, err)
		out.Failure = domain.NewFailure(domain.FailureStatusUnavailable, out.Err.Error())
		return true
	}
	if res == nil || len(res.Value) == 0 {
		out.Err = fmt.Errorf("%w: empty status list", ErrStatusUnavailable)
		out.Failure = domain.NewFailure(domain.FailureStatusUnavailable, out.Err.Error())
		return true
	}

	status := res.Value[0]
	if status == nil {
		return false
	}
	out.Status = status.ConfirmationStatus
	if status.Err != nil {
		out.Failure = ClassifyTxError(status.Err)
		out.Err = out.Failure
		return true
	}
	if !policy.RequireCommitment {
		out.Confirmed = true
		return true
	}
	switch status.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		out.Confirmed = true
		return true
	}
	return false
}
