package chain

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/jpillora/backoff"
	"github.com/mr-tron/base58"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts  = 3
	DefaultTipLamports  = 1_000_000
	directMaxRetries    = uint(3)
	defaultBackoffMin   = 250 * time.Millisecond
	defaultBackoffMax   = 2 * time.Second
	defaultBackoffScale = 2
)

var ErrRelayRejected = errors.New("no endpoint accepted the transaction")

// AttemptState tracks one build-sign-broadcast cycle.
type AttemptState int

const (
	AttemptBuilding AttemptState = iota
	AttemptBroadcasting
	AttemptAccepted
	AttemptRejected
)

func (s AttemptState) String() string {
	switch s {
	case AttemptBuilding:
		return "building"
	case AttemptBroadcasting:
		return "broadcasting"
	case AttemptAccepted:
		return "accepted"
	default:
		return "rejected"
	}
}

// BundleSender fans a bundle out to relay endpoints.
type BundleSender interface {
	SendBundle(ctx context.Context, encoded []string) []EndpointResult
}

type Submission struct {
	Compiled *Compiled
	Payer    solana.PrivateKey
	UseRelay bool
}

// BroadcastResult reports the final attempt. Signature holds the last signed
// transaction even when Accepted is false.
type BroadcastResult struct {
	Accepted  bool
	Signature string
	Attempts  int
	Err       error
}

type BroadcasterOptions struct {
	MaxAttempts int
	TipLamports uint64
	TipAccounts []string
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	PickAccount func(n int) int
}

type Broadcaster struct {
	tracer      trace.Tracer
	logger      *zap.Logger
	node        TxSender
	relay       BundleSender
	maxAttempts int
	tipLamports uint64
	tipAccounts []solana.PublicKey
	backoffMin  time.Duration
	backoffMax  time.Duration
	pick        func(n int) int
}

func NewBroadcaster(tracer trace.Tracer, logger *zap.Logger, node TxSender, relay BundleSender, opts BroadcasterOptions) (*Broadcaster, error) {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.TipLamports == 0 {
		opts.TipLamports = DefaultTipLamports
	}
	if len(opts.TipAccounts) == 0 {
		opts.TipAccounts = DefaultTipAccounts
	}
	if opts.BackoffMin <= 0 {
		opts.BackoffMin = defaultBackoffMin
	}
	if opts.BackoffMax < opts.BackoffMin {
		opts.BackoffMax = defaultBackoffMax
	}
	if opts.PickAccount == nil {
		opts.PickAccount = rand.IntN
	}

	tips := make([]solana.PublicKey, 0, len(opts.TipAccounts))
	for _, raw := range opts.TipAccounts {
		pk, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			return nil, fmt.Errorf("tip account %q: %w", raw, err)
		}
		tips = append(tips, pk)
	}

	return &Broadcaster{
		tracer:      tracer,
		logger:      logger,
		node:        node,
		relay:       relay,
		maxAttempts: opts.MaxAttempts,
		tipLamports: opts.TipLamports,
		tipAccounts: tips,
		backoffMin:  opts.BackoffMin,
		backoffMax:  opts.BackoffMax,
		pick:        opts.PickAccount,
	}, nil
}

// Broadcast runs up to maxAttempts fresh attempts, each against a new
// blockhash, and stops at the first accepted one.
func (b *Broadcaster) Broadcast(ctx context.Context, sub Submission) BroadcastResult {
	ctx, span := b.tracer.Start(ctx, "chain.broadcast")
	defer span.End()
	span.SetAttributes(attribute.Bool("relay", sub.UseRelay))

	bo := &backoff.Backoff{
		Min:    b.backoffMin,
		Max:    b.backoffMax,
		Factor: defaultBackoffScale,
		Jitter: true,
	}

	var result BroadcastResult
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		result.Attempts = attempt
		sig, err := b.attempt(ctx, sub, attempt)
		if sig != "" {
			result.Signature = sig
		}
		if err == nil {
			result.Accepted = true
			result.Err = nil
			span.SetAttributes(attribute.Int("attempts", attempt))
			return result
		}
		result.Err = err
		b.logger.Warn("broadcast attempt rejected",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", b.maxAttempts),
			zap.String("signature", sig),
			zap.Error(err),
		)

		if attempt == b.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			result.Err = ctx.Err()
			span.SetStatus(codes.Error, "broadcast cancelled")
			return result
		case <-time.After(bo.Duration()):
		}
	}

	span.SetAttributes(attribute.Int("attempts", result.Attempts))
	span.SetStatus(codes.Error, "broadcast rejected")
	if !errors.Is(result.Err, ErrRelayRejected) {
		result.Err = fmt.Errorf("%w: %v", ErrRelayRejected, result.Err)
	}
	return result
}

func (b *Broadcaster) attempt(ctx context.Context, sub Submission, n int) (string, error) {
	state := AttemptBuilding
	log := b.logger.With(zap.Int("attempt", n))

	if sub.Compiled == nil || len(sub.Payer) == 0 {
		return "", fmt.Errorf("%s: missing transaction or payer", state)
	}
	payer := sub.Payer.PublicKey()

	latest, err := b.node.GetLatestBlockhash(ctx, rpc.CommitmentProcessed)
	if err != nil {
		return "", fmt.Errorf("%s: latest blockhash: %w", state, err)
	}
	if latest == nil || latest.Value == nil {
		return "", fmt.Errorf("%s: empty blockhash response", state)
	}
	blockhash := latest.Value.Blockhash

	tx, err := b.signed(sub.Compiled.Instructions, blockhash, sub.Payer, sub.Compiled.Tables)
	if err != nil {
		return "", fmt.Errorf("%s: %w", state, err)
	}
	sig := tx.Signatures[0].String()

	state = AttemptBroadcasting
	log.Debug("broadcasting", zap.String("signature", sig), zap.Uint64("last_valid_block_height", latest.Value.LastValidBlockHeight))

	if !sub.UseRelay {
		retries := directMaxRetries
		if _, err := b.node.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight: true,
			MaxRetries:    &retries,
		}); err != nil {
			return sig, fmt.Errorf("%s: send transaction: %w", AttemptRejected, err)
		}
		log.Debug("transaction accepted", zap.String("state", AttemptAccepted.String()))
		return sig, nil
	}

	tipTo := b.tipAccounts[b.pick(len(b.tipAccounts))]
	tip := system.NewTransferInstruction(b.tipLamports, payer, tipTo).Build()
	tipTx, err := b.signed([]solana.Instruction{tip}, blockhash, sub.Payer, nil)
	if err != nil {
		return sig, fmt.Errorf("%s: tip transaction: %w", state, err)
	}

	encoded := make([]string, 0, 2)
	for _, t := range []*solana.Transaction{tipTx, tx} {
		raw, err := t.MarshalBinary()
		if err != nil {
			return sig, fmt.Errorf("%s: serialize: %w", state, err)
		}
		encoded = append(encoded, base58.Encode(raw))
	}

	results := b.relay.SendBundle(ctx, encoded)
	if !AnyAccepted(results) {
		return sig, fmt.Errorf("%s: %w (%d endpoints)", AttemptRejected, ErrRelayRejected, len(results))
	}
	log.Debug("bundle accepted", zap.String("signature", sig), zap.String("tip_account", tipTo.String()))
	return sig, nil
}

func (b *Broadcaster) signed(instructions []solana.Instruction, blockhash solana.Hash, payer solana.PrivateKey, tables map[solana.PublicKey]solana.PublicKeySlice) (*solana.Transaction, error) {
	opts := []solana.TransactionOption{solana.TransactionPayer(payer.PublicKey())}
	if len(tables) > 0 {
		opts = append(opts, solana.TransactionAddressTables(tables))
	}
	tx, err := solana.NewTransaction(instructions, blockhash, opts...)
	if err != nil {
		return nil, fmt.Errorf("compile transaction: %w", err)
	}
	payerKey := payer.PublicKey()
	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payerKey) {
			return &payer
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if len(tx.Signatures) == 0 {
		return nil, errors.New("sign transaction: no signature produced")
	}
	return tx, nil
}
