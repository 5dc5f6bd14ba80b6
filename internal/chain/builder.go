package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"trendbot/internal/domain"

	"github.com/gagliardetto/solana-go"
	addresslookuptable "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrBuild marks malformed instruction payloads.
var ErrBuild = errors.New("build instructions")

// LookupTableDecoder turns raw lookup-table account data into its addresses.
type LookupTableDecoder func(data []byte) (solana.PublicKeySlice, error)

func decodeLookupTable(data []byte) (solana.PublicKeySlice, error) {
	state, err := addresslookuptable.DecodeAddressLookupTableState(data)
	if err != nil {
		return nil, err
	}
	return state.Addresses, nil
}

// Compiled is a decoded instruction list plus the lookup tables that resolved.
type Compiled struct {
	Instructions []solana.Instruction
	Tables       map[solana.PublicKey]solana.PublicKeySlice
}

type Builder struct {
	tracer   trace.Tracer
	logger   *zap.Logger
	accounts AccountGetter
	decode   LookupTableDecoder
}

func NewBuilder(tracer trace.Tracer, logger *zap.Logger, accounts AccountGetter) *Builder {
	return &Builder{
		tracer:   tracer,
		logger:   logger,
		accounts: accounts,
		decode:   decodeLookupTable,
	}
}

// WithLookupTableDecoder replaces the on-chain lookup-table decoder.
func (b *Builder) WithLookupTableDecoder(decode LookupTableDecoder) *Builder {
	if decode != nil {
		b.decode = decode
	}
	return b
}

// Build decodes set in execution order and resolves its lookup tables. Tables
// that cannot be fetched or decoded are dropped.
func (b *Builder) Build(ctx context.Context, set *domain.InstructionSet) (*Compiled, error) {
	ctx, span := b.tracer.Start(ctx, "chain.build")
	defer span.End()

	if set == nil {
		return nil, fmt.Errorf("%w: empty instruction set", ErrBuild)
	}

	ordered := set.Ordered()
	instructions := make([]solana.Instruction, 0, len(ordered))
	for i, raw := range ordered {
		ix, err := DecodeInstruction(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: instruction %d: %v", ErrBuild, i, err)
		}
		instructions = append(instructions, ix)
	}

	tables := b.resolveTables(ctx, set.LookupTableAddrs)
	span.SetAttributes(
		attribute.Int("instructions", len(instructions)),
		attribute.Int("lookup_tables_requested", len(set.LookupTableAddrs)),
		attribute.Int("lookup_tables_resolved", len(tables)),
	)
	return &Compiled{Instructions: instructions, Tables: tables}, nil
}

// DecodeInstruction converts a raw API payload into an executable instruction.
func DecodeInstruction(raw domain.RawInstruction) (solana.Instruction, error) {
	programID, err := solana.PublicKeyFromBase58(raw.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("program id %q: %w", raw.ProgramID, err)
	}
	metas := make(solana.AccountMetaSlice, 0, len(raw.Accounts))
	for _, acc := range raw.Accounts {
		pk, err := solana.PublicKeyFromBase58(acc.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", acc.Pubkey, err)
		}
		metas = append(metas, &solana.AccountMeta{
			PublicKey:  pk,
			IsWritable: acc.IsWritable,
			IsSigner:   acc.IsSigner,
		})
	}
	data, err := base64.StdEncoding.DecodeString(raw.Data)
	if err != nil {
		return nil, fmt.Errorf("instruction data: %w", err)
	}
	return solana.NewInstruction(programID, metas, data), nil
}

func (b *Builder) resolveTables(ctx context.Context, addrs []string) map[solana.PublicKey]solana.PublicKeySlice {
	tables := make(map[solana.PublicKey]solana.PublicKeySlice, len(addrs))
	if len(addrs) == 0 {
		return tables
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, addr := range addrs {
		g.Go(func() error {
			key, entries, err := b.resolveTable(gctx, addr)
			if err != nil {
				b.logger.Warn("dropping lookup table", zap.String("table", addr), zap.Error(err))
				return nil
			}
			mu.Lock()
			tables[key] = entries
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return tables
}

func (b *Builder) resolveTable(ctx context.Context, addr string) (solana.PublicKey, solana.PublicKeySlice, error) {
	key, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	info, err := b.accounts.GetAccountInfo(ctx, key)
	if err != nil {
		return key, nil, err
	}
	if info == nil || info.Value == nil || info.Value.Data == nil {
		return key, nil, errors.New("account not found")
	}
	entries, err := b.decode(info.Value.Data.GetBinary())
	if err != nil {
		return key, nil, fmt.Errorf("decode lookup table: %w", err)
	}
	if len(entries) == 0 {
		return key, nil, errors.New("lookup table is empty")
	}
	return key, entries, nil
}
