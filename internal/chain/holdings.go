package chain

import (
	"context"
	"fmt"
	"math/big"

	"trendbot/internal/domain"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Holdings reads SPL token balances for a wallet.
type Holdings struct {
	tracer trace.Tracer
	logger *zap.Logger
	node   TokenAccountGetter
}

func NewHoldings(tracer trace.Tracer, logger *zap.Logger, node TokenAccountGetter) *Holdings {
	return &Holdings{tracer: tracer, logger: logger, node: node}
}

// AllHoldings returns every non-empty token account of owner, one entry per
// mint.
func (h *Holdings) AllHoldings(ctx context.Context, owner string) ([]domain.Holding, error) {
	ctx, span := h.tracer.Start(ctx, "chain.holdings")
	defer span.End()

	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return nil, fmt.Errorf("owner address: %w", err)
	}

	res, err := h.node.GetTokenAccountsByOwner(ctx, ownerKey,
		&rpc.GetTokenAccountsConfig{ProgramId: solana.TokenProgramID.ToPointer()},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64},
	)
	if err != nil {
		return nil, fmt.Errorf("token accounts: %w", err)
	}
	if res == nil {
		return nil, nil
	}

	amounts := make(map[solana.PublicKey]uint64)
	order := make([]solana.PublicKey, 0, len(res.Value))
	for _, ta := range res.Value {
		if ta == nil || ta.Account == nil || ta.Account.Data == nil {
			continue
		}
		var acc token.Account
		if err := bin.NewBinDecoder(ta.Account.Data.GetBinary()).Decode(&acc); err != nil {
			h.logger.Warn("skipping undecodable token account", zap.String("account", ta.Pubkey.String()), zap.Error(err))
			continue
		}
		if acc.Amount == 0 {
			continue
		}
		if _, seen := amounts[acc.Mint]; !seen {
			order = append(order, acc.Mint)
		}
		amounts[acc.Mint] += acc.Amount
	}

	holdings := make([]domain.Holding, 0, len(order))
	for _, mint := range order {
		decimals, err := h.mintDecimals(ctx, mint)
		if err != nil {
			h.logger.Warn("skipping holding without mint info", zap.String("mint", mint.String()), zap.Error(err))
			continue
		}
		amount := amounts[mint]
		holdings = append(holdings, domain.Holding{
			Mint:      mint.String(),
			Amount:    amount,
			Decimals:  decimals,
			UIBalance: uiAmount(amount, decimals),
		})
	}
	span.SetAttributes(attribute.Int("holdings", len(holdings)))
	return holdings, nil
}

// Holding returns owner's balance of mint; a missing balance is a zero value.
func (h *Holdings) Holding(ctx context.Context, owner, mint string) (domain.Holding, error) {
	all, err := h.AllHoldings(ctx, owner)
	if err != nil {
		return domain.Holding{}, err
	}
	for _, holding := range all {
		if holding.Mint == mint {
			return holding, nil
		}
	}
	return domain.Holding{Mint: mint}, nil
}

func (h *Holdings) mintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	info, err := h.node.GetAccountInfo(ctx, mint)
	if err != nil {
		return 0, err
	}
	if info == nil || info.Value == nil || info.Value.Data == nil {
		return 0, fmt.Errorf("mint %s not found", mint)
	}
	var m token.Mint
	if err := bin.NewBinDecoder(info.Value.Data.GetBinary()).Decode(&m); err != nil {
		return 0, fmt.Errorf("decode mint: %w", err)
	}
	return m.Decimals, nil
}

func uiAmount(amount uint64, decimals uint8) float64 {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).InexactFloat64()
}
