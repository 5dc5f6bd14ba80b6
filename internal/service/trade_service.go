package service

import (
	"context"
	"fmt"
	"strings"

	"trendbot/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultSlippageBps      = 500
	defaultTradeConcurrency = 4
)

type TradeSide string

const (
	SideBuy  TradeSide = "Buy"
	SideSell TradeSide = "Sell"
)

// WalletLookup returns nil, nil when the owner has no wallet.
type WalletLookup interface {
	WalletByOwner(ctx context.Context, ownerID int64) (*domain.Wallet, error)
}

type SubscriptionLookup interface {
	SubscriptionsByAsset(ctx context.Context, asset string) ([]domain.Subscription, error)
}

// SettingsLookup returns nil, nil when the owner never saved settings.
type SettingsLookup interface {
	SettingsByOwner(ctx context.Context, ownerID int64) (*domain.Settings, error)
}

type BalanceLookup interface {
	Holding(ctx context.Context, owner, mint string) (domain.Holding, error)
}

type TokenLookup interface {
	TokenByMint(ctx context.Context, mint string) (*domain.Token, error)
}

// Notifier delivers a message to an owner. Delivery failures are the
// notifier's concern and never reach the caller.
type Notifier interface {
	Notify(ctx context.Context, ownerID int64, message string)
}

type Swapper interface {
	Swap(ctx context.Context, req domain.SwapRequest) domain.SwapResult
}

type TradeOptions struct {
	SlippageBps int
	UseRelay    bool
	Concurrency int
}

// TradeOutcome is one subscriber's result for a transition.
type TradeOutcome struct {
	OwnerID int64
	Side    TradeSide
	Result  domain.SwapResult
}

type TradeService struct {
	tracer      trace.Tracer
	logger      *zap.Logger
	wallets     WalletLookup
	subs        SubscriptionLookup
	settings    SettingsLookup
	balances    BalanceLookup
	tokens      TokenLookup
	notifier    Notifier
	swapper     Swapper
	slippageBps int
	useRelay    bool
	concurrency int
}

func NewTradeService(
	tracer trace.Tracer,
	logger *zap.Logger,
	wallets WalletLookup,
	subs SubscriptionLookup,
	settings SettingsLookup,
	balances BalanceLookup,
	tokens TokenLookup,
	notifier Notifier,
	swapper Swapper,
	opts TradeOptions,
) *TradeService {
	if opts.SlippageBps <= 0 {
		opts.SlippageBps = DefaultSlippageBps
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultTradeConcurrency
	}
	return &TradeService{
		tracer:      tracer,
		logger:      logger,
		wallets:     wallets,
		subs:        subs,
		settings:    settings,
		balances:    balances,
		tokens:      tokens,
		notifier:    notifier,
		swapper:     swapper,
		slippageBps: opts.SlippageBps,
		useRelay:    opts.UseRelay,
		concurrency: opts.Concurrency,
	}
}

// HandleTransition alerts every subscriber of the asset and trades for each
// auto-trade subscriber. Updates that are not transitions, or that moved to
// None, are ignored.
func (s *TradeService) HandleTransition(ctx context.Context, update domain.TrendUpdate) []TradeOutcome {
	ctx, span := s.tracer.Start(ctx, "trade-service.handle-transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("asset", update.Asset),
		attribute.String("trend", string(update.Trend)),
	)

	if !update.Transitioned || update.Trend == domain.TrendNone || !update.Trend.IsValid() {
		return nil
	}
	if s.subs == nil {
		s.logger.Error("trade service has no subscription lookup")
		return nil
	}

	subs, err := s.subs.SubscriptionsByAsset(ctx, update.Asset)
	if err != nil {
		s.logger.Error("load subscriptions", zap.String("asset", update.Asset), zap.Error(err))
		return nil
	}
	token := s.lookupToken(ctx, update.Asset)

	alert := FormatSignal(update, token)
	traders := make([]domain.Subscription, 0, len(subs))
	for _, sub := range subs {
		s.notify(ctx, sub.OwnerID, alert)
		if sub.AutoTrade {
			traders = append(traders, sub)
		}
	}
	span.SetAttributes(
		attribute.Int("subscribers", len(subs)),
		attribute.Int("traders", len(traders)),
	)

	side := SideBuy
	if update.Trend == domain.TrendBearish {
		side = SideSell
	}

	outcomes := make([]TradeOutcome, len(traders))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, sub := range traders {
		g.Go(func() error {
			outcomes[i] = s.tradeFor(gctx, sub.OwnerID, update.Asset, side)
			s.notify(gctx, sub.OwnerID, FormatTradeOutcome(side, update.Asset, token, outcomes[i].Result))
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *TradeService) tradeFor(ctx context.Context, ownerID int64, asset string, side TradeSide) TradeOutcome {
	outcome := TradeOutcome{OwnerID: ownerID, Side: side}

	settings, err := s.resolveSettings(ctx, ownerID)
	if err != nil {
		outcome.Result = failed(domain.FailureInvalidRequest, err.Error())
		return outcome
	}

	if side == SideBuy {
		outcome.Result = s.ExecuteBuy(ctx, ownerID, asset, settings.Amount, settings.Currency)
	} else {
		outcome.Result = s.ExecuteSell(ctx, ownerID, asset, settings.Currency)
	}
	return outcome
}

// ExecuteBuy swaps amount of currency into asset for ownerID.
func (s *TradeService) ExecuteBuy(ctx context.Context, ownerID int64, asset string, amount float64, currency string) domain.SwapResult {
	ctx, span := s.tracer.Start(ctx, "trade-service.execute-buy")
	defer span.End()

	cur, ok := domain.LookupCurrency(currency)
	if !ok {
		return failed(domain.FailureInvalidRequest, fmt.Sprintf("unsupported currency %q", currency))
	}
	asset = strings.TrimSpace(asset)
	if asset == "" || asset == cur.Mint {
		return failed(domain.FailureInvalidRequest, "asset must differ from the trade currency")
	}
	baseUnits, err := toBaseUnits(amount, cur.Decimals)
	if err != nil {
		return failed(domain.FailureInvalidRequest, err.Error())
	}

	wallet, res, ok := s.wallet(ctx, ownerID)
	if !ok {
		return res
	}

	return s.swapper.Swap(ctx, domain.SwapRequest{
		PayerSecret: wallet.SigningSecret,
		PayerPublic: wallet.PublicAddress,
		InputMint:   cur.Mint,
		OutputMint:  asset,
		Amount:      baseUnits,
		Mode:        domain.SwapModeExactIn,
		SlippageBps: s.slippageBps,
		UseRelay:    s.useRelay,
	})
}

// ExecuteSell swaps the owner's entire balance of asset into currency.
func (s *TradeService) ExecuteSell(ctx context.Context, ownerID int64, asset string, currency string) domain.SwapResult {
	ctx, span := s.tracer.Start(ctx, "trade-service.execute-sell")
	defer span.End()

	cur, ok := domain.LookupCurrency(currency)
	if !ok {
		return failed(domain.FailureInvalidRequest, fmt.Sprintf("unsupported currency %q", currency))
	}
	asset = strings.TrimSpace(asset)
	if asset == "" || asset == cur.Mint {
		return failed(domain.FailureInvalidRequest, "asset must differ from the trade currency")
	}

	wallet, res, ok := s.wallet(ctx, ownerID)
	if !ok {
		return res
	}
	if s.balances == nil {
		return failed(domain.FailureInvalidRequest, "balance lookup is not configured")
	}

	holding, err := s.balances.Holding(ctx, wallet.PublicAddress, asset)
	if err != nil {
		return failed(domain.FailureBalanceUnavailable, fmt.Sprintf("balance lookup: %v", err))
	}
	if holding.Amount == 0 {
		return failed(domain.FailureNoBalance, "no balance to sell")
	}

	return s.swapper.Swap(ctx, domain.SwapRequest{
		PayerSecret: wallet.SigningSecret,
		PayerPublic: wallet.PublicAddress,
		InputMint:   asset,
		OutputMint:  cur.Mint,
		Amount:      holding.Amount,
		Mode:        domain.SwapModeExactIn,
		SlippageBps: s.slippageBps,
		UseRelay:    s.useRelay,
	})
}

func (s *TradeService) wallet(ctx context.Context, ownerID int64) (*domain.Wallet, domain.SwapResult, bool) {
	if s.wallets == nil || s.swapper == nil {
		return nil, failed(domain.FailureInvalidRequest, "trade service is not fully initialized"), false
	}
	wallet, err := s.wallets.WalletByOwner(ctx, ownerID)
	if err != nil {
		return nil, failed(domain.FailureWalletNotFound, fmt.Sprintf("wallet lookup: %v", err)), false
	}
	if wallet == nil || wallet.SigningSecret == "" {
		return nil, failed(domain.FailureWalletNotFound, "wallet not found"), false
	}
	return wallet, domain.SwapResult{}, true
}

func (s *TradeService) resolveSettings(ctx context.Context, ownerID int64) (domain.Settings, error) {
	defaults := domain.Settings{OwnerID: ownerID, Currency: domain.DefaultCurrency, Amount: domain.DefaultBuyAmount}
	if s.settings == nil {
		return defaults, nil
	}
	stored, err := s.settings.SettingsByOwner(ctx, ownerID)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("settings lookup: %w", err)
	}
	if stored == nil {
		return defaults, nil
	}
	if stored.Currency == "" {
		stored.Currency = defaults.Currency
	}
	if stored.Amount <= 0 {
		stored.Amount = defaults.Amount
	}
	return *stored, nil
}

func (s *TradeService) lookupToken(ctx context.Context, mint string) *domain.Token {
	if s.tokens == nil {
		return nil
	}
	token, err := s.tokens.TokenByMint(ctx, mint)
	if err != nil {
		s.logger.Warn("token lookup failed", zap.String("mint", mint), zap.Error(err))
		return nil
	}
	return token
}

func (s *TradeService) notify(ctx context.Context, ownerID int64, message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, ownerID, message)
}

func failed(kind domain.FailureKind, detail string) domain.SwapResult {
	return domain.SwapResult{AttemptID: uuid.NewString(), Failure: domain.NewFailure(kind, detail)}
}

// toBaseUnits converts a UI amount to integer base units, truncating any
// precision beyond decimals.
func toBaseUnits(amount float64, decimals int32) (uint64, error) {
	d := decimal.NewFromFloat(amount)
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %v", amount)
	}
	units := d.Shift(decimals).Floor()
	if units.IsZero() {
		return 0, fmt.Errorf("amount %v is below the smallest unit", amount)
	}
	if !units.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %v overflows base units", amount)
	}
	return units.BigInt().Uint64(), nil
}
