package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"trendbot/internal/chart"
	"trendbot/internal/domain"
	"trendbot/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

const commandTimeout = 15 * time.Second

type TrendQuerier interface {
	CurrentTrend(ctx context.Context, asset string) (*domain.TrendState, error)
	Indicators(ctx context.Context, asset string) (domain.IndicatorSnapshot, error)
	Window(ctx context.Context, asset string) ([]*domain.PriceSample, error)
}

type ChartRenderer interface {
	RenderTrend(samples []*domain.PriceSample, trend domain.Trend) ([]byte, error)
}

type TokenLookup interface {
	TokenByMint(ctx context.Context, mint string) (*domain.Token, error)
}

// StartTelegramBot registers the command handlers and starts long polling in
// the background. It returns nil when token is empty.
func StartTelegramBot(token string, logger *zap.Logger, trends TrendQuerier, tokens TokenLookup, charts ChartRenderer) (*Notifier, error) {
	if token == "" {
		logger.Info("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil, nil
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("create Telegram bot: %w", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/trend", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(trendReply(ctx, logger, trends, tokens, c.Args()))
	})

	b.Handle("/chart", func(c tele.Context) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		return c.Send(chartReply(ctx, logger, trends, charts, c.Args()))
	})

	logger.Info("Telegram bot started")
	go b.Start()
	return NewNotifier(b, logger), nil
}

func trendReply(ctx context.Context, logger *zap.Logger, trends TrendQuerier, tokens TokenLookup, args []string) string {
	if trends == nil {
		return "Trend service unavailable"
	}
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "Usage: /trend <mint address>"
	}
	mint := strings.TrimSpace(args[0])

	var token *domain.Token
	if tokens != nil {
		t, err := tokens.TokenByMint(ctx, mint)
		if err != nil {
			logger.Warn("token lookup failed", zap.String("mint", mint), zap.Error(err))
		}
		token = t
	}

	state, err := trends.CurrentTrend(ctx, mint)
	if err != nil {
		logger.Error("trend query failed", zap.String("mint", mint), zap.Error(err))
		return fmt.Sprintf("Error fetching trend for %s", mint)
	}

	var snap *domain.IndicatorSnapshot
	s, err := trends.Indicators(ctx, mint)
	switch {
	case err == nil:
		snap = &s
	case errors.Is(err, domain.ErrInsufficientData):
	default:
		logger.Warn("indicator query failed", zap.String("mint", mint), zap.Error(err))
	}

	reply := service.FormatTrend(*state, snap, token)
	if snap == nil {
		reply += "\n\nNot enough recent price data to compute indicators."
	}
	return reply
}

// chartReply returns a *tele.Photo on success and a text reply otherwise.
func chartReply(ctx context.Context, logger *zap.Logger, trends TrendQuerier, charts ChartRenderer, args []string) interface{} {
	if trends == nil || charts == nil {
		return "Charts unavailable"
	}
	if len(args) == 0 || strings.TrimSpace(args[0]) == "" {
		return "Usage: /chart <mint address>"
	}
	mint := strings.TrimSpace(args[0])

	state, err := trends.CurrentTrend(ctx, mint)
	if err != nil {
		logger.Error("trend query failed", zap.String("mint", mint), zap.Error(err))
		return fmt.Sprintf("Error fetching trend for %s", mint)
	}
	samples, err := trends.Window(ctx, mint)
	if err != nil {
		logger.Error("price window query failed", zap.String("mint", mint), zap.Error(err))
		return fmt.Sprintf("Error fetching prices for %s", mint)
	}
	img, err := charts.RenderTrend(samples, state.Trend)
	if errors.Is(err, chart.ErrTooFewSamples) {
		return "Not enough recent price data to draw a chart."
	}
	if err != nil {
		logger.Error("render chart failed", zap.String("mint", mint), zap.Error(err))
		return fmt.Sprintf("Error drawing chart for %s", mint)
	}
	return &tele.Photo{
		File:    tele.FromReader(bytes.NewReader(img)),
		Caption: fmt.Sprintf("%s trend: %s", mint, state.Trend),
	}
}
