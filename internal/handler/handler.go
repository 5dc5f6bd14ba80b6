package handler

import (
	"context"

	"trendbot/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type TrendReader interface {
	CurrentTrend(ctx context.Context, asset string) (*domain.TrendState, error)
	Indicators(ctx context.Context, asset string) (domain.IndicatorSnapshot, error)
	Window(ctx context.Context, asset string) ([]*domain.PriceSample, error)
}

type Recomputer interface {
	RecomputeNow(ctx context.Context, asset string) (*domain.TrendUpdate, error)
}

type MessageSender interface {
	Send(ctx context.Context, chatID int64, message string) error
}

type ChartRenderer interface {
	RenderTrend(samples []*domain.PriceSample, trend domain.Trend) ([]byte, error)
}

type Handler struct {
	tracer     trace.Tracer
	logger     *zap.Logger
	trends     TrendReader
	recomputer Recomputer
	messages   MessageSender
	charts     ChartRenderer
}

func New(
	tracer trace.Tracer,
	logger *zap.Logger,
	trends TrendReader,
	recomputer Recomputer,
	messages MessageSender,
	charts ChartRenderer,
) *Handler {
	return &Handler{
		tracer:     tracer,
		logger:     logger,
		trends:     trends,
		recomputer: recomputer,
		messages:   messages,
		charts:     charts,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/api/trends/:mint", h.GetTrend)
	r.GET("/api/trends/:mint/chart", h.GetChart)
	r.POST("/api/trends/:mint/recompute", h.Recompute)
	r.POST("/api/send-message", h.SendMessage)
}
