package handler

import (
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"trendbot/internal/domain"
	"trendbot/internal/job"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type indicatorsResponse struct {
	SMAShort *float64 `json:"sma_short"`
	SMALong  *float64 `json:"sma_long"`
	EMAShort *float64 `json:"ema_short"`
	EMALong  *float64 `json:"ema_long"`
	RSI      *float64 `json:"rsi"`
}

type trendResponse struct {
	Asset        string              `json:"asset"`
	Trend        domain.Trend        `json:"trend"`
	Previous     domain.Trend        `json:"previous,omitempty"`
	Transitioned bool                `json:"transitioned,omitempty"`
	UpdatedAt    *time.Time          `json:"updated_at"`
	Indicators   *indicatorsResponse `json:"indicators"`
}

// finite maps NaN to null so the payload stays valid JSON.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func toIndicators(s domain.IndicatorSnapshot) *indicatorsResponse {
	return &indicatorsResponse{
		SMAShort: finite(s.SMAShort),
		SMALong:  finite(s.SMALong),
		EMAShort: finite(s.EMAShort),
		EMALong:  finite(s.EMALong),
		RSI:      finite(s.RSI),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// GetTrend godoc
// @Summary      Get the current trend of an asset
// @Description  Returns the stored trend and, when enough recent samples exist, the live indicator values
// @Tags         trends
// @Produce      json
// @Param        mint  path  string  true  "Asset mint address"
// @Success      200  {object}  trendResponse
// @Failure      500  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/trends/{mint} [get]
func (h *Handler) GetTrend(c *gin.Context) {
	if h.trends == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trend service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-trend")
	defer span.End()

	mint := strings.TrimSpace(c.Param("mint"))
	span.SetAttributes(attribute.String("asset", mint))

	state, err := h.trends.CurrentTrend(ctx, mint)
	if err != nil {
		h.logger.Error("get trend", zap.String("asset", mint), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := trendResponse{Asset: mint, Trend: state.Trend, UpdatedAt: timePtr(state.UpdatedAt)}
	snap, err := h.trends.Indicators(ctx, mint)
	switch {
	case err == nil:
		resp.Indicators = toIndicators(snap)
	case errors.Is(err, domain.ErrInsufficientData):
	default:
		h.logger.Warn("compute indicators", zap.String("asset", mint), zap.Error(err))
	}
	c.JSON(http.StatusOK, resp)
}

// Recompute godoc
// @Summary      Recompute an asset's trend now
// @Description  Runs the same recompute a scheduled tick would, trading on a transition
// @Tags         trends
// @Produce      json
// @Param        mint  path  string  true  "Asset mint address"
// @Success      200  {object}  trendResponse
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/trends/{mint}/recompute [post]
func (h *Handler) Recompute(c *gin.Context) {
	if h.recomputer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trend scheduler unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.recompute-trend")
	defer span.End()

	mint := strings.TrimSpace(c.Param("mint"))
	span.SetAttributes(attribute.String("asset", mint))

	update, err := h.recomputer.RecomputeNow(ctx, mint)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrInsufficientData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "not enough recent price samples"})
		return
	case errors.Is(err, domain.ErrTrendConflict), errors.Is(err, job.ErrLeaseHeld):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	default:
		h.logger.Error("recompute trend", zap.String("asset", mint), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, trendResponse{
		Asset:        update.Asset,
		Trend:        update.Trend,
		Previous:     update.Previous,
		Transitioned: update.Transitioned,
		UpdatedAt:    timePtr(update.UpdatedAt),
		Indicators:   toIndicators(update.Indicators),
	})
}
