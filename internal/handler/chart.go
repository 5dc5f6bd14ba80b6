package handler

import (
	"errors"
	"net/http"
	"strings"

	"trendbot/internal/chart"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// GetChart godoc
// @Summary      Chart an asset's trend window
// @Description  PNG of the trailing price window with SMA overlays and RSI
// @Tags         trends
// @Produce      png
// @Param        mint  path  string  true  "Asset mint address"
// @Success      200  {file}    binary
// @Failure      422  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/trends/{mint}/chart [get]
func (h *Handler) GetChart(c *gin.Context) {
	if h.trends == nil || h.charts == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "charts unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-chart")
	defer span.End()

	mint := strings.TrimSpace(c.Param("mint"))
	span.SetAttributes(attribute.String("asset", mint))

	state, err := h.trends.CurrentTrend(ctx, mint)
	if err != nil {
		h.logger.Error("get trend", zap.String("asset", mint), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	samples, err := h.trends.Window(ctx, mint)
	if err != nil {
		h.logger.Error("get price window", zap.String("asset", mint), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	img, err := h.charts.RenderTrend(samples, state.Trend)
	if errors.Is(err, chart.ErrTooFewSamples) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "not enough recent price samples"})
		return
	}
	if err != nil {
		h.logger.Error("render chart", zap.String("asset", mint), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", img)
}
