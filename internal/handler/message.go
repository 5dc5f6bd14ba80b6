package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type sendMessageRequest struct {
	ChatID  int64  `json:"chatId"`
	Message string `json:"message"`
}

// SendMessage godoc
// @Summary      Send a Telegram message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        body  body  sendMessageRequest  true  "Target chat and text"
// @Success      200  {object}  map[string]bool
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/send-message [post]
func (h *Handler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ChatID == 0 || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chatId and message are required"})
		return
	}
	if h.messages == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "messaging unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.send-message")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat_id", req.ChatID))

	if err := h.messages.Send(ctx, req.ChatID, req.Message); err != nil {
		h.logger.Error("send message", zap.Int64("chat_id", req.ChatID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
