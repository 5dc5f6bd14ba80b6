package bot

import (
	"context"
	"errors"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

type messageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Notifier delivers messages to Telegram chats keyed by owner id. Failures
// are logged and dropped.
type Notifier struct {
	sender messageSender
	logger *zap.Logger
}

func NewNotifier(sender messageSender, logger *zap.Logger) *Notifier {
	return &Notifier{sender: sender, logger: logger}
}

var ErrNotConfigured = errors.New("telegram bot is not configured")

// Notify is the fire-and-forget form of Send.
func (n *Notifier) Notify(ctx context.Context, ownerID int64, message string) {
	if n == nil || message == "" {
		return
	}
	if err := n.Send(ctx, ownerID, message); err != nil {
		n.logger.Warn("notification failed", zap.Int64("owner_id", ownerID), zap.Error(err))
	}
}

func (n *Notifier) Send(ctx context.Context, chatID int64, message string) error {
	if n == nil || n.sender == nil {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := n.sender.Send(&tele.Chat{ID: chatID}, message, tele.NoPreview)
	return err
}
