// Package notify delivers operator notifications over Telegram. Delivery is
// best-effort: a failed send is logged and swallowed so a notification can
// never fail a trading operation.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/riverjin839/riverflow/internal/logger"
)

const telegramAPIBase = "https://api.telegram.org"

// Notifier sends operator messages. Implementations must never return an
// error to the caller's trading path.
type Notifier interface {
	Send(ctx context.Context, message string)
	Alert(ctx context.Context, message string)
}

// TelegramNotifier posts messages to a Telegram chat through the bot API.
// When token or chat ID are unset it degrades to a logging no-op.
type TelegramNotifier struct {
	client *resty.Client
	token  string
	chatID string
	log    *logger.Logger
}

// NewTelegramNotifier creates the notifier. An empty token or chat ID
// disables delivery.
func NewTelegramNotifier(token, chatID string, log *logger.Logger) *TelegramNotifier {
	client := resty.New().
		SetBaseURL(telegramAPIBase).
		SetTimeout(10 * time.Second)

	return &TelegramNotifier{
		client: client,
		token:  token,
		chatID: chatID,
		log:    log,
	}
}

func (n *TelegramNotifier) enabled() bool {
	return n.token != "" && n.chatID != ""
}

// Send delivers a plain message.
func (n *TelegramNotifier) Send(ctx context.Context, message string) {
	if !n.enabled() {
		n.log.Debug("notification skipped, telegram not configured",
			zap.String("message", message))

		return
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"chat_id": n.chatID,
			"text":    message,
		}).
		Post(fmt.Sprintf("/bot%s/sendMessage", n.token))
	if err != nil {
		n.log.Warn("telegram send failed", zap.Error(err))

		return
	}

	if resp.IsError() {
		n.log.Warn("telegram send rejected", zap.String("status", resp.Status()))
	}
}

// Alert delivers a high-priority message.
func (n *TelegramNotifier) Alert(ctx context.Context, message string) {
	n.Send(ctx, "[ALERT] "+message)
}

// NopNotifier discards every message. Used in tests and when notifications
// are disabled outright.
type NopNotifier struct{}

func (NopNotifier) Send(ctx context.Context, message string)  {}
func (NopNotifier) Alert(ctx context.Context, message string) {}
