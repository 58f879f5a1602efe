package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Norvan25/homenest-nous-sub002/internal/config"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

// Notifier sends sales alerts to a Telegram chat via the bot API.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier authenticates the bot against the public API.
func NewNotifier(cfg config.TelegramConfig) (*Notifier, error) {
	return NewNotifierWithEndpoint(cfg, tgbotapi.APIEndpoint)
}

// NewNotifierWithEndpoint is NewNotifier against a custom bot API endpoint
// of the form "https://host/bot%s/%s".
func NewNotifierWithEndpoint(cfg config.TelegramConfig, endpoint string) (*Notifier, error) {
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram notifier misconfigured")
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint, &http.Client{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	return &Notifier{bot: bot, chatID: cfg.ChatID}, nil
}

// Notify posts a plain text message.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, message)
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
