// Package alert implements AlertChannel collaborators for Telegram and
// Slack. Channels are outbound-only: the triage run pushes one rendered
// alert per urgent message and never listens for replies.
package alert

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"mailtriage/internal/domain"
)

const telegramMaxMsgLen = 4000

// Telegram sends alerts to a single chat via the Bot API.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// TelegramConfig configures the Telegram alert channel.
type TelegramConfig struct {
	Token  string
	ChatID int64
	Logger *slog.Logger
}

// NewTelegram connects the bot. Fails fast when the token is rejected so a
// misconfiguration surfaces at startup, not mid-batch.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	cfg.Logger.Info("telegram bot connected", "username", bot.Self.UserName)
	return &Telegram{bot: bot, chatID: cfg.ChatID, logger: cfg.Logger}, nil
}

var _ domain.AlertChannel = (*Telegram)(nil)

func (t *Telegram) Name() string { return "telegram" }

// Send delivers one alert. The Bot API has no context hook; the message is
// small enough that the pipeline's call timeout covers the HTTP round trip.
func (t *Telegram) Send(ctx context.Context, text string, urgency int, category string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	text = clampRunes(text, telegramMaxMsgLen)
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = "Markdown"
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	t.logger.Debug("alert delivered", "channel", "telegram", "urgency", urgency, "category", category)
	return nil
}

// clampRunes bounds s to max runes without splitting a multi-byte rune.
func clampRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
