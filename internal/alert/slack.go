package alert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"mailtriage/internal/domain"
)

// Slack sends alerts to a single channel via the Web API.
type Slack struct {
	client  *slack.Client
	channel string
	logger  *slog.Logger
}

// SlackConfig configures the Slack alert channel.
type SlackConfig struct {
	BotToken string
	Channel  string // channel ID or name
	Logger   *slog.Logger
}

// NewSlack creates the Slack channel and verifies the token.
func NewSlack(cfg SlackConfig) (*Slack, error) {
	client := slack.New(cfg.BotToken)
	auth, err := client.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack auth: %w", err)
	}
	cfg.Logger.Info("slack bot connected", "user", auth.User)
	return &Slack{client: client, channel: cfg.Channel, logger: cfg.Logger}, nil
}

var _ domain.AlertChannel = (*Slack)(nil)

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Send(ctx context.Context, text string, urgency int, category string) error {
	_, _, err := s.client.PostMessageContext(ctx, s.channel,
		slack.MsgOptionText(text, false),
		slack.MsgOptionDisableLinkUnfurl(),
	)
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	s.logger.Debug("alert delivered", "channel", "slack", "urgency", urgency, "category", category)
	return nil
}
