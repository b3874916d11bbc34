// Package mail implements the MailSource collaborator on top of the Gmail
// API. The "already processed" state lives here, as a Gmail label, not in
// the pipeline.
package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"mailtriage/internal/domain"
)

const gmailUser = "me"

// GmailSource implements domain.MailSource.
type GmailSource struct {
	srv          *gmail.Service
	triagedLabel string
	logger       *slog.Logger

	labelID string // resolved id of the triaged label, cached after first use
}

// GmailConfig configures the Gmail collaborator.
type GmailConfig struct {
	TriagedLabel string // label marking processed messages
	Logger       *slog.Logger
}

// OAuthClient builds an authenticated HTTP client from on-disk OAuth
// credentials. The token must already exist (obtained out of band); an
// interactive OAuth dance has no place in an unattended batch run. The
// client is shared with the calendar collaborator, which uses the same
// Google account.
func OAuthClient(ctx context.Context, credentialsFile, tokenFile string, scopes ...string) (*http.Client, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}
	oauthCfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("read token file (run the auth flow first): %w", err)
	}
	return oauthCfg.Client(ctx, tok), nil
}

// NewGmailSource builds the source over an authenticated HTTP client.
func NewGmailSource(ctx context.Context, httpClient *http.Client, cfg GmailConfig) (*GmailSource, error) {
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	label := cfg.TriagedLabel
	if label == "" {
		label = "triaged"
	}
	return &GmailSource{srv: srv, triagedLabel: label, logger: cfg.Logger}, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// BuildQuery assembles the Gmail search expression from the sender
// allow-list: unread messages from allowed senders, excluding anything
// already carrying the triaged label.
func BuildQuery(allowedSenders []string, triagedLabel string) string {
	var parts []string
	if len(allowedSenders) > 0 {
		parts = append(parts, "from:("+strings.Join(allowedSenders, " OR ")+")")
	}
	parts = append(parts, "is:unread")
	if triagedLabel != "" {
		parts = append(parts, "-label:"+triagedLabel)
	}
	return strings.Join(parts, " ")
}

// Search lists matching messages and resolves each into a domain.Message.
func (g *GmailSource) Search(ctx context.Context, query string, max int64) ([]domain.Message, error) {
	list, err := g.srv.Users.Messages.List(gmailUser).
		Q(query).
		MaxResults(max).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("gmail list: %w", err)
	}

	var out []domain.Message
	for _, m := range list.Messages {
		full, err := g.srv.Users.Messages.Get(gmailUser, m.Id).Format("metadata").
			MetadataHeaders("Subject", "From", "Date").
			Context(ctx).
			Do()
		if err != nil {
			g.logger.Warn("skipping unreadable message", "msg_id", m.Id, "err", err)
			continue
		}
		out = append(out, g.toMessage(full))
	}
	g.logger.Info("gmail search complete", "query", query, "found", len(out))
	return out, nil
}

func (g *GmailSource) toMessage(m *gmail.Message) domain.Message {
	msg := domain.Message{
		ID:      m.Id,
		Snippet: m.Snippet,
		Link:    "https://mail.google.com/mail/u/0/#inbox/" + m.Id,
		Labels:  m.LabelIds,
	}
	if m.InternalDate > 0 {
		msg.Received = time.UnixMilli(m.InternalDate).UTC()
	}
	if m.Payload != nil {
		for _, h := range m.Payload.Headers {
			switch h.Name {
			case "Subject":
				msg.Subject = h.Value
			case "From":
				msg.From = h.Value
			}
		}
	}
	return msg
}

// MarkProcessed adds the triaged label and clears UNREAD. Gmail label
// modifications are idempotent, so repeating this is harmless.
func (g *GmailSource) MarkProcessed(ctx context.Context, messageID string) error {
	labelID, err := g.triagedLabelID(ctx)
	if err != nil {
		return err
	}
	_, err = g.srv.Users.Messages.Modify(gmailUser, messageID, &gmail.ModifyMessageRequest{
		AddLabelIds:    []string{labelID},
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("gmail modify %s: %w", messageID, err)
	}
	return nil
}

// triagedLabelID resolves the label name to its id, creating the label on
// first use.
func (g *GmailSource) triagedLabelID(ctx context.Context) (string, error) {
	if g.labelID != "" {
		return g.labelID, nil
	}
	labels, err := g.srv.Users.Labels.List(gmailUser).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gmail labels list: %w", err)
	}
	for _, l := range labels.Labels {
		if l.Name == g.triagedLabel {
			g.labelID = l.Id
			return g.labelID, nil
		}
	}
	created, err := g.srv.Users.Labels.Create(gmailUser, &gmail.Label{Name: g.triagedLabel}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gmail create label %q: %w", g.triagedLabel, err)
	}
	g.logger.Info("created triage label", "label", g.triagedLabel, "id", created.Id)
	g.labelID = created.Id
	return g.labelID, nil
}
