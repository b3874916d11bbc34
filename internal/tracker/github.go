// Package tracker implements the IssueTracker collaborator against the
// GitHub issues API.
package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"mailtriage/internal/domain"
)

// GitHubTracker implements domain.IssueTracker for one repository.
type GitHubTracker struct {
	client *github.Client
	owner  string
	repo   string
	logger *slog.Logger
}

// GitHubConfig configures the tracker collaborator.
type GitHubConfig struct {
	Token  string
	Owner  string
	Repo   string
	Logger *slog.Logger
}

// NewGitHubTracker creates a tracker authenticated with a static token.
func NewGitHubTracker(ctx context.Context, cfg GitHubConfig) *GitHubTracker {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
	return &GitHubTracker{
		client: github.NewClient(oauth2.NewClient(ctx, ts)),
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		logger: cfg.Logger,
	}
}

var _ domain.IssueTracker = (*GitHubTracker)(nil)

// CreateIssue opens one issue and returns its HTML URL.
func (t *GitHubTracker) CreateIssue(ctx context.Context, title, body string, labels []string) (string, error) {
	issue, _, err := t.client.Issues.Create(ctx, t.owner, t.repo, &github.IssueRequest{
		Title:  github.String(title),
		Body:   github.String(body),
		Labels: &labels,
	})
	if err != nil {
		return "", fmt.Errorf("github create issue: %w", err)
	}
	t.logger.Info("issue created", "repo", t.owner+"/"+t.repo, "number", issue.GetNumber())
	return issue.GetHTMLURL(), nil
}
