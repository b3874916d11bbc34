package domain

import (
	"context"
	"time"
)

// MailSource fetches candidate messages and owns the "already processed"
// state via labels. Both methods are expected to be idempotent.
type MailSource interface {
	Search(ctx context.Context, query string, max int64) ([]Message, error)
	MarkProcessed(ctx context.Context, messageID string) error
}

// IssueTracker creates one follow-up issue per processed message.
// Returns a reference (URL or key) for the created issue.
type IssueTracker interface {
	CreateIssue(ctx context.Context, title, body string, labels []string) (string, error)
}

// AlertChannel delivers a rendered alert text. Fire-and-forget: the caller
// only cares whether the send was accepted.
type AlertChannel interface {
	Name() string
	Send(ctx context.Context, text string, urgency int, category string) error
}

// CalendarService schedules a reminder ahead of a decision deadline.
// Optional collaborator: the pipeline tolerates its absence.
type CalendarService interface {
	ScheduleReminder(ctx context.Context, at time.Time, title, description string) (string, error)
}
