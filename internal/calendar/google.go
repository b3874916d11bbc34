// Package calendar implements the optional CalendarService collaborator on
// Google Calendar. Reminders are all-day events on the computed reminder
// date.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"mailtriage/internal/domain"
)

// GoogleCalendar implements domain.CalendarService.
type GoogleCalendar struct {
	srv        *calendar.Service
	calendarID string
	logger     *slog.Logger
}

// Config configures the calendar collaborator.
type Config struct {
	CalendarID string // "primary" for the account's default calendar
	Logger     *slog.Logger
}

// New builds the service over an authenticated HTTP client (shared with the
// Gmail collaborator, same OAuth token).
func New(ctx context.Context, httpClient *http.Client, cfg Config) (*GoogleCalendar, error) {
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	id := cfg.CalendarID
	if id == "" {
		id = "primary"
	}
	return &GoogleCalendar{srv: srv, calendarID: id, logger: cfg.Logger}, nil
}

var _ domain.CalendarService = (*GoogleCalendar)(nil)

// ScheduleReminder inserts an all-day event on the reminder date.
func (g *GoogleCalendar) ScheduleReminder(ctx context.Context, at time.Time, title, description string) (string, error) {
	day := at.Format("2006-01-02")
	event := &calendar.Event{
		Summary:     title,
		Description: description,
		Start:       &calendar.EventDateTime{Date: day},
		End:         &calendar.EventDateTime{Date: day},
	}
	created, err := g.srv.Events.Insert(g.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar insert: %w", err)
	}
	g.logger.Info("reminder scheduled", "date", day, "event_id", created.Id)
	return created.HtmlLink, nil
}
