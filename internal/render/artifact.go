// Package render turns a classified message and its extracted entities into
// the follow-up artifact (issue title/body/labels), the optional reminder
// schedule, and the alert text. Rendering is pure: identical inputs and a
// fixed clock produce byte-identical output.
package render

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"mailtriage/internal/domain"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// DefaultLeadTimeDays is used for decision reminders when the matched rule
// carries no lead time of its own.
const DefaultLeadTimeDays = 30

const dateLayout = "2 Jan 2006"

// Renderer builds artifacts for all action kinds.
type Renderer struct {
	leadTimeDays int
	logger       *slog.Logger
}

// New creates a Renderer. leadTimeDays <= 0 selects the default.
func New(leadTimeDays int, logger *slog.Logger) *Renderer {
	if leadTimeDays <= 0 {
		leadTimeDays = DefaultLeadTimeDays
	}
	return &Renderer{leadTimeDays: leadTimeDays, logger: logger}
}

// Artifact dispatches on the action kind. The returned schedule is non-nil
// only for decision reminders with an extracted deadline.
func (r *Renderer) Artifact(msg domain.Message, cls domain.Classification, ents domain.ExtractedEntities) (domain.Artifact, *domain.ReminderSchedule) {
	switch cls.Action {
	case domain.ActionDeadlineTracked:
		return r.deadlineTracked(msg, ents), nil
	case domain.ActionAppointment:
		return r.appointment(msg, ents), nil
	case domain.ActionDecisionReminder:
		return r.decisionReminder(msg, cls, ents)
	default:
		return r.defaultArtifact(msg), nil
	}
}

func (r *Renderer) deadlineTracked(msg domain.Message, ents domain.ExtractedEntities) domain.Artifact {
	var b strings.Builder
	b.WriteString("## Source\n")
	fmt.Fprintf(&b, "- From: %s\n", msg.From)
	fmt.Fprintf(&b, "- Received: %s\n", msg.Received.Format(dateLayout))
	fmt.Fprintf(&b, "- Link: %s\n\n", msg.Link)

	b.WriteString("## Deadline\n")
	if ents.Deadline != nil {
		fmt.Fprintf(&b, "- Due: %s\n", ents.Deadline.Format(dateLayout))
		fmt.Fprintf(&b, "- Days remaining: %d\n\n", daysRemaining(*ents.Deadline))
	} else {
		b.WriteString("- Due: unknown\n")
		b.WriteString("- Days remaining: n/a\n\n")
	}

	b.WriteString("## Details\n")
	b.WriteString(msg.Snippet)
	b.WriteString("\n")
	if ents.Amount != nil {
		fmt.Fprintf(&b, "\nAmount: %s\n", formatAmount(*ents.Amount))
	}

	return domain.Artifact{
		Title:  "[ACTION] " + msg.Subject,
		Body:   b.String(),
		Labels: []string{"email", "action-required", "deadline-tracked"},
	}
}

func (r *Renderer) appointment(msg domain.Message, ents domain.ExtractedEntities) domain.Artifact {
	var b strings.Builder
	b.WriteString("## Appointment Details\n")
	if ents.Deadline != nil {
		fmt.Fprintf(&b, "- Date: %s\n", ents.Deadline.Format(dateLayout))
	} else {
		b.WriteString("- Date: see message\n")
	}
	fmt.Fprintf(&b, "- Source: %s\n\n", msg.From)

	b.WriteString("## Notes\n")
	b.WriteString(msg.Snippet)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Link: %s\n", msg.Link)

	return domain.Artifact{
		Title:  "[APPOINTMENT] " + msg.Subject,
		Body:   b.String(),
		Labels: []string{"email", "appointment"},
	}
}

// decisionChecklist is the fixed set of evaluation questions included in
// every decision-reminder artifact.
var decisionChecklist = []string{
	"Do I still use this service?",
	"Has the price changed since last year?",
	"Is there a better alternative?",
	"Can I downgrade to a cheaper tier?",
}

func (r *Renderer) decisionReminder(msg domain.Message, cls domain.Classification, ents domain.ExtractedEntities) (domain.Artifact, *domain.ReminderSchedule) {
	var b strings.Builder
	var schedule *domain.ReminderSchedule

	lead := r.leadTimeDays
	if cls.LeadTimeDays > 0 {
		lead = cls.LeadTimeDays
	}

	if ents.Deadline != nil {
		remindAt := ents.Deadline.AddDate(0, 0, -lead)
		schedule = &domain.ReminderSchedule{
			EventDate: *ents.Deadline,
			RemindAt:  remindAt,
			Label:     "Decide: " + msg.Subject,
		}
		fmt.Fprintf(&b, "## Renewal\n")
		fmt.Fprintf(&b, "- Renews on: %s\n", ents.Deadline.Format(dateLayout))
		fmt.Fprintf(&b, "- Decide by: %s\n\n", remindAt.Format(dateLayout))
	} else {
		// Degraded artifact, not an error: no date means no calendar entry.
		r.logger.Info("no deadline extracted, skipping calendar scheduling", "msg_id", msg.ID)
		b.WriteString("## Renewal\n")
		b.WriteString("- Renews on: unknown\n\n")
	}

	b.WriteString("## Before it renews\n")
	for _, q := range decisionChecklist {
		fmt.Fprintf(&b, "- [ ] %s\n", q)
	}
	b.WriteString("\n")

	if ents.Amount != nil {
		fmt.Fprintf(&b, "Amount: %s\n\n", formatAmount(*ents.Amount))
	}

	fmt.Fprintf(&b, "## Source\n- From: %s\n- Link: %s\n", msg.From, msg.Link)

	return domain.Artifact{
		Title:  "[SUBSCRIPTION] " + msg.Subject,
		Body:   b.String(),
		Labels: []string{"email", "subscription", "decision-needed"},
	}, schedule
}

func (r *Renderer) defaultArtifact(msg domain.Message) domain.Artifact {
	var b strings.Builder
	b.WriteString("## Source\n")
	fmt.Fprintf(&b, "- From: %s\n", msg.From)
	fmt.Fprintf(&b, "- Received: %s\n", msg.Received.Format(dateLayout))
	fmt.Fprintf(&b, "- Link: %s\n\n", msg.Link)
	b.WriteString("## Details\n")
	b.WriteString(msg.Snippet)
	b.WriteString("\n")

	return domain.Artifact{
		Title:  "[ACTION] " + msg.Subject,
		Body:   b.String(),
		Labels: []string{"email", "action-required"},
	}
}

func daysRemaining(deadline time.Time) int {
	return int(math.Ceil(deadline.Sub(timeNow()).Hours() / 24))
}

func formatAmount(a domain.Amount) string {
	// Single-rune markers are symbols and go in front; codes trail.
	if utf8.RuneCountInString(a.Currency) == 1 {
		return fmt.Sprintf("%s%.2f", a.Currency, a.Value)
	}
	return fmt.Sprintf("%.2f %s", a.Value, a.Currency)
}
