package render

import (
	"fmt"
	"strings"

	"mailtriage/internal/domain"
)

// snippetPreviewLen bounds how much of the snippet appears in an alert.
const snippetPreviewLen = 160

// Alert renders the chat alert text for a message. Banner selection:
// urgency >= 8 urgent, >= 6 attention, decision reminders get their own
// banner, everything else is generic.
func (r *Renderer) Alert(msg domain.Message, cls domain.Classification, urgency int, ents domain.ExtractedEntities) string {
	var b strings.Builder
	b.WriteString(banner(cls, urgency))
	b.WriteString("\n")
	fmt.Fprintf(&b, "*%s*\n", msg.Subject)
	fmt.Fprintf(&b, "From: %s\n", msg.From)
	fmt.Fprintf(&b, "Category: %s (urgency %d/10)\n", cls.Category, urgency)
	if ents.Deadline != nil {
		fmt.Fprintf(&b, "Deadline: %s\n", ents.Deadline.Format(dateLayout))
	}
	if ents.Amount != nil {
		fmt.Fprintf(&b, "Amount: %s\n", formatAmount(*ents.Amount))
	}
	b.WriteString("\n")
	b.WriteString(truncate(msg.Snippet, snippetPreviewLen))
	b.WriteString("\n")
	return b.String()
}

func banner(cls domain.Classification, urgency int) string {
	switch {
	case urgency >= 8:
		return "🚨 URGENT"
	case urgency >= 6:
		return "⚠️ ATTENTION"
	case cls.Action == domain.ActionDecisionReminder:
		return "🔔 DECISION NEEDED"
	default:
		return "📧 FYI"
	}
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
