package render

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"mailtriage/internal/domain"
)

var testNow = time.Date(2026, time.February, 1, 8, 0, 0, 0, time.UTC)

func fixedNow(t *testing.T) {
	t.Helper()
	orig := timeNow
	timeNow = func() time.Time { return testNow }
	t.Cleanup(func() { timeNow = orig })
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testRenderer() *Renderer {
	return New(30, testLogger())
}

func testMsg() domain.Message {
	return domain.Message{
		ID:       "m1",
		From:     "noreply@acme-insurance.com",
		Subject:  "Your policy renewal due 15 March 2026",
		Snippet:  "Your home insurance policy expires soon. Renew before the deadline.",
		Received: time.Date(2026, time.January, 28, 10, 30, 0, 0, time.UTC),
		Link:     "https://mail.example.com/m1",
	}
}

func TestArtifact_DeadlineTracked(t *testing.T) {
	fixedNow(t)
	deadline := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	art, sched := testRenderer().Artifact(testMsg(),
		domain.Classification{Category: "insurance/renewal", Action: domain.ActionDeadlineTracked},
		domain.ExtractedEntities{Deadline: &deadline},
	)
	if sched != nil {
		t.Error("deadline-tracked must not emit a reminder schedule")
	}
	if !strings.HasPrefix(art.Title, "[ACTION] ") {
		t.Errorf("unexpected title %q", art.Title)
	}
	for _, want := range []string{"## Source", "## Deadline", "## Details", "Due: 15 Mar 2026", "Days remaining: 42"} {
		if !strings.Contains(art.Body, want) {
			t.Errorf("body missing %q:\n%s", want, art.Body)
		}
	}
	if len(art.Labels) != 3 || art.Labels[2] != "deadline-tracked" {
		t.Errorf("unexpected labels %v", art.Labels)
	}
}

func TestArtifact_DeadlineTrackedWithoutDeadline(t *testing.T) {
	fixedNow(t)
	art, _ := testRenderer().Artifact(testMsg(),
		domain.Classification{Category: "utilities/bill", Action: domain.ActionDeadlineTracked},
		domain.ExtractedEntities{},
	)
	if !strings.Contains(art.Body, "Due: unknown") || !strings.Contains(art.Body, "Days remaining: n/a") {
		t.Errorf("expected unknown deadline markers:\n%s", art.Body)
	}
}

func TestArtifact_Appointment(t *testing.T) {
	fixedNow(t)
	art, sched := testRenderer().Artifact(testMsg(),
		domain.Classification{Category: "medical/appointment", Action: domain.ActionAppointment},
		domain.ExtractedEntities{},
	)
	if sched != nil {
		t.Error("appointments must not emit a reminder schedule")
	}
	if !strings.HasPrefix(art.Title, "[APPOINTMENT] ") {
		t.Errorf("unexpected title %q", art.Title)
	}
	if !strings.Contains(art.Body, "Date: see message") {
		t.Errorf("expected see-message fallback:\n%s", art.Body)
	}
	if len(art.Labels) != 2 || art.Labels[1] != "appointment" {
		t.Errorf("unexpected labels %v", art.Labels)
	}
}

func TestArtifact_DecisionReminder(t *testing.T) {
	fixedNow(t)
	deadline := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	amount := domain.Amount{Value: 119.99, Currency: "$"}
	art, sched := testRenderer().Artifact(testMsg(),
		domain.Classification{Category: "subscription/renewal", Action: domain.ActionDecisionReminder},
		domain.ExtractedEntities{Deadline: &deadline, Amount: &amount},
	)
	if sched == nil {
		t.Fatal("expected a reminder schedule")
	}
	wantRemind := time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC)
	if !sched.RemindAt.Equal(wantRemind) {
		t.Errorf("expected reminder at %v, got %v", wantRemind, sched.RemindAt)
	}
	if !sched.EventDate.Equal(deadline) {
		t.Errorf("expected event date %v, got %v", deadline, sched.EventDate)
	}
	if !strings.HasPrefix(art.Title, "[SUBSCRIPTION] ") {
		t.Errorf("unexpected title %q", art.Title)
	}
	for _, want := range []string{"Renews on: 1 Jun 2026", "Decide by: 2 May 2026", "- [ ]", "Amount: $119.99"} {
		if !strings.Contains(art.Body, want) {
			t.Errorf("body missing %q:\n%s", want, art.Body)
		}
	}
	if len(art.Labels) != 3 || art.Labels[2] != "decision-needed" {
		t.Errorf("unexpected labels %v", art.Labels)
	}
}

func TestArtifact_DecisionReminderRuleLeadTime(t *testing.T) {
	fixedNow(t)
	deadline := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	art, sched := testRenderer().Artifact(testMsg(),
		domain.Classification{
			Category:     "subscription/renewal",
			Action:       domain.ActionDecisionReminder,
			LeadTimeDays: 7,
		},
		domain.ExtractedEntities{Deadline: &deadline},
	)
	if sched == nil {
		t.Fatal("expected a reminder schedule")
	}
	// Rule lead time wins over the renderer's configured 30 days.
	wantRemind := time.Date(2026, time.May, 25, 0, 0, 0, 0, time.UTC)
	if !sched.RemindAt.Equal(wantRemind) {
		t.Errorf("expected reminder at %v, got %v", wantRemind, sched.RemindAt)
	}
	if !strings.Contains(art.Body, "Decide by: 25 May 2026") {
		t.Errorf("body not using rule lead time:\n%s", art.Body)
	}
}

func TestArtifact_DecisionReminderWithoutDeadline(t *testing.T) {
	fixedNow(t)
	art, sched := testRenderer().Artifact(testMsg(),
		domain.Classification{Category: "subscription/renewal", Action: domain.ActionDecisionReminder},
		domain.ExtractedEntities{},
	)
	if sched != nil {
		t.Fatal("no deadline must mean no schedule")
	}
	if !strings.Contains(art.Body, "Renews on: unknown") {
		t.Errorf("expected degraded body:\n%s", art.Body)
	}
}

func TestArtifact_DefaultTemplate(t *testing.T) {
	fixedNow(t)
	art, sched := testRenderer().Artifact(testMsg(),
		domain.Classification{Category: domain.FallbackCategory, Action: domain.ActionDefault},
		domain.ExtractedEntities{},
	)
	if sched != nil {
		t.Error("default action must not emit a schedule")
	}
	if !strings.HasPrefix(art.Title, "[ACTION] ") {
		t.Errorf("unexpected title %q", art.Title)
	}
	if len(art.Labels) != 2 || art.Labels[1] != "action-required" {
		t.Errorf("unexpected labels %v", art.Labels)
	}
}

func TestArtifact_Reproducible(t *testing.T) {
	fixedNow(t)
	deadline := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	cls := domain.Classification{Category: "insurance/renewal", Action: domain.ActionDeadlineTracked}
	ents := domain.ExtractedEntities{Deadline: &deadline}
	r := testRenderer()

	first, _ := r.Artifact(testMsg(), cls, ents)
	for i := 0; i < 5; i++ {
		again, _ := r.Artifact(testMsg(), cls, ents)
		if again.Title != first.Title || again.Body != first.Body {
			t.Fatal("rendering is not reproducible for identical inputs")
		}
	}
}

func TestAlert_Banners(t *testing.T) {
	fixedNow(t)
	r := testRenderer()
	msg := testMsg()
	ents := domain.ExtractedEntities{}

	cases := []struct {
		urgency int
		action  domain.ActionKind
		want    string
	}{
		{9, domain.ActionDefault, "🚨 URGENT"},
		{8, domain.ActionDecisionReminder, "🚨 URGENT"},
		{6, domain.ActionDefault, "⚠️ ATTENTION"},
		{3, domain.ActionDecisionReminder, "🔔 DECISION NEEDED"},
		{3, domain.ActionDefault, "📧 FYI"},
	}
	for _, tc := range cases {
		got := r.Alert(msg, domain.Classification{Category: "x/y", Action: tc.action}, tc.urgency, ents)
		if !strings.HasPrefix(got, tc.want) {
			t.Errorf("urgency %d action %s: expected banner %q, got %q", tc.urgency, tc.action, tc.want, strings.SplitN(got, "\n", 2)[0])
		}
	}
}

func TestAlert_TruncatesSnippet(t *testing.T) {
	fixedNow(t)
	msg := testMsg()
	msg.Snippet = strings.Repeat("a", 500)
	got := testRenderer().Alert(msg, domain.Classification{Category: "x/y"}, 2, domain.ExtractedEntities{})
	if !strings.Contains(got, strings.Repeat("a", snippetPreviewLen)+"…") {
		t.Error("expected truncated snippet with ellipsis")
	}
	if strings.Contains(got, strings.Repeat("a", snippetPreviewLen+1)) {
		t.Error("snippet not truncated to preview length")
	}
}
