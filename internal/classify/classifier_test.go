package classify

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"mailtriage/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testClassifier() *Classifier {
	return New(DefaultRegistry(), testLogger())
}

func TestClassify_HighConfidence(t *testing.T) {
	c := testClassifier()
	got := c.Classify(domain.Message{
		Subject: "Your policy renewal due 15 March 2026",
		From:    "noreply@acme-insurance.com",
	})
	if got.Category != "insurance/renewal" {
		t.Fatalf("expected insurance/renewal, got %s", got.Category)
	}
	if got.Action != domain.ActionDeadlineTracked {
		t.Errorf("expected deadline-tracked action, got %s", got.Action)
	}
	if got.Confidence != domain.ConfidenceHigh {
		t.Errorf("expected high confidence, got %s", got.Confidence)
	}
}

func TestClassify_KeywordOnlyIsMedium(t *testing.T) {
	c := testClassifier()
	got := c.Classify(domain.Message{
		Subject: "policy renewal information",
		From:    "friend@example.com",
	})
	if got.Category != "insurance/renewal" {
		t.Fatalf("expected insurance/renewal, got %s", got.Category)
	}
	if got.Confidence != domain.ConfidenceMedium {
		t.Errorf("expected medium confidence, got %s", got.Confidence)
	}
}

func TestClassify_SenderOnlyIsMedium(t *testing.T) {
	c := testClassifier()
	got := c.Classify(domain.Message{
		Subject: "hello there",
		From:    "news@acme-insurance.com",
	})
	if got.Category != "insurance/renewal" {
		t.Fatalf("expected insurance/renewal, got %s", got.Category)
	}
	if got.Confidence != domain.ConfidenceMedium {
		t.Errorf("expected medium confidence, got %s", got.Confidence)
	}
}

func TestClassify_FallbackIsLow(t *testing.T) {
	c := testClassifier()
	got := c.Classify(domain.Message{
		Subject: "lunch on friday?",
		From:    "colleague@example.com",
	})
	if got.Category != domain.FallbackCategory {
		t.Fatalf("expected fallback category, got %s", got.Category)
	}
	if got.Confidence != domain.ConfidenceLow {
		t.Errorf("expected low confidence, got %s", got.Confidence)
	}
	if got.Action != domain.ActionDefault {
		t.Errorf("expected default action, got %s", got.Action)
	}
}

func TestClassify_FirstMatchWins(t *testing.T) {
	reg := NewRegistry("test")
	reg.Append(
		Rule{Category: "a/first", Keywords: []string{"invoice"}, Action: domain.ActionDefault},
		Rule{Category: "b/second", Keywords: []string{"invoice"}, Action: domain.ActionUrgentAlert},
	)
	c := New(reg, testLogger())
	got := c.Classify(domain.Message{Subject: "invoice attached", From: "x@example.com"})
	if got.Category != "a/first" {
		t.Fatalf("expected earlier rule to win, got %s", got.Category)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := testClassifier()
	msg := domain.Message{Subject: "Suspicious activity on your account", From: "alerts@mybank.com"}
	first := c.Classify(msg)
	for i := 0; i < 10; i++ {
		if got := c.Classify(msg); got != first {
			t.Fatalf("classification not deterministic: %v vs %v", got, first)
		}
	}
	if first.Category != "banking/fraud-alert" {
		t.Fatalf("expected banking/fraud-alert, got %s", first.Category)
	}
}

func TestRegistry_AppendPreservesOrder(t *testing.T) {
	reg := DefaultRegistry()
	before := len(reg.Rules())
	first := reg.Rules()[0].Category
	reg.Append(Rule{Category: "new/category", Keywords: []string{"zzz"}, Action: domain.ActionDefault})
	if len(reg.Rules()) != before+1 {
		t.Fatalf("expected %d rules, got %d", before+1, len(reg.Rules()))
	}
	if reg.Rules()[0].Category != first {
		t.Error("append must not reorder existing rules")
	}
	if reg.Rules()[before].Category != "new/category" {
		t.Error("appended rule must evaluate last")
	}
}

func TestRegistry_LoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	overlay := `version: custom1
rules:
  - category: shipping/delivery
    keywords: ["out for delivery", "package shipped"]
    senderPatterns: ["courier"]
    action: default
`
	if err := os.WriteFile(path, []byte(overlay), 0o644); err != nil {
		t.Fatal(err)
	}

	reg := DefaultRegistry()
	before := len(reg.Rules())
	if err := reg.LoadOverlay(path); err != nil {
		t.Fatalf("LoadOverlay failed: %v", err)
	}
	if len(reg.Rules()) != before+1 {
		t.Fatalf("expected one appended rule, got %d extra", len(reg.Rules())-before)
	}
	last := reg.Rules()[len(reg.Rules())-1]
	if last.Category != "shipping/delivery" {
		t.Errorf("expected overlay rule last, got %s", last.Category)
	}
	if reg.Version() != "v2+custom1" {
		t.Errorf("expected version v2+custom1, got %s", reg.Version())
	}

	c := New(reg, testLogger())
	got := c.Classify(domain.Message{Subject: "package shipped", From: "noreply@courier.example"})
	if got.Category != "shipping/delivery" {
		t.Fatalf("expected overlay category, got %s", got.Category)
	}
	if got.Confidence != domain.ConfidenceHigh {
		t.Errorf("expected high confidence, got %s", got.Confidence)
	}
}

func TestRegistry_LoadOverlayRejectsMissingCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  - keywords: [\"x\"]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	reg := DefaultRegistry()
	if err := reg.LoadOverlay(path); err == nil {
		t.Fatal("expected error for rule without category")
	}
}

func TestClassify_CarriesRuleLeadTime(t *testing.T) {
	c := testClassifier()
	got := c.Classify(domain.Message{
		Subject: "Your subscription renews soon",
		From:    "billing@streamingco.com",
	})
	if got.Category != "subscription/renewal" {
		t.Fatalf("expected subscription/renewal, got %s", got.Category)
	}
	if got.LeadTimeDays != 30 {
		t.Errorf("expected rule lead time 30, got %d", got.LeadTimeDays)
	}

	got = c.Classify(domain.Message{
		Subject: "Suspicious activity on your account",
		From:    "alerts@mybank.com",
	})
	if got.LeadTimeDays != 0 {
		t.Errorf("rules without a lead time must carry 0, got %d", got.LeadTimeDays)
	}
}
