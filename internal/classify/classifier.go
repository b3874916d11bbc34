package classify

import (
	"log/slog"
	"strings"

	"mailtriage/internal/domain"
)

// Classifier evaluates the rule table over messages.
type Classifier struct {
	registry *Registry
	logger   *slog.Logger
}

// New creates a Classifier over the given registry.
func New(registry *Registry, logger *slog.Logger) *Classifier {
	return &Classifier{registry: registry, logger: logger}
}

// Classify scans the rule table in declaration order and stops at the first
// rule where either signal fires. Confidence is high only when both keyword
// and sender matched on the winning rule. No-match falls back to the generic
// category at low confidence.
func (c *Classifier) Classify(msg domain.Message) domain.Classification {
	text := strings.ToLower(msg.Subject + " " + msg.Snippet)
	sender := strings.ToLower(msg.From)

	for _, rule := range c.registry.Rules() {
		hasKeyword := anySubstring(text, rule.Keywords)
		hasSender := anySubstring(sender, rule.SenderPatterns)
		if !hasKeyword && !hasSender {
			continue
		}

		conf := domain.ConfidenceMedium
		if hasKeyword && hasSender {
			conf = domain.ConfidenceHigh
		}
		c.logger.Debug("rule matched",
			"msg_id", msg.ID,
			"category", rule.Category,
			"keyword", hasKeyword,
			"sender", hasSender,
		)
		return domain.Classification{
			Category:     rule.Category,
			Action:       rule.Action,
			Confidence:   conf,
			LeadTimeDays: rule.LeadTimeDays,
		}
	}

	return domain.Classification{
		Category:   domain.FallbackCategory,
		Action:     domain.ActionDefault,
		Confidence: domain.ConfidenceLow,
	}
}

func anySubstring(haystack string, needles []string) bool {
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
