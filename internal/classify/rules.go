// Package classify maps a message to a category, an action kind, and a
// confidence level using an ordered rule table. Rule order is a correctness
// invariant: evaluation is first-match-wins, so the registry only ever
// appends, never reorders.
package classify

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mailtriage/internal/domain"
)

// Rule pairs a category with its matching signals and dispatch behavior.
// Keywords are case-insensitive substrings of subject+snippet; sender
// patterns are case-insensitive substrings of the sender address.
type Rule struct {
	Category       string            `yaml:"category"`
	Keywords       []string          `yaml:"keywords"`
	SenderPatterns []string          `yaml:"senderPatterns"`
	Action         domain.ActionKind `yaml:"action"`
	LeadTimeDays   int               `yaml:"leadTimeDays,omitempty"` // decision reminders only; 0 = renderer default
}

// Registry is an append-only ordered rule table.
type Registry struct {
	version string
	rules   []Rule
}

// NewRegistry creates an empty registry with a version tag.
func NewRegistry(version string) *Registry {
	return &Registry{version: version}
}

// Version identifies the rule table revision in logs and run history.
func (r *Registry) Version() string { return r.version }

// Append adds rules after all existing ones. Existing order never changes,
// so new categories cannot shadow earlier rules accidentally.
func (r *Registry) Append(rules ...Rule) {
	r.rules = append(r.rules, rules...)
}

// Rules returns the table in evaluation order.
func (r *Registry) Rules() []Rule { return r.rules }

// DefaultRegistry declares the built-in rule table. Declaration order is
// significant: more specific categories come before broader ones.
func DefaultRegistry() *Registry {
	r := NewRegistry("v2")
	r.Append(
		Rule{
			Category:       "insurance/renewal",
			Keywords:       []string{"policy renewal", "renewal due", "policy expires", "renew your policy"},
			SenderPatterns: []string{"insurance", "assurance"},
			Action:         domain.ActionDeadlineTracked,
		},
		Rule{
			Category:       "banking/fraud-alert",
			Keywords:       []string{"suspicious activity", "unauthorized", "unusual sign-in", "fraud alert"},
			SenderPatterns: []string{"bank", "security@"},
			Action:         domain.ActionUrgentAlert,
		},
		Rule{
			Category:       "banking/statement",
			Keywords:       []string{"statement is ready", "monthly statement", "account statement"},
			SenderPatterns: []string{"bank", "statements@"},
			Action:         domain.ActionDefault,
		},
		Rule{
			Category:       "subscription/renewal",
			Keywords:       []string{"subscription renews", "subscription will renew", "auto-renew", "membership renews"},
			SenderPatterns: []string{"billing@", "subscriptions@", "streamingco"},
			Action:         domain.ActionDecisionReminder,
			LeadTimeDays:   30,
		},
		Rule{
			Category:       "utilities/bill",
			Keywords:       []string{"bill is due", "payment due", "electricity bill", "water bill", "gas bill"},
			SenderPatterns: []string{"utility", "energy", "power"},
			Action:         domain.ActionDeadlineTracked,
		},
		Rule{
			Category:       "medical/appointment",
			Keywords:       []string{"appointment", "your visit", "checkup reminder"},
			SenderPatterns: []string{"clinic", "hospital", "dental", "medical"},
			Action:         domain.ActionAppointment,
		},
		Rule{
			Category:       "government/tax",
			Keywords:       []string{"tax return", "tax notice", "filing deadline", "assessment"},
			SenderPatterns: []string{".gov", "revenue", "tax office"},
			Action:         domain.ActionDeadlineTracked,
		},
	)
	return r
}

// LoadOverlay appends rules from a YAML file to the registry. Overlay rules
// always evaluate after the built-in table, which makes the file an additive
// migration rather than a replacement.
func (r *Registry) LoadOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rule overlay %s: %w", path, err)
	}
	var overlay struct {
		Version string `yaml:"version"`
		Rules   []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parse rule overlay %s: %w", path, err)
	}
	for i, rule := range overlay.Rules {
		if rule.Category == "" {
			return fmt.Errorf("rule overlay %s: rule %d has no category", path, i)
		}
		if rule.Action == "" {
			rule.Action = domain.ActionDefault
		}
		r.Append(rule)
	}
	if overlay.Version != "" {
		r.version = r.version + "+" + overlay.Version
	}
	return nil
}
