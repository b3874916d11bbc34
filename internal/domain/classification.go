package domain

import "time"

// Confidence indicates how strong the classification evidence was.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"   // keyword and sender both matched
	ConfidenceMedium Confidence = "medium" // exactly one signal matched
	ConfidenceLow    Confidence = "low"    // fallback, nothing matched
)

// ActionKind selects the rendering and dispatch behavior for a category.
type ActionKind string

const (
	ActionDeadlineTracked  ActionKind = "deadline-tracked"
	ActionAppointment      ActionKind = "appointment"
	ActionDecisionReminder ActionKind = "decision-reminder"
	ActionUrgentAlert      ActionKind = "urgent-alert"
	ActionDefault          ActionKind = "default"
)

// FallbackCategory is assigned when no rule matches a message.
const FallbackCategory = "general/action-required"

// Classification is the outcome of running the rule table over one message.
type Classification struct {
	Category     string // two-part "domain/subtype" label
	Action       ActionKind
	Confidence   Confidence
	LeadTimeDays int // winning rule's reminder lead time; 0 = renderer default
}

// Artifact is the rendered follow-up item handed to the issue tracker.
type Artifact struct {
	Title  string
	Body   string
	Labels []string
}

// ReminderSchedule asks the calendar collaborator for a reminder ahead of
// a decision deadline.
type ReminderSchedule struct {
	EventDate time.Time // the deadline itself
	RemindAt  time.Time // EventDate minus the configured lead time
	Label     string
}

// StepOutcome records one side-effect request made for a message.
type StepOutcome struct {
	Step   string // "issue", "calendar", "alert", "mark"
	OK     bool
	Detail string // issue URL, reminder ref, or the failure reason
}

// ProcessingResult is everything the pipeline derived for a single message.
type ProcessingResult struct {
	MessageID      string
	Classification Classification
	Urgency        int
	Entities       ExtractedEntities
	Artifact       Artifact
	IssueRef       string
	Schedule       *ReminderSchedule
	Outcomes       []StepOutcome
	Failed         bool
	FailReason     string
}

// BatchSummary is returned from one full pipeline run.
type BatchSummary struct {
	RunID     string
	StartedAt time.Time
	Queried   int
	Processed int
	Failed    int
	Results   []ProcessingResult
}
