// Package pipeline orchestrates one triage batch: fetch messages, run the
// analysis steps per message, issue side-effect requests to the external
// collaborators, and collect per-message outcomes. Messages are processed
// strictly sequentially; a failure in one never aborts the batch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mailtriage/internal/classify"
	"mailtriage/internal/domain"
	"mailtriage/internal/extract"
	"mailtriage/internal/metrics"
	"mailtriage/internal/render"
	"mailtriage/internal/urgency"
)

// messageState tracks where a message is in its processing lifecycle.
// Transitions are linear; failed steps are recorded in the outcome log but
// only dispatch errors mark the message failed.
type messageState string

const (
	stateFetched    messageState = "fetched"
	stateExtracted  messageState = "extracted"
	stateClassified messageState = "classified"
	stateScored     messageState = "scored"
	stateRendered   messageState = "rendered"
	stateDispatched messageState = "dispatched"
	stateMarked     messageState = "marked"
	stateFailed     messageState = "failed"
)

const (
	// alertThreshold is the minimum urgency that triggers an alert on its
	// own. Decision reminders alert regardless.
	alertThreshold = 4

	defaultMaxBatch    = 20
	defaultCallTimeout = 15 * time.Second
)

// Config wires the pipeline's collaborators and tunables.
type Config struct {
	Mail       domain.MailSource
	Tracker    domain.IssueTracker
	Alerts     []domain.AlertChannel
	Calendar   domain.CalendarService // optional, may be nil
	Classifier *classify.Classifier
	Renderer   *render.Renderer
	Logger     *slog.Logger
	Metrics    *metrics.Collector

	Query       string
	MaxBatch    int64
	CallTimeout time.Duration
}

// Pipeline runs triage batches. It holds no per-message state between runs.
type Pipeline struct {
	cfg Config

	processed *metrics.Counter
	failed    *metrics.Counter
	issues    *metrics.Counter
	alerts    *metrics.Counter
	reminders *metrics.Counter
}

// New creates a Pipeline. Mail, Tracker, Classifier, Renderer, Logger and
// Metrics are required; Calendar and Alerts may be absent.
func New(cfg Config) *Pipeline {
	if cfg.MaxBatch <= 0 || cfg.MaxBatch > defaultMaxBatch {
		cfg.MaxBatch = defaultMaxBatch
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	return &Pipeline{
		cfg:       cfg,
		processed: cfg.Metrics.Counter("mailtriage_messages_processed_total", "Messages fully processed"),
		failed:    cfg.Metrics.Counter("mailtriage_messages_failed_total", "Messages with at least one failed side-effect"),
		issues:    cfg.Metrics.Counter("mailtriage_issues_created_total", "Tracker issues created"),
		alerts:    cfg.Metrics.Counter("mailtriage_alerts_sent_total", "Alerts dispatched"),
		reminders: cfg.Metrics.Counter("mailtriage_reminders_scheduled_total", "Calendar reminders scheduled"),
	}
}

// Run executes one batch. It returns an error only for fatal pre-batch
// failures (the mail query itself); per-message failures are reported in
// the summary.
func (p *Pipeline) Run(ctx context.Context) (domain.BatchSummary, error) {
	summary := domain.BatchSummary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}
	log := p.cfg.Logger.With("run_id", summary.RunID)

	log.Info("querying mail source", "query", p.cfg.Query, "max", p.cfg.MaxBatch)
	qctx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	messages, err := p.cfg.Mail.Search(qctx, p.cfg.Query, p.cfg.MaxBatch)
	cancel()
	if err != nil {
		return summary, fmt.Errorf("mail search: %w", err)
	}
	summary.Queried = len(messages)
	log.Info("batch start", "messages", len(messages))

	for i, msg := range messages {
		log.Info("processing message", "msg_id", msg.ID, "index", fmt.Sprintf("%d of %d", i+1, len(messages)))
		res := p.processSafe(ctx, msg)
		summary.Results = append(summary.Results, res)
		if res.Failed {
			summary.Failed++
			p.failed.Inc()
		} else {
			summary.Processed++
			p.processed.Inc()
		}
	}

	log.Info("batch done", "processed", summary.Processed, "failed", summary.Failed)
	return summary, nil
}

// processSafe downgrades a panic during one message's processing to a
// per-message failure so the batch keeps going.
func (p *Pipeline) processSafe(ctx context.Context, msg domain.Message) (res domain.ProcessingResult) {
	defer func() {
		if r := recover(); r != nil {
			p.cfg.Logger.Error("panic during message processing", "msg_id", msg.ID, "panic", r)
			res.MessageID = msg.ID
			res.Failed = true
			res.FailReason = fmt.Sprintf("panic: %v", r)
		}
	}()
	return p.process(ctx, msg)
}

func (p *Pipeline) process(ctx context.Context, msg domain.Message) domain.ProcessingResult {
	log := p.cfg.Logger.With("msg_id", msg.ID)
	res := domain.ProcessingResult{MessageID: msg.ID}
	st := stateFetched

	// Extraction and classification are best-effort and never fail the
	// message: absent entities and the fallback category are valid results.
	text := msg.Subject + " " + msg.Snippet
	res.Entities = domain.ExtractedEntities{
		Deadline: extract.ExtractDeadline(text),
		Amount:   extract.ExtractAmount(text),
	}
	st = advance(log, st, stateExtracted)
	log.Info("extracted", "deadline", res.Entities.Deadline != nil, "amount", res.Entities.Amount != nil)

	res.Classification = p.cfg.Classifier.Classify(msg)
	st = advance(log, st, stateClassified)
	log.Info("classified",
		"category", res.Classification.Category,
		"action", res.Classification.Action,
		"confidence", res.Classification.Confidence,
	)

	res.Urgency = urgency.Score(res.Classification, res.Entities.Deadline)
	st = advance(log, st, stateScored)
	log.Info("scored", "urgency", res.Urgency)

	var schedule *domain.ReminderSchedule
	res.Artifact, schedule = p.cfg.Renderer.Artifact(msg, res.Classification, res.Entities)
	res.Schedule = schedule
	st = advance(log, st, stateRendered)

	st = p.dispatch(ctx, msg, &res, log)

	// Marking processed happens regardless of dispatch outcomes so the next
	// run does not pick the message up again.
	if ok := p.markProcessed(ctx, msg, &res, log); ok && st != stateFailed {
		st = stateMarked
	} else if !ok {
		st = stateFailed
	}

	if st == stateFailed {
		res.Failed = true
		if res.FailReason == "" {
			res.FailReason = firstFailure(res.Outcomes)
		}
	}
	log.Info("message done", "state", string(st), "failed", res.Failed)
	return res
}

// dispatch issues the side-effect requests for a rendered message: always
// create an issue, schedule a calendar reminder for decision deadlines, and
// alert when urgent enough. Each request gets its own timeout and failures
// are recorded without stopping the remaining requests.
func (p *Pipeline) dispatch(ctx context.Context, msg domain.Message, res *domain.ProcessingResult, log *slog.Logger) messageState {
	failed := false

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	ref, err := p.cfg.Tracker.CreateIssue(callCtx, res.Artifact.Title, res.Artifact.Body, res.Artifact.Labels)
	cancel()
	if err != nil {
		log.Error("issue creation failed", "err", err)
		res.Outcomes = append(res.Outcomes, domain.StepOutcome{Step: "issue", OK: false, Detail: err.Error()})
		failed = true
	} else {
		res.IssueRef = ref
		res.Outcomes = append(res.Outcomes, domain.StepOutcome{Step: "issue", OK: true, Detail: ref})
		p.issues.Inc()
		log.Info("issue created", "ref", ref)
	}

	if res.Classification.Action == domain.ActionDecisionReminder && res.Schedule != nil {
		if p.cfg.Calendar == nil {
			res.Outcomes = append(res.Outcomes, domain.StepOutcome{Step: "calendar", OK: true, Detail: "no calendar configured, skipped"})
		} else {
			callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
			cref, err := p.cfg.Calendar.ScheduleReminder(callCtx, res.Schedule.RemindAt, res.Schedule.Label, res.Artifact.Title)
			cancel()
			if err != nil {
				log.Error("calendar scheduling failed", "err", err)
				res.Outcomes = append(res.Outcomes, domain.StepOutcome{Step: "calendar", OK: false, Detail: err.Error()})
				failed = true
			} else {
				res.Outcomes = append(res.Outcomes, domain.StepOutcome{Step: "calendar", OK: true, Detail: cref})
				p.reminders.Inc()
				log.Info("reminder scheduled", "at", res.Schedule.RemindAt, "ref", cref)
			}
		}
	}

	// Decision reminders always notify, even at low urgency.
	if res.Urgency >= alertThreshold || res.Classification.Action == domain.ActionDecisionReminder {
		text := p.cfg.Renderer.Alert(msg, res.Classification, res.Urgency, res.Entities)
		for _, ch := range p.cfg.Alerts {
			callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
			err := ch.Send(callCtx, text, res.Urgency, res.Classification.Category)
			cancel()
			if err != nil {
				log.Error("alert send failed", "channel", ch.Name(), "err", err)
				res.Outcomes = append(res.Outcomes, domain.StepOutcome{Step: "alert", OK: false, Detail: ch.Name() + ": " + err.Error()})
				failed = true
			} else {
				res.Outcomes = append(res.Outcomes, domain.StepOutcome{Step: "alert", OK: true, Detail: ch.Name()})
				p.alerts.Inc()
				log.Info("alert sent", "channel", ch.Name(), "urgency", res.Urgency)
			}
		}
	}

	if failed {
		return stateFailed
	}
	return stateDispatched
}

func (p *Pipeline) markProcessed(ctx context.Context, msg domain.Message, res *domain.ProcessingResult, log *slog.Logger) bool {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	err := p.cfg.Mail.MarkProcessed(callCtx, msg.ID)
	cancel()
	if err != nil {
		log.Error("mark processed failed", "err", err)
		res.Outcomes = append(res.Outcomes, domain.StepOutcome{Step: "mark", OK: false, Detail: err.Error()})
		return false
	}
	res.Outcomes = append(res.Outcomes, domain.StepOutcome{Step: "mark", OK: true})
	return true
}

// advance logs one state transition and returns the new state.
func advance(log *slog.Logger, from, to messageState) messageState {
	log.Debug("state transition", "from", string(from), "to", string(to))
	return to
}

func firstFailure(outcomes []domain.StepOutcome) string {
	for _, o := range outcomes {
		if !o.OK {
			return o.Step + ": " + o.Detail
		}
	}
	return "unknown failure"
}
