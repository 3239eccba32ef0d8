package fulfillment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

const (
	DefaultMaxRetries     = 2
	DefaultOracleTimeout  = 8 * time.Second
	DefaultSuggestTimeout = 15 * time.Second
)

type OutcomeStatus string

const (
	OutcomeAccepted         OutcomeStatus = "accepted"
	OutcomeRejected         OutcomeStatus = "rejected"
	OutcomeOfferAutoSuggest OutcomeStatus = "offer_auto_suggest"
	OutcomeAutoFilled       OutcomeStatus = "auto_filled"
)

type Config struct {
	MaxRetries     int
	Escalation     EscalationPolicy
	OracleTimeout  time.Duration
	SuggestTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.Escalation.Mode == "" {
		c.Escalation.Mode = EscalateAmbiguous
	}
	if c.OracleTimeout <= 0 {
		c.OracleTimeout = DefaultOracleTimeout
	}
	if c.SuggestTimeout <= 0 {
		c.SuggestTimeout = DefaultSuggestTimeout
	}
	return c
}

type Submission struct {
	PlaceholderID      string
	RawInput           string
	ConsentAutoSuggest bool
}

// Event records one step of a transition for the action log.
type Event struct {
	Action  string
	Status  string
	Model   string
	Latency time.Duration
	Detail  map[string]any
}

type Outcome struct {
	Status            OutcomeStatus `json:"status"`
	PlaceholderID     string        `json:"placeholder_id"`
	NormalizedValue   string        `json:"normalized_value,omitempty"`
	Value             string        `json:"value,omitempty"`
	Hint              string        `json:"hint,omitempty"`
	Offer             string        `json:"offer,omitempty"`
	Attempts          int           `json:"attempts"`
	Complete          bool          `json:"fulfillment_complete"`
	NextPlaceholderID string        `json:"next_placeholder_id,omitempty"`
	Progress          Progress      `json:"progress"`
	Events            []Event       `json:"-"`
}

type Question struct {
	Complete    bool
	Placeholder fill.Placeholder
	OfferOpen   bool
	Progress    Progress
}

// Engine runs the placeholder state machine. It keeps no session state: every
// call maps an input Session to a new Session and leaves the input untouched.
type Engine struct {
	cfg       Config
	validator *Validator
	semantic  SemanticOracle
	suggester Suggester
	log       *logger.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewEngine wires the engine. semantic and suggester may be nil: without a
// semantic oracle local verdicts are final, without a suggester consenting
// returns a retryable error.
func NewEngine(cfg Config, validator *Validator, semantic SemanticOracle, suggester Suggester, baseLog *logger.Logger) *Engine {
	if validator == nil {
		validator = NewValidator()
	}
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Engine{
		cfg:       cfg.withDefaults(),
		validator: validator,
		semantic:  semantic,
		suggester: suggester,
		log:       baseLog.With("component", "FulfillmentEngine"),
		tracer:    otel.Tracer("github.com/yungbote/docfill-backend/internal/modules/fulfillment"),
		now:       time.Now,
	}
}

func (e *Engine) Config() Config { return e.cfg }

// OfferOpen reports whether the auto-suggest offer is available for p.
func (e *Engine) OfferOpen(p fill.Placeholder) bool {
	return p.Status == fill.StatusPending && p.Attempts >= e.cfg.MaxRetries
}

// DeclinedOffers counts the offers the user answered with another manual try.
func (e *Engine) DeclinedOffers(p fill.Placeholder) int {
	if p.Attempts <= e.cfg.MaxRetries {
		return 0
	}
	return p.Attempts - e.cfg.MaxRetries
}

func (e *Engine) NextQuestion(s Session) Question {
	q := Question{Progress: ComputeProgress(s)}
	p, ok := s.Active()
	if !ok {
		q.Complete = true
		return q
	}
	q.Placeholder = p
	q.OfferOpen = e.OfferOpen(p)
	return q
}

func (e *Engine) Submit(ctx context.Context, s Session, sub Submission) (Session, Outcome, error) {
	const op = "fulfillment.submit"
	idx := s.indexOf(sub.PlaceholderID)
	if idx < 0 {
		return s, Outcome{}, fill.NewError(fill.CodeNotFound, op, fmt.Sprintf("unknown placeholder %q", sub.PlaceholderID), nil)
	}
	cur := s.Placeholders[idx]
	if cur.Status.Resolved() {
		return s, Outcome{}, fill.NewError(fill.CodeConflict, op,
			fmt.Sprintf("placeholder %s is already %s", cur.Key, cur.Status), nil)
	}
	if active := s.ActiveIndex(); active != idx {
		return s, Outcome{}, fill.NewError(fill.CodeConflict, op,
			fmt.Sprintf("placeholder %s is not active; answer %s first", cur.Key, s.Placeholders[active].Key), nil)
	}

	ctx, span := e.tracer.Start(ctx, "fulfillment.submit", trace.WithAttributes(
		attribute.String("placeholder.id", cur.Key),
		attribute.String("placeholder.type", string(cur.ExpectedType)),
		attribute.Int("placeholder.attempts", cur.Attempts),
	))
	defer span.End()

	next := s.Clone()
	p := &next.Placeholders[idx]
	out := Outcome{PlaceholderID: p.Key}

	if sub.ConsentAutoSuggest && e.OfferOpen(*p) {
		p.ConsentAutoSuggest = true
		if strings.TrimSpace(sub.RawInput) != "" {
			local := e.validator.Validate(p.ExpectedType, sub.RawInput)
			if local.OK {
				if value, _, ok := e.confirm(ctx, next, *p, sub.RawInput, local, &out); ok {
					return e.resolve(s, next, idx, fill.StatusAccepted, value, out, span)
				}
			}
		}
		return e.autoFill(ctx, s, next, idx, sub.RawInput, out, span)
	}

	local := e.validator.Validate(p.ExpectedType, sub.RawInput)
	if local.Empty {
		return s, Outcome{}, fill.NewError(fill.CodeValidation, op, local.Hint, nil)
	}
	hint := local.Hint
	if local.OK {
		value, semanticHint, ok := e.confirm(ctx, next, *p, sub.RawInput, local, &out)
		if ok {
			return e.resolve(s, next, idx, fill.StatusAccepted, value, out, span)
		}
		hint = semanticHint
	}
	return e.reject(s, next, idx, hint, out, span)
}

// confirm applies the escalation policy to a locally valid answer. A failing
// or slow oracle leaves the local verdict in force.
func (e *Engine) confirm(ctx context.Context, next Session, p fill.Placeholder, raw string, local LocalResult, out *Outcome) (string, string, bool) {
	if e.semantic == nil || !e.cfg.Escalation.ShouldEscalate(p.ExpectedType, local) {
		return local.Normalized, "", true
	}
	octx, cancel := context.WithTimeout(ctx, e.cfg.OracleTimeout)
	defer cancel()
	octx, span := e.tracer.Start(octx, "fulfillment.semantic_oracle")
	defer span.End()

	start := e.now()
	verdict, err := e.semantic.ValidateSemantic(octx, SemanticRequest{
		Placeholder:     p,
		RawInput:        raw,
		LocalNormalized: local.Normalized,
		Facts:           next.Facts.Known(),
		Summary:         next.Meta.Summary,
	})
	latency := e.now().Sub(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inconclusive")
		e.log.Warn("semantic oracle inconclusive, keeping local verdict",
			"placeholder_id", p.Key, "latency_ms", latency.Milliseconds(), "error", err)
		out.Events = append(out.Events, Event{
			Action:  fill.ActionOracleInconclusive,
			Latency: latency,
			Detail:  map[string]any{"error": err.Error()},
		})
		return local.Normalized, "", true
	}

	status := "ok"
	if !verdict.OK {
		status = "rejected"
	}
	out.Events = append(out.Events, Event{Action: fill.ActionSemanticChecked, Status: status, Model: verdict.Model, Latency: latency})
	if !verdict.OK {
		hint := strings.TrimSpace(verdict.Hint)
		if hint == "" {
			hint = fmt.Sprintf("That does not look like a valid %s for %q. Please check it and try again.", p.ExpectedType.Label(), p.Name)
		}
		return "", hint, false
	}
	value := local.Normalized
	if n := strings.TrimSpace(verdict.Normalized); n != "" {
		if lr := e.validator.Validate(p.ExpectedType, n); lr.OK {
			value = lr.Normalized
		}
	}
	return value, "", true
}

func (e *Engine) reject(prev, next Session, idx int, hint string, out Outcome, span trace.Span) (Session, Outcome, error) {
	p := &next.Placeholders[idx]
	p.Attempts++
	out.Attempts = p.Attempts
	out.Hint = hint
	out.Status = OutcomeRejected
	out.Events = append(out.Events, Event{
		Action: fill.ActionAnswerRejected,
		Status: string(OutcomeRejected),
		Detail: map[string]any{"attempts": p.Attempts, "hint": hint},
	})
	if e.OfferOpen(*p) {
		out.Status = OutcomeOfferAutoSuggest
		out.Offer = OfferMessage(*p)
		out.Events = append(out.Events, Event{
			Action: fill.ActionAutoSuggestOffered,
			Status: string(OutcomeOfferAutoSuggest),
			Detail: map[string]any{"attempts": p.Attempts},
		})
	}
	return e.finish(prev, next, out, span)
}

func (e *Engine) autoFill(ctx context.Context, prev, next Session, idx int, priorAttempt string, out Outcome, span trace.Span) (Session, Outcome, error) {
	const op = "fulfillment.auto_fill"
	p := &next.Placeholders[idx]
	if e.suggester == nil {
		return prev, Outcome{}, fill.NewError(fill.CodeRetryable, op, "auto-suggestion is not available right now, please try again or answer manually", nil)
	}

	sctx, cancel := context.WithTimeout(ctx, e.cfg.SuggestTimeout)
	defer cancel()
	sctx, sspan := e.tracer.Start(sctx, "fulfillment.suggest")
	start := e.now()
	sugg, err := e.suggester.Suggest(sctx, SuggestRequest{
		Placeholder:  *p,
		Facts:        next.Facts.Known(),
		Summary:      next.Meta.Summary,
		PriorAttempt: strings.TrimSpace(priorAttempt),
	})
	latency := e.now().Sub(start)
	if err != nil {
		sspan.RecordError(err)
		sspan.End()
		e.log.Warn("auto-suggestion failed", "placeholder_id", p.Key, "latency_ms", latency.Milliseconds(), "error", err)
		return prev, Outcome{}, fill.NewError(fill.CodeRetryable, op, "could not generate a suggestion right now, please try again", err)
	}
	sspan.End()

	value, ok := CleanSuggestion(sugg.Value)
	if ok {
		lr := e.validator.Validate(p.ExpectedType, value)
		ok = lr.OK
		value = lr.Normalized
	}
	if !ok {
		e.log.Warn("auto-suggestion unusable", "placeholder_id", p.Key, "model", sugg.Model, "suggestion", sugg.Value)
		return prev, Outcome{}, fill.NewError(fill.CodeRetryable, op, "the generated suggestion was not usable, please try again", nil)
	}

	out.Events = append(out.Events, Event{
		Action:  fill.ActionAutoFilled,
		Status:  string(OutcomeAutoFilled),
		Model:   sugg.Model,
		Latency: latency,
	})
	return e.resolve(prev, next, idx, fill.StatusAutoFilled, value, out, span)
}

func (e *Engine) resolve(prev, next Session, idx int, status fill.PlaceholderStatus, value string, out Outcome, span trace.Span) (Session, Outcome, error) {
	p := &next.Placeholders[idx]
	v := value
	now := e.now().UTC()
	p.Status = status
	p.Value = &v
	p.ResolvedAt = &now

	src := fill.FactFromUser
	out.Status = OutcomeAccepted
	out.NormalizedValue = value
	if status == fill.StatusAutoFilled {
		src = fill.FactFromSuggestion
		out.Status = OutcomeAutoFilled
		out.NormalizedValue = ""
		out.Value = value
	} else {
		out.Events = append(out.Events, Event{Action: fill.ActionAnswerAccepted, Status: string(OutcomeAccepted)})
	}
	if _, err := next.Facts.Append(p.Key, p.Name, value, src); err != nil {
		span.RecordError(err)
		e.log.Error("facts overlay rejected write, aborting transition", "placeholder_id", p.Key, "error", err)
		return prev, Outcome{}, err
	}
	out.Attempts = p.Attempts

	if active := next.ActiveIndex(); active >= 0 {
		out.NextPlaceholderID = next.Placeholders[active].Key
	} else {
		out.Complete = true
		next.Meta.Status = fill.SessionComplete
		next.Meta.CompletedAt = &now
		out.Events = append(out.Events, Event{Action: fill.ActionSessionCompleted})
	}
	return e.finish(prev, next, out, span)
}

func (e *Engine) finish(prev, next Session, out Outcome, span trace.Span) (Session, Outcome, error) {
	if err := CheckInvariants(next); err != nil {
		span.RecordError(err)
		e.log.Error("transition broke session invariants, aborting", "session_id", next.Meta.ID, "error", err)
		return prev, Outcome{}, err
	}
	out.Progress = ComputeProgress(next)
	span.SetAttributes(attribute.String("outcome.status", string(out.Status)))
	e.log.Debug("placeholder transition",
		"session_id", next.Meta.ID,
		"placeholder_id", out.PlaceholderID,
		"status", out.Status,
		"attempts", out.Attempts,
		"complete", out.Complete,
	)
	return next, out, nil
}

// CheckInvariants verifies that values exist exactly for resolved
// placeholders, each resolved placeholder has its fact, and nothing after the
// active placeholder is resolved.
func CheckInvariants(s Session) error {
	const op = "fulfillment.invariants"
	resolved := 0
	active := s.ActiveIndex()
	for i, p := range s.Placeholders {
		if (p.Value != nil) != p.Status.Resolved() {
			return fill.NewError(fill.CodeInvariantViolation, op,
				fmt.Sprintf("placeholder %s has status %s but value presence %t", p.Key, p.Status, p.Value != nil), nil)
		}
		if active >= 0 && i > active && p.Status.Resolved() {
			return fill.NewError(fill.CodeInvariantViolation, op,
				fmt.Sprintf("placeholder %s resolved ahead of active %s", p.Key, s.Placeholders[active].Key), nil)
		}
		if !p.Status.Resolved() {
			continue
		}
		resolved++
		fact, ok := s.Facts.Get(p.Key)
		if !ok || fact.Value != *p.Value {
			return fill.NewError(fill.CodeInvariantViolation, op,
				fmt.Sprintf("facts overlay out of sync for %s", p.Key), nil)
		}
	}
	if s.Facts.Len() != resolved {
		return fill.NewError(fill.CodeInvariantViolation, op,
			fmt.Sprintf("facts overlay has %d entries for %d resolved placeholders", s.Facts.Len(), resolved), nil)
	}
	return nil
}

// OfferMessage explains the auto-suggest tradeoff to the user.
func OfferMessage(p fill.Placeholder) string {
	return fmt.Sprintf(
		"I can suggest a best-guess %s for %q based on what you've told me so far. "+
			"It may be wrong, and using it marks the finished document as a draft. "+
			"Send your consent to use the suggestion, or keep trying with your own answer.",
		p.ExpectedType.Label(), p.Name)
}
