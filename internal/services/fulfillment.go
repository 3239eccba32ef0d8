package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/docfill-backend/internal/data/repos"
	types "github.com/yungbote/docfill-backend/internal/domain"
	"github.com/yungbote/docfill-backend/internal/domain/fill"
	"github.com/yungbote/docfill-backend/internal/modules/fulfillment"
	"github.com/yungbote/docfill-backend/internal/observability"
	"github.com/yungbote/docfill-backend/internal/platform/ctxutil"
	"github.com/yungbote/docfill-backend/internal/platform/dbctx"
	"github.com/yungbote/docfill-backend/internal/platform/lock"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

type FulfillmentService interface {
	CreateSession(dbc dbctx.Context, in CreateSessionInput) (*SessionView, error)
	// Resolve accepts a session uuid or its numeric reference.
	Resolve(dbc dbctx.Context, ident string) (uuid.UUID, error)
	GetSession(dbc dbctx.Context, id uuid.UUID) (*SessionView, error)
	NextQuestion(dbc dbctx.Context, id uuid.UUID) (*QuestionView, error)
	SubmitAnswer(dbc dbctx.Context, id uuid.UUID, placeholderID string, in AnswerInput) (*fulfillment.Outcome, error)
	Progress(dbc dbctx.Context, id uuid.UUID) (*fulfillment.Progress, error)
	Finalize(dbc dbctx.Context, id uuid.UUID) (*FinalizeResult, error)
	ListPlaceholders(dbc dbctx.Context, id uuid.UUID) ([]PlaceholderView, error)
	ListActions(dbc dbctx.Context, id uuid.UUID, limit int) ([]*types.SessionAction, error)
}

type FulfillmentConfig struct {
	ContextWindowWords int
	LockTimeout        time.Duration
}

type fulfillmentService struct {
	cfg       FulfillmentConfig
	log       *logger.Logger
	repos     repos.Repos
	engine    *fulfillment.Engine
	types     *fulfillment.TypeTable
	questions fulfillment.QuestionWriter
	locker    lock.Locker
	merger    Merger
	now       func() time.Time
}

func NewFulfillmentService(
	cfg FulfillmentConfig,
	baseLog *logger.Logger,
	r repos.Repos,
	engine *fulfillment.Engine,
	typeTable *fulfillment.TypeTable,
	questions fulfillment.QuestionWriter,
	locker lock.Locker,
	merger Merger,
) FulfillmentService {
	if cfg.ContextWindowWords <= 0 {
		cfg.ContextWindowWords = 20
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 30 * time.Second
	}
	if typeTable == nil {
		typeTable = fulfillment.DefaultTypeTable()
	}
	if questions == nil {
		questions = fulfillment.TemplateQuestions{}
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &fulfillmentService{
		cfg:       cfg,
		log:       baseLog.With("service", "FulfillmentService"),
		repos:     r,
		engine:    engine,
		types:     typeTable,
		questions: questions,
		locker:    locker,
		merger:    merger,
		now:       time.Now,
	}
}

func (s *fulfillmentService) CreateSession(dbc dbctx.Context, in CreateSessionInput) (*SessionView, error) {
	const op = "fulfillment.create_session"
	if len(in.Placeholders) == 0 {
		return nil, fill.NewError(fill.CodeValidation, op, "at least one placeholder is required", nil)
	}

	rows := make([]*types.Placeholder, 0, len(in.Placeholders))
	seen := map[string]bool{}
	for i, seed := range in.Placeholders {
		key := strings.TrimSpace(seed.ID)
		if key == "" {
			key = fmt.Sprintf("placeholder_%03d", i+1)
		}
		if seen[key] {
			return nil, fill.NewError(fill.CodeValidation, op, fmt.Sprintf("duplicate placeholder id %q", key), nil)
		}
		seen[key] = true
		name := strings.Join(strings.Fields(seed.Name), " ")
		if name == "" {
			return nil, fill.NewError(fill.CodeValidation, op, fmt.Sprintf("placeholder %s has no name", key), nil)
		}
		excerpt := fulfillment.TruncateContext(seed.ContextExcerpt, strings.TrimSpace(seed.Marker), s.cfg.ContextWindowWords)
		expected := s.types.Infer(name, excerpt)
		if raw := strings.TrimSpace(seed.ExpectedType); raw != "" {
			t, ok := fill.ParseExpectedType(raw)
			if !ok {
				return nil, fill.NewError(fill.CodeValidation, op, fmt.Sprintf("placeholder %s has unknown expected_type %q", key, raw), nil)
			}
			expected = t
		}
		rows = append(rows, &types.Placeholder{
			ID:             uuid.New(),
			Key:            key,
			Position:       i,
			Name:           name,
			ContextExcerpt: excerpt,
			ExpectedType:   expected,
			Status:         fill.StatusPending,
		})
	}

	var meta datatypes.JSON
	if len(in.Metadata) > 0 {
		raw, err := json.Marshal(in.Metadata)
		if err != nil {
			return nil, fill.NewError(fill.CodeValidation, op, "metadata is not valid JSON", err)
		}
		meta = datatypes.JSON(raw)
	}

	sess := &types.FillSession{
		ID:       uuid.New(),
		Title:    strings.TrimSpace(in.Title),
		Summary:  strings.TrimSpace(in.Summary),
		Status:   fill.SessionActive,
		Metadata: meta,
	}
	err := s.inTx(dbc, func(inner dbctx.Context) error {
		ref, err := s.repos.Sessions.NextReference(inner)
		if err != nil {
			return err
		}
		sess.Reference = ref
		if err := s.repos.Sessions.Create(inner, sess); err != nil {
			return err
		}
		for _, r := range rows {
			r.SessionID = sess.ID
		}
		if err := s.repos.Placeholders.CreateBatch(inner, rows); err != nil {
			return err
		}
		return s.repos.Actions.Append(inner, s.action(dbc.Ctx, sess.ID, "", fulfillment.Event{
			Action: fill.ActionSessionCreated,
			Detail: map[string]any{"placeholders": len(rows), "reference": ref},
		}))
	})
	if err != nil {
		s.log.Warn("create session failed", "error", err)
		return nil, repos.MapError(op, err)
	}
	s.log.Info("session created", "session_id", sess.ID, "reference", sess.Reference, "placeholders", len(rows))
	return s.GetSession(dbc, sess.ID)
}

func (s *fulfillmentService) Resolve(dbc dbctx.Context, ident string) (uuid.UUID, error) {
	const op = "fulfillment.resolve"
	ident = strings.TrimSpace(ident)
	if id, err := uuid.Parse(ident); err == nil {
		return id, nil
	}
	ref, err := strconv.ParseInt(ident, 10, 64)
	if err != nil {
		return uuid.Nil, fill.NewError(fill.CodeValidation, op, fmt.Sprintf("invalid session id %q", ident), nil)
	}
	row, err := s.repos.Sessions.GetByReference(dbc, ref)
	if err != nil {
		return uuid.Nil, repos.MapError(op, err)
	}
	if row == nil {
		return uuid.Nil, fill.NewError(fill.CodeNotFound, op, fmt.Sprintf("session %d not found", ref), nil)
	}
	return row.ID, nil
}

func (s *fulfillmentService) load(dbc dbctx.Context, id uuid.UUID) (fulfillment.Session, error) {
	const op = "fulfillment.load"
	meta, err := s.repos.Sessions.GetByID(dbc, id)
	if err != nil {
		return fulfillment.Session{}, repos.MapError(op, err)
	}
	if meta == nil {
		return fulfillment.Session{}, fill.NewError(fill.CodeNotFound, op, fmt.Sprintf("session %s not found", id), nil)
	}
	placeholders, err := s.repos.Placeholders.ListBySession(dbc, id)
	if err != nil {
		return fulfillment.Session{}, repos.MapError(op, err)
	}
	facts, err := s.repos.Facts.ListBySession(dbc, id)
	if err != nil {
		return fulfillment.Session{}, repos.MapError(op, err)
	}
	return fulfillment.Assemble(*meta, placeholders, facts)
}

func (s *fulfillmentService) GetSession(dbc dbctx.Context, id uuid.UUID) (*SessionView, error) {
	sess, err := s.load(dbc, id)
	if err != nil {
		return nil, err
	}
	view := &SessionView{Session: &sess.Meta, Progress: fulfillment.ComputeProgress(sess)}
	if p, ok := sess.Active(); ok {
		pv := s.placeholderView(sess, p)
		view.Active = &pv
	}
	return view, nil
}

func (s *fulfillmentService) NextQuestion(dbc dbctx.Context, id uuid.UUID) (*QuestionView, error) {
	const op = "fulfillment.next_question"
	sess, err := s.load(dbc, id)
	if err != nil {
		return nil, err
	}
	q := s.engine.NextQuestion(sess)
	out := &QuestionView{SessionID: id, Complete: q.Complete, Progress: q.Progress, Percentage: percentage(q.Progress)}
	if q.Complete {
		return out, nil
	}

	p := q.Placeholder
	hash := fulfillment.PromptHash(sess.Meta.Summary, p)
	if p.PromptText == "" || p.PromptHash != hash {
		prompt, err := s.questions.WriteQuestion(dbc.Ctx, fulfillment.QuestionRequest{
			Placeholder: p,
			Facts:       sess.Facts.Known(),
			Summary:     sess.Meta.Summary,
		})
		if err != nil || strings.TrimSpace(prompt) == "" {
			prompt = fulfillment.TemplateQuestion(p)
		}
		if err := s.repos.Placeholders.SetPrompt(dbc, p.ID, prompt, hash); err != nil {
			return nil, repos.MapError(op, err)
		}
		p.PromptText, p.PromptHash = prompt, hash
		if err := s.repos.Actions.Append(dbc, s.action(dbc.Ctx, id, p.Key, fulfillment.Event{Action: fill.ActionQuestionAsked})); err != nil {
			s.log.Warn("record question_asked failed", "session_id", id, "error", err)
		}
	}

	pv := s.placeholderView(sess, p)
	out.Question = &pv
	out.Prompt = p.PromptText
	if q.OfferOpen {
		out.Offer = fulfillment.OfferMessage(p)
	}
	return out, nil
}

func (s *fulfillmentService) SubmitAnswer(dbc dbctx.Context, id uuid.UUID, placeholderID string, in AnswerInput) (*fulfillment.Outcome, error) {
	const op = "fulfillment.submit_answer"
	release, err := s.lock(dbc.Ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.load(dbc, id)
	if err != nil {
		return nil, err
	}
	if sess.Meta.Status == fill.SessionFinalized {
		return nil, fill.NewError(fill.CodeConflict, op, "session is already finalized", nil)
	}
	p, _ := sess.Placeholder(placeholderID)

	next, out, err := s.engine.Submit(dbc.Ctx, sess, fulfillment.Submission{
		PlaceholderID:      placeholderID,
		RawInput:           in.RawInput,
		ConsentAutoSuggest: in.ConsentAutoSuggest,
	})
	if err != nil {
		if in.ConsentAutoSuggest && fill.IsCode(err, fill.CodeRetryable) {
			s.recordSuggestFailure(dbc, id, placeholderID, err)
		}
		return nil, err
	}

	err = s.inTx(dbc, func(inner dbctx.Context) error {
		return s.persist(inner, sess, next, out)
	})
	if err != nil {
		s.log.Warn("persist transition failed", "session_id", id, "placeholder_id", placeholderID, "error", err)
		return nil, repos.MapError(op, err)
	}

	m := observability.Current()
	m.IncAnswerOutcome(string(p.ExpectedType), string(out.Status))
	for _, ev := range out.Events {
		if ev.Latency > 0 {
			m.ObserveOracle(ev.Action, ev.Status, ev.Latency)
		}
	}
	s.log.Info("answer processed",
		"session_id", id,
		"placeholder_id", placeholderID,
		"status", out.Status,
		"attempts", out.Attempts,
		"complete", out.Complete,
	)
	return &out, nil
}

// persist writes the difference between before and after. Placeholder writes
// are guarded, so a concurrent writer on another instance surfaces as a
// conflict instead of a lost update.
func (s *fulfillmentService) persist(dbc dbctx.Context, before, after fulfillment.Session, out fulfillment.Outcome) error {
	changed, facts := fulfillment.Changes(before, after)
	for i := range changed {
		loaded := 0
		if prev, ok := before.Placeholder(changed[i].Key); ok {
			loaded = prev.Attempts
		}
		if err := s.repos.Placeholders.SaveState(dbc, &changed[i], loaded); err != nil {
			return err
		}
	}
	if len(facts) > 0 {
		rows := make([]*types.Fact, 0, len(facts))
		for _, f := range facts {
			rows = append(rows, &types.Fact{
				SessionID:      after.Meta.ID,
				Seq:            f.Seq,
				PlaceholderKey: f.PlaceholderID,
				Name:           f.Name,
				Value:          f.Value,
				Source:         f.Source,
			})
		}
		if err := s.repos.Facts.Append(dbc, rows); err != nil {
			return err
		}
	}
	if after.Meta.Status != before.Meta.Status {
		if err := s.repos.Sessions.UpdateFields(dbc, after.Meta.ID, map[string]any{
			"status":       after.Meta.Status,
			"completed_at": after.Meta.CompletedAt,
		}); err != nil {
			return err
		}
	}
	actions := make([]*types.SessionAction, 0, len(out.Events))
	for _, ev := range out.Events {
		actions = append(actions, s.action(dbc.Ctx, after.Meta.ID, out.PlaceholderID, ev))
	}
	return s.repos.Actions.Append(dbc, actions...)
}

func (s *fulfillmentService) recordSuggestFailure(dbc dbctx.Context, id uuid.UUID, placeholderID string, cause error) {
	ev := fulfillment.Event{Action: fill.ActionSuggestFailed, Status: string(fill.CodeRetryable), Detail: map[string]any{"error": cause.Error()}}
	if err := s.repos.Actions.Append(dbc, s.action(dbc.Ctx, id, placeholderID, ev)); err != nil {
		s.log.Warn("record suggest_failed failed", "session_id", id, "error", err)
	}
}

func (s *fulfillmentService) Progress(dbc dbctx.Context, id uuid.UUID) (*fulfillment.Progress, error) {
	sess, err := s.load(dbc, id)
	if err != nil {
		return nil, err
	}
	p := fulfillment.ComputeProgress(sess)
	return &p, nil
}

func (s *fulfillmentService) Finalize(dbc dbctx.Context, id uuid.UUID) (*FinalizeResult, error) {
	const op = "fulfillment.finalize"
	release, err := s.lock(dbc.Ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := s.load(dbc, id)
	if err != nil {
		return nil, err
	}
	if sess.Meta.Status == fill.SessionFinalized {
		return s.finalizeResult(sess, sess.Meta.ArchiveKey, ""), nil
	}
	classification, err := fulfillment.Classify(sess)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var merged MergeResult
	if s.merger != nil {
		merged, err = s.merger.Merge(dbc.Ctx, BuildManifest(sess, classification, now), sess.Facts.Entries())
		if err != nil {
			s.log.Warn("final merge failed", "session_id", id, "error", err)
			return nil, fill.NewError(fill.CodeRetryable, op, "could not store the finished document, please try again", err)
		}
	}

	err = s.inTx(dbc, func(inner dbctx.Context) error {
		if err := s.repos.Sessions.UpdateFields(inner, id, map[string]any{
			"status":         fill.SessionFinalized,
			"classification": classification,
			"archive_key":    merged.Key,
			"finalized_at":   now,
		}); err != nil {
			return err
		}
		return s.repos.Actions.Append(inner, s.action(dbc.Ctx, id, "", fulfillment.Event{
			Action: fill.ActionSessionFinalized,
			Status: string(classification),
			Detail: map[string]any{"archive_key": merged.Key},
		}))
	})
	if err != nil {
		return nil, repos.MapError(op, err)
	}
	observability.Current().IncFinalized(string(classification))

	sess.Meta.Status = fill.SessionFinalized
	sess.Meta.Classification = classification
	sess.Meta.FinalizedAt = &now
	s.log.Info("session finalized", "session_id", id, "reference", sess.Meta.Reference, "classification", classification)
	return s.finalizeResult(sess, merged.Key, merged.Location), nil
}

func (s *fulfillmentService) finalizeResult(sess fulfillment.Session, key, location string) *FinalizeResult {
	return &FinalizeResult{
		Status:         "ok",
		SessionID:      sess.Meta.ID,
		Reference:      sess.Meta.Reference,
		Classification: sess.Meta.Classification,
		Values:         sess.Values(),
		ArchiveKey:     key,
		Location:       location,
		FinalizedAt:    sess.Meta.FinalizedAt,
		Progress:       fulfillment.ComputeProgress(sess),
	}
}

func (s *fulfillmentService) ListPlaceholders(dbc dbctx.Context, id uuid.UUID) ([]PlaceholderView, error) {
	sess, err := s.load(dbc, id)
	if err != nil {
		return nil, err
	}
	out := make([]PlaceholderView, 0, len(sess.Placeholders))
	for _, p := range sess.Placeholders {
		out = append(out, s.placeholderView(sess, p))
	}
	return out, nil
}

func (s *fulfillmentService) ListActions(dbc dbctx.Context, id uuid.UUID, limit int) ([]*types.SessionAction, error) {
	const op = "fulfillment.list_actions"
	meta, err := s.repos.Sessions.GetByID(dbc, id)
	if err != nil {
		return nil, repos.MapError(op, err)
	}
	if meta == nil {
		return nil, fill.NewError(fill.CodeNotFound, op, fmt.Sprintf("session %s not found", id), nil)
	}
	rows, err := s.repos.Actions.ListBySession(dbc, id, limit)
	if err != nil {
		return nil, repos.MapError(op, err)
	}
	return rows, nil
}

func (s *fulfillmentService) lock(ctx context.Context, id uuid.UUID) (func(), error) {
	lctx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
	defer cancel()
	release, err := s.locker.Lock(lctx, "session:"+id.String())
	if err != nil {
		return nil, fill.NewError(fill.CodeRetryable, "fulfillment.lock", "the session is busy, please retry", err)
	}
	return release, nil
}

func (s *fulfillmentService) inTx(dbc dbctx.Context, fn func(inner dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return s.repos.Tx.InTx(dbc.Ctx, fn)
}

func (s *fulfillmentService) action(ctx context.Context, sessionID uuid.UUID, placeholderID string, ev fulfillment.Event) *types.SessionAction {
	row := &types.SessionAction{
		ID:             uuid.New(),
		SessionID:      sessionID,
		PlaceholderKey: placeholderID,
		Action:         ev.Action,
		Status:         ev.Status,
		Model:          ev.Model,
		LatencyMS:      ev.Latency.Milliseconds(),
		RequestID:      ctxutil.RequestID(ctx),
	}
	if len(ev.Detail) > 0 {
		if raw, err := json.Marshal(ev.Detail); err == nil {
			row.Detail = datatypes.JSON(raw)
		}
	}
	return row
}
