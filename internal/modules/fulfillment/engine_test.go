package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
)

type fakeSemantic struct {
	verdict Verdict
	err     error
	delay   time.Duration
	calls   int
}

func (f *fakeSemantic) ValidateSemantic(ctx context.Context, _ SemanticRequest) (Verdict, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Verdict{}, ctx.Err()
		}
	}
	return f.verdict, f.err
}

type fakeSuggester struct {
	value string
	err   error
	calls int
	facts []KnownFact
}

func (f *fakeSuggester) Suggest(_ context.Context, req SuggestRequest) (Suggestion, error) {
	f.calls++
	f.facts = req.Facts
	return Suggestion{Value: f.value, Model: "fake"}, f.err
}

func newTestSession(types ...fill.ExpectedType) Session {
	s := Session{
		Meta:  fill.Session{ID: uuid.New(), Reference: 1001, Status: fill.SessionActive},
		Facts: NewOverlay(),
	}
	for i, t := range types {
		s.Placeholders = append(s.Placeholders, fill.Placeholder{
			ID:           uuid.New(),
			SessionID:    s.Meta.ID,
			Key:          fmt.Sprintf("placeholder_%03d", i+1),
			Position:     i,
			Name:         fmt.Sprintf("Field %d", i+1),
			ExpectedType: t,
			Status:       fill.StatusPending,
		})
	}
	return s
}

func newTestEngine(semantic SemanticOracle, suggester Suggester) *Engine {
	return NewEngine(Config{MaxRetries: 2, Escalation: EscalationPolicy{Mode: EscalateNever}}, NewValidator(), semantic, suggester, nil)
}

func submit(t *testing.T, e *Engine, s Session, id, raw string, consent bool) (Session, Outcome) {
	t.Helper()
	next, out, err := e.Submit(context.Background(), s, Submission{PlaceholderID: id, RawInput: raw, ConsentAutoSuggest: consent})
	if err != nil {
		t.Fatalf("Submit(%s, %q, %t): %v", id, raw, consent, err)
	}
	return next, out
}

func TestSubmitAcceptsValidDate(t *testing.T) {
	e := newTestEngine(nil, nil)
	s := newTestSession(fill.TypeDate, fill.TypeMoney)
	next, out := submit(t, e, s, "placeholder_001", "05/15/2026", false)
	if out.Status != OutcomeAccepted || out.NormalizedValue != "2026-05-15" {
		t.Fatalf("outcome = %+v", out)
	}
	if out.NextPlaceholderID != "placeholder_002" || out.Complete {
		t.Fatalf("expected to advance to placeholder_002, got %+v", out)
	}
	fact, ok := next.Facts.Get("placeholder_001")
	if !ok || fact.Value != "2026-05-15" {
		t.Fatalf("fact not written: %+v", fact)
	}
	if s.Placeholders[0].Status != fill.StatusPending || s.Facts.Len() != 0 {
		t.Fatalf("input session was mutated")
	}
}

func TestSubmitRejectsBadDateWithHint(t *testing.T) {
	e := newTestEngine(nil, nil)
	s := newTestSession(fill.TypeDate)
	next, out := submit(t, e, s, "placeholder_001", "asdf", false)
	if out.Status != OutcomeRejected || out.Attempts != 1 {
		t.Fatalf("outcome = %+v", out)
	}
	if !strings.Contains(out.Hint, "MM/DD/YYYY") {
		t.Fatalf("hint should describe the date format: %q", out.Hint)
	}
	if next.Placeholders[0].Status != fill.StatusPending || next.Placeholders[0].Value != nil {
		t.Fatalf("placeholder should stay pending without value")
	}
}

func TestOfferThenConsentAutoFills(t *testing.T) {
	sugg := &fakeSuggester{value: "\"June 1, 2026\""}
	e := newTestEngine(nil, sugg)
	s := newTestSession(fill.TypeDate, fill.TypeEmail)

	s, out := submit(t, e, s, "placeholder_001", "asdf", false)
	if out.Status != OutcomeRejected {
		t.Fatalf("first failure = %s", out.Status)
	}
	s, out = submit(t, e, s, "placeholder_001", "still wrong", false)
	if out.Status != OutcomeOfferAutoSuggest || out.Attempts != 2 {
		t.Fatalf("second failure = %+v", out)
	}
	if !strings.Contains(out.Offer, "may be wrong") || !strings.Contains(out.Offer, "draft") {
		t.Fatalf("offer must describe the tradeoff: %q", out.Offer)
	}
	if sugg.calls != 0 {
		t.Fatalf("suggester called without consent")
	}

	before := ComputeProgress(s)
	s, out = submit(t, e, s, "placeholder_001", "", true)
	if out.Status != OutcomeAutoFilled || out.Value != "2026-06-01" {
		t.Fatalf("consented outcome = %+v", out)
	}
	if sugg.calls != 1 {
		t.Fatalf("suggester calls = %d", sugg.calls)
	}
	after := ComputeProgress(s)
	if after.AutoFilled != before.AutoFilled+1 || after.Pending != before.Pending-1 {
		t.Fatalf("progress did not advance: %+v -> %+v", before, after)
	}
	p, _ := s.Placeholder("placeholder_001")
	if p.Status != fill.StatusAutoFilled || !p.ConsentAutoSuggest || p.Attempts != 2 {
		t.Fatalf("placeholder = %+v", p)
	}
	if fact, _ := s.Facts.Get("placeholder_001"); fact.Source != fill.FactFromSuggestion {
		t.Fatalf("fact source = %s", fact.Source)
	}
}

func TestResubmitResolvedIsInputError(t *testing.T) {
	e := newTestEngine(nil, nil)
	s := newTestSession(fill.TypeLegalName, fill.TypeDate)
	s, _ = submit(t, e, s, "placeholder_001", "Acme Inc.", false)

	next, out, err := e.Submit(context.Background(), s, Submission{PlaceholderID: "placeholder_001", RawInput: "Other LLC"})
	if !fill.IsCode(err, fill.CodeConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if out.Status != "" {
		t.Fatalf("no outcome expected, got %+v", out)
	}
	if fact, _ := next.Facts.Get("placeholder_001"); fact.Value != "Acme Inc." || next.Facts.Len() != 1 {
		t.Fatalf("facts changed: %+v", next.Facts.Entries())
	}
	if p, _ := next.Placeholder("placeholder_001"); p.ValueOrEmpty() != "Acme Inc." {
		t.Fatalf("value changed: %+v", p)
	}
}

func TestProgressAndDraftClassification(t *testing.T) {
	s := newTestSession(
		fill.TypeFreeText, fill.TypeFreeText, fill.TypeFreeText, fill.TypeFreeText, fill.TypeFreeText,
		fill.TypeFreeText, fill.TypeFreeText, fill.TypeFreeText, fill.TypeFreeText, fill.TypeFreeText,
	)
	for i := 0; i < 8; i++ {
		v := fmt.Sprintf("value %d", i)
		s.Placeholders[i].Value = &v
		s.Placeholders[i].Status = fill.StatusAccepted
		if i == 7 {
			s.Placeholders[i].Status = fill.StatusAutoFilled
		}
	}
	p := ComputeProgress(s)
	if p.Filled != 7 || p.AutoFilled != 1 || p.Total != 10 || p.Pending != 2 {
		t.Fatalf("progress = %+v", p)
	}
	if !p.Draft() {
		t.Fatalf("expected draft")
	}
	if _, err := Classify(s); !fill.IsCode(err, fill.CodePreconditionFailed) {
		t.Fatalf("incomplete session classified: %v", err)
	}
	if pending, _ := fill.DetailsOf(mustErr(Classify(s)))["pending"].([]string); len(pending) != 2 {
		t.Fatalf("pending details = %v", pending)
	}

	for i := 8; i < 10; i++ {
		v := "done"
		s.Placeholders[i].Value = &v
		s.Placeholders[i].Status = fill.StatusAccepted
	}
	if c, err := Classify(s); err != nil || c != fill.ClassificationDraft {
		t.Fatalf("Classify = %s, %v", c, err)
	}
	s.Placeholders[7].Status = fill.StatusAccepted
	if c, err := Classify(s); err != nil || c != fill.ClassificationFinal {
		t.Fatalf("Classify = %s, %v", c, err)
	}
}

func mustErr(_ fill.Classification, err error) error { return err }

func TestSubmitToNonActivePlaceholder(t *testing.T) {
	e := newTestEngine(nil, nil)
	s := newTestSession(fill.TypeDate, fill.TypeDate)
	_, _, err := e.Submit(context.Background(), s, Submission{PlaceholderID: "placeholder_002", RawInput: "2026-01-01"})
	if !fill.IsCode(err, fill.CodeConflict) || !strings.Contains(err.Error(), "placeholder_001") {
		t.Fatalf("err = %v", err)
	}
	_, _, err = e.Submit(context.Background(), s, Submission{PlaceholderID: "placeholder_404", RawInput: "x"})
	if !fill.IsCode(err, fill.CodeNotFound) {
		t.Fatalf("err = %v, want not_found", err)
	}
}

func TestEmptyInputIsInputErrorAndNotCounted(t *testing.T) {
	sem := &fakeSemantic{verdict: Verdict{OK: true}}
	e := NewEngine(Config{Escalation: EscalationPolicy{Mode: EscalateAlways}}, nil, sem, nil, nil)
	s := newTestSession(fill.TypeLegalName)
	next, _, err := e.Submit(context.Background(), s, Submission{PlaceholderID: "placeholder_001", RawInput: "   "})
	if !fill.IsCode(err, fill.CodeValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if next.Placeholders[0].Attempts != 0 || sem.calls != 0 {
		t.Fatalf("empty input reached the oracle or counted an attempt")
	}
}

func TestConsentBeforeOfferIsIgnored(t *testing.T) {
	sugg := &fakeSuggester{value: "2026-01-01"}
	e := newTestEngine(nil, sugg)
	s := newTestSession(fill.TypeDate)
	next, out := submit(t, e, s, "placeholder_001", "nope", true)
	if out.Status != OutcomeRejected || sugg.calls != 0 || next.Placeholders[0].ConsentAutoSuggest {
		t.Fatalf("consent before the offer must not trigger generation: %+v", out)
	}
}

func TestDeclinedOfferKeepsOfferOpenAndCanStillSucceed(t *testing.T) {
	e := newTestEngine(nil, &fakeSuggester{value: "x"})
	s := newTestSession(fill.TypeMoney)
	s, _ = submit(t, e, s, "placeholder_001", "a", false)
	s, _ = submit(t, e, s, "placeholder_001", "b", false)
	s, out := submit(t, e, s, "placeholder_001", "c", false)
	if out.Status != OutcomeOfferAutoSuggest || out.Attempts != 3 {
		t.Fatalf("declined retry = %+v", out)
	}
	p := s.Placeholders[0]
	if p.Attempts > e.Config().MaxRetries+e.DeclinedOffers(p) {
		t.Fatalf("attempts %d exceed bound with %d declined offers", p.Attempts, e.DeclinedOffers(p))
	}
	s, out = submit(t, e, s, "placeholder_001", "$1,000", false)
	if out.Status != OutcomeAccepted || out.NormalizedValue != "1000.00" || !out.Complete {
		t.Fatalf("manual success after offer = %+v", out)
	}
	if s.Meta.Status != fill.SessionComplete || s.Meta.CompletedAt == nil {
		t.Fatalf("session not marked complete: %+v", s.Meta)
	}
}

func TestConsentWithValidManualAnswerAccepts(t *testing.T) {
	sugg := &fakeSuggester{value: "2025-01-01"}
	e := newTestEngine(nil, sugg)
	s := newTestSession(fill.TypeDate)
	s, _ = submit(t, e, s, "placeholder_001", "x", false)
	s, _ = submit(t, e, s, "placeholder_001", "y", false)
	_, out := submit(t, e, s, "placeholder_001", "2026-03-04", true)
	if out.Status != OutcomeAccepted || sugg.calls != 0 {
		t.Fatalf("valid manual answer should win over generation: %+v", out)
	}
}

func TestSuggesterFailureLeavesStateUnchanged(t *testing.T) {
	cases := []struct {
		name string
		sugg Suggester
	}{
		{"error", &fakeSuggester{err: errors.New("upstream 502")}},
		{"template text", &fakeSuggester{value: "[Effective Date]"}},
		{"too short", &fakeSuggester{value: "\"\""}},
		{"wrong type", &fakeSuggester{value: "sometime soon"}},
		{"missing", nil},
	}
	for _, tc := range cases {
		e := newTestEngine(nil, tc.sugg)
		s := newTestSession(fill.TypeDate)
		s, _ = submit(t, e, s, "placeholder_001", "x", false)
		s, _ = submit(t, e, s, "placeholder_001", "y", false)

		next, _, err := e.Submit(context.Background(), s, Submission{PlaceholderID: "placeholder_001", ConsentAutoSuggest: true})
		if !fill.IsCode(err, fill.CodeRetryable) {
			t.Fatalf("%s: err = %v, want retryable", tc.name, err)
		}
		p := next.Placeholders[0]
		if p.Status != fill.StatusPending || p.Attempts != 2 || p.ConsentAutoSuggest || next.Facts.Len() != 0 {
			t.Fatalf("%s: state changed on suggester failure: %+v", tc.name, p)
		}
	}
}

func TestSemanticOracleEscalation(t *testing.T) {
	t.Run("reject counts an attempt and uses oracle hint", func(t *testing.T) {
		sem := &fakeSemantic{verdict: Verdict{OK: false, Hint: "That is a person, not a company."}}
		e := NewEngine(Config{Escalation: EscalationPolicy{Mode: EscalateAmbiguous}}, nil, sem, nil, nil)
		s := newTestSession(fill.TypeLegalName)
		_, out := submit(t, e, s, "placeholder_001", "John Smith", false)
		if out.Status != OutcomeRejected || out.Attempts != 1 || out.Hint != "That is a person, not a company." {
			t.Fatalf("outcome = %+v", out)
		}
	})
	t.Run("accept uses oracle normalization when locally valid", func(t *testing.T) {
		sem := &fakeSemantic{verdict: Verdict{OK: true, Normalized: "Acme Robotics, Inc."}}
		e := NewEngine(Config{Escalation: EscalationPolicy{Mode: EscalateAmbiguous}}, nil, sem, nil, nil)
		s := newTestSession(fill.TypeLegalName)
		_, out := submit(t, e, s, "placeholder_001", "acme robotics inc", false)
		if out.Status != OutcomeAccepted || out.NormalizedValue != "Acme Robotics, Inc." {
			t.Fatalf("outcome = %+v", out)
		}
	})
	t.Run("timeout falls back to local verdict without counting", func(t *testing.T) {
		sem := &fakeSemantic{verdict: Verdict{OK: false}, delay: time.Second}
		e := NewEngine(Config{Escalation: EscalationPolicy{Mode: EscalateAlways}, OracleTimeout: 10 * time.Millisecond}, nil, sem, nil, nil)
		s := newTestSession(fill.TypeDate)
		_, out := submit(t, e, s, "placeholder_001", "05/15/2026", false)
		if out.Status != OutcomeAccepted || out.NormalizedValue != "2026-05-15" || out.Attempts != 0 {
			t.Fatalf("outcome = %+v", out)
		}
		if len(out.Events) == 0 || out.Events[0].Action != fill.ActionOracleInconclusive {
			t.Fatalf("expected an inconclusive event, got %+v", out.Events)
		}
	})
	t.Run("never policy skips the oracle", func(t *testing.T) {
		sem := &fakeSemantic{verdict: Verdict{OK: false}}
		e := NewEngine(Config{Escalation: EscalationPolicy{Mode: EscalateNever}}, nil, sem, nil, nil)
		_, out := submit(t, e, newTestSession(fill.TypeLegalName), "placeholder_001", "Acme", false)
		if out.Status != OutcomeAccepted || sem.calls != 0 {
			t.Fatalf("outcome = %+v calls=%d", out, sem.calls)
		}
	})
	t.Run("types policy escalates only listed types", func(t *testing.T) {
		sem := &fakeSemantic{verdict: Verdict{OK: true}}
		policy, err := ParseEscalationPolicy("types", []string{"email"})
		if err != nil {
			t.Fatalf("ParseEscalationPolicy: %v", err)
		}
		e := NewEngine(Config{Escalation: policy}, nil, sem, nil, nil)
		s := newTestSession(fill.TypeDate, fill.TypeEmail)
		s, _ = submit(t, e, s, "placeholder_001", "2026-01-01", false)
		if sem.calls != 0 {
			t.Fatalf("date escalated")
		}
		submit(t, e, s, "placeholder_002", "a@b.co", false)
		if sem.calls != 1 {
			t.Fatalf("email not escalated")
		}
	})
}

func TestSuggesterSeesFacts(t *testing.T) {
	sugg := &fakeSuggester{value: "Acme Inc."}
	e := newTestEngine(nil, sugg)
	s := newTestSession(fill.TypeDate, fill.TypeLegalName)
	s, _ = submit(t, e, s, "placeholder_001", "2026-01-01", false)
	s, _ = submit(t, e, s, "placeholder_002", "1", false)
	s, _ = submit(t, e, s, "placeholder_002", "2", false)
	_, out := submit(t, e, s, "placeholder_002", "", true)
	if out.Status != OutcomeAutoFilled || !out.Complete {
		t.Fatalf("outcome = %+v", out)
	}
	if len(sugg.facts) != 1 || sugg.facts[0].Value != "2026-01-01" {
		t.Fatalf("suggester facts = %+v", sugg.facts)
	}
}

func TestCompletionSignaledOnce(t *testing.T) {
	e := newTestEngine(nil, nil)
	s := newTestSession(fill.TypeFreeText, fill.TypeFreeText)
	s, out := submit(t, e, s, "placeholder_001", "first answer", false)
	if out.Complete {
		t.Fatalf("completed too early")
	}
	s, out = submit(t, e, s, "placeholder_002", "second answer", false)
	if !out.Complete {
		t.Fatalf("completion not signaled")
	}
	if q := e.NextQuestion(s); !q.Complete {
		t.Fatalf("NextQuestion should report completion")
	}
	if _, _, err := e.Submit(context.Background(), s, Submission{PlaceholderID: "placeholder_002", RawInput: "again"}); err == nil {
		t.Fatalf("resubmission after completion must fail")
	}
}

func TestAtMostOneActiveAndMonotonicAttempts(t *testing.T) {
	e := newTestEngine(nil, &fakeSuggester{value: "Northwind Co"})
	s := newTestSession(fill.TypeEmail, fill.TypeNumeric, fill.TypeLegalName)
	inputs := []Submission{
		{PlaceholderID: "placeholder_001", RawInput: "bad"},
		{PlaceholderID: "placeholder_001", RawInput: "ok@example.com"},
		{PlaceholderID: "placeholder_002", RawInput: "x"},
		{PlaceholderID: "placeholder_002", RawInput: "y"},
		{PlaceholderID: "placeholder_002", RawInput: "z"},
		{PlaceholderID: "placeholder_002", RawInput: "42"},
		{PlaceholderID: "placeholder_003", RawInput: "1"},
		{PlaceholderID: "placeholder_003", RawInput: "2"},
		{PlaceholderID: "placeholder_003", ConsentAutoSuggest: true},
	}
	prevAttempts := map[string]int{}
	for _, in := range inputs {
		next, _, err := e.Submit(context.Background(), s, in)
		if err != nil {
			t.Fatalf("Submit(%+v): %v", in, err)
		}
		if err := CheckInvariants(next); err != nil {
			t.Fatalf("invariants: %v", err)
		}
		active := 0
		for i, p := range next.Placeholders {
			if i == next.ActiveIndex() {
				active++
			}
			if p.Attempts < prevAttempts[p.Key] {
				t.Fatalf("attempts decreased for %s", p.Key)
			}
			if p.Attempts > e.Config().MaxRetries+e.DeclinedOffers(p) {
				t.Fatalf("attempt bound broken for %s", p.Key)
			}
			prevAttempts[p.Key] = p.Attempts
			if (p.Value != nil) != p.Status.Resolved() {
				t.Fatalf("value presence mismatch for %s", p.Key)
			}
		}
		if active > 1 {
			t.Fatalf("more than one active placeholder")
		}
		s = next
	}
	if c, err := Classify(s); err != nil || c != fill.ClassificationDraft {
		t.Fatalf("Classify = %s, %v", c, err)
	}
}

func TestCheckInvariantsDetectsDrift(t *testing.T) {
	s := newTestSession(fill.TypeFreeText, fill.TypeFreeText)
	v := "orphan"
	s.Placeholders[1].Value = &v
	s.Placeholders[1].Status = fill.StatusAccepted
	if err := CheckInvariants(s); !fill.IsCode(err, fill.CodeInvariantViolation) {
		t.Fatalf("err = %v", err)
	}
}
