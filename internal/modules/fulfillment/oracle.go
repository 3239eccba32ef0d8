package fulfillment

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
)

// Verdict is a semantic oracle's answer for one candidate value.
type Verdict struct {
	OK         bool   `json:"ok"`
	Normalized string `json:"normalized,omitempty"`
	Hint       string `json:"hint,omitempty"`
	Model      string `json:"model,omitempty"`
}

type SemanticRequest struct {
	Placeholder     fill.Placeholder
	RawInput        string
	LocalNormalized string
	Facts           []KnownFact
	Summary         string
}

// SemanticOracle judges an answer against the document context. Errors mean
// the verdict is inconclusive.
type SemanticOracle interface {
	ValidateSemantic(ctx context.Context, req SemanticRequest) (Verdict, error)
}

type Suggestion struct {
	Value string `json:"value"`
	Model string `json:"model,omitempty"`
}

type SuggestRequest struct {
	Placeholder fill.Placeholder
	Facts       []KnownFact
	Summary     string
	// PriorAttempt is rejected text sent along with consent, if any. It may
	// still carry the intended value.
	PriorAttempt string
}

// Suggester proposes a best-guess value. It is only called after the user
// consented for the placeholder in question.
type Suggester interface {
	Suggest(ctx context.Context, req SuggestRequest) (Suggestion, error)
}

type EscalationMode string

const (
	EscalateNever     EscalationMode = "never"
	EscalateAlways    EscalationMode = "always"
	EscalateAmbiguous EscalationMode = "ambiguous"
	EscalateTypes     EscalationMode = "types"
)

// EscalationPolicy decides which locally valid answers also go to the
// semantic oracle before acceptance.
type EscalationPolicy struct {
	Mode  EscalationMode
	Types map[fill.ExpectedType]bool
}

func ParseEscalationPolicy(mode string, types []string) (EscalationPolicy, error) {
	p := EscalationPolicy{Mode: EscalationMode(strings.ToLower(strings.TrimSpace(mode)))}
	switch p.Mode {
	case "":
		p.Mode = EscalateAmbiguous
	case EscalateNever, EscalateAlways, EscalateAmbiguous:
	case EscalateTypes:
		p.Types = map[fill.ExpectedType]bool{}
		for _, raw := range types {
			t, ok := fill.ParseExpectedType(raw)
			if !ok {
				return EscalationPolicy{}, fmt.Errorf("unknown expected type %q in escalation policy", raw)
			}
			p.Types[t] = true
		}
		if len(p.Types) == 0 {
			return EscalationPolicy{}, fmt.Errorf("escalation policy %q needs at least one type", p.Mode)
		}
	default:
		return EscalationPolicy{}, fmt.Errorf("unknown escalation policy %q", mode)
	}
	return p, nil
}

func (p EscalationPolicy) ShouldEscalate(t fill.ExpectedType, local LocalResult) bool {
	if !local.OK {
		return false
	}
	switch p.Mode {
	case EscalateAlways:
		return true
	case EscalateAmbiguous:
		return local.Ambiguous
	case EscalateTypes:
		return p.Types[t]
	default:
		return false
	}
}

// StaticSuggester proposes a fixed default per type. It serves local runs
// without an LLM so the consent path still completes.
type StaticSuggester struct{}

func (StaticSuggester) Suggest(_ context.Context, req SuggestRequest) (Suggestion, error) {
	return Suggestion{Value: DefaultValue(req.Placeholder), Model: "static-defaults"}, nil
}

// DefaultValue is a neutral stand-in for a placeholder of the given type.
func DefaultValue(p fill.Placeholder) string {
	switch p.ExpectedType {
	case fill.TypeDate:
		return "2025-01-01"
	case fill.TypeMoney:
		return "10000.00"
	case fill.TypeEmail:
		return "contact@example.com"
	case fill.TypeJurisdiction:
		return "Delaware"
	case fill.TypeAddress:
		return "123 Main Street, City, State 12345"
	case fill.TypeNumeric:
		return "1000"
	case fill.TypeLegalName:
		name := strings.TrimSpace(p.Name)
		for _, suffix := range []string{" Name", " name"} {
			name = strings.TrimSuffix(name, suffix)
		}
		if name == "" {
			name = "Example"
		}
		return name + " Inc."
	default:
		return "To be determined"
	}
}

// CleanSuggestion trims quotes and whitespace from generated text and reports
// whether what remains is usable as a value.
func CleanSuggestion(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'`“”‘’")
	s = strings.TrimSpace(s)
	if len([]rune(s)) < 2 || LooksLikeTemplateText(s) {
		return "", false
	}
	return s, true
}
