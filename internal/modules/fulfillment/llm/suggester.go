package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/docfill-backend/internal/modules/fulfillment"
)

const suggestInstructions = systemPreamble + `
The user could not answer the question for this placeholder and agreed to a best-guess value.
If their previous attempt names a specific value, even hedged or misspelled, extract and use it.
Otherwise use the document context. The other filled facts are for reference only; do not copy them unless nothing else helps.
Reply with ONLY the value, no explanation. Dates as YYYY-MM-DD, money as a plain number, jurisdictions as a US state name.`

// Suggester proposes a best-guess value for a placeholder.
type Suggester struct {
	model Model
}

func NewSuggester(m Model) *Suggester { return &Suggester{model: m} }

func (s *Suggester) Suggest(ctx context.Context, req fulfillment.SuggestRequest) (fulfillment.Suggestion, error) {
	var b strings.Builder
	if q := strings.TrimSpace(req.Placeholder.PromptText); q != "" {
		fmt.Fprintf(&b, "Question asked: %s\n", q)
	}
	if req.PriorAttempt != "" {
		fmt.Fprintf(&b, "User's previous attempt: %q\n", req.PriorAttempt)
	}
	b.WriteString("\n")
	b.WriteString(describePlaceholder(req.Placeholder, req.Summary, req.Facts))
	b.WriteString("\nSuggested value:")

	text, err := s.model.GenerateText(ctx, suggestInstructions, b.String())
	if err != nil {
		return fulfillment.Suggestion{}, err
	}
	return fulfillment.Suggestion{Value: strings.TrimSpace(text), Model: s.model.Model()}, nil
}
