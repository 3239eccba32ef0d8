package llm

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
	"github.com/yungbote/docfill-backend/internal/modules/fulfillment"
)

// Model is the provider-neutral text model the oracles call. Both the OpenAI
// and the Gemini clients satisfy it.
type Model interface {
	GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error)
	GenerateText(ctx context.Context, system string, user string) (string, error)
	Model() string
}

type limitedModel struct {
	inner   Model
	limiter *rate.Limiter
}

// RateLimited throttles calls to m client-side. rps <= 0 disables the limit.
func RateLimited(m Model, rps float64, burst int) Model {
	if m == nil || rps <= 0 {
		return m
	}
	if burst <= 0 {
		burst = 1
	}
	return &limitedModel{inner: m, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (l *limitedModel) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("llm rate limit: %w", err)
	}
	return l.inner.GenerateJSON(ctx, system, user, schemaName, schema)
}

func (l *limitedModel) GenerateText(ctx context.Context, system string, user string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm rate limit: %w", err)
	}
	return l.inner.GenerateText(ctx, system, user)
}

func (l *limitedModel) Model() string { return l.inner.Model() }

const systemPreamble = "You assist a user filling the placeholders of a legal document template. " +
	"Be precise and never invent bracketed template text such as [Company Name]."

func describePlaceholder(p fill.Placeholder, summary string, facts []fulfillment.KnownFact) string {
	var b strings.Builder
	if s := strings.TrimSpace(summary); s != "" {
		fmt.Fprintf(&b, "Document summary:\n%s\n\n", s)
	}
	fmt.Fprintf(&b, "Facts already filled (other fields, reference only):\n%s\n\n", fulfillment.FormatFacts(facts))
	fmt.Fprintf(&b, "Placeholder: %s\nExpected type: %s\n", p.Name, p.ExpectedType)
	if c := strings.TrimSpace(p.ContextExcerpt); c != "" {
		fmt.Fprintf(&b, "Context from document:\n%s\n", c)
	}
	return b.String()
}

func stringField(obj map[string]any, key string) string {
	if obj == nil {
		return ""
	}
	s, _ := obj[key].(string)
	return strings.TrimSpace(s)
}
