package fulfillment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
)

type QuestionRequest struct {
	Placeholder fill.Placeholder
	Facts       []KnownFact
	Summary     string
}

// QuestionWriter turns a placeholder into the prompt shown to the user.
type QuestionWriter interface {
	WriteQuestion(ctx context.Context, req QuestionRequest) (string, error)
}

// TemplateQuestions phrases prompts from a fixed template per type.
type TemplateQuestions struct{}

func (TemplateQuestions) WriteQuestion(_ context.Context, req QuestionRequest) (string, error) {
	return TemplateQuestion(req.Placeholder), nil
}

func TemplateQuestion(p fill.Placeholder) string {
	name := strings.TrimSpace(p.Name)
	switch p.ExpectedType {
	case fill.TypeDate:
		return fmt.Sprintf("What is the %s? Any common format works, for example 05/15/2026.", name)
	case fill.TypeMoney:
		return fmt.Sprintf("What is the %s? You can write it as $50,000 or 50k.", name)
	case fill.TypeEmail:
		return fmt.Sprintf("What email address should be used for %s?", name)
	case fill.TypeLegalName:
		return fmt.Sprintf("What is the full legal name for %s?", name)
	case fill.TypeAddress:
		return fmt.Sprintf("What is the %s? Please include the street and city.", name)
	case fill.TypeJurisdiction:
		return fmt.Sprintf("Which state or jurisdiction applies for %s?", name)
	case fill.TypeNumeric:
		return fmt.Sprintf("What is the %s? Please enter a number.", name)
	default:
		return fmt.Sprintf("Please provide the %s.", name)
	}
}

// PromptHash keys generated prompts by everything that shapes them, so a
// stored prompt is reused until its inputs change.
func PromptHash(summary string, p fill.Placeholder) string {
	h := sha256.New()
	for _, part := range []string{summary, p.Name, string(p.ExpectedType), p.ContextExcerpt} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TruncateContext keeps at most n words on each side of the marker text.
// When the marker is not found the excerpt is cut to 2n words.
func TruncateContext(excerpt, marker string, n int) string {
	if n <= 0 {
		return strings.TrimSpace(excerpt)
	}
	if marker != "" {
		if i := strings.Index(excerpt, marker); i >= 0 {
			before := strings.Fields(excerpt[:i])
			after := strings.Fields(excerpt[i+len(marker):])
			if len(before) > n {
				before = before[len(before)-n:]
			}
			if len(after) > n {
				after = after[:n]
			}
			parts := append(append(before, marker), after...)
			return strings.Join(parts, " ")
		}
	}
	words := strings.Fields(excerpt)
	if len(words) > 2*n {
		words = words[:2*n]
	}
	return strings.Join(words, " ")
}
