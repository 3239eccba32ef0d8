package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/docfill-backend/internal/modules/fulfillment"
)

var verdictSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"validation":      map[string]any{"type": "string", "enum": []string{"VALID", "INVALID"}},
		"extracted_value": map[string]any{"type": "string"},
		"hint":            map[string]any{"type": "string"},
	},
	"required":             []string{"validation", "extracted_value", "hint"},
	"additionalProperties": false,
}

const oracleInstructions = systemPreamble + `
Judge whether the user's answer is a sensible value for the placeholder given the document context.
Be lenient with phrasing: extract the exact value the user meant without embellishment.
Reply VALID with extracted_value set to that value, or INVALID with a one-sentence hint telling the user what is expected.`

// SemanticOracle asks a model whether an answer fits the placeholder's context.
type SemanticOracle struct {
	model Model
}

func NewSemanticOracle(m Model) *SemanticOracle { return &SemanticOracle{model: m} }

func (o *SemanticOracle) ValidateSemantic(ctx context.Context, req fulfillment.SemanticRequest) (fulfillment.Verdict, error) {
	user := describePlaceholder(req.Placeholder, req.Summary, req.Facts) +
		fmt.Sprintf("\nUser answer: %q\n", req.RawInput)
	if req.LocalNormalized != "" {
		user += fmt.Sprintf("Locally normalized value: %q\n", req.LocalNormalized)
	}
	obj, err := o.model.GenerateJSON(ctx, oracleInstructions, user, "placeholder_validation", verdictSchema)
	if err != nil {
		return fulfillment.Verdict{}, err
	}
	switch strings.ToUpper(stringField(obj, "validation")) {
	case "VALID":
		return fulfillment.Verdict{OK: true, Normalized: stringField(obj, "extracted_value"), Model: o.model.Model()}, nil
	case "INVALID":
		return fulfillment.Verdict{OK: false, Hint: stringField(obj, "hint"), Model: o.model.Model()}, nil
	default:
		return fulfillment.Verdict{}, fmt.Errorf("semantic oracle: unexpected validation %v", obj["validation"])
	}
}
