package fulfillment

import "github.com/yungbote/docfill-backend/internal/domain/fill"

type Progress struct {
	Filled     int `json:"filled"`
	AutoFilled int `json:"auto_filled"`
	Pending    int `json:"pending"`
	Total      int `json:"total"`
}

// ComputeProgress is a pure read of placeholder statuses.
func ComputeProgress(s Session) Progress {
	var p Progress
	for _, ph := range s.Placeholders {
		p.Total++
		switch ph.Status {
		case fill.StatusAccepted:
			p.Filled++
		case fill.StatusAutoFilled:
			p.AutoFilled++
		default:
			p.Pending++
		}
	}
	return p
}

func (p Progress) Complete() bool { return p.Total > 0 && p.Pending == 0 }

func (p Progress) Draft() bool { return p.AutoFilled > 0 }

// Ratio is the share of resolved placeholders, in [0,1].
func (p Progress) Ratio() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Filled+p.AutoFilled) / float64(p.Total)
}

// Classify returns draft when any placeholder was auto-filled and final
// otherwise. Incomplete sessions cannot be classified.
func Classify(s Session) (fill.Classification, error) {
	if pending := s.Pending(); len(pending) > 0 {
		err := fill.NewError(fill.CodePreconditionFailed, "fulfillment.classify",
			"all placeholders must be filled before finalizing", nil)
		return "", fill.WithDetails(err, map[string]any{"pending": pending})
	}
	if len(s.Placeholders) == 0 {
		return "", fill.NewError(fill.CodePreconditionFailed, "fulfillment.classify", "session has no placeholders", nil)
	}
	if ComputeProgress(s).Draft() {
		return fill.ClassificationDraft, nil
	}
	return fill.ClassificationFinal, nil
}
