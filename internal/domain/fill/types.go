package fill

import "strings"

// ExpectedType is the semantic category a placeholder's answer must satisfy.
type ExpectedType string

const (
	TypeLegalName    ExpectedType = "legal_name"
	TypeDate         ExpectedType = "date"
	TypeMoney        ExpectedType = "money"
	TypeEmail        ExpectedType = "email"
	TypeAddress      ExpectedType = "address"
	TypeJurisdiction ExpectedType = "jurisdiction"
	TypeNumeric      ExpectedType = "numeric"
	TypeFreeText     ExpectedType = "free_text"
)

var AllTypes = []ExpectedType{
	TypeLegalName,
	TypeDate,
	TypeMoney,
	TypeEmail,
	TypeAddress,
	TypeJurisdiction,
	TypeNumeric,
	TypeFreeText,
}

func ParseExpectedType(raw string) (ExpectedType, bool) {
	t := ExpectedType(strings.ToLower(strings.TrimSpace(raw)))
	switch t {
	case "monetary_value":
		return TypeMoney, true
	case "text":
		return TypeFreeText, true
	}
	for _, known := range AllTypes {
		if t == known {
			return t, true
		}
	}
	return "", false
}

// PriorityTier ranks how critical a field usually is for a legal document:
// 0 parties, 1 dates and amounts, 2 everything else.
func (t ExpectedType) PriorityTier() int {
	switch t {
	case TypeLegalName:
		return 0
	case TypeDate, TypeMoney:
		return 1
	default:
		return 2
	}
}

// Label is the human phrase used in prompts and hints.
func (t ExpectedType) Label() string {
	switch t {
	case TypeLegalName:
		return "legal name"
	case TypeDate:
		return "date"
	case TypeMoney:
		return "dollar amount"
	case TypeEmail:
		return "email address"
	case TypeAddress:
		return "mailing address"
	case TypeJurisdiction:
		return "state or jurisdiction"
	case TypeNumeric:
		return "number"
	default:
		return "value"
	}
}

type PlaceholderStatus string

const (
	StatusPending    PlaceholderStatus = "pending"
	StatusAccepted   PlaceholderStatus = "accepted"
	StatusAutoFilled PlaceholderStatus = "auto_filled"
)

func (s PlaceholderStatus) Resolved() bool {
	return s == StatusAccepted || s == StatusAutoFilled
}

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionComplete  SessionStatus = "complete"
	SessionFinalized SessionStatus = "finalized"
)

type Classification string

const (
	ClassificationFinal Classification = "final"
	ClassificationDraft Classification = "draft"
)

type FactSource string

const (
	FactFromUser       FactSource = "accepted"
	FactFromSuggestion FactSource = "auto_filled"
)
