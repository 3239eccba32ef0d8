package fulfillment

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
)

// LocalResult is the verdict of the offline validator. Ambiguous marks an
// accepted answer whose type the rules cannot really check (names, free
// text), which the escalation policy may send to the semantic oracle.
type LocalResult struct {
	OK         bool   `json:"ok"`
	Normalized string `json:"normalized,omitempty"`
	Hint       string `json:"hint,omitempty"`
	Empty      bool   `json:"-"`
	Ambiguous  bool   `json:"-"`
}

const EmptyInputHint = "Input cannot be empty."

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	templateWords = map[string]bool{
		"TODO": true, "TBD": true, "TBA": true, "XXX": true, "FIXME": true,
		"CHANGEME": true, "PLACEHOLDER": true, "YOUR NAME": true, "NAME HERE": true,
	}
	templatePrefixes = []string{"ENTER ", "INSERT ", "TODO ", "TODO:", "TBD ", "XXX"}
	bracketed        = regexp.MustCompile(`^\s*(\[.*\]|\{.*\}|<.*>)\s*$`)
	fillerOnly       = regexp.MustCompile(`^[\s_.\-*]+$`)
)

var minTextLength = map[fill.ExpectedType]int{
	fill.TypeLegalName:    2,
	fill.TypeJurisdiction: 2,
	fill.TypeAddress:      5,
	fill.TypeFreeText:     2,
}

// Validator applies deterministic per-type rules. The zero value is ready to
// use and it holds no state, so one instance serves every session.
type Validator struct{}

func NewValidator() *Validator { return &Validator{} }

func (v *Validator) Validate(t fill.ExpectedType, raw string) LocalResult {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return LocalResult{Empty: true, Hint: EmptyInputHint + " Please enter the " + t.Label() + "."}
	}
	if LooksLikeTemplateText(s) {
		return LocalResult{Hint: fmt.Sprintf("That looks like placeholder text rather than an answer. Please enter the actual %s.", t.Label())}
	}

	switch t {
	case fill.TypeDate:
		if norm, ok := ParseDate(s); ok {
			return LocalResult{OK: true, Normalized: norm}
		}
		return LocalResult{Hint: "Please enter a valid date, for example 05/15/2026 (MM/DD/YYYY), 2026-05-15 (YYYY-MM-DD) or May 15, 2026."}
	case fill.TypeMoney:
		norm, err := ParseMoney(s)
		switch err {
		case nil:
			return LocalResult{OK: true, Normalized: norm}
		case errNegativeAmount:
			return LocalResult{Hint: "Amounts cannot be negative. Please enter a dollar amount such as $50,000 or 1.5m."}
		case errSubCent:
			return LocalResult{Hint: "Please enter the amount with at most two decimal places, for example $1,000.50."}
		default:
			return LocalResult{Hint: "Please enter a dollar amount such as $50,000, 50000.00 or 1.5m."}
		}
	case fill.TypeEmail:
		if emailPattern.MatchString(s) {
			return LocalResult{OK: true, Normalized: strings.ToLower(s)}
		}
		return LocalResult{Hint: "Please enter an email address such as name@example.com."}
	case fill.TypeNumeric:
		norm, err := ParseNumber(s)
		if err == nil {
			return LocalResult{OK: true, Normalized: norm}
		}
		if err == errNegativeAmount {
			return LocalResult{Hint: "Please enter a number that is zero or greater."}
		}
		return LocalResult{Hint: "Please enter a number such as 1,000,000 or 12.5. Use commas only between groups of three digits."}
	default:
		return validateText(t, s)
	}
}

func validateText(t fill.ExpectedType, s string) LocalResult {
	minLen := minTextLength[t]
	if minLen == 0 {
		minLen = 2
	}
	if t == fill.TypeFreeText {
		if utf8.RuneCountInString(s) < minLen || !strings.ContainsFunc(s, isLetterOrDigit) {
			return LocalResult{Hint: fmt.Sprintf("Please enter the %s using at least %d characters, including letters or digits.", t.Label(), minLen)}
		}
		return LocalResult{OK: true, Normalized: s, Ambiguous: true}
	}
	if utf8.RuneCountInString(s) < minLen || !strings.ContainsFunc(s, unicode.IsLetter) {
		return LocalResult{Hint: fmt.Sprintf("Please enter the %s using at least %d characters, including letters.", t.Label(), minLen)}
	}
	norm := s
	if t == fill.TypeJurisdiction && s == strings.ToLower(s) {
		norm = cases.Title(language.English).String(s)
	}
	return LocalResult{OK: true, Normalized: norm, Ambiguous: true}
}

func isLetterOrDigit(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }

// LooksLikeTemplateText reports whether s is an unfilled marker or filler
// such as "[Company Name]", "TBD" or "____".
func LooksLikeTemplateText(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}
	if bracketed.MatchString(trimmed) || fillerOnly.MatchString(trimmed) {
		return true
	}
	if strings.Contains(trimmed, "___") || strings.Contains(trimmed, "{{") {
		return true
	}
	upper := strings.ToUpper(trimmed)
	if templateWords[upper] {
		return true
	}
	for _, prefix := range templatePrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}
