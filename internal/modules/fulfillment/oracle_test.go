package fulfillment

import (
	"context"
	"testing"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
)

func TestParseEscalationPolicy(t *testing.T) {
	cases := []struct {
		mode    string
		types   []string
		want    EscalationMode
		wantErr bool
	}{
		{"", nil, EscalateAmbiguous, false},
		{"NEVER", nil, EscalateNever, false},
		{"always", nil, EscalateAlways, false},
		{"types", []string{"email", "monetary_value"}, EscalateTypes, false},
		{"types", nil, "", true},
		{"types", []string{"phone"}, "", true},
		{"sometimes", nil, "", true},
	}
	for _, tc := range cases {
		got, err := ParseEscalationPolicy(tc.mode, tc.types)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseEscalationPolicy(%q, %v) expected error", tc.mode, tc.types)
			}
			continue
		}
		if err != nil || got.Mode != tc.want {
			t.Fatalf("ParseEscalationPolicy(%q) = %v, %v", tc.mode, got.Mode, err)
		}
	}
	p, _ := ParseEscalationPolicy("types", []string{"monetary_value"})
	if !p.Types[fill.TypeMoney] {
		t.Fatalf("alias not resolved: %v", p.Types)
	}
}

func TestShouldEscalate(t *testing.T) {
	ok := LocalResult{OK: true}
	ambiguous := LocalResult{OK: true, Ambiguous: true}
	bad := LocalResult{Hint: "nope"}
	cases := []struct {
		policy EscalationPolicy
		local  LocalResult
		want   bool
	}{
		{EscalationPolicy{Mode: EscalateAlways}, ok, true},
		{EscalationPolicy{Mode: EscalateAlways}, bad, false},
		{EscalationPolicy{Mode: EscalateNever}, ambiguous, false},
		{EscalationPolicy{Mode: EscalateAmbiguous}, ambiguous, true},
		{EscalationPolicy{Mode: EscalateAmbiguous}, ok, false},
		{EscalationPolicy{Mode: EscalateTypes, Types: map[fill.ExpectedType]bool{fill.TypeDate: true}}, ok, true},
	}
	for i, tc := range cases {
		if got := tc.policy.ShouldEscalate(fill.TypeDate, tc.local); got != tc.want {
			t.Fatalf("case %d: ShouldEscalate = %t, want %t", i, got, tc.want)
		}
	}
}

func TestStaticSuggesterValuesValidate(t *testing.T) {
	v := NewValidator()
	for _, typ := range fill.AllTypes {
		p := fill.Placeholder{Name: "Company Name", ExpectedType: typ}
		s, err := StaticSuggester{}.Suggest(context.Background(), SuggestRequest{Placeholder: p})
		if err != nil {
			t.Fatalf("Suggest(%s): %v", typ, err)
		}
		value, ok := CleanSuggestion(s.Value)
		if !ok {
			t.Fatalf("default for %s is not usable: %q", typ, s.Value)
		}
		if res := v.Validate(typ, value); !res.OK {
			t.Fatalf("default for %s fails validation: %q (%s)", typ, value, res.Hint)
		}
	}
	if got := DefaultValue(fill.Placeholder{Name: "Company Name", ExpectedType: fill.TypeLegalName}); got != "Company Inc." {
		t.Fatalf("legal name default = %q", got)
	}
}

func TestCleanSuggestion(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`  "Acme Inc."  `, "Acme Inc.", true},
		{"“Delaware”", "Delaware", true},
		{"[Company Name]", "", false},
		{"x", "", false},
		{"TBD", "", false},
	}
	for _, tc := range cases {
		got, ok := CleanSuggestion(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("CleanSuggestion(%q) = %q, %t", tc.in, got, ok)
		}
	}
}
