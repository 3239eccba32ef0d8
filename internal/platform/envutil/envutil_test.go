package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Duration
	}{
		{"", 3 * time.Second},
		{"1500ms", 1500 * time.Millisecond},
		{"12", 12 * time.Second},
		{"nonsense", 3 * time.Second},
	}
	for _, tc := range cases {
		t.Setenv("DOCFILL_TEST_DURATION", tc.raw)
		if got := Duration("DOCFILL_TEST_DURATION", 3*time.Second); got != tc.want {
			t.Fatalf("Duration(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestBoolAndCSV(t *testing.T) {
	t.Setenv("DOCFILL_TEST_BOOL", "yes")
	if !Bool("DOCFILL_TEST_BOOL", false) {
		t.Fatalf("expected true")
	}
	t.Setenv("DOCFILL_TEST_BOOL", "maybe")
	if Bool("DOCFILL_TEST_BOOL", false) {
		t.Fatalf("unparsable value should keep default")
	}
	t.Setenv("DOCFILL_TEST_CSV", " date, ,money ,")
	got := CSV("DOCFILL_TEST_CSV")
	if len(got) != 2 || got[0] != "date" || got[1] != "money" {
		t.Fatalf("CSV = %#v", got)
	}
}

func TestGetIntFallsBack(t *testing.T) {
	t.Setenv("DOCFILL_TEST_INT", "x")
	if got := GetInt("DOCFILL_TEST_INT", 2, nil); got != 2 {
		t.Fatalf("GetInt = %d", got)
	}
	t.Setenv("DOCFILL_TEST_INT", " 5 ")
	if got := GetInt("DOCFILL_TEST_INT", 2, nil); got != 5 {
		t.Fatalf("GetInt = %d", got)
	}
}
