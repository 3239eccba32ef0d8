package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVsRedactsSecretsAndHashesAnswers(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"api_key", "sk-live-123",
		"raw_input", "Acme Corp",
		"placeholder_id", "placeholder_001",
	})
	if len(out) != 6 {
		t.Fatalf("expected 6 entries, got %d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("api_key not redacted: %v", out[1])
	}
	hashed, _ := out[3].(string)
	if !strings.HasPrefix(hashed, "hash:") || strings.Contains(hashed, "Acme") {
		t.Fatalf("raw_input not hashed: %q", hashed)
	}
	if out[5] != "placeholder_001" {
		t.Fatalf("plain key changed: %v", out[5])
	}
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"k", "v", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Fatalf("unexpected: %#v", out)
	}
}

func TestHashValueStable(t *testing.T) {
	a := hashValue("05/15/2026")
	b := hashValue("05/15/2026")
	if a != b {
		t.Fatalf("hash not stable: %q vs %q", a, b)
	}
	if hashValue("") != "" {
		t.Fatalf("empty value should hash to empty")
	}
}
