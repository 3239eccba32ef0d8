package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

func outputText(text string) string {
	b, _ := json.Marshal(map[string]any{
		"output": []any{map[string]any{
			"type": "message",
			"role": "assistant",
			"content": []any{map[string]any{
				"type": "output_text",
				"text": text,
			}},
		}},
	})
	return string(b)
}

func TestGenerateJSONRetriesAndDropsTemperature(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch n {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("busy"))
		case 2:
			if _, ok := body["temperature"]; !ok {
				t.Errorf("temperature should be sent before the model rejects it")
			}
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"Unsupported parameter: 'temperature'"}}`))
		default:
			if _, ok := body["temperature"]; ok {
				t.Errorf("temperature should be dropped after rejection")
			}
			_, _ = w.Write([]byte(outputText(`{"validation":"VALID"}`)))
		}
	}))
	defer srv.Close()

	temp := 0.2
	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL, MaxRetries: 2, Temperature: &temp}, logger.Nop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	obj, err := c.GenerateJSON(context.Background(), "sys", "user", "v", map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if obj["validation"] != "VALID" || calls.Load() != 3 {
		t.Fatalf("obj=%v calls=%d", obj, calls.Load())
	}
}

func TestGenerateTextClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()
	c, _ := NewClient(Config{APIKey: "k", BaseURL: srv.URL, MaxRetries: 3}, nil)
	if _, err := c.GenerateText(context.Background(), "s", "u"); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d", calls.Load())
	}
}

func TestWithModel(t *testing.T) {
	c, _ := NewClient(Config{APIKey: "k"}, nil)
	if WithModel(c, "gpt-x").Model() != "gpt-x" || c.Model() != "gpt-4o-mini" {
		t.Fatalf("WithModel should copy")
	}
	if _, err := NewClient(Config{}, nil); err == nil {
		t.Fatalf("missing key should fail")
	}
}
