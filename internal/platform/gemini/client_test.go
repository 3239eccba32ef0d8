package gemini

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

type step struct {
	resp *genai.GenerateContentResponse
	err  error
}

type scriptedModels struct {
	steps []step
	calls int
	mime  []string
}

func (s *scriptedModels) GenerateContent(_ context.Context, _ string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.mime = append(s.mime, cfg.ResponseMIMEType)
	st := s.steps[min(s.calls, len(s.steps)-1)]
	s.calls++
	return st.resp, st.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func newTestClient(gen contentGenerator, retries int) *Client {
	c := newClient(gen, Config{Model: "gemini-test", MaxRetries: retries}, logger.Nop())
	c.backoff = time.Millisecond
	return c
}

func TestGenerateRetriesEmptyAndFailedResponses(t *testing.T) {
	gen := &scriptedModels{steps: []step{
		{err: errors.New("unavailable")},
		{resp: &genai.GenerateContentResponse{}},
		{resp: textResponse("  ")},
		{resp: textResponse(`{"validation":`, `"VALID"}`)},
	}}
	c := newTestClient(gen, 3)
	obj, err := c.GenerateJSON(context.Background(), "sys", "user", "verdict", map[string]any{"type": "object"})
	if err != nil {
		t.Fatalf("GenerateJSON: %v", err)
	}
	if obj["validation"] != "VALID" {
		t.Fatalf("obj = %v", obj)
	}
	if gen.calls != 4 {
		t.Fatalf("calls = %d, want 4", gen.calls)
	}
	for _, m := range gen.mime {
		if m != "application/json" {
			t.Fatalf("mime = %q, want application/json", m)
		}
	}
}

func TestGenerateGivesUpAfterRetries(t *testing.T) {
	gen := &scriptedModels{steps: []step{{resp: &genai.GenerateContentResponse{}}}}
	c := newTestClient(gen, 1)
	if _, err := c.GenerateText(context.Background(), "sys", "user"); !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("err = %v, want ErrEmptyResponse", err)
	}
	if gen.calls != 2 {
		t.Fatalf("calls = %d, want 2", gen.calls)
	}
}

func TestGenerateStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := &scriptedModels{steps: []step{{err: context.Canceled}}}
	c := newTestClient(gen, 5)
	if _, err := c.GenerateText(ctx, "sys", "user"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if gen.calls != 1 {
		t.Fatalf("calls = %d, want 1", gen.calls)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), Config{}, nil); err == nil {
		t.Fatalf("expected missing key error")
	}
}
