package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/yungbote/docfill-backend/internal/platform/httpx"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

var ErrEmptyResponse = errors.New("gemini: empty response")

type Config struct {
	APIKey     string
	Model      string
	MaxRetries int
}

// contentGenerator is the part of genai.Models the client calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client is a thin wrapper around the genai SDK exposing the same calls as
// the OpenAI client.
type Client struct {
	gen        contentGenerator
	model      string
	maxRetries int
	backoff    time.Duration
	log        *logger.Logger
}

func NewClient(ctx context.Context, cfg Config, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if log == nil {
		log = logger.Nop()
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newClient(cli.Models, cfg, log), nil
}

func newClient(gen contentGenerator, cfg Config, log *logger.Logger) *Client {
	return &Client{
		gen:        gen,
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		backoff:    300 * time.Millisecond,
		log:        log.With("client", "GeminiClient"),
	}
}

func (g *Client) Model() string { return g.model }

// GenerateJSON requests application/json output. The schema is appended to the
// system instruction; Gemini enforces the MIME type, not the schema.
func (g *Client) GenerateJSON(ctx context.Context, system string, user string, schemaName string, schema map[string]any) (map[string]any, error) {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema %s: %w", schemaName, err)
	}
	instr := system + "\n\nRespond with a single JSON object matching this schema (" + schemaName + "):\n" + string(schemaJSON)
	text, err := g.generate(ctx, instr, user, "application/json")
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse model JSON: %w; text=%s", err, text)
	}
	return obj, nil
}

func (g *Client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	return g.generate(ctx, system, user, "")
}

func (g *Client) generate(ctx context.Context, system, user, mime string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: system}}},
		ResponseMIMEType:  mime,
	}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: user}}}}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		resp, err := g.gen.GenerateContent(ctx, g.model, contents, cfg)
		if err == nil {
			if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
				lastErr = ErrEmptyResponse
			} else {
				var sb strings.Builder
				for _, p := range resp.Candidates[0].Content.Parts {
					sb.WriteString(p.Text)
				}
				if text := strings.TrimSpace(sb.String()); text != "" {
					return text, nil
				}
				lastErr = ErrEmptyResponse
			}
		} else {
			lastErr = err
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
		}
		if attempt == g.maxRetries {
			break
		}
		sleepFor := httpx.JitterSleep(g.backoff * time.Duration(1<<attempt))
		g.log.Warn("Gemini request retrying", "attempt", attempt+1, "sleep", sleepFor.String(), "error", lastErr)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return "", err
		}
	}
	return "", lastErr
}
