package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/docfill-backend/internal/modules/fulfillment"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

const questionInstructions = systemPreamble + `
Write one short, friendly question asking the user for this placeholder's value.
Mention the expected format when it matters. Reply with the question only.`

// QuestionWriter phrases prompts with a model. Results are cached by prompt
// hash, concurrent requests for the same hash share one call, and any failure
// falls back to the template question.
type QuestionWriter struct {
	model Model
	cache *expirable.LRU[string, string]
	group singleflight.Group
	log   *logger.Logger
}

func NewQuestionWriter(m Model, size int, ttl time.Duration, baseLog *logger.Logger) *QuestionWriter {
	if size <= 0 {
		size = 512
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &QuestionWriter{
		model: m,
		cache: expirable.NewLRU[string, string](size, nil, ttl),
		log:   baseLog.With("component", "QuestionWriter"),
	}
}

func (w *QuestionWriter) WriteQuestion(ctx context.Context, req fulfillment.QuestionRequest) (string, error) {
	key := fulfillment.PromptHash(req.Summary, req.Placeholder)
	if q, ok := w.cache.Get(key); ok {
		return q, nil
	}
	v, err, _ := w.group.Do(key, func() (any, error) {
		user := describePlaceholder(req.Placeholder, req.Summary, req.Facts)
		text, err := w.model.GenerateText(ctx, questionInstructions, user)
		if err != nil {
			return "", err
		}
		q := strings.Trim(strings.TrimSpace(text), "\"")
		if q == "" || fulfillment.LooksLikeTemplateText(q) {
			return "", errEmptyQuestion
		}
		w.cache.Add(key, q)
		return q, nil
	})
	if err != nil {
		w.log.Warn("question generation failed, using template", "placeholder_id", req.Placeholder.Key, "error", err)
		return fulfillment.TemplateQuestion(req.Placeholder), nil
	}
	return v.(string), nil
}

var errEmptyQuestion = errors.New("model returned no usable question")
