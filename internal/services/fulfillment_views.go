package services

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/docfill-backend/internal/domain/fill"
	"github.com/yungbote/docfill-backend/internal/modules/fulfillment"
)

// PlaceholderSeed is one intake entry, in document order.
type PlaceholderSeed struct {
	ID             string `json:"id" yaml:"id"`
	Name           string `json:"name" yaml:"name"`
	ContextExcerpt string `json:"context_excerpt" yaml:"context_excerpt"`
	// Marker is the literal template text, e.g. "[Company Name]". It anchors
	// context truncation.
	Marker string `json:"marker,omitempty" yaml:"marker,omitempty"`
	// ExpectedType overrides inference when set.
	ExpectedType string `json:"expected_type,omitempty" yaml:"expected_type,omitempty"`
}

type CreateSessionInput struct {
	Title        string            `json:"title" yaml:"title"`
	Summary      string            `json:"summary" yaml:"summary"`
	Placeholders []PlaceholderSeed `json:"placeholders" yaml:"placeholders"`
	Metadata     map[string]any    `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

type AnswerInput struct {
	RawInput           string `json:"raw_input"`
	ConsentAutoSuggest bool   `json:"consent_auto_suggest"`
}

type PlaceholderView struct {
	ID                 string                 `json:"placeholder_id"`
	Position           int                    `json:"position"`
	Name               string                 `json:"name"`
	ExpectedType       fill.ExpectedType      `json:"expected_type"`
	PriorityTier       int                    `json:"priority_tier"`
	Status             fill.PlaceholderStatus `json:"status"`
	Attempts           int                    `json:"attempts"`
	Value              *string                `json:"value,omitempty"`
	ConsentAutoSuggest bool                   `json:"consent_auto_suggest"`
	ContextExcerpt     string                 `json:"context_excerpt,omitempty"`
	Prompt             string                 `json:"prompt,omitempty"`
	Active             bool                   `json:"active"`
	OfferOpen          bool                   `json:"offer_open"`
	ResolvedAt         *time.Time             `json:"resolved_at,omitempty"`
}

type SessionView struct {
	Session  *fill.Session        `json:"session"`
	Progress fulfillment.Progress `json:"progress"`
	Active   *PlaceholderView     `json:"active,omitempty"`
}

// QuestionView is the next_question response. Complete excludes every
// other field but Progress.
type QuestionView struct {
	SessionID  uuid.UUID            `json:"session_id"`
	Complete   bool                 `json:"fulfillment_complete"`
	Question   *PlaceholderView     `json:"question,omitempty"`
	Prompt     string               `json:"prompt,omitempty"`
	Offer      string               `json:"offer,omitempty"`
	Progress   fulfillment.Progress `json:"progress"`
	Percentage int                  `json:"percentage"`
}

type FinalizeResult struct {
	Status         string               `json:"status"`
	SessionID      uuid.UUID            `json:"session_id"`
	Reference      int64                `json:"reference"`
	Classification fill.Classification  `json:"classification"`
	Values         map[string]string    `json:"values"`
	ArchiveKey     string               `json:"archive_key,omitempty"`
	Location       string               `json:"location,omitempty"`
	FinalizedAt    *time.Time           `json:"finalized_at,omitempty"`
	Progress       fulfillment.Progress `json:"progress"`
}

func (s *fulfillmentService) placeholderView(sess fulfillment.Session, p fill.Placeholder) PlaceholderView {
	active, _ := sess.Active()
	return PlaceholderView{
		ID:                 p.Key,
		Position:           p.Position,
		Name:               p.Name,
		ExpectedType:       p.ExpectedType,
		PriorityTier:       p.ExpectedType.PriorityTier(),
		Status:             p.Status,
		Attempts:           p.Attempts,
		Value:              p.Value,
		ConsentAutoSuggest: p.ConsentAutoSuggest,
		ContextExcerpt:     p.ContextExcerpt,
		Prompt:             p.PromptText,
		Active:             p.Status == fill.StatusPending && active.Key == p.Key,
		OfferOpen:          s.engine.OfferOpen(p),
		ResolvedAt:         p.ResolvedAt,
	}
}

func percentage(p fulfillment.Progress) int {
	return int(p.Ratio()*100 + 0.5)
}
