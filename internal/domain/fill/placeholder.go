package fill

import (
	"time"

	"github.com/google/uuid"
)

// Placeholder is one marker of the source document. ExpectedType is fixed at
// creation; only Status, Attempts, Value and ConsentAutoSuggest move.
type Placeholder struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_placeholder_session_key,priority:1;index" json:"session_id"`
	Key       string    `gorm:"column:placeholder_key;type:text;not null;uniqueIndex:idx_placeholder_session_key,priority:2" json:"placeholder_id"`
	Position  int       `gorm:"column:position;not null" json:"position"`

	Name           string       `gorm:"column:name;type:text;not null" json:"name"`
	ContextExcerpt string       `gorm:"column:context_excerpt;type:text" json:"context_excerpt,omitempty"`
	ExpectedType   ExpectedType `gorm:"column:expected_type;type:text;not null" json:"expected_type"`

	Status             PlaceholderStatus `gorm:"column:status;type:text;not null;index" json:"status"`
	Attempts           int               `gorm:"column:attempts;not null" json:"attempts"`
	Value              *string           `gorm:"column:value;type:text" json:"value,omitempty"`
	ConsentAutoSuggest bool              `gorm:"column:consent_auto_suggest;not null" json:"consent_auto_suggest"`

	PromptText string `gorm:"column:prompt_text;type:text" json:"prompt,omitempty"`
	PromptHash string `gorm:"column:prompt_hash;type:text" json:"-"`

	ResolvedAt *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"not null" json:"updated_at"`
}

func (Placeholder) TableName() string { return "fill_placeholder" }

func (p Placeholder) ValueOrEmpty() string {
	if p.Value == nil {
		return ""
	}
	return *p.Value
}
