package fill

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Session owns the ordered placeholders and the facts log of one document.
type Session struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Reference int64         `gorm:"column:reference;not null;uniqueIndex" json:"reference"`
	Title     string        `gorm:"column:title;type:text" json:"title,omitempty"`
	Summary   string        `gorm:"column:summary;type:text" json:"summary,omitempty"`
	Status    SessionStatus `gorm:"column:status;type:text;not null;index" json:"status"`

	// Set by finalize.
	Classification Classification `gorm:"column:classification;type:text" json:"classification,omitempty"`
	ArchiveKey     string         `gorm:"column:archive_key;type:text" json:"archive_key,omitempty"`

	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	FinalizedAt *time.Time `gorm:"column:finalized_at" json:"finalized_at,omitempty"`

	Metadata datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Session) TableName() string { return "fill_session" }

// Counter is a named monotonic sequence, used for session reference numbers.
type Counter struct {
	Name      string    `gorm:"column:name;type:text;primaryKey" json:"name"`
	Value     int64     `gorm:"column:value;not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Counter) TableName() string { return "fill_counter" }
