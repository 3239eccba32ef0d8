package fill

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionSessionCreated     = "session_created"
	ActionQuestionAsked      = "question_asked"
	ActionAnswerAccepted     = "answer_accepted"
	ActionAnswerRejected     = "answer_rejected"
	ActionAutoSuggestOffered = "auto_suggest_offered"
	ActionAutoFilled         = "auto_filled"
	ActionSemanticChecked    = "semantic_checked"
	ActionOracleInconclusive = "oracle_inconclusive"
	ActionSuggestFailed      = "suggest_failed"
	ActionSessionCompleted   = "session_completed"
	ActionSessionFinalized   = "session_finalized"
)

// SessionAction is an append-only audit entry.
type SessionAction struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"session_id"`
	PlaceholderKey string         `gorm:"column:placeholder_key;type:text" json:"placeholder_id,omitempty"`
	Action         string         `gorm:"column:action;type:text;not null" json:"action"`
	Status         string         `gorm:"column:status;type:text" json:"status,omitempty"`
	Model          string         `gorm:"column:model;type:text" json:"model,omitempty"`
	LatencyMS      int64          `gorm:"column:latency_ms" json:"latency_ms,omitempty"`
	RequestID      string         `gorm:"column:request_id;type:text" json:"request_id,omitempty"`
	Detail         datatypes.JSON `gorm:"column:detail" json:"detail,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
}

func (SessionAction) TableName() string { return "fill_session_action" }
