package fill

import (
	"time"

	"github.com/google/uuid"
)

// Fact is one entry of a session's append-only facts log. The unique index on
// (session_id, placeholder_key) makes a second write for the same
// placeholder fail at the storage layer as well.
type Fact struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"-"`
	SessionID      uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_fact_session_key,priority:1;uniqueIndex:idx_fact_session_seq,priority:1" json:"session_id"`
	Seq            int        `gorm:"column:seq;not null;uniqueIndex:idx_fact_session_seq,priority:2" json:"seq"`
	PlaceholderKey string     `gorm:"column:placeholder_key;type:text;not null;uniqueIndex:idx_fact_session_key,priority:2" json:"placeholder_id"`
	Name           string     `gorm:"column:name;type:text;not null" json:"name"`
	Value          string     `gorm:"column:value;type:text;not null" json:"value"`
	Source         FactSource `gorm:"column:source;type:text;not null" json:"source"`
	CreatedAt      time.Time  `gorm:"not null" json:"created_at"`
}

func (Fact) TableName() string { return "fill_fact" }
