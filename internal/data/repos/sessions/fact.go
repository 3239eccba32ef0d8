package sessions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/docfill-backend/internal/domain"
	"github.com/yungbote/docfill-backend/internal/platform/dbctx"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

// FactRepo stores the append-only facts log; it has no update or delete.
type FactRepo interface {
	Append(dbc dbctx.Context, rows []*types.Fact) error
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Fact, error)
}

type factRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFactRepo(db *gorm.DB, baseLog *logger.Logger) FactRepo {
	return &factRepo{
		db:  db,
		log: baseLog.With("repo", "FactRepo"),
	}
}

func (r *factRepo) Append(dbc dbctx.Context, rows []*types.Fact) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
	}
	return t.WithContext(dbc.Ctx).Create(rows).Error
}

func (r *factRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Fact, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Fact
	if sessionID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
