package sessions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/docfill-backend/internal/domain"
	"github.com/yungbote/docfill-backend/internal/platform/dbctx"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

type ActionRepo interface {
	Append(dbc dbctx.Context, rows ...*types.SessionAction) error
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*types.SessionAction, error)
}

type actionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActionRepo(db *gorm.DB, baseLog *logger.Logger) ActionRepo {
	return &actionRepo{
		db:  db,
		log: baseLog.With("repo", "ActionRepo"),
	}
}

func (r *actionRepo) Append(dbc dbctx.Context, rows ...*types.SessionAction) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.CreatedAt.IsZero() {
			// keep batch order stable when sorting by created_at
			row.CreatedAt = now.Add(time.Duration(i) * time.Microsecond)
		}
	}
	return t.WithContext(dbc.Ctx).Create(rows).Error
}

// ListBySession returns the most recent actions in chronological order.
func (r *actionRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID, limit int) ([]*types.SessionAction, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.SessionAction
	if sessionID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if err := t.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
