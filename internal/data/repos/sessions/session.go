package sessions

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/docfill-backend/internal/domain"
	"github.com/yungbote/docfill-backend/internal/platform/dbctx"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

const referenceCounter = "session_reference"

type SessionRepo interface {
	Create(dbc dbctx.Context, row *types.FillSession) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.FillSession, error)
	GetByReference(dbc dbctx.Context, ref int64) (*types.FillSession, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error
	NextReference(dbc dbctx.Context) (int64, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{
		db:  db,
		log: baseLog.With("repo", "SessionRepo"),
	}
}

func (r *sessionRepo) Create(dbc dbctx.Context, row *types.FillSession) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	return t.WithContext(dbc.Ctx).Create(row).Error
}

func (r *sessionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.FillSession, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.FillSession
	if err := t.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *sessionRepo) GetByReference(dbc dbctx.Context, ref int64) (*types.FillSession, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var row types.FillSession
	if err := t.WithContext(dbc.Ctx).
		Where("reference = ?", ref).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *sessionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]any) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]any{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.FillSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// NextReference bumps the reference counter and returns the new value. Call it
// inside the transaction that creates the session so numbers are not skipped.
func (r *sessionRepo) NextReference(dbc dbctx.Context) (int64, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	now := time.Now().UTC()
	if err := t.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&types.Counter{Name: referenceCounter, Value: 1000, UpdatedAt: now}).Error; err != nil {
		return 0, err
	}
	if err := t.WithContext(dbc.Ctx).
		Model(&types.Counter{}).
		Where("name = ?", referenceCounter).
		Updates(map[string]any{
			"value":      gorm.Expr("value + ?", 1),
			"updated_at": now,
		}).Error; err != nil {
		return 0, err
	}
	var row types.Counter
	if err := t.WithContext(dbc.Ctx).
		Where("name = ?", referenceCounter).
		Limit(1).
		Find(&row).Error; err != nil {
		return 0, err
	}
	return row.Value, nil
}
