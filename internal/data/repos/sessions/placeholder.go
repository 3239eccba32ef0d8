package sessions

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/docfill-backend/internal/domain"
	"github.com/yungbote/docfill-backend/internal/domain/fill"
	"github.com/yungbote/docfill-backend/internal/platform/dbctx"
	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

type PlaceholderRepo interface {
	CreateBatch(dbc dbctx.Context, rows []*types.Placeholder) error
	ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Placeholder, error)
	GetByKey(dbc dbctx.Context, sessionID uuid.UUID, key string) (*types.Placeholder, error)
	// SaveState persists the mutable lifecycle fields of p. The write only
	// applies while the stored row is still pending with the attempts count
	// the caller loaded, so a resolved placeholder can never be rewritten and
	// two writers starting from the same row cannot both succeed.
	SaveState(dbc dbctx.Context, p *types.Placeholder, loadedAttempts int) error
	SetPrompt(dbc dbctx.Context, id uuid.UUID, text, hash string) error
}

// ErrStaleWrite is returned by SaveState when the guarded update matched no row.
var ErrStaleWrite = errors.New("placeholder state changed concurrently or is already resolved")

type placeholderRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlaceholderRepo(db *gorm.DB, baseLog *logger.Logger) PlaceholderRepo {
	return &placeholderRepo{
		db:  db,
		log: baseLog.With("repo", "PlaceholderRepo"),
	}
}

func (r *placeholderRepo) CreateBatch(dbc dbctx.Context, rows []*types.Placeholder) error {
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
		if row.Status == "" {
			row.Status = fill.StatusPending
		}
		row.CreatedAt = now
		row.UpdatedAt = now
	}
	return t.WithContext(dbc.Ctx).CreateInBatches(rows, 100).Error
}

func (r *placeholderRepo) ListBySession(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.Placeholder, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	var out []*types.Placeholder
	if sessionID == uuid.Nil {
		return out, nil
	}
	if err := t.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *placeholderRepo) GetByKey(dbc dbctx.Context, sessionID uuid.UUID, key string) (*types.Placeholder, error) {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if sessionID == uuid.Nil || key == "" {
		return nil, nil
	}
	var row types.Placeholder
	if err := t.WithContext(dbc.Ctx).
		Where("session_id = ? AND placeholder_key = ?", sessionID, key).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *placeholderRepo) SaveState(dbc dbctx.Context, p *types.Placeholder, loadedAttempts int) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if p == nil || p.ID == uuid.Nil {
		return nil
	}
	p.UpdatedAt = time.Now().UTC()
	res := t.WithContext(dbc.Ctx).
		Model(&types.Placeholder{}).
		Where("id = ? AND status = ? AND attempts = ?", p.ID, fill.StatusPending, loadedAttempts).
		Select("status", "attempts", "value", "consent_auto_suggest", "resolved_at", "updated_at").
		Updates(p)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (r *placeholderRepo) SetPrompt(dbc dbctx.Context, id uuid.UUID, text, hash string) error {
	t := dbc.Tx
	if t == nil {
		t = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return t.WithContext(dbc.Ctx).
		Model(&types.Placeholder{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"prompt_text": text,
			"prompt_hash": hash,
			"updated_at":  time.Now().UTC(),
		}).Error
}
