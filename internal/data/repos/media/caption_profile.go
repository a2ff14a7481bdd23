package media

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

type CaptionProfileRepo interface {
	Create(dbc dbctx.Context, p *types.CaptionProfile) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CaptionProfile, error)
	List(dbc dbctx.Context) ([]*types.CaptionProfile, error)
	ListActive(dbc dbctx.Context) ([]*types.CaptionProfile, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id uuid.UUID) (bool, error)
	DeactivateAllExcept(dbc dbctx.Context, keepID uuid.UUID) error
	SetActive(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type captionProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCaptionProfileRepo(db *gorm.DB, baseLog *logger.Logger) CaptionProfileRepo {
	repoLog := baseLog.With("repo", "CaptionProfileRepo")
	return &captionProfileRepo{db: db, log: repoLog}
}

func (r *captionProfileRepo) Create(dbc dbctx.Context, p *types.CaptionProfile) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if p == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(p).Error
}

func (r *captionProfileRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.CaptionProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var p types.CaptionProfile
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *captionProfileRepo) List(dbc dbctx.Context) ([]*types.CaptionProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CaptionProfile
	if err := transaction.WithContext(dbc.Ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListActive orders by most recently updated, then id, so callers can take the first row as a
// stable pick when more than one is active.
func (r *captionProfileRepo) ListActive(dbc dbctx.Context) ([]*types.CaptionProfile, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.CaptionProfile
	if err := transaction.WithContext(dbc.Ctx).
		Where("is_active = ?", true).
		Order("updated_at DESC").
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *captionProfileRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.CaptionProfile{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Delete removes the profile and detaches captions that referenced it.
func (r *captionProfileRepo) Delete(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.MediaCaption{}).
		Where("caption_profile_id = ?", id).
		Update("caption_profile_id", nil).Error; err != nil {
		return false, err
	}
	res := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Delete(&types.CaptionProfile{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *captionProfileRepo) DeactivateAllExcept(dbc dbctx.Context, keepID uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.CaptionProfile{}).
		Where("is_active = ? AND id <> ?", true, keepID).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		}).Error
}

func (r *captionProfileRepo) SetActive(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.CaptionProfile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  true,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
