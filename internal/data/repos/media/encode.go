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

type MediaEncodeRepo interface {
	Create(dbc dbctx.Context, encodes []*types.MediaEncode) ([]*types.MediaEncode, error)
	ListByMedia(dbc dbctx.Context, mediaID uuid.UUID) ([]*types.MediaEncode, error)
	GetOriginal(dbc dbctx.Context, mediaID uuid.UUID) (*types.MediaEncode, error)
	GetHighestResolution(dbc dbctx.Context, mediaID uuid.UUID) (*types.MediaEncode, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	DeleteDerived(dbc dbctx.Context, mediaID uuid.UUID) (int64, error)
}

type mediaEncodeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaEncodeRepo(db *gorm.DB, baseLog *logger.Logger) MediaEncodeRepo {
	repoLog := baseLog.With("repo", "MediaEncodeRepo")
	return &mediaEncodeRepo{db: db, log: repoLog}
}

func (r *mediaEncodeRepo) Create(dbc dbctx.Context, encodes []*types.MediaEncode) ([]*types.MediaEncode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(encodes) == 0 {
		return []*types.MediaEncode{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&encodes).Error; err != nil {
		return nil, err
	}
	return encodes, nil
}

func (r *mediaEncodeRepo) ListByMedia(dbc dbctx.Context, mediaID uuid.UUID) ([]*types.MediaEncode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MediaEncode
	if mediaID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("media_id = ?", mediaID).
		Order("is_original DESC").
		Order("height DESC").
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mediaEncodeRepo) GetOriginal(dbc dbctx.Context, mediaID uuid.UUID) (*types.MediaEncode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if mediaID == uuid.Nil {
		return nil, nil
	}
	var e types.MediaEncode
	err := transaction.WithContext(dbc.Ctx).
		Where("media_id = ? AND is_original = ?", mediaID, true).
		Order("created_at ASC").
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetHighestResolution picks the tallest complete rendition; ties go to the oldest row, then lowest id.
func (r *mediaEncodeRepo) GetHighestResolution(dbc dbctx.Context, mediaID uuid.UUID) (*types.MediaEncode, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if mediaID == uuid.Nil {
		return nil, nil
	}
	var e types.MediaEncode
	err := transaction.WithContext(dbc.Ctx).
		Where("media_id = ? AND status = ?", mediaID, types.EncodeStatusComplete).
		Order("height DESC").
		Order("created_at ASC").
		Order("id ASC").
		Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *mediaEncodeRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.MediaEncode{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// DeleteDerived removes transcoder outputs, keeping the original.
func (r *mediaEncodeRepo) DeleteDerived(dbc dbctx.Context, mediaID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if mediaID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("media_id = ? AND is_original = ?", mediaID, false).
		Delete(&types.MediaEncode{})
	return res.RowsAffected, res.Error
}
