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

type CaptionListFilter struct {
	MediaID  *uuid.UUID
	Statuses []types.CaptionStatus
	Limit    int
	Offset   int
}

type MediaCaptionRepo interface {
	Create(dbc dbctx.Context, caption *types.MediaCaption) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MediaCaption, error)
	GetByOrderID(dbc dbctx.Context, orderID string) (*types.MediaCaption, error)
	List(dbc dbctx.Context, f CaptionListFilter) ([]*types.MediaCaption, error)
	FirstApproved(dbc dbctx.Context, mediaID uuid.UUID) (*types.MediaCaption, error)
	FindAuthoritative(dbc dbctx.Context, mediaID uuid.UUID, languageCode string) (*types.MediaCaption, error)
	Transition(dbc dbctx.Context, id uuid.UUID, from []types.CaptionStatus, to types.CaptionStatus, updates map[string]interface{}) (bool, error)
	DemoteApproved(dbc dbctx.Context, mediaID uuid.UUID, languageCode string, keepID uuid.UUID, reason string) (int64, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type mediaCaptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaCaptionRepo(db *gorm.DB, baseLog *logger.Logger) MediaCaptionRepo {
	repoLog := baseLog.With("repo", "MediaCaptionRepo")
	return &mediaCaptionRepo{db: db, log: repoLog}
}

func (r *mediaCaptionRepo) Create(dbc dbctx.Context, caption *types.MediaCaption) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if caption == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(caption).Error
}

func (r *mediaCaptionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.MediaCaption, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var c types.MediaCaption
	err := transaction.WithContext(dbc.Ctx).Preload("CaptionProfile").Where("id = ?", id).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *mediaCaptionRepo) GetByOrderID(dbc dbctx.Context, orderID string) (*types.MediaCaption, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if orderID == "" {
		return nil, nil
	}
	var c types.MediaCaption
	err := transaction.WithContext(dbc.Ctx).Preload("CaptionProfile").Where("order_id = ?", orderID).Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *mediaCaptionRepo) List(dbc dbctx.Context, f CaptionListFilter) ([]*types.MediaCaption, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.MediaCaption{})
	if f.MediaID != nil && *f.MediaID != uuid.Nil {
		q = q.Where("media_id = ?", *f.MediaID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*types.MediaCaption
	if err := q.Order("created_at DESC").Limit(limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mediaCaptionRepo) FirstApproved(dbc dbctx.Context, mediaID uuid.UUID) (*types.MediaCaption, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if mediaID == uuid.Nil {
		return nil, nil
	}
	var c types.MediaCaption
	err := transaction.WithContext(dbc.Ctx).
		Where("media_id = ? AND status = ?", mediaID, types.CaptionStatusApproved).
		Order("created_at ASC").
		Take(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindAuthoritative returns the caption that an upload or edit overwrites for media+language:
// the approved one when it exists, otherwise the oldest row for that language.
func (r *mediaCaptionRepo) FindAuthoritative(dbc dbctx.Context, mediaID uuid.UUID, languageCode string) (*types.MediaCaption, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if mediaID == uuid.Nil {
		return nil, nil
	}
	var rows []*types.MediaCaption
	if err := transaction.WithContext(dbc.Ctx).
		Where("media_id = ? AND language_code = ?", mediaID, languageCode).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, c := range rows {
		if c.Status == types.CaptionStatusApproved {
			return c, nil
		}
	}
	if len(rows) > 0 {
		return rows[0], nil
	}
	return nil, nil
}

// Transition is a compare-and-set on status. updates may carry extra columns to write in the
// same statement.
func (r *mediaCaptionRepo) Transition(dbc dbctx.Context, id uuid.UUID, from []types.CaptionStatus, to types.CaptionStatus, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(from) == 0 {
		return false, nil
	}
	fields := map[string]interface{}{}
	for k, v := range updates {
		fields[k] = v
	}
	fields["status"] = to
	if _, ok := fields["updated_at"]; !ok {
		fields["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.MediaCaption{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *mediaCaptionRepo) DemoteApproved(dbc dbctx.Context, mediaID uuid.UUID, languageCode string, keepID uuid.UUID, reason string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if mediaID == uuid.Nil {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.MediaCaption{}).
		Where("media_id = ? AND language_code = ? AND status = ? AND id <> ?", mediaID, languageCode, types.CaptionStatusApproved, keepID).
		Updates(map[string]interface{}{
			"status":     types.CaptionStatusRejected,
			"reason":     reason,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *mediaCaptionRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.MediaCaption{}).
		Where("id = ?", id).
		Updates(updates).Error
}
