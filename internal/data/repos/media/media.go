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

type MediaListFilter struct {
	OwnerUserID *uuid.UUID
	Status      types.MediaStatus
	MediaType   types.MediaType
	Limit       int
	Offset      int
}

type MediaRepo interface {
	Create(dbc dbctx.Context, m *types.Media) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Media, error)
	GetByIDWithRelations(dbc dbctx.Context, id uuid.UUID) (*types.Media, error)
	GetByFileHash(dbc dbctx.Context, hash string) (*types.Media, error)
	List(dbc dbctx.Context, f MediaListFilter) ([]*types.Media, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	TransitionStatus(dbc dbctx.Context, id uuid.UUID, from []types.MediaStatus, to types.MediaStatus, details string) (bool, error)
	RecordTranscodeSubmission(dbc dbctx.Context, id uuid.UUID, jobID string, at time.Time) (bool, error)
	ClaimTranscodeReconciliation(dbc dbctx.Context, id uuid.UUID, jobID string, to types.MediaStatus, details string, at time.Time) (bool, error)
	ResetForRerun(dbc dbctx.Context, id uuid.UUID) (bool, error)
}

type mediaRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaRepo(db *gorm.DB, baseLog *logger.Logger) MediaRepo {
	repoLog := baseLog.With("repo", "MediaRepo")
	return &mediaRepo{db: db, log: repoLog}
}

// Create inserts m. A file_hash collision surfaces as gorm.ErrDuplicatedKey.
func (r *mediaRepo) Create(dbc dbctx.Context, m *types.Media) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if m == nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(m).Error
}

func (r *mediaRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Media, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var m types.Media
	err := transaction.WithContext(dbc.Ctx).Where("id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mediaRepo) GetByIDWithRelations(dbc dbctx.Context, id uuid.UUID) (*types.Media, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var m types.Media
	err := transaction.WithContext(dbc.Ctx).
		Preload("Encodes", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_original DESC").Order("height DESC").Order("created_at ASC")
		}).
		Preload("Captions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mediaRepo) GetByFileHash(dbc dbctx.Context, hash string) (*types.Media, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if hash == "" {
		return nil, nil
	}
	var m types.Media
	err := transaction.WithContext(dbc.Ctx).Where("file_hash = ?", hash).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *mediaRepo) List(dbc dbctx.Context, f MediaListFilter) ([]*types.Media, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.Media{})
	if f.OwnerUserID != nil && *f.OwnerUserID != uuid.Nil {
		q = q.Where("owner_user_id = ?", *f.OwnerUserID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.MediaType != "" {
		q = q.Where("media_type = ?", f.MediaType)
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*types.Media
	if err := q.Order("created_at DESC").Order("id ASC").Limit(limit).Offset(f.Offset).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mediaRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Media{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// TransitionStatus moves a record only if it is still in from. The bool is false when another
// writer got there first.
func (r *mediaRepo) TransitionStatus(dbc dbctx.Context, id uuid.UUID, from []types.MediaStatus, to types.MediaStatus, details string) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(from) == 0 {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Media{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{
			"status":         to,
			"status_details": details,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *mediaRepo) RecordTranscodeSubmission(dbc dbctx.Context, id uuid.UUID, jobID string, at time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || jobID == "" {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Media{}).
		Where("id = ? AND transcode_reconciled_at IS NULL", id).
		Where("transcode_job_id IS NULL OR transcode_job_id = '' OR transcode_job_id = ?", jobID).
		Updates(map[string]interface{}{
			"transcode_job_id":       jobID,
			"transcode_submitted_at": at,
			"updated_at":             at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ClaimTranscodeReconciliation atomically marks the record reconciled for jobID and applies the
// terminal status. Exactly one caller wins per pipeline run.
func (r *mediaRepo) ClaimTranscodeReconciliation(dbc dbctx.Context, id uuid.UUID, jobID string, to types.MediaStatus, details string, at time.Time) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Model(&types.Media{}).
		Where("id = ? AND status IN ? AND transcode_reconciled_at IS NULL", id, types.MediaTransitionSources(to))
	updates := map[string]interface{}{
		"status":                  to,
		"status_details":          details,
		"transcode_reconciled_at": at,
		"updated_at":              at,
	}
	q = q.Where("transcode_job_id IS NULL OR transcode_job_id = '' OR transcode_job_id = ?", jobID)
	if jobID != "" {
		updates["transcode_job_id"] = jobID
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ResetForRerun starts a fresh pipeline run for a terminal record.
func (r *mediaRepo) ResetForRerun(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Media{}).
		Where("id = ? AND status IN ?", id, []types.MediaStatus{types.MediaStatusPublished, types.MediaStatusFailed}).
		Updates(map[string]interface{}{
			"status":                  types.MediaStatusProcessing,
			"status_details":          "",
			"transcode_job_id":        "",
			"transcode_submitted_at":  nil,
			"transcode_reconciled_at": nil,
			"updated_at":              time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
