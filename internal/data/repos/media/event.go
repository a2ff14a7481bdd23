package media

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

// MediaEventRepo is append-only: there is no update or delete.
type MediaEventRepo interface {
	Append(dbc dbctx.Context, events ...*types.MediaEvent) error
	ListByMedia(dbc dbctx.Context, mediaID uuid.UUID) ([]*types.MediaEvent, error)
}

type mediaEventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMediaEventRepo(db *gorm.DB, baseLog *logger.Logger) MediaEventRepo {
	repoLog := baseLog.With("repo", "MediaEventRepo")
	return &mediaEventRepo{db: db, log: repoLog}
}

func (r *mediaEventRepo) Append(dbc dbctx.Context, events ...*types.MediaEvent) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(events) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Create(&events).Error
}

func (r *mediaEventRepo) ListByMedia(dbc dbctx.Context, mediaID uuid.UUID) ([]*types.MediaEvent, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MediaEvent
	if mediaID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("media_id = ?", mediaID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
