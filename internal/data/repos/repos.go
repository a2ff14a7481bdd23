package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/mediaforge-backend/internal/data/repos/jobs"
	"github.com/yungbote/mediaforge-backend/internal/data/repos/media"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

type MediaRepo = media.MediaRepo
type MediaEncodeRepo = media.MediaEncodeRepo
type MediaEventRepo = media.MediaEventRepo
type MediaCaptionRepo = media.MediaCaptionRepo
type CaptionProfileRepo = media.CaptionProfileRepo

type MediaListFilter = media.MediaListFilter
type CaptionListFilter = media.CaptionListFilter

type JobRunRepo = jobs.JobRunRepo

func NewMediaRepo(db *gorm.DB, baseLog *logger.Logger) MediaRepo {
	return media.NewMediaRepo(db, baseLog)
}
func NewMediaEncodeRepo(db *gorm.DB, baseLog *logger.Logger) MediaEncodeRepo {
	return media.NewMediaEncodeRepo(db, baseLog)
}
func NewMediaEventRepo(db *gorm.DB, baseLog *logger.Logger) MediaEventRepo {
	return media.NewMediaEventRepo(db, baseLog)
}
func NewMediaCaptionRepo(db *gorm.DB, baseLog *logger.Logger) MediaCaptionRepo {
	return media.NewMediaCaptionRepo(db, baseLog)
}
func NewCaptionProfileRepo(db *gorm.DB, baseLog *logger.Logger) CaptionProfileRepo {
	return media.NewCaptionProfileRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}

// Set bundles every repo the service uses so callers can wire them in one step.
type Set struct {
	Media    MediaRepo
	Encodes  MediaEncodeRepo
	Events   MediaEventRepo
	Captions MediaCaptionRepo
	Profiles CaptionProfileRepo
	Jobs     JobRunRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) *Set {
	return &Set{
		Media:    NewMediaRepo(db, baseLog),
		Encodes:  NewMediaEncodeRepo(db, baseLog),
		Events:   NewMediaEventRepo(db, baseLog),
		Captions: NewMediaCaptionRepo(db, baseLog),
		Profiles: NewCaptionProfileRepo(db, baseLog),
		Jobs:     NewJobRunRepo(db, baseLog),
	}
}
