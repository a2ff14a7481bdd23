package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/mediaforge-backend/internal/data/repos"
	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/observability"
	"github.com/yungbote/mediaforge-backend/internal/platform/apierr"
	"github.com/yungbote/mediaforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

// PendingCaptionQueue schedules vendor submission for caption requests waiting on a medium.
type PendingCaptionQueue interface {
	EnqueuePending(dbc dbctx.Context, m *types.Media) (int, error)
}

// MediaLifecycle is the only writer of Media.status outside webhook reconciliation, which uses
// the same repo guards. Every transition appends an audit event in the same transaction.
type MediaLifecycle interface {
	// Publish moves Processing -> Published and schedules pending caption submissions.
	Publish(dbc dbctx.Context, m *types.Media, eventType, details string) (bool, error)
	// RelocateAndPublish moves the original to the public bucket, then publishes.
	RelocateAndPublish(ctx context.Context, m *types.Media, eventType, details string) (bool, error)
	Fail(dbc dbctx.Context, m *types.Media, eventType, details string) (bool, error)
	// ApplyRelocation records the original's public URL on the media and its original encode.
	ApplyRelocation(dbc dbctx.Context, m *types.Media, url string) error
	// Restart starts a new pipeline run for a terminal video.
	Restart(dbc dbctx.Context, mediaID uuid.UUID) (*types.Media, error)
}

type mediaLifecycle struct {
	db       *gorm.DB
	log      *logger.Logger
	media    repos.MediaRepo
	encodes  repos.MediaEncodeRepo
	events   EventLog
	jobs     JobService
	store    OriginalStore
	captions PendingCaptionQueue
	cache    *ReconcileCache
	metrics  *observability.Metrics
}

type MediaLifecycleDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Media    repos.MediaRepo
	Encodes  repos.MediaEncodeRepo
	Events   EventLog
	Jobs     JobService
	Store    OriginalStore
	Captions PendingCaptionQueue
	Cache    *ReconcileCache
	Metrics  *observability.Metrics
}

func NewMediaLifecycle(d MediaLifecycleDeps) MediaLifecycle {
	return &mediaLifecycle{
		db:       d.DB,
		log:      d.Log.With("service", "MediaLifecycle"),
		media:    d.Media,
		encodes:  d.Encodes,
		events:   d.Events,
		jobs:     d.Jobs,
		store:    d.Store,
		captions: d.Captions,
		cache:    d.Cache,
		metrics:  d.Metrics,
	}
}

func (s *mediaLifecycle) Publish(dbc dbctx.Context, m *types.Media, eventType, details string) (bool, error) {
	if m == nil {
		return false, fmt.Errorf("media required")
	}
	var moved bool
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		ok, err := s.media.TransitionStatus(inner, m.ID, types.MediaTransitionSources(types.MediaStatusPublished), types.MediaStatusPublished, "")
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		moved = true
		if err := s.events.Success(inner, m.ID, eventType, details); err != nil {
			return err
		}
		m.Status = types.MediaStatusPublished
		m.StatusDetails = ""
		if s.captions != nil && m.MediaType.SupportsCaptions() {
			if _, err := s.captions.EnqueuePending(inner, m); err != nil {
				return fmt.Errorf("enqueue pending captions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if moved {
		s.metrics.IncMediaTransition(m.MediaType, types.MediaStatusPublished)
		s.log.Info("Media published", "media_id", m.ID, "media_type", m.MediaType)
	} else {
		s.log.Warn("Publish skipped: media no longer processing", "media_id", m.ID)
	}
	return moved, nil
}

func (s *mediaLifecycle) RelocateAndPublish(ctx context.Context, m *types.Media, eventType, details string) (bool, error) {
	url, err := s.store.Relocate(ctx, m)
	if err != nil {
		return false, err
	}
	var moved bool
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		if err := s.ApplyRelocation(inner, m, url); err != nil {
			return err
		}
		var err error
		moved, err = s.Publish(inner, m, eventType, details)
		return err
	})
	return moved, err
}

func (s *mediaLifecycle) Fail(dbc dbctx.Context, m *types.Media, eventType, details string) (bool, error) {
	if m == nil {
		return false, fmt.Errorf("media required")
	}
	var moved bool
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		ok, err := s.media.TransitionStatus(inner, m.ID, types.MediaTransitionSources(types.MediaStatusFailed), types.MediaStatusFailed, details)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		moved = true
		m.Status = types.MediaStatusFailed
		m.StatusDetails = details
		return s.events.Error(inner, m.ID, eventType, details)
	})
	if err != nil {
		return false, err
	}
	if moved {
		s.metrics.IncMediaTransition(m.MediaType, types.MediaStatusFailed)
		s.log.Warn("Media failed", "media_id", m.ID, "details", details)
	}
	return moved, nil
}

func (s *mediaLifecycle) ApplyRelocation(dbc dbctx.Context, m *types.Media, url string) error {
	if err := s.media.UpdateFields(dbc, m.ID, map[string]interface{}{"url": url}); err != nil {
		return fmt.Errorf("update media url: %w", err)
	}
	orig, err := s.encodes.GetOriginal(dbc, m.ID)
	if err != nil {
		return fmt.Errorf("load original encode: %w", err)
	}
	if orig != nil {
		if err := s.encodes.UpdateFields(dbc, orig.ID, map[string]interface{}{"url": url}); err != nil {
			return fmt.Errorf("update original encode url: %w", err)
		}
	}
	m.URL = url
	return nil
}

func (s *mediaLifecycle) Restart(dbc dbctx.Context, mediaID uuid.UUID) (*types.Media, error) {
	m, err := s.media.GetByID(dbc, mediaID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apierr.NotFound("media_not_found", ErrMediaNotFound)
	}
	if !m.MediaType.NeedsTranscoding() {
		return nil, apierr.New(http.StatusUnprocessableEntity, "not_transcodable", fmt.Errorf("only video media can be re-transcoded"))
	}
	if !m.Status.CanRestart() {
		return nil, apierr.Conflict("invalid_transition", fmt.Errorf("%w: media is %s", ErrInvalidTransition, m.Status))
	}
	previousJob := m.TranscodeJobID
	actor := ctxutil.GetActor(dbc.Ctx)
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		ok, err := s.media.ResetForRerun(inner, m.ID)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.Conflict("invalid_transition", fmt.Errorf("%w: media changed concurrently", ErrInvalidTransition))
		}
		removed, err := s.encodes.DeleteDerived(inner, m.ID)
		if err != nil {
			return fmt.Errorf("delete derived encodes: %w", err)
		}
		by := actor.DisplayName()
		if by == "" {
			by = "admin"
		}
		details := fmt.Sprintf("Re-triggered by %s; removed %d renditions", by, removed)
		if err := s.events.Info(inner, m.ID, types.EventTranscodeRetriggered, details); err != nil {
			return err
		}
		owner := m.OwnerUserID
		if actor != nil && actor.UserID != uuid.Nil {
			owner = actor.UserID
		}
		_, err = s.jobs.Enqueue(inner, owner, JobTypeTranscodeMedia, EntityTypeMedia, &m.ID, map[string]any{
			"media_id": m.ID.String(),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.Forget(previousJob)
	s.metrics.IncMediaTransition(m.MediaType, types.MediaStatusProcessing)
	s.log.Info("Transcode re-triggered", "media_id", m.ID, "previous_job_id", previousJob)
	return s.media.GetByID(dbc, m.ID)
}
