package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/mediaforge-backend/internal/data/repos"
	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/platform/apierr"
	"github.com/yungbote/mediaforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

const maxTagLen = 50

// MediaUpdate carries editable metadata. Nil Tags leaves the stored tags alone; an empty
// slice clears them.
type MediaUpdate struct {
	Title       string
	Description string
	Tags        []string
}

type MediaQuery struct {
	Status    string
	MediaType string
	Limit     int
	Offset    int
}

// MediaService is the read side for uploaders plus the admin re-run entry point. Non-admins
// only ever see their own records.
type MediaService interface {
	List(dbc dbctx.Context, q MediaQuery) ([]*types.Media, error)
	Get(dbc dbctx.Context, id uuid.UUID) (*types.Media, error)
	Events(dbc dbctx.Context, id uuid.UUID) ([]*types.MediaEvent, error)
	// Update edits title, description and tags. Only the owner may edit.
	Update(dbc dbctx.Context, id uuid.UUID, in MediaUpdate) (*types.Media, error)
	Retranscode(dbc dbctx.Context, id uuid.UUID) (*types.Media, error)
}

type mediaService struct {
	log       *logger.Logger
	media     repos.MediaRepo
	events    EventLog
	lifecycle MediaLifecycle
}

func NewMediaService(baseLog *logger.Logger, media repos.MediaRepo, events EventLog, lifecycle MediaLifecycle) MediaService {
	return &mediaService{
		log:       baseLog.With("service", "MediaService"),
		media:     media,
		events:    events,
		lifecycle: lifecycle,
	}
}

func (s *mediaService) List(dbc dbctx.Context, q MediaQuery) ([]*types.Media, error) {
	actor := ctxutil.GetActor(dbc.Ctx)
	if actor == nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", ErrUnauthenticated)
	}
	f := repos.MediaListFilter{Limit: q.Limit, Offset: q.Offset}
	if !actor.IsAdmin() {
		f.OwnerUserID = &actor.UserID
	}
	if st := strings.TrimSpace(q.Status); st != "" {
		status := types.MediaStatus(st)
		switch status {
		case types.MediaStatusProcessing, types.MediaStatusPublished, types.MediaStatusFailed:
			f.Status = status
		default:
			return nil, apierr.Validation("unknown status %q", st)
		}
	}
	if mt := strings.TrimSpace(q.MediaType); mt != "" {
		t := types.MediaType(mt)
		if !t.Valid() {
			return nil, apierr.Validation("unknown media_type %q", mt)
		}
		f.MediaType = t
	}
	return s.media.List(dbc, f)
}

func (s *mediaService) Get(dbc dbctx.Context, id uuid.UUID) (*types.Media, error) {
	m, err := s.media.GetByIDWithRelations(dbc, id)
	if err != nil {
		return nil, err
	}
	if !visible(dbc, m) {
		return nil, apierr.NotFound("media_not_found", ErrMediaNotFound)
	}
	return m, nil
}

func (s *mediaService) Events(dbc dbctx.Context, id uuid.UUID) ([]*types.MediaEvent, error) {
	m, err := s.media.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if !visible(dbc, m) {
		return nil, apierr.NotFound("media_not_found", ErrMediaNotFound)
	}
	return s.events.List(dbc, id)
}

func (s *mediaService) Update(dbc dbctx.Context, id uuid.UUID, in MediaUpdate) (*types.Media, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apierr.Validation("title is required")
	}
	if len(title) > maxTitleLen {
		return nil, apierr.Validation("title must be at most %d characters", maxTitleLen)
	}
	for _, t := range in.Tags {
		if len(strings.TrimSpace(t)) > maxTagLen {
			return nil, apierr.Validation("tags must be at most %d characters each", maxTagLen)
		}
	}
	m, err := s.media.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if !visible(dbc, m) {
		return nil, apierr.NotFound("media_not_found", ErrMediaNotFound)
	}
	if actor := ctxutil.GetActor(dbc.Ctx); actor.UserID != m.OwnerUserID {
		return nil, apierr.New(http.StatusForbidden, "forbidden", errors.New("only the owner may edit media details"))
	}
	updates := map[string]interface{}{
		"title":       title,
		"description": strings.TrimSpace(in.Description),
		"updated_at":  time.Now(),
	}
	if in.Tags != nil {
		tags, err := json.Marshal(normalizeTags(in.Tags))
		if err != nil {
			return nil, fmt.Errorf("encode tags: %w", err)
		}
		updates["tags"] = datatypes.JSON(tags)
	}
	if err := s.media.UpdateFields(dbc, m.ID, updates); err != nil {
		return nil, fmt.Errorf("update media %s: %w", m.ID, err)
	}
	s.log.Info("Media details updated", "media_id", m.ID)
	return s.Get(dbc, m.ID)
}

func (s *mediaService) Retranscode(dbc dbctx.Context, id uuid.UUID) (*types.Media, error) {
	return s.lifecycle.Restart(dbc, id)
}

func visible(dbc dbctx.Context, m *types.Media) bool {
	if m == nil {
		return false
	}
	actor := ctxutil.GetActor(dbc.Ctx)
	if actor == nil {
		return false
	}
	return actor.IsAdmin() || actor.UserID == m.OwnerUserID
}
