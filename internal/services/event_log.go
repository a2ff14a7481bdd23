package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/mediaforge-backend/internal/data/repos"
	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

// EventLog is the append-only audit trail attached to a media record. Pipeline code only
// writes to it.
type EventLog interface {
	Info(dbc dbctx.Context, mediaID uuid.UUID, eventType, details string) error
	Success(dbc dbctx.Context, mediaID uuid.UUID, eventType, details string) error
	Error(dbc dbctx.Context, mediaID uuid.UUID, eventType, details string) error
	Record(dbc dbctx.Context, mediaID uuid.UUID, eventType string, status types.EventStatus, details string, metadata map[string]any) error
	List(dbc dbctx.Context, mediaID uuid.UUID) ([]*types.MediaEvent, error)
}

type eventLog struct {
	log  *logger.Logger
	repo repos.MediaEventRepo
}

func NewEventLog(baseLog *logger.Logger, repo repos.MediaEventRepo) EventLog {
	return &eventLog{log: baseLog.With("service", "EventLog"), repo: repo}
}

func (e *eventLog) Info(dbc dbctx.Context, mediaID uuid.UUID, eventType, details string) error {
	return e.Record(dbc, mediaID, eventType, types.EventStatusInfo, details, nil)
}

func (e *eventLog) Success(dbc dbctx.Context, mediaID uuid.UUID, eventType, details string) error {
	return e.Record(dbc, mediaID, eventType, types.EventStatusSuccess, details, nil)
}

func (e *eventLog) Error(dbc dbctx.Context, mediaID uuid.UUID, eventType, details string) error {
	return e.Record(dbc, mediaID, eventType, types.EventStatusError, details, nil)
}

func (e *eventLog) Record(dbc dbctx.Context, mediaID uuid.UUID, eventType string, status types.EventStatus, details string, metadata map[string]any) error {
	if mediaID == uuid.Nil {
		return fmt.Errorf("event %q: missing media id", eventType)
	}
	ev := &types.MediaEvent{
		MediaID:   mediaID,
		EventType: eventType,
		Status:    status,
		Details:   details,
	}
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("event %q metadata: %w", eventType, err)
		}
		ev.Metadata = datatypes.JSON(b)
	}
	if err := e.repo.Append(dbc, ev); err != nil {
		e.log.Error("append event failed", "media_id", mediaID, "event_type", eventType, "error", err)
		return fmt.Errorf("append event %q: %w", eventType, err)
	}
	e.log.Debug("event", "media_id", mediaID, "event_type", eventType, "status", status)
	return nil
}

func (e *eventLog) List(dbc dbctx.Context, mediaID uuid.UUID) ([]*types.MediaEvent, error) {
	return e.repo.ListByMedia(dbc, mediaID)
}
