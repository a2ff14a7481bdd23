package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/mediaforge-backend/internal/data/repos"
	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/observability"
	"github.com/yungbote/mediaforge-backend/internal/platform/apierr"
	"github.com/yungbote/mediaforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/platform/httpx"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
	"github.com/yungbote/mediaforge-backend/internal/platform/threeplay"
)

const maxReviewReason = 1000

// CaptionOrchestrator owns the caption request lifecycle and the authoritative caption body.
type CaptionOrchestrator interface {
	CaptionRequester
	PendingCaptionQueue
	SubmitToVendor(ctx context.Context, captionID uuid.UUID, finalAttempt bool) error
	HandleVendorWebhook(ctx context.Context, orderID, status string) (*WebhookResult, error)
	Review(dbc dbctx.Context, captionID uuid.UUID, decision types.CaptionStatus, reason string) (*types.MediaCaption, error)
	// UploadCaption stores content as the approved caption, creating it when none exists.
	UploadCaption(dbc dbctx.Context, mediaID uuid.UUID, content string) (*types.MediaCaption, error)
	// EditCaption overwrites the approved caption, creating it when none exists.
	EditCaption(dbc dbctx.Context, mediaID uuid.UUID, content string) (*types.MediaCaption, error)
	ExportVTT(dbc dbctx.Context, mediaID uuid.UUID) (string, error)
	ListForReview(dbc dbctx.Context, status string) ([]*types.MediaCaption, error)
}

type CaptionDeps struct {
	DB       *gorm.DB
	Log      *logger.Logger
	Media    repos.MediaRepo
	Encodes  repos.MediaEncodeRepo
	Captions repos.MediaCaptionRepo
	Events   EventLog
	Profiles VendorProfileRegistry
	Vendor   threeplay.Client
	Jobs     JobService
	Notifier Notifier
	Cache    *ReconcileCache
	Metrics  *observability.Metrics
}

type captionOrchestrator struct {
	db       *gorm.DB
	log      *logger.Logger
	media    repos.MediaRepo
	encodes  repos.MediaEncodeRepo
	captions repos.MediaCaptionRepo
	events   EventLog
	profiles VendorProfileRegistry
	vendor   threeplay.Client
	jobs     JobService
	notifier Notifier
	cache    *ReconcileCache
	metrics  *observability.Metrics
}

func NewCaptionOrchestrator(d CaptionDeps) CaptionOrchestrator {
	return &captionOrchestrator{
		db:       d.DB,
		log:      d.Log.With("service", "CaptionOrchestrator"),
		media:    d.Media,
		encodes:  d.Encodes,
		captions: d.Captions,
		events:   d.Events,
		profiles: d.Profiles,
		vendor:   d.Vendor,
		jobs:     d.Jobs,
		notifier: d.Notifier,
		cache:    d.Cache,
		metrics:  d.Metrics,
	}
}

func actorName(ctx context.Context) string {
	if name := ctxutil.GetActor(ctx).DisplayName(); name != "" {
		return name
	}
	return "system"
}

// RequestCaptions records a caption ask. A missing active profile is not an error here; the
// submission job fails the request instead.
func (s *captionOrchestrator) RequestCaptions(dbc dbctx.Context, m *types.Media) (*types.MediaCaption, error) {
	if m == nil {
		return nil, fmt.Errorf("media required")
	}
	if !m.MediaType.SupportsCaptions() {
		return nil, apierr.New(http.StatusUnprocessableEntity, "captions_unsupported", fmt.Errorf("%s media cannot be captioned", m.MediaType))
	}
	profile, err := s.profiles.ActiveProfile(dbc)
	if err != nil {
		return nil, fmt.Errorf("resolve active profile: %w", err)
	}
	c := &types.MediaCaption{
		MediaID:      m.ID,
		Status:       types.CaptionStatusRequested,
		RequestedBy:  actorName(dbc.Ctx),
		Language:     types.DefaultCaptionLanguage,
		LanguageCode: types.DefaultCaptionLanguageCode,
	}
	if profile != nil {
		c.CaptionProfileID = &profile.ID
	}
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		if err := s.captions.Create(inner, c); err != nil {
			return fmt.Errorf("create caption request: %w", err)
		}
		details := fmt.Sprintf("Requested by %s", c.RequestedBy)
		if profile == nil {
			details += " (no active caption profile)"
		}
		if err := s.events.Info(inner, m.ID, types.EventCaptionRequested, details); err != nil {
			return err
		}
		if m.Status == types.MediaStatusPublished {
			return s.enqueueSubmit(inner, m, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncCaptionTransition(types.CaptionStatusRequested)
	s.log.Info("Caption requested", "media_id", m.ID, "caption_id", c.ID, "has_profile", profile != nil)
	return c, nil
}

func (s *captionOrchestrator) EnqueuePending(dbc dbctx.Context, m *types.Media) (int, error) {
	if m == nil || !m.MediaType.SupportsCaptions() {
		return 0, nil
	}
	pending, err := s.captions.List(dbc, repos.CaptionListFilter{
		MediaID:  &m.ID,
		Statuses: []types.CaptionStatus{types.CaptionStatusRequested},
	})
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range pending {
		if err := s.enqueueSubmit(dbc, m, c); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		s.log.Info("Caption submissions enqueued", "media_id", m.ID, "count", n)
	}
	return n, nil
}

func (s *captionOrchestrator) enqueueSubmit(dbc dbctx.Context, m *types.Media, c *types.MediaCaption) error {
	_, _, err := s.jobs.EnqueueOnce(dbc, m.OwnerUserID, JobTypeCaptionSubmit, EntityTypeCaption, c.ID, map[string]any{
		"caption_id": c.ID.String(),
		"media_id":   m.ID.String(),
	})
	return err
}

func (s *captionOrchestrator) SubmitToVendor(ctx context.Context, captionID uuid.UUID, finalAttempt bool) (err error) {
	ctx, span := observability.StartSpan(ctx, "captions.submit", attribute.String("caption_id", captionID.String()))
	defer func() { observability.EndSpan(span, err) }()

	dbc := dbctx.Context{Ctx: ctx}
	c, err := s.captions.GetByID(dbc, captionID)
	if err != nil {
		return err
	}
	if c == nil {
		return Permanent(fmt.Errorf("%w: %s", ErrCaptionNotFound, captionID))
	}
	if c.Status != types.CaptionStatusRequested {
		s.log.Info("Caption submission skipped", "caption_id", c.ID, "status", c.Status)
		return nil
	}
	m, err := s.media.GetByID(dbc, c.MediaID)
	if err != nil {
		return err
	}
	if m == nil {
		return Permanent(fmt.Errorf("%w: %s", ErrMediaNotFound, c.MediaID))
	}
	if err := s.events.Info(dbc, m.ID, types.EventCaptionJobStarted, "Caption ID: "+c.ID.String()); err != nil {
		return err
	}

	profile, err := s.resolveProfile(dbc, c)
	if err != nil {
		return err
	}
	if profile == nil {
		return s.submitFailed(ctx, m, c, errors.New("No active caption profile is configured."))
	}
	if !profile.IsActive {
		return s.submitFailed(ctx, m, c, fmt.Errorf("Caption profile %q is not active.", profile.Name))
	}
	if !profile.HasAPIKey() {
		return s.submitFailed(ctx, m, c, fmt.Errorf("Caption profile %q has no API key.", profile.Name))
	}

	source, err := s.encodes.GetHighestResolution(dbc, m.ID)
	if err != nil {
		return err
	}
	if source == nil || source.URL == "" {
		return s.submitFailed(ctx, m, c, errors.New("No rendition is available for captioning."))
	}

	start := time.Now()
	orderID, err := s.vendor.SubmitFile(ctx, profile.APIKey, threeplay.SubmitFileRequest{
		Link:       source.URL,
		Name:       m.Title,
		LanguageID: threeplay.LanguageEnglish,
	})
	s.metrics.ObserveVendorCall("threeplay", "submit_file", err, time.Since(start))
	if err != nil {
		if httpx.IsRetryableError(err) && !finalAttempt {
			s.log.Warn("Caption vendor submission failed; will retry", "caption_id", c.ID, "error", err)
			return err
		}
		return s.submitFailed(ctx, m, c, err)
	}

	moved := false
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		ok, err := s.captions.Transition(inner, c.ID, types.CaptionTransitionSources(types.CaptionStatusProcessingByVendor), types.CaptionStatusProcessingByVendor, map[string]interface{}{
			"order_id": orderID,
		})
		if err != nil || !ok {
			return err
		}
		moved = true
		return s.events.Success(inner, m.ID, types.EventCaptionSent, "Order ID: "+orderID)
	})
	if err != nil {
		return err
	}
	if !moved {
		s.log.Warn("Caption request changed during submission; vendor order left unattached", "caption_id", c.ID, "order_id", orderID)
		return nil
	}
	s.metrics.IncCaptionTransition(types.CaptionStatusProcessingByVendor)
	s.log.Info("Caption sent to vendor", "caption_id", c.ID, "order_id", orderID, "source_height", source.Height)
	return nil
}

// resolveProfile returns the request's own profile, or attaches the currently active one.
func (s *captionOrchestrator) resolveProfile(dbc dbctx.Context, c *types.MediaCaption) (*types.CaptionProfile, error) {
	if c.CaptionProfileID != nil {
		if c.CaptionProfile != nil {
			return c.CaptionProfile, nil
		}
		p, err := s.profiles.Get(dbc, *c.CaptionProfileID)
		if errors.Is(err, ErrProfileNotFound) {
			return nil, nil
		}
		return p, err
	}
	p, err := s.profiles.ActiveProfile(dbc)
	if err != nil || p == nil {
		return nil, err
	}
	if err := s.captions.UpdateFields(dbc, c.ID, map[string]interface{}{"caption_profile_id": p.ID}); err != nil {
		return nil, fmt.Errorf("attach caption profile: %w", err)
	}
	c.CaptionProfileID = &p.ID
	c.CaptionProfile = p
	return p, nil
}

func (s *captionOrchestrator) submitFailed(ctx context.Context, m *types.Media, c *types.MediaCaption, cause error) error {
	s.log.Error("Caption vendor submission failed", "caption_id", c.ID, "error", cause)
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		ok, err := s.captions.Transition(inner, c.ID, types.CaptionTransitionSources(types.CaptionStatusFailedVendorSubmission), types.CaptionStatusFailedVendorSubmission, map[string]interface{}{
			"reason": cause.Error(),
		})
		if err != nil || !ok {
			return err
		}
		return s.events.Error(inner, m.ID, types.EventCaptionSendFailed, cause.Error())
	})
	if err != nil {
		return err
	}
	s.metrics.IncCaptionTransition(types.CaptionStatusFailedVendorSubmission)
	return Permanent(cause)
}

func (s *captionOrchestrator) HandleVendorWebhook(ctx context.Context, orderID, status string) (res *WebhookResult, err error) {
	orderID = strings.TrimSpace(orderID)
	status = strings.ToLower(strings.TrimSpace(status))
	ctx, span := observability.StartSpan(ctx, "captions.webhook",
		attribute.String("order_id", orderID),
		attribute.String("status", status),
	)
	defer func() {
		observability.EndSpan(span, err)
		outcome := "error"
		if res != nil {
			outcome = string(res.Outcome)
		}
		s.metrics.IncWebhook("threeplay", outcome)
	}()

	if orderID == "" {
		return nil, webhookError(http.StatusBadRequest, "No order id provided.")
	}
	if status != "complete" {
		return &WebhookResult{Outcome: WebhookIgnored}, nil
	}
	if s.cache.SeenCaptionOrder(orderID) {
		return &WebhookResult{Outcome: WebhookDuplicate}, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	c, err := s.captions.GetByOrderID(dbc, orderID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		s.log.Warn("Caption webhook for unknown order", "order_id", orderID)
		return nil, webhookError(http.StatusNotFound, "Caption request not found.")
	}
	if err := s.events.Info(dbc, c.MediaID, types.EventCaptionWebhook, fmt.Sprintf("Order ID: %s, Status: %s", orderID, status)); err != nil {
		return nil, err
	}
	switch {
	case c.Status == types.CaptionStatusCompletedByVendor, c.Status == types.CaptionStatusApproved, c.Status == types.CaptionStatusRejected:
		s.cache.MarkCaptionOrder(orderID)
		return &WebhookResult{Outcome: WebhookDuplicate, MediaID: c.MediaID}, nil
	case !c.Status.CanTransition(types.CaptionStatusCompletedByVendor):
		return nil, webhookError(http.StatusConflict, fmt.Sprintf("Caption request is %s.", c.Status))
	}

	body, fetchErr := s.fetch(ctx, c, orderID)
	if fetchErr != nil {
		s.log.Error("Caption retrieval failed", "caption_id", c.ID, "order_id", orderID, "error", fetchErr)
		err := inTx(s.db, dbc, func(inner dbctx.Context) error {
			if _, err := s.captions.Transition(inner, c.ID, types.CaptionTransitionSources(types.CaptionStatusFailedVendorRetrieval), types.CaptionStatusFailedVendorRetrieval, map[string]interface{}{
				"reason": fetchErr.Error(),
			}); err != nil {
				return err
			}
			return s.events.Error(inner, c.MediaID, types.EventCaptionDownloadFailed, fetchErr.Error())
		})
		if err != nil {
			return nil, err
		}
		s.metrics.IncCaptionTransition(types.CaptionStatusFailedVendorRetrieval)
		return nil, apierr.New(http.StatusBadGateway, "vendor_fetch_failed", fetchErr)
	}
	if verr := ValidateVTT(body); verr != nil {
		s.log.Warn("Vendor caption is not valid WebVTT", "caption_id", c.ID, "error", verr)
	}

	moved := false
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		ok, err := s.captions.Transition(inner, c.ID, types.CaptionTransitionSources(types.CaptionStatusCompletedByVendor), types.CaptionStatusCompletedByVendor, map[string]interface{}{
			"caption": body,
			"reason":  "",
		})
		if err != nil || !ok {
			return err
		}
		moved = true
		return s.events.Success(inner, c.MediaID, types.EventCaptionDownloaded, fmt.Sprintf("Order ID: %s, %d bytes", orderID, len(body)))
	})
	if err != nil {
		return nil, err
	}
	s.cache.MarkCaptionOrder(orderID)
	if !moved {
		return &WebhookResult{Outcome: WebhookDuplicate, MediaID: c.MediaID}, nil
	}
	s.metrics.IncCaptionTransition(types.CaptionStatusCompletedByVendor)
	s.log.Info("Caption retrieved from vendor", "caption_id", c.ID, "order_id", orderID)
	return &WebhookResult{Outcome: WebhookProcessed, MediaID: c.MediaID}, nil
}

func (s *captionOrchestrator) fetch(ctx context.Context, c *types.MediaCaption, orderID string) (string, error) {
	if !c.CaptionProfile.HasAPIKey() {
		return "", errors.New("Caption request has no profile with an API key.")
	}
	start := time.Now()
	body, err := s.vendor.FetchCaptions(ctx, c.CaptionProfile.APIKey, orderID)
	s.metrics.ObserveVendorCall("threeplay", "fetch_captions", err, time.Since(start))
	return body, err
}

func (s *captionOrchestrator) Review(dbc dbctx.Context, captionID uuid.UUID, decision types.CaptionStatus, reason string) (*types.MediaCaption, error) {
	sources := types.ReviewSources(decision)
	if sources == nil {
		return nil, apierr.Validation("status must be approved or rejected")
	}
	reason = strings.TrimSpace(reason)
	if len(reason) > maxReviewReason {
		return nil, apierr.Validation("reason must be at most %d characters", maxReviewReason)
	}
	c, err := s.captions.GetByID(dbc, captionID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apierr.NotFound("caption_not_found", ErrCaptionNotFound)
	}
	if !containsStatus(sources, c.Status) {
		return nil, apierr.Conflict("invalid_transition", fmt.Errorf("%w: caption request is %s", ErrInvalidTransition, c.Status))
	}
	by := actorName(dbc.Ctx)
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		ok, err := s.captions.Transition(inner, c.ID, sources, decision, map[string]interface{}{
			"approved_by": by,
			"reason":      reason,
		})
		if err != nil {
			return err
		}
		if !ok {
			return apierr.Conflict("invalid_transition", fmt.Errorf("%w: caption request changed concurrently", ErrInvalidTransition))
		}
		details := "By " + by
		if reason != "" {
			details += ": " + reason
		}
		if decision == types.CaptionStatusApproved {
			if _, err := s.captions.DemoteApproved(inner, c.MediaID, c.LanguageCode, c.ID, supersededReason(c.ID)); err != nil {
				return fmt.Errorf("demote approved captions: %w", err)
			}
			return s.events.Success(inner, c.MediaID, types.EventCaptionApproved, details)
		}
		return s.events.Info(inner, c.MediaID, types.EventCaptionRejected, details)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncCaptionTransition(decision)
	s.log.Info("Caption request reviewed", "caption_id", c.ID, "decision", decision, "by", by)

	updated, err := s.captions.GetByID(dbc, c.ID)
	if err != nil {
		return nil, err
	}
	m, err := s.media.GetByID(dbc, c.MediaID)
	if err != nil {
		return nil, err
	}
	s.notifier.CaptionReviewed(dbc.Ctx, m, updated)
	return updated, nil
}

func supersededReason(id uuid.UUID) string { return "Superseded by caption " + id.String() }

func containsStatus(list []types.CaptionStatus, s types.CaptionStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (s *captionOrchestrator) UploadCaption(dbc dbctx.Context, mediaID uuid.UUID, content string) (*types.MediaCaption, error) {
	return s.saveAuthoritative(dbc, mediaID, content, types.EventCaptionUploaded)
}

func (s *captionOrchestrator) EditCaption(dbc dbctx.Context, mediaID uuid.UUID, content string) (*types.MediaCaption, error) {
	return s.saveAuthoritative(dbc, mediaID, content, types.EventCaptionUpdated)
}

// saveAuthoritative overwrites the approved caption for media+en, or creates one. Any other
// approved row for the pair is demoted in the same transaction.
func (s *captionOrchestrator) saveAuthoritative(dbc dbctx.Context, mediaID uuid.UUID, content, eventType string) (*types.MediaCaption, error) {
	if err := ValidateVTT(content); err != nil {
		return nil, apierr.Validation("%s", err.Error())
	}
	m, err := s.media.GetByID(dbc, mediaID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apierr.NotFound("media_not_found", ErrMediaNotFound)
	}
	by := actorName(dbc.Ctx)
	var keepID uuid.UUID
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		existing, err := s.captions.FindAuthoritative(inner, m.ID, types.DefaultCaptionLanguageCode)
		if err != nil {
			return err
		}
		if existing != nil && existing.Status == types.CaptionStatusApproved {
			keepID = existing.ID
			if err := s.captions.UpdateFields(inner, existing.ID, map[string]interface{}{
				"caption":     content,
				"uploaded_by": by,
				"approved_by": by,
			}); err != nil {
				return fmt.Errorf("update caption: %w", err)
			}
		} else {
			c := &types.MediaCaption{
				MediaID:      m.ID,
				Status:       types.CaptionStatusApproved,
				UploadedBy:   by,
				ApprovedBy:   by,
				Language:     types.DefaultCaptionLanguage,
				LanguageCode: types.DefaultCaptionLanguageCode,
				Caption:      content,
			}
			if err := s.captions.Create(inner, c); err != nil {
				return fmt.Errorf("create caption: %w", err)
			}
			keepID = c.ID
		}
		if _, err := s.captions.DemoteApproved(inner, m.ID, types.DefaultCaptionLanguageCode, keepID, supersededReason(keepID)); err != nil {
			return fmt.Errorf("demote approved captions: %w", err)
		}
		return s.events.Success(inner, m.ID, eventType, fmt.Sprintf("By %s, Caption ID: %s", by, keepID))
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Authoritative caption saved", "media_id", m.ID, "caption_id", keepID, "event", eventType)
	return s.captions.GetByID(dbc, keepID)
}

func (s *captionOrchestrator) ExportVTT(dbc dbctx.Context, mediaID uuid.UUID) (string, error) {
	m, err := s.media.GetByID(dbc, mediaID)
	if err != nil {
		return "", err
	}
	if m == nil {
		return "", apierr.NotFound("media_not_found", ErrMediaNotFound)
	}
	c, err := s.captions.FirstApproved(dbc, mediaID)
	if err != nil {
		return "", err
	}
	if c == nil || strings.TrimSpace(c.Caption) == "" {
		return EmptyVTT, nil
	}
	return c.Caption, nil
}

func (s *captionOrchestrator) ListForReview(dbc dbctx.Context, status string) ([]*types.MediaCaption, error) {
	f := repos.CaptionListFilter{}
	if status = strings.TrimSpace(status); status != "" {
		st := types.CaptionStatus(status)
		if !validCaptionStatus(st) {
			return nil, apierr.Validation("unknown caption status %q", status)
		}
		f.Statuses = []types.CaptionStatus{st}
	}
	return s.captions.List(dbc, f)
}

func validCaptionStatus(s types.CaptionStatus) bool {
	switch s {
	case types.CaptionStatusRequested, types.CaptionStatusProcessingByVendor, types.CaptionStatusCompletedByVendor,
		types.CaptionStatusApproved, types.CaptionStatusRejected,
		types.CaptionStatusFailedVendorSubmission, types.CaptionStatusFailedVendorRetrieval:
		return true
	default:
		return false
	}
}
