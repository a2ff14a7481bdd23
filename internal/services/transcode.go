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
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/platform/encoder"
	"github.com/yungbote/mediaforge-backend/internal/platform/gcp"
	"github.com/yungbote/mediaforge-backend/internal/platform/httpx"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

const defaultEncoderError = "Unknown error from encoding service."

type WebhookOutcome string

const (
	WebhookProcessed WebhookOutcome = "success"
	WebhookDuplicate WebhookOutcome = "duplicate"
	WebhookIgnored   WebhookOutcome = "ignored"
)

type WebhookResult struct {
	Outcome WebhookOutcome
	MediaID uuid.UUID
}

// TranscodeOrchestrator submits rendition jobs and reconciles their outcome.
type TranscodeOrchestrator interface {
	// Dispatch plans and submits the transcode for a Processing video. finalAttempt turns a
	// transient submission failure into a terminal one.
	Dispatch(ctx context.Context, mediaID uuid.UUID, finalAttempt bool) error
	HandleWebhook(ctx context.Context, detail encoder.EventDetail) (*WebhookResult, error)
}

type TranscodeConfig struct {
	// OutputBucket receives encoder outputs. Empty means the public bucket.
	OutputBucket string
}

type TranscodeDeps struct {
	DB        *gorm.DB
	Log       *logger.Logger
	Config    TranscodeConfig
	Media     repos.MediaRepo
	Encodes   repos.MediaEncodeRepo
	Events    EventLog
	Planner   RenditionPlanner
	Encoder   encoder.Client
	Bucket    gcp.BucketService
	Store     OriginalStore
	Lifecycle MediaLifecycle
	Captions  PendingCaptionQueue
	Notifier  Notifier
	Cache     *ReconcileCache
	Metrics   *observability.Metrics
}

type transcodeOrchestrator struct {
	db        *gorm.DB
	log       *logger.Logger
	cfg       TranscodeConfig
	media     repos.MediaRepo
	encodes   repos.MediaEncodeRepo
	events    EventLog
	planner   RenditionPlanner
	encoder   encoder.Client
	bucket    gcp.BucketService
	store     OriginalStore
	lifecycle MediaLifecycle
	captions  PendingCaptionQueue
	notifier  Notifier
	cache     *ReconcileCache
	metrics   *observability.Metrics
}

func NewTranscodeOrchestrator(d TranscodeDeps) TranscodeOrchestrator {
	return &transcodeOrchestrator{
		db:        d.DB,
		log:       d.Log.With("service", "TranscodeOrchestrator"),
		cfg:       d.Config,
		media:     d.Media,
		encodes:   d.Encodes,
		events:    d.Events,
		planner:   d.Planner,
		encoder:   d.Encoder,
		bucket:    d.Bucket,
		store:     d.Store,
		lifecycle: d.Lifecycle,
		captions:  d.Captions,
		notifier:  d.Notifier,
		cache:     d.Cache,
		metrics:   d.Metrics,
	}
}

func (s *transcodeOrchestrator) Dispatch(ctx context.Context, mediaID uuid.UUID, finalAttempt bool) (err error) {
	ctx, span := observability.StartSpan(ctx, "transcode.dispatch", attribute.String("media_id", mediaID.String()))
	defer func() { observability.EndSpan(span, err) }()

	dbc := dbctx.Context{Ctx: ctx}
	m, err := s.media.GetByID(dbc, mediaID)
	if err != nil {
		return err
	}
	if m == nil {
		return Permanent(fmt.Errorf("%w: %s", ErrMediaNotFound, mediaID))
	}
	err = s.dispatch(ctx, m, finalAttempt)
	if err != nil && finalAttempt && !IsPermanent(err) {
		// Retries are exhausted; the record must not stay Processing.
		return s.submitFailed(ctx, m, err)
	}
	return err
}

func (s *transcodeOrchestrator) dispatch(ctx context.Context, m *types.Media, finalAttempt bool) error {
	dbc := dbctx.Context{Ctx: ctx}
	if m.Status != types.MediaStatusProcessing {
		s.log.Info("Transcode skipped: media not processing", "media_id", m.ID, "status", m.Status)
		return nil
	}
	if m.TranscodeJobID != "" && m.TranscodeSubmittedAt != nil {
		s.log.Info("Transcode skipped: already submitted", "media_id", m.ID, "job_id", m.TranscodeJobID)
		return nil
	}
	if err := s.events.Info(dbc, m.ID, types.EventTranscodeStarted, ""); err != nil {
		return err
	}

	original, err := s.encodes.GetOriginal(dbc, m.ID)
	if err != nil {
		return err
	}
	if original == nil {
		return s.submitFailed(ctx, m, fmt.Errorf("media %s has no original encode", m.ID))
	}

	renditions := s.planner.Plan(original.Height)
	if len(renditions) == 0 {
		details := fmt.Sprintf("Source height %d; publishing original only", original.Height)
		if _, err := s.lifecycle.RelocateAndPublish(ctx, m, types.EventNoRenditions, details); err != nil {
			return fmt.Errorf("publish without renditions: %w", err)
		}
		return nil
	}

	source, err := s.store.Source(ctx, m)
	if err != nil {
		return fmt.Errorf("locate original: %w", err)
	}
	req := encoder.CreateJobRequest{
		Settings:     encoder.NewFileGroupJob(s.bucket.ObjectURI(source, m.StorageKey), s.destination(m), renditions),
		UserMetadata: map[string]string{"media_id": m.ID.String()},
	}

	start := time.Now()
	job, err := s.encoder.CreateJob(ctx, req)
	s.metrics.ObserveVendorCall("encoder", "create_job", err, time.Since(start))
	if err != nil {
		if !httpx.IsRetryableError(err) {
			return s.submitFailed(ctx, m, err)
		}
		if !finalAttempt {
			s.log.Warn("Encoder submission failed; will retry", "media_id", m.ID, "error", err)
		}
		return err
	}

	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		ok, err := s.media.RecordTranscodeSubmission(inner, m.ID, job.ID, time.Now())
		if err != nil {
			return err
		}
		if !ok {
			// The job's webhook reconciled the record before we got here.
			s.log.Warn("Transcode submission not recorded; media already reconciled", "media_id", m.ID, "job_id", job.ID)
		}
		return s.events.Success(inner, m.ID, types.EventSentToEncoder, "Job ID: "+job.ID)
	})
	if err != nil {
		return err
	}
	s.log.Info("Transcode submitted", "media_id", m.ID, "job_id", job.ID, "renditions", len(renditions))
	return nil
}

func (s *transcodeOrchestrator) destination(m *types.Media) string {
	dir := fmt.Sprintf("%s/%s/", m.MediaType.StoragePrefix(), m.ID)
	if b := strings.TrimSpace(s.cfg.OutputBucket); b != "" {
		return fmt.Sprintf("gs://%s/%s", strings.TrimSuffix(strings.TrimPrefix(b, "gs://"), "/"), dir)
	}
	return s.bucket.ObjectURI(gcp.BucketCategoryPublic, dir)
}

// submitFailed fails the record and alerts the operator. The returned error is permanent.
func (s *transcodeOrchestrator) submitFailed(ctx context.Context, m *types.Media, cause error) error {
	s.log.Error("Encoder submission failed", "media_id", m.ID, "error", cause)
	moved, err := s.lifecycle.Fail(dbctx.Context{Ctx: ctx}, m, types.EventEncoderSubmitFailed, cause.Error())
	if err != nil {
		return err
	}
	if moved {
		s.notifier.TranscodeFailed(ctx, m, cause.Error())
	}
	return Permanent(cause)
}

func webhookError(status int, msg string) error {
	return apierr.New(status, "webhook_rejected", errors.New(msg))
}

func jobMismatch() error {
	return apierr.New(http.StatusConflict, "webhook_rejected", ErrJobMismatch)
}

func (s *transcodeOrchestrator) HandleWebhook(ctx context.Context, detail encoder.EventDetail) (res *WebhookResult, err error) {
	ctx, span := observability.StartSpan(ctx, "transcode.webhook",
		attribute.String("job_id", detail.JobID),
		attribute.String("status", detail.Status),
	)
	defer func() {
		observability.EndSpan(span, err)
		outcome := "error"
		if res != nil {
			outcome = string(res.Outcome)
		}
		s.metrics.IncWebhook("encoder", outcome)
	}()

	rawID := detail.MediaID()
	if rawID == "" {
		return nil, webhookError(http.StatusBadRequest, "No media_id provided.")
	}
	mediaID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, webhookError(http.StatusBadRequest, "Invalid media_id.")
	}
	jobID := strings.TrimSpace(detail.JobID)
	status := detail.NormalizedStatus()
	if jobID != "" && s.cache.SeenTranscode(jobID) {
		return &WebhookResult{Outcome: WebhookDuplicate, MediaID: mediaID}, nil
	}

	dbc := dbctx.Context{Ctx: ctx}
	m, err := s.media.GetByID(dbc, mediaID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, webhookError(http.StatusNotFound, "Media not found.")
	}
	if err := s.events.Info(dbc, m.ID, types.EventEncoderWebhook, fmt.Sprintf("Job ID: %s, Status: %s", jobID, status)); err != nil {
		return nil, err
	}

	if m.TranscodeJobID != "" && m.TranscodeJobID != jobID {
		s.log.Warn("Encoder webhook job mismatch", "media_id", m.ID, "job_id", jobID, "expected_job_id", m.TranscodeJobID)
		return nil, jobMismatch()
	}
	if m.TranscodeReconciledAt != nil {
		return &WebhookResult{Outcome: WebhookDuplicate, MediaID: m.ID}, nil
	}
	if status != encoder.StatusComplete && status != encoder.StatusError {
		return &WebhookResult{Outcome: WebhookIgnored, MediaID: m.ID}, nil
	}
	target := types.MediaStatusFailed
	if status == encoder.StatusComplete {
		target = types.MediaStatusPublished
	}
	if !m.Status.CanTransition(target) {
		return nil, webhookError(http.StatusConflict, fmt.Sprintf("Media is %s, not Processing.", m.Status))
	}

	if status == encoder.StatusComplete {
		res, err = s.reconcileComplete(ctx, m, jobID, detail.Outputs())
	} else {
		res, err = s.reconcileError(ctx, m, jobID, detail.ErrorMessage)
	}
	if err == nil && res != nil && res.Outcome == WebhookProcessed {
		s.cache.MarkTranscode(jobID)
	}
	return res, err
}

func (s *transcodeOrchestrator) reconcileComplete(ctx context.Context, m *types.Media, jobID string, outputs []encoder.ProducedRendition) (*WebhookResult, error) {
	// Relocation is idempotent, so it runs before the claim and a redelivery can finish it.
	url, err := s.store.Relocate(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("relocate original: %w", err)
	}

	claimed := false
	err = inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		ok, err := s.media.ClaimTranscodeReconciliation(inner, m.ID, jobID, types.MediaStatusPublished, "", time.Now())
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		claimed = true
		m.Status = types.MediaStatusPublished
		m.StatusDetails = ""
		if err := s.lifecycle.ApplyRelocation(inner, m, url); err != nil {
			return err
		}
		rows := make([]*types.MediaEncode, 0, len(outputs))
		for _, o := range outputs {
			key := o.FilePath
			if _, k, ok := gcp.ParseObjectURI(o.FilePath); ok {
				key = k
			}
			rows = append(rows, &types.MediaEncode{
				MediaID:       m.ID,
				Width:         o.Width,
				Height:        o.Height,
				Status:        types.EncodeStatusComplete,
				Type:          "mp4",
				Resolution:    types.ResolutionLabel(o.Height),
				URL:           s.bucket.GetPublicURL(gcp.BucketCategoryPublic, key),
				StorageKey:    key,
				ExternalJobID: jobID,
			})
		}
		if _, err := s.encodes.Create(inner, rows); err != nil {
			return fmt.Errorf("record renditions: %w", err)
		}
		details := fmt.Sprintf("Job ID: %s, Renditions: %d", jobID, len(rows))
		if err := s.events.Success(inner, m.ID, types.EventTranscodeComplete, details); err != nil {
			return err
		}
		if s.captions != nil {
			if _, err := s.captions.EnqueuePending(inner, m); err != nil {
				return fmt.Errorf("enqueue pending captions: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return s.lostClaim(ctx, m.ID)
	}
	s.metrics.IncMediaTransition(m.MediaType, types.MediaStatusPublished)
	s.log.Info("Transcode complete", "media_id", m.ID, "job_id", jobID, "renditions", len(outputs))
	return &WebhookResult{Outcome: WebhookProcessed, MediaID: m.ID}, nil
}

func (s *transcodeOrchestrator) reconcileError(ctx context.Context, m *types.Media, jobID, message string) (*WebhookResult, error) {
	details := strings.TrimSpace(message)
	if details == "" {
		details = defaultEncoderError
	}
	claimed := false
	err := inTx(s.db, dbctx.Context{Ctx: ctx}, func(inner dbctx.Context) error {
		ok, err := s.media.ClaimTranscodeReconciliation(inner, m.ID, jobID, types.MediaStatusFailed, details, time.Now())
		if err != nil || !ok {
			return err
		}
		claimed = true
		m.Status = types.MediaStatusFailed
		m.StatusDetails = details
		return s.events.Error(inner, m.ID, types.EventTranscodeFailed, details)
	})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return s.lostClaim(ctx, m.ID)
	}
	s.metrics.IncMediaTransition(m.MediaType, types.MediaStatusFailed)
	s.log.Warn("Transcode failed", "media_id", m.ID, "job_id", jobID, "details", details)
	s.notifier.TranscodeFailed(ctx, m, details)
	return &WebhookResult{Outcome: WebhookProcessed, MediaID: m.ID}, nil
}

// lostClaim classifies a reconciliation that another delivery won.
func (s *transcodeOrchestrator) lostClaim(ctx context.Context, mediaID uuid.UUID) (*WebhookResult, error) {
	cur, err := s.media.GetByID(dbctx.Context{Ctx: ctx}, mediaID)
	if err != nil {
		return nil, err
	}
	if cur != nil && cur.TranscodeReconciledAt != nil {
		return &WebhookResult{Outcome: WebhookDuplicate, MediaID: mediaID}, nil
	}
	return nil, jobMismatch()
}
