package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/mediaforge-backend/internal/data/repos"
	"github.com/yungbote/mediaforge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/platform/apierr"
	"github.com/yungbote/mediaforge-backend/internal/platform/ctxutil"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/testsupport"
)

// mp4Header sniffs as video/mp4.
var mp4Header = []byte("\x00\x00\x00\x18ftypisom\x00\x00\x02\x00isomiso2\x00\x00\x00\x08free")

type harness struct {
	t       *testing.T
	db      *gorm.DB
	repos   *repos.Set
	bucket  *testsupport.Bucket
	encoder *testsupport.Encoder
	vendor  *testsupport.CaptionVendor
	prober  *testsupport.Prober
	mailer  *testsupport.Mailer
	locker  *testsupport.Locker
	scratch string

	events    EventLog
	jobs      JobService
	profiles  VendorProfileRegistry
	store     OriginalStore
	dedup     DedupGuard
	cache     *ReconcileCache
	captions  CaptionOrchestrator
	lifecycle MediaLifecycle
	transcode TranscodeOrchestrator
	assembler ChunkAssembler
	media     MediaService

	owner *ctxutil.Actor
	admin *ctxutil.Actor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	h := &harness{
		t:       t,
		db:      db,
		repos:   repos.NewSet(db, log),
		bucket:  testsupport.NewBucket(),
		encoder: &testsupport.Encoder{},
		vendor:  &testsupport.CaptionVendor{Body: "WEBVTT\n\n00:00.000 --> 00:01.000\nhello\n"},
		prober:  &testsupport.Prober{},
		mailer:  &testsupport.Mailer{},
		locker:  testsupport.NewLocker(),
		scratch: t.TempDir(),
		owner:   &ctxutil.Actor{UserID: uuid.New(), Name: "Uploader", Email: "uploader@example.com", Role: "user"},
		admin:   &ctxutil.Actor{UserID: uuid.New(), Name: "Admin", Email: "admin@example.com", Role: "admin"},
	}
	h.events = NewEventLog(log, h.repos.Events)
	h.jobs = NewJobService(log, h.repos.Jobs, 3)
	h.profiles = NewVendorProfileRegistry(db, log, h.repos.Profiles)
	h.store = NewOriginalStore(log, h.bucket)
	h.dedup = NewDedupGuard(db, log, h.repos.Media)
	h.cache = NewReconcileCache(128, time.Minute)
	notifier := NewNotifier(log, h.mailer, "ops@example.com")
	ladder, err := LoadLadder("")
	if err != nil {
		t.Fatalf("LoadLadder: %v", err)
	}
	h.captions = NewCaptionOrchestrator(CaptionDeps{
		DB:       db,
		Log:      log,
		Media:    h.repos.Media,
		Encodes:  h.repos.Encodes,
		Captions: h.repos.Captions,
		Events:   h.events,
		Profiles: h.profiles,
		Vendor:   h.vendor,
		Jobs:     h.jobs,
		Notifier: notifier,
		Cache:    h.cache,
	})
	h.lifecycle = NewMediaLifecycle(MediaLifecycleDeps{
		DB:       db,
		Log:      log,
		Media:    h.repos.Media,
		Encodes:  h.repos.Encodes,
		Events:   h.events,
		Jobs:     h.jobs,
		Store:    h.store,
		Captions: h.captions,
		Cache:    h.cache,
	})
	h.transcode = NewTranscodeOrchestrator(TranscodeDeps{
		DB:        db,
		Log:       log,
		Media:     h.repos.Media,
		Encodes:   h.repos.Encodes,
		Events:    h.events,
		Planner:   NewRenditionPlanner(ladder),
		Encoder:   h.encoder,
		Bucket:    h.bucket,
		Store:     h.store,
		Lifecycle: h.lifecycle,
		Captions:  h.captions,
		Notifier:  notifier,
		Cache:     h.cache,
	})
	h.assembler = NewChunkAssembler(ChunkAssemblerDeps{
		DB:        db,
		Log:       log,
		Config:    ChunkAssemblerConfig{ScratchDir: h.scratch, MaxChunkBytes: 1 << 20, LockTTL: time.Minute},
		Media:     h.repos.Media,
		Encodes:   h.repos.Encodes,
		Events:    h.events,
		Dedup:     h.dedup,
		Store:     h.store,
		Prober:    h.prober,
		Locker:    h.locker,
		Lifecycle: h.lifecycle,
		Jobs:      h.jobs,
		Captions:  h.captions,
	})
	h.media = NewMediaService(log, h.repos.Media, h.events, h.lifecycle)
	return h
}

func (h *harness) ctx(a *ctxutil.Actor) context.Context {
	return ctxutil.WithActor(context.Background(), a)
}

func (h *harness) dbc(a *ctxutil.Actor) dbctx.Context {
	return dbctx.Context{Ctx: h.ctx(a)}
}

func (h *harness) reload(id uuid.UUID) *types.Media {
	h.t.Helper()
	m, err := h.repos.Media.GetByIDWithRelations(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil || m == nil {
		h.t.Fatalf("reload media %s: %v", id, err)
	}
	return m
}

func (h *harness) jobsOfType(jobType string) []*types.JobRun {
	h.t.Helper()
	var out []*types.JobRun
	if err := h.db.Where("job_type = ?", jobType).Order("created_at ASC").Find(&out).Error; err != nil {
		h.t.Fatalf("list jobs: %v", err)
	}
	return out
}

func (h *harness) eventTypes(mediaID uuid.UUID) []string {
	h.t.Helper()
	evs, err := h.events.List(dbctx.Context{Ctx: context.Background()}, mediaID)
	if err != nil {
		h.t.Fatalf("list events: %v", err)
	}
	out := make([]string, 0, len(evs))
	for _, e := range evs {
		out = append(out, e.EventType)
	}
	return out
}

func (h *harness) hasEvent(mediaID uuid.UUID, eventType string) bool {
	for _, et := range h.eventTypes(mediaID) {
		if et == eventType {
			return true
		}
	}
	return false
}

// seedStoredVideo creates a Processing video whose original sits in staging.
func (h *harness) seedStoredVideo(height int) *types.Media {
	h.t.Helper()
	ctx := context.Background()
	m := testutil.SeedMedia(h.t, ctx, h.db, types.MediaTypeVideo, types.MediaStatusProcessing)
	m.StorageKey = "videos/" + m.ID.String() + "/orig.mp4"
	m.OwnerUserID = h.owner.UserID
	if err := h.repos.Media.UpdateFields(dbctx.Context{Ctx: ctx}, m.ID, map[string]interface{}{
		"storage_key":   m.StorageKey,
		"owner_user_id": m.OwnerUserID,
		"url":           h.bucket.GetPublicURL("staging", m.StorageKey),
	}); err != nil {
		h.t.Fatalf("update media: %v", err)
	}
	h.bucket.Put("staging", m.StorageKey, mp4Header)
	orig := testutil.SeedEncode(h.t, ctx, h.db, m.ID, height, types.EncodeStatusComplete, true)
	if err := h.repos.Encodes.UpdateFields(dbctx.Context{Ctx: ctx}, orig.ID, map[string]interface{}{"storage_key": m.StorageKey}); err != nil {
		h.t.Fatalf("update encode: %v", err)
	}
	return m
}

func statusOf(err error) int {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}
