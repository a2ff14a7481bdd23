package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/mediaforge-backend/internal/data/repos"
	"github.com/yungbote/mediaforge-backend/internal/jobs/pipeline/caption_submit"
	"github.com/yungbote/mediaforge-backend/internal/jobs/pipeline/transcode_media"
	"github.com/yungbote/mediaforge-backend/internal/jobs/runtime"
	"github.com/yungbote/mediaforge-backend/internal/jobs/worker"
	"github.com/yungbote/mediaforge-backend/internal/observability"
	"github.com/yungbote/mediaforge-backend/internal/platform/lock"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
	"github.com/yungbote/mediaforge-backend/internal/services"
)

type Services struct {
	Auth      services.AuthService
	Events    services.EventLog
	Jobs      services.JobService
	Profiles  services.VendorProfileRegistry
	Captions  services.CaptionOrchestrator
	Lifecycle services.MediaLifecycle
	Transcode services.TranscodeOrchestrator
	Assembler services.ChunkAssembler
	Media     services.MediaService
	Sweeper   services.ScratchSweeper

	Registry  *runtime.Registry
	JobWorker *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, rs *repos.Set, clients Clients, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	ladder, err := services.LoadLadder(cfg.LadderFile)
	if err != nil {
		return Services{}, fmt.Errorf("load rendition ladder: %w", err)
	}

	events := services.NewEventLog(log, rs.Events)
	jobs := services.NewJobService(log, rs.Jobs, cfg.JobMaxAttempts)
	profiles := services.NewVendorProfileRegistry(db, log, rs.Profiles)
	store := services.NewOriginalStore(log, clients.Bucket)
	dedup := services.NewDedupGuard(db, log, rs.Media)
	cache := services.NewReconcileCache(cfg.ReconcileSize, cfg.ReconcileTTL)
	notifier := services.NewNotifier(log, clients.Mailer, cfg.AdminEmail)

	captions := services.NewCaptionOrchestrator(services.CaptionDeps{
		DB:       db,
		Log:      log,
		Media:    rs.Media,
		Encodes:  rs.Encodes,
		Captions: rs.Captions,
		Events:   events,
		Profiles: profiles,
		Vendor:   clients.Captions,
		Jobs:     jobs,
		Notifier: notifier,
		Cache:    cache,
		Metrics:  metrics,
	})
	lifecycle := services.NewMediaLifecycle(services.MediaLifecycleDeps{
		DB:       db,
		Log:      log,
		Media:    rs.Media,
		Encodes:  rs.Encodes,
		Events:   events,
		Jobs:     jobs,
		Store:    store,
		Captions: captions,
		Cache:    cache,
		Metrics:  metrics,
	})
	transcode := services.NewTranscodeOrchestrator(services.TranscodeDeps{
		DB:        db,
		Log:       log,
		Config:    services.TranscodeConfig{OutputBucket: cfg.Encoder.OutputBucket},
		Media:     rs.Media,
		Encodes:   rs.Encodes,
		Events:    events,
		Planner:   services.NewRenditionPlanner(ladder),
		Encoder:   clients.Encoder,
		Bucket:    clients.Bucket,
		Store:     store,
		Lifecycle: lifecycle,
		Captions:  captions,
		Notifier:  notifier,
		Cache:     cache,
		Metrics:   metrics,
	})
	assembler := services.NewChunkAssembler(services.ChunkAssemblerDeps{
		DB:  db,
		Log: log,
		Config: services.ChunkAssemblerConfig{
			ScratchDir:    cfg.ScratchDir,
			MaxChunkBytes: cfg.MaxChunkBytes,
			LockTTL:       cfg.UploadLockTTL,
		},
		Media:     rs.Media,
		Encodes:   rs.Encodes,
		Events:    events,
		Dedup:     dedup,
		Store:     store,
		Prober:    clients.Prober,
		Locker:    clients.Locker,
		Lifecycle: lifecycle,
		Jobs:      jobs,
		Captions:  captions,
		Metrics:   metrics,
	})

	registry := runtime.NewRegistry()
	for _, h := range []runtime.Handler{
		transcode_media.New(log, transcode),
		caption_submit.New(log, captions),
	} {
		if err := registry.Register(h); err != nil {
			return Services{}, fmt.Errorf("register job handler: %w", err)
		}
	}

	return Services{
		Auth:      services.NewAuthService(log, cfg.JWTSecretKey),
		Events:    events,
		Jobs:      jobs,
		Profiles:  profiles,
		Captions:  captions,
		Lifecycle: lifecycle,
		Transcode: transcode,
		Assembler: assembler,
		Media:     services.NewMediaService(log, rs.Media, events, lifecycle),
		Sweeper:   newSweeper(log, cfg, clients.Locker, metrics),
		Registry:  registry,
		JobWorker: worker.NewWorker(db, log, rs.Jobs, registry, metrics, cfg.Worker),
	}, nil
}

func newSweeper(log *logger.Logger, cfg Config, locker lock.Locker, metrics *observability.Metrics) services.ScratchSweeper {
	return services.NewScratchSweeper(log, cfg.ScratchDir, cfg.SessionTTL, locker, metrics)
}
