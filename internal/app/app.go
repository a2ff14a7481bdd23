package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/mediaforge-backend/internal/data/db"
	"github.com/yungbote/mediaforge-backend/internal/data/repos"
	apphttp "github.com/yungbote/mediaforge-backend/internal/http"
	httpH "github.com/yungbote/mediaforge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mediaforge-backend/internal/http/middleware"
	"github.com/yungbote/mediaforge-backend/internal/observability"
	"github.com/yungbote/mediaforge-backend/internal/platform/envutil"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

const serviceName = "mediaforge"

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Router   *gin.Engine
	Cfg      Config
	Repos    *repos.Set
	Clients  Clients
	Services Services
	Metrics  *observability.Metrics

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
}

// NewLogger builds the process logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func New(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if envutil.Bool("AUTO_MIGRATE", true) {
		if err := pg.AutoMigrateAll(); err != nil {
			_ = pg.Close()
			return nil, fmt.Errorf("postgres automigrate: %w", err)
		}
	}
	theDB := pg.DB()

	reposet := repos.NewSet(theDB, log)

	clients, err := wireClients(ctx, log, cfg, metrics)
	if err != nil {
		_ = pg.Close()
		return nil, err
	}

	serviceset, err := wireServices(theDB, log, cfg, reposet, clients, metrics)
	if err != nil {
		clients.Close()
		_ = pg.Close()
		return nil, err
	}

	router := apphttp.NewRouter(apphttp.RouterConfig{
		Log:            log,
		Metrics:        metrics,
		ServiceName:    serviceName,
		CORSOrigins:    cfg.CORSOrigins,
		WebhookSecret:  cfg.WebhookSecret,
		AuthMiddleware: httpMW.NewAuthMiddleware(log, serviceset.Auth),
		MediaHandler: httpH.NewMediaHandler(httpH.MediaHandlerDeps{
			Log:           log,
			Assembler:     serviceset.Assembler,
			Media:         serviceset.Media,
			Captions:      serviceset.Captions,
			MaxChunkBytes: cfg.MaxChunkBytes,
		}),
		WebhookHandler: httpH.NewWebhookHandler(log, serviceset.Transcode, serviceset.Captions),
		AdminHandler:   httpH.NewAdminHandler(log, serviceset.Captions, serviceset.Profiles, serviceset.Media),
		HealthHandler:  httpH.NewHealthHandler(),
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Clients:      clients,
		Services:     serviceset,
		Metrics:      metrics,
		pg:           pg,
		otelShutdown: otelShutdown,
	}, nil
}

// startBackground launches the collectors and the scratch sweeper on g.
func (a *App) startBackground(ctx context.Context, g *errgroup.Group) {
	a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
	a.Metrics.StartJobQueueCollector(ctx, a.Log, a.DB)
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
	}
	g.Go(func() error {
		a.Services.Sweeper.Run(ctx, a.Cfg.SweepInterval)
		return nil
	})
}

// RunServer serves HTTP until ctx is cancelled. withWorker also runs the job worker in-process.
func (a *App) RunServer(ctx context.Context, withWorker bool) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	a.startBackground(gctx, g)
	if withWorker {
		g.Go(func() error {
			a.Services.JobWorker.Start(gctx)
			return nil
		})
	}
	g.Go(func() error {
		srv := &apphttp.Server{Engine: a.Router}
		addr := ":" + a.Cfg.Port
		a.Log.Info("HTTP server listening", "addr", addr)
		return srv.Run(gctx, addr)
	})
	return g.Wait()
}

func (a *App) RunWorker(ctx context.Context) error {
	if a == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)
	a.startBackground(gctx, g)
	g.Go(func() error {
		a.Services.JobWorker.Start(gctx)
		return nil
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.pg != nil {
		if err := a.pg.Close(); err != nil {
			a.Log.Warn("close postgres failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(shutdownCtx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
}

// Migrate applies the schema without wiring any vendor clients.
func Migrate(log *logger.Logger) error {
	pg, err := db.NewPostgresService(log)
	if err != nil {
		return fmt.Errorf("init postgres: %w", err)
	}
	defer pg.Close()
	return pg.AutoMigrateAll()
}

// SweepOnce removes abandoned upload sessions once. It needs only the scratch dir and the
// session locker.
func SweepOnce(ctx context.Context, log *logger.Logger) (int, error) {
	cfg := LoadConfig(nil)
	locker, rdb, err := wireLocker(ctx, log, cfg)
	if err != nil {
		return 0, err
	}
	if rdb != nil {
		defer rdb.Close()
	}
	return newSweeper(log, cfg, locker, nil).Sweep(ctx, time.Now())
}
