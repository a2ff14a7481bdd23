package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/mediaforge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/mediaforge-backend/internal/http/middleware"
	"github.com/yungbote/mediaforge-backend/internal/observability"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	CORSOrigins    []string
	WebhookSecret  string
	AuthMiddleware *httpMW.AuthMiddleware

	MediaHandler   *httpH.MediaHandler
	WebhookHandler *httpH.WebhookHandler
	AdminHandler   *httpH.AdminHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "mediaforge"
	}
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")

	// Vendor callbacks authenticate with the shared secret, not a user token.
	if cfg.WebhookHandler != nil {
		hooks := api.Group("/webhooks")
		hooks.Use(httpMW.WebhookSecret(cfg.WebhookSecret))
		hooks.POST("/encoder", cfg.WebhookHandler.Encoder)
		hooks.POST("/captions", cfg.WebhookHandler.Captions)
	}

	protected := api.Group("/")
	if cfg.AuthMiddleware != nil {
		protected.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		if cfg.MediaHandler != nil {
			protected.POST("/media/upload-chunk", cfg.MediaHandler.UploadChunk)
			protected.GET("/media", cfg.MediaHandler.ListMedia)
			protected.GET("/media/:id", cfg.MediaHandler.GetMedia)
			protected.PUT("/media/:id", cfg.MediaHandler.UpdateMedia)
			protected.GET("/media/:id/events", cfg.MediaHandler.ListEvents)
			protected.GET("/media/:id/captions.vtt", cfg.MediaHandler.CaptionsVTT)
			protected.POST("/media/:id/captions", cfg.MediaHandler.UploadCaption)
			protected.PUT("/media/:id/captions", cfg.MediaHandler.EditCaption)
		}
	}

	admin := protected.Group("/admin")
	if cfg.AuthMiddleware != nil {
		admin.Use(cfg.AuthMiddleware.RequireAdmin())
	}
	if cfg.AdminHandler != nil {
		admin.GET("/caption-requests", cfg.AdminHandler.ListCaptionRequests)
		admin.PUT("/caption-requests/:id", cfg.AdminHandler.ReviewCaptionRequest)

		admin.GET("/caption-profiles", cfg.AdminHandler.ListProfiles)
		admin.POST("/caption-profiles", cfg.AdminHandler.CreateProfile)
		admin.GET("/caption-profiles/active", cfg.AdminHandler.ActiveProfile)
		admin.PUT("/caption-profiles/:id", cfg.AdminHandler.UpdateProfile)
		admin.DELETE("/caption-profiles/:id", cfg.AdminHandler.DeleteProfile)
		admin.POST("/caption-profiles/:id/activate", cfg.AdminHandler.ActivateProfile)

		admin.POST("/media/:id/retranscode", cfg.AdminHandler.Retranscode)
	}

	return r
}
