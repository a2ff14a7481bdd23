package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/yungbote/mediaforge-backend/internal/jobs/worker"
	"github.com/yungbote/mediaforge-backend/internal/platform/encoder"
	"github.com/yungbote/mediaforge-backend/internal/platform/envutil"
	"github.com/yungbote/mediaforge-backend/internal/platform/gcp"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
	"github.com/yungbote/mediaforge-backend/internal/platform/sendgrid"
	"github.com/yungbote/mediaforge-backend/internal/platform/threeplay"
)

type Config struct {
	Port        string
	LogMode     string
	Environment string
	Version     string

	JWTSecretKey  string
	CORSOrigins   []string
	WebhookSecret string
	AdminEmail    string

	Storage gcp.StorageConfig

	ScratchDir     string
	SessionTTL     time.Duration
	SweepInterval  time.Duration
	MaxChunkBytes  int64
	UploadLockTTL  time.Duration
	LockDir        string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	FFProbePath    string
	LadderFile     string
	JobMaxAttempts int
	ReconcileSize  int
	ReconcileTTL   time.Duration

	Encoder  encoder.Config
	Captions threeplay.Config
	SendGrid sendgrid.Config
	Worker   worker.Config
}

func LoadConfig(log *logger.Logger) Config {
	scratch := envutil.String("UPLOAD_SCRATCH_DIR", filepath.Join(os.TempDir(), "mediaforge"))
	cfg := Config{
		Port:        envutil.String("PORT", "8080"),
		LogMode:     envutil.String("LOG_MODE", "development"),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),

		JWTSecretKey:  envutil.String("JWT_SECRET_KEY", ""),
		CORSOrigins:   envutil.List("CORS_ALLOWED_ORIGINS", nil),
		WebhookSecret: envutil.String("WEBHOOK_SHARED_SECRET", ""),
		AdminEmail:    envutil.String("ADMIN_EMAIL", ""),

		Storage: gcp.StorageConfigFromEnv(),

		ScratchDir:     scratch,
		SessionTTL:     envutil.Duration("UPLOAD_SESSION_TTL", 24*time.Hour),
		SweepInterval:  envutil.Duration("UPLOAD_SWEEP_INTERVAL", 15*time.Minute),
		MaxChunkBytes:  envutil.Int64("MAX_CHUNK_BYTES", 64<<20),
		UploadLockTTL:  envutil.Duration("UPLOAD_LOCK_TTL", 10*time.Minute),
		LockDir:        envutil.String("UPLOAD_LOCK_DIR", filepath.Join(scratch, "locks")),
		RedisAddr:      envutil.String("REDIS_ADDR", ""),
		RedisPassword:  envutil.String("REDIS_PASSWORD", ""),
		RedisDB:        envutil.Int("REDIS_DB", 0),
		FFProbePath:    envutil.String("FFPROBE_PATH", "ffprobe"),
		LadderFile:     envutil.String("RENDITION_LADDER_FILE", ""),
		JobMaxAttempts: envutil.Int("JOB_MAX_ATTEMPTS", 3),
		ReconcileSize:  envutil.Int("RECONCILE_CACHE_SIZE", 4096),
		ReconcileTTL:   envutil.Duration("RECONCILE_CACHE_TTL", 10*time.Minute),

		Encoder:  encoder.ConfigFromEnv(),
		Captions: threeplay.ConfigFromEnv(),
		SendGrid: sendgrid.ConfigFromEnv(),
		Worker:   worker.ConfigFromEnv(),
	}
	if log != nil {
		if cfg.JWTSecretKey == "" {
			log.Warn("JWT_SECRET_KEY is not set; every authenticated request will be rejected")
		}
		if cfg.WebhookSecret == "" {
			log.Warn("WEBHOOK_SHARED_SECRET is not set; vendor webhooks are unauthenticated")
		}
		if cfg.AdminEmail == "" {
			log.Warn("ADMIN_EMAIL is not set; transcode failure alerts are disabled")
		}
	}
	return cfg
}
