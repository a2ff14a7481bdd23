package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/mediaforge-backend/internal/observability"
	"github.com/yungbote/mediaforge-backend/internal/platform/encoder"
	"github.com/yungbote/mediaforge-backend/internal/platform/gcp"
	"github.com/yungbote/mediaforge-backend/internal/platform/localmedia"
	"github.com/yungbote/mediaforge-backend/internal/platform/lock"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
	"github.com/yungbote/mediaforge-backend/internal/platform/sendgrid"
	"github.com/yungbote/mediaforge-backend/internal/platform/threeplay"
	"github.com/yungbote/mediaforge-backend/internal/services"
)

type Clients struct {
	Bucket   gcp.BucketService
	Encoder  encoder.Client
	Captions threeplay.Client
	Mailer   services.Mailer
	Prober   localmedia.Prober
	Locker   lock.Locker
	Redis    *goredis.Client
}

// wireLocker prefers redis so every replica shares the upload session locks. Without
// REDIS_ADDR it falls back to file locks, which only serialize one host.
func wireLocker(ctx context.Context, log *logger.Logger, cfg Config) (lock.Locker, *goredis.Client, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		l, err := lock.NewFileLocker(log, cfg.LockDir)
		if err != nil {
			return nil, nil, fmt.Errorf("init file locker: %w", err)
		}
		log.Info("Using file locks for upload sessions", "dir", cfg.LockDir)
		return l, nil, nil
	}
	rdb, err := lock.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, fmt.Errorf("init redis: %w", err)
	}
	log.Info("Using redis locks for upload sessions", "addr", cfg.RedisAddr)
	return lock.NewRedisLocker(log, rdb, ""), rdb, nil
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")

	bucket, err := openBucketService(log, cfg.Storage, metrics)
	if err != nil {
		return Clients{}, err
	}

	enc, err := encoder.New(log, cfg.Encoder)
	if err != nil {
		return Clients{}, fmt.Errorf("init encoder client: %w", err)
	}

	vendor, err := threeplay.New(log, cfg.Captions)
	if err != nil {
		return Clients{}, fmt.Errorf("init caption vendor client: %w", err)
	}

	var mailer services.Mailer
	if strings.TrimSpace(cfg.SendGrid.APIKey) == "" {
		log.Warn("SENDGRID_API_KEY is not set; notifications are logged instead of sent")
		mailer = services.NewLogMailer(log)
	} else {
		sg, err := sendgrid.New(log, cfg.SendGrid)
		if err != nil {
			return Clients{}, fmt.Errorf("init sendgrid client: %w", err)
		}
		mailer = services.NewSendGridMailer(sg)
	}

	prober := localmedia.NewProber(log, cfg.FFProbePath)
	if err := prober.AssertReady(ctx); err != nil {
		// Uploads still succeed; videos are published with the original only.
		log.Warn("ffprobe unavailable", "error", err)
	}

	locker, rdb, err := wireLocker(ctx, log, cfg)
	if err != nil {
		return Clients{}, err
	}

	return Clients{
		Bucket:   bucket,
		Encoder:  enc,
		Captions: vendor,
		Mailer:   mailer,
		Prober:   prober,
		Locker:   locker,
		Redis:    rdb,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
