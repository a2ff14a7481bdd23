package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/yungbote/mediaforge-backend/internal/platform/gcp"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("UPLOAD_SCRATCH_DIR", "/var/tmp/mf")
	t.Setenv("OBJECT_STORAGE_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "")
	t.Setenv("STAGING_GCS_BUCKET_NAME", "media-staging")
	t.Setenv("PUBLIC_GCS_BUCKET_NAME", "media-public")
	t.Setenv("JOB_MAX_ATTEMPTS", "")
	t.Setenv("MAX_CHUNK_BYTES", "")
	for _, name := range []string{"PORT", "UPLOAD_SESSION_TTL", "UPLOAD_SWEEP_INTERVAL", "UPLOAD_LOCK_DIR"} {
		t.Setenv(name, "")
	}

	cfg := LoadConfig(nil)
	if cfg.Port != "8080" {
		t.Fatalf("port: got %q", cfg.Port)
	}
	if cfg.Storage.Mode != gcp.StorageModeGCS || cfg.Storage.StagingBucket != "media-staging" || cfg.Storage.PublicBucket != "media-public" {
		t.Fatalf("storage: %+v", cfg.Storage)
	}
	if cfg.SessionTTL != 24*time.Hour || cfg.SweepInterval != 15*time.Minute {
		t.Fatalf("sweep timings: ttl=%s interval=%s", cfg.SessionTTL, cfg.SweepInterval)
	}
	if cfg.MaxChunkBytes != 64<<20 || cfg.JobMaxAttempts != 3 {
		t.Fatalf("limits: chunk=%d attempts=%d", cfg.MaxChunkBytes, cfg.JobMaxAttempts)
	}
	if cfg.LockDir != filepath.Join("/var/tmp/mf", "locks") {
		t.Fatalf("lock dir: got %q", cfg.LockDir)
	}
}

func TestLoadConfigEmulatorHostImpliesEmulatorMode(t *testing.T) {
	t.Setenv("OBJECT_STORAGE_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")

	cfg := LoadConfig(nil)
	if cfg.Storage.Mode != gcp.StorageModeEmulator || !cfg.Storage.ModeInferred {
		t.Fatalf("storage mode: %+v", cfg.Storage)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example.com" {
		t.Fatalf("cors origins: %v", cfg.CORSOrigins)
	}
}
