package app

import (
	"errors"
	"fmt"

	"github.com/yungbote/mediaforge-backend/internal/observability"
	"github.com/yungbote/mediaforge-backend/internal/platform/gcp"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

var newBucketService = gcp.NewBucketService

const storageConnectFailed = "connect_failed"

// StorageBootstrapError reports why the staging/public bucket pair could not be opened.
// Code is a gcp.StorageConfigErrorCode or connect_failed.
type StorageBootstrapError struct {
	Code  string
	Mode  gcp.StorageMode
	Cause error
}

func (e *StorageBootstrapError) Error() string {
	if e == nil {
		return "object storage bootstrap failed"
	}
	return fmt.Sprintf("object storage bootstrap failed (code=%s mode=%q): %v", e.Code, e.Mode, e.Cause)
}

func (e *StorageBootstrapError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// openBucketService validates cfg before dialing so a misconfigured deploy fails with the
// offending env var named, then records the outcome on metrics.
func openBucketService(log *logger.Logger, cfg gcp.StorageConfig, metrics *observability.Metrics) (gcp.BucketService, error) {
	log.Info(
		"Selecting object storage provider",
		"mode", cfg.Mode,
		"mode_source", cfg.ModeSource(),
		"emulator_host", cfg.EmulatorHost,
		"staging_bucket", cfg.StagingBucket,
		"public_bucket", cfg.PublicBucket,
	)

	var bucket gcp.BucketService
	err := cfg.Validate()
	if err == nil {
		bucket, err = newBucketService(log, cfg)
	}
	if err != nil {
		bootErr := classifyStorageBootstrapError(cfg, err)
		metrics.ObserveStorageBootstrap(string(cfg.Mode), cfg.ModeSource(), bootErr.Code)
		log.Error(
			"Object storage provider bootstrap failed",
			"mode", cfg.Mode,
			"mode_source", cfg.ModeSource(),
			"error_code", bootErr.Code,
			"error", err,
		)
		return nil, bootErr
	}

	metrics.ObserveStorageBootstrap(string(cfg.Mode), cfg.ModeSource(), "ok")
	log.Info("Object storage provider ready", "mode", cfg.Mode, "mode_source", cfg.ModeSource())
	return bucket, nil
}

func classifyStorageBootstrapError(cfg gcp.StorageConfig, err error) *StorageBootstrapError {
	code := storageConnectFailed
	var cfgErr *gcp.StorageConfigError
	if errors.As(err, &cfgErr) && cfgErr.Code != "" {
		code = string(cfgErr.Code)
	}
	return &StorageBootstrapError{Code: code, Mode: cfg.Mode, Cause: err}
}
