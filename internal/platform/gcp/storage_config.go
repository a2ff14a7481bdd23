package gcp

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yungbote/mediaforge-backend/internal/platform/envutil"
)

// StorageMode selects the object store backend.
type StorageMode string

const (
	StorageModeGCS      StorageMode = "gcs"
	StorageModeEmulator StorageMode = "gcs_emulator"
)

func (m StorageMode) Valid() bool {
	return m == StorageModeGCS || m == StorageModeEmulator
}

func (m StorageMode) Emulated() bool { return m == StorageModeEmulator }

// StorageConfig names the staging and public buckets and how to reach them. Originals land in
// staging and are copied to public when a record is published.
type StorageConfig struct {
	Mode StorageMode
	// ModeInferred is set when OBJECT_STORAGE_MODE was empty and the mode came from
	// STORAGE_EMULATOR_HOST.
	ModeInferred  bool
	EmulatorHost  string
	StagingBucket string
	PublicBucket  string
	// PublicBaseURL replaces the storage host in public object URLs.
	PublicBaseURL string
	// CDNDomain fronts the public bucket when set.
	CDNDomain string
}

func StorageConfigFromEnv() StorageConfig {
	cfg := StorageConfig{
		Mode:          StorageMode(strings.ToLower(envutil.String("OBJECT_STORAGE_MODE", ""))),
		EmulatorHost:  strings.TrimRight(envutil.String("STORAGE_EMULATOR_HOST", ""), "/"),
		StagingBucket: envutil.String("STAGING_GCS_BUCKET_NAME", ""),
		PublicBucket:  envutil.String("PUBLIC_GCS_BUCKET_NAME", ""),
		PublicBaseURL: strings.TrimRight(envutil.String("OBJECT_STORAGE_PUBLIC_BASE_URL", ""), "/"),
		CDNDomain:     envutil.String("PUBLIC_CDN_DOMAIN", ""),
	}
	if cfg.Mode == "" {
		cfg.ModeInferred = true
		cfg.Mode = StorageModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = StorageModeEmulator
		}
	}
	return cfg
}

func (cfg StorageConfig) ModeSource() string {
	if cfg.ModeInferred {
		return "inferred"
	}
	return "explicit"
}

// BucketFor resolves a category to its bucket name.
func (cfg StorageConfig) BucketFor(category BucketCategory) (string, error) {
	switch category {
	case BucketCategoryStaging:
		return cfg.StagingBucket, nil
	case BucketCategoryPublic:
		return cfg.PublicBucket, nil
	default:
		return "", fmt.Errorf("unknown bucket category: %s", category)
	}
}

// PublicBase returns the host prefix for public URLs and where it came from. An empty base
// means the storage.googleapis.com default.
func (cfg StorageConfig) PublicBase() (string, string) {
	if cfg.PublicBaseURL != "" {
		return cfg.PublicBaseURL, "public_base_url"
	}
	if cfg.Mode.Emulated() {
		return cfg.EmulatorHost, "emulator_host"
	}
	return "", "gcs_default"
}

type StorageConfigErrorCode string

const (
	StorageConfigInvalidMode         StorageConfigErrorCode = "invalid_mode"
	StorageConfigMissingEmulatorHost StorageConfigErrorCode = "missing_emulator_host"
	StorageConfigInvalidURL          StorageConfigErrorCode = "invalid_url"
	StorageConfigMissingBucket       StorageConfigErrorCode = "missing_bucket"
	StorageConfigSharedBucket        StorageConfigErrorCode = "shared_bucket"
)

type StorageConfigError struct {
	Code StorageConfigErrorCode
	// Env is the variable at fault.
	Env   string
	Value string
	Cause error
}

func (e *StorageConfigError) Error() string {
	if e == nil {
		return "invalid object storage config"
	}
	switch e.Code {
	case StorageConfigInvalidMode:
		return fmt.Sprintf("invalid OBJECT_STORAGE_MODE=%q (allowed: %q, %q)", e.Value, StorageModeGCS, StorageModeEmulator)
	case StorageConfigMissingEmulatorHost:
		return fmt.Sprintf("OBJECT_STORAGE_MODE=%q requires STORAGE_EMULATOR_HOST", StorageModeEmulator)
	case StorageConfigInvalidURL:
		return fmt.Sprintf("invalid %s=%q; expected an absolute URL like http://fake-gcs:4443", e.Env, e.Value)
	case StorageConfigMissingBucket:
		return fmt.Sprintf("missing env var %s", e.Env)
	case StorageConfigSharedBucket:
		return fmt.Sprintf("STAGING_GCS_BUCKET_NAME and PUBLIC_GCS_BUCKET_NAME must differ (both %q)", e.Value)
	default:
		return "invalid object storage config"
	}
}

func (e *StorageConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Validate checks the config before any client is built. Staging and public must be distinct
// buckets: relocation copies then deletes the staging object under the same key.
func (cfg StorageConfig) Validate() error {
	if !cfg.Mode.Valid() {
		return &StorageConfigError{Code: StorageConfigInvalidMode, Env: "OBJECT_STORAGE_MODE", Value: string(cfg.Mode)}
	}
	if cfg.Mode.Emulated() {
		if cfg.EmulatorHost == "" {
			return &StorageConfigError{Code: StorageConfigMissingEmulatorHost, Env: "STORAGE_EMULATOR_HOST"}
		}
		if err := absoluteURL(cfg.EmulatorHost); err != nil {
			return &StorageConfigError{Code: StorageConfigInvalidURL, Env: "STORAGE_EMULATOR_HOST", Value: cfg.EmulatorHost, Cause: err}
		}
	}
	if cfg.PublicBaseURL != "" {
		if err := absoluteURL(cfg.PublicBaseURL); err != nil {
			return &StorageConfigError{Code: StorageConfigInvalidURL, Env: "OBJECT_STORAGE_PUBLIC_BASE_URL", Value: cfg.PublicBaseURL, Cause: err}
		}
	}
	if strings.TrimSpace(cfg.StagingBucket) == "" {
		return &StorageConfigError{Code: StorageConfigMissingBucket, Env: "STAGING_GCS_BUCKET_NAME"}
	}
	if strings.TrimSpace(cfg.PublicBucket) == "" {
		return &StorageConfigError{Code: StorageConfigMissingBucket, Env: "PUBLIC_GCS_BUCKET_NAME"}
	}
	if cfg.StagingBucket == cfg.PublicBucket {
		return &StorageConfigError{Code: StorageConfigSharedBucket, Value: cfg.StagingBucket}
	}
	return nil
}

func absoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if strings.TrimSpace(u.Scheme) == "" || strings.TrimSpace(u.Host) == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	return nil
}
