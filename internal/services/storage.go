package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/platform/gcp"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

// OriginalStore places original artifacts. Originals land in the staging bucket and move to
// the public bucket once the pipeline publishes them; the key is the same in both.
type OriginalStore interface {
	Put(dbc dbctx.Context, m *types.Media, localPath string) (key string, err error)
	// Relocate moves the original to the public bucket and returns its public URL. It is safe
	// to repeat: a missing source with an existing destination counts as done.
	Relocate(ctx context.Context, m *types.Media) (string, error)
	// Source reports where the original currently lives.
	Source(ctx context.Context, m *types.Media) (gcp.BucketCategory, error)
	StagingURL(key string) string
}

type originalStore struct {
	log    *logger.Logger
	bucket gcp.BucketService
}

func NewOriginalStore(baseLog *logger.Logger, bucket gcp.BucketService) OriginalStore {
	return &originalStore{log: baseLog.With("service", "OriginalStore"), bucket: bucket}
}

func (s *originalStore) Put(dbc dbctx.Context, m *types.Media, localPath string) (string, error) {
	if m == nil {
		return "", fmt.Errorf("media required")
	}
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open assembled file: %w", err)
	}
	defer f.Close()

	token, err := randomToken(20)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s/%s%s", m.MediaType.StoragePrefix(), m.ID, token, originalExtension(m))
	s.log.Info("Uploading original to staging", "media_id", m.ID, "storage_key", key)
	if err := s.bucket.UploadFile(dbc, gcp.BucketCategoryStaging, key, f, m.MimeType); err != nil {
		s.log.Error("UploadFile failed", "media_id", m.ID, "storage_key", key, "error", err)
		return "", fmt.Errorf("upload original: %w", err)
	}
	return key, nil
}

func (s *originalStore) Relocate(ctx context.Context, m *types.Media) (string, error) {
	if m == nil || m.StorageKey == "" {
		return "", fmt.Errorf("media has no stored original")
	}
	key := m.StorageKey
	inStaging, err := s.bucket.Exists(ctx, gcp.BucketCategoryStaging, key)
	if err != nil {
		return "", fmt.Errorf("stat staging original: %w", err)
	}
	if inStaging {
		if err := s.bucket.CopyObject(ctx, gcp.BucketCategoryStaging, key, gcp.BucketCategoryPublic, key); err != nil {
			return "", fmt.Errorf("relocate original: %w", err)
		}
		if err := s.bucket.DeleteFile(dbctx.Context{Ctx: ctx}, gcp.BucketCategoryStaging, key); err != nil {
			// The public copy exists, so the next relocation attempt still succeeds.
			s.log.Warn("delete staging original failed", "media_id", m.ID, "storage_key", key, "error", err)
		}
		s.log.Info("Original relocated to public bucket", "media_id", m.ID, "storage_key", key)
		return s.bucket.GetPublicURL(gcp.BucketCategoryPublic, key), nil
	}
	inPublic, err := s.bucket.Exists(ctx, gcp.BucketCategoryPublic, key)
	if err != nil {
		return "", fmt.Errorf("stat public original: %w", err)
	}
	if !inPublic {
		return "", fmt.Errorf("original %q is in neither bucket", key)
	}
	return s.bucket.GetPublicURL(gcp.BucketCategoryPublic, key), nil
}

func (s *originalStore) Source(ctx context.Context, m *types.Media) (gcp.BucketCategory, error) {
	if m == nil || m.StorageKey == "" {
		return "", fmt.Errorf("media has no stored original")
	}
	ok, err := s.bucket.Exists(ctx, gcp.BucketCategoryStaging, m.StorageKey)
	if err != nil {
		return "", err
	}
	if ok {
		return gcp.BucketCategoryStaging, nil
	}
	return gcp.BucketCategoryPublic, nil
}

func (s *originalStore) StagingURL(key string) string {
	return s.bucket.GetPublicURL(gcp.BucketCategoryStaging, key)
}

func originalExtension(m *types.Media) string {
	if ext := strings.ToLower(filepath.Ext(m.OriginalFilename)); ext != "" && len(ext) <= 10 {
		return ext
	}
	if mt := mimetype.Lookup(m.MimeType); mt != nil {
		return mt.Extension()
	}
	return ""
}

func randomToken(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
