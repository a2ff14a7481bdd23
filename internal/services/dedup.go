package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/mediaforge-backend/internal/data/repos"
	types "github.com/yungbote/mediaforge-backend/internal/domain"
	"github.com/yungbote/mediaforge-backend/internal/platform/dbctx"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

// DedupGuard admits at most one media record per content fingerprint. Check is a fast path;
// the unique index on media.file_hash decides races inside Admit.
type DedupGuard interface {
	Check(dbc dbctx.Context, fingerprint string) error
	Admit(dbc dbctx.Context, m *types.Media) error
}

type dedupGuard struct {
	db    *gorm.DB
	log   *logger.Logger
	media repos.MediaRepo
}

func NewDedupGuard(db *gorm.DB, baseLog *logger.Logger, media repos.MediaRepo) DedupGuard {
	return &dedupGuard{db: db, log: baseLog.With("service", "DedupGuard"), media: media}
}

func (g *dedupGuard) Check(dbc dbctx.Context, fingerprint string) error {
	fingerprint = strings.ToLower(strings.TrimSpace(fingerprint))
	if fingerprint == "" {
		return fmt.Errorf("empty fingerprint")
	}
	existing, err := g.media.GetByFileHash(dbc, fingerprint)
	if err != nil {
		return fmt.Errorf("lookup fingerprint: %w", err)
	}
	if existing != nil {
		return &DuplicateContentError{ExistingID: existing.ID}
	}
	return nil
}

func (g *dedupGuard) Admit(dbc dbctx.Context, m *types.Media) error {
	if m == nil || m.FileHash == "" {
		return fmt.Errorf("media with fingerprint required")
	}
	base := dbc.Tx
	if base == nil {
		base = g.db
	}
	// Savepoint when nested so a lost race leaves the caller's transaction usable.
	err := base.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return g.media.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: tx}, m)
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("create media: %w", err)
	}
	existing, lookupErr := g.media.GetByFileHash(dbc, m.FileHash)
	if lookupErr != nil {
		return fmt.Errorf("lookup fingerprint after conflict: %w", lookupErr)
	}
	if existing == nil {
		return fmt.Errorf("create media: %w", err)
	}
	g.log.Info("Concurrent upload lost the fingerprint race", "file_hash", m.FileHash, "existing_media_id", existing.ID)
	return &DuplicateContentError{ExistingID: existing.ID}
}
