package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yungbote/mediaforge-backend/internal/observability"
	"github.com/yungbote/mediaforge-backend/internal/platform/lock"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

// ScratchSweeper removes upload sessions nobody finished.
type ScratchSweeper interface {
	// Sweep deletes sessions whose newest chunk is older than the TTL and returns how many went.
	Sweep(ctx context.Context, now time.Time) (int, error)
	Run(ctx context.Context, interval time.Duration)
}

type scratchSweeper struct {
	log     *logger.Logger
	root    string
	ttl     time.Duration
	locker  lock.Locker
	metrics *observability.Metrics
}

func NewScratchSweeper(baseLog *logger.Logger, scratchDir string, ttl time.Duration, locker lock.Locker, metrics *observability.Metrics) ScratchSweeper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &scratchSweeper{
		log:     baseLog.With("service", "ScratchSweeper"),
		root:    ChunksRoot(scratchDir),
		ttl:     ttl,
		locker:  locker,
		metrics: metrics,
	}
}

func (s *scratchSweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	sessions, err := os.ReadDir(s.root)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("list upload sessions: %w", err)
	}
	removed := 0
	for _, sess := range sessions {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if !sess.IsDir() {
			continue
		}
		dir := filepath.Join(s.root, sess.Name())
		newest, err := newestModTime(dir)
		if err != nil {
			s.log.Warn("stat upload session failed", "upload_id", sess.Name(), "error", err)
			continue
		}
		if now.Sub(newest) < s.ttl {
			continue
		}
		if s.locker != nil {
			held, err := s.locker.Held(ctx, SessionLockKey(sess.Name()))
			if err != nil {
				s.log.Warn("lock probe failed; leaving session", "upload_id", sess.Name(), "error", err)
				continue
			}
			if held {
				continue
			}
		}
		if err := os.RemoveAll(dir); err != nil {
			s.log.Warn("remove upload session failed", "upload_id", sess.Name(), "error", err)
			continue
		}
		removed++
		s.log.Info("Abandoned upload session removed", "upload_id", sess.Name(), "idle", now.Sub(newest).Round(time.Second).String())
	}
	s.metrics.AddScratchSwept(removed)
	return removed, nil
}

func (s *scratchSweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := s.Sweep(ctx, now); err != nil && !errors.Is(err, context.Canceled) {
				s.log.Warn("scratch sweep failed", "error", err)
			}
		}
	}
}

// newestModTime is the latest mtime among dir and its direct entries.
func newestModTime(dir string) (time.Time, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return time.Time{}, err
	}
	newest := info.ModTime()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return time.Time{}, err
	}
	for _, e := range entries {
		fi, err := e.Info()
		if err != nil {
			continue
		}
		if fi.ModTime().After(newest) {
			newest = fi.ModTime()
		}
	}
	return newest, nil
}
