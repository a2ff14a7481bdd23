package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

// FileLocker uses advisory file locks under dir. It only serializes processes on one host;
// ttl is ignored because the kernel drops the lock when the holder exits.
type FileLocker struct {
	log *logger.Logger
	dir string
}

func NewFileLocker(log *logger.Logger, dir string) (*FileLocker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	return &FileLocker{log: log.With("component", "FileLocker"), dir: dir}, nil
}

func (l *FileLocker) path(key string) string {
	return filepath.Join(l.dir, sanitizeKey(key)+".lock")
}

func (l *FileLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	fl := flock.New(l.path(key))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("file lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &fileLease{fl: fl}, true, nil
}

func (l *FileLocker) Held(ctx context.Context, key string) (bool, error) {
	p := l.path(key)
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return false, nil
	}
	fl := flock.New(p)
	ok, err := fl.TryLock()
	if err != nil {
		return false, err
	}
	if ok {
		_ = fl.Unlock()
		return false, nil
	}
	return true, nil
}

type fileLease struct {
	fl   *flock.Flock
	once sync.Once
	err  error
}

func (f *fileLease) Release(ctx context.Context) error {
	f.once.Do(func() {
		f.err = f.fl.Unlock()
	})
	return f.err
}
