package testsupport

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/mediaforge-backend/internal/platform/lock"
)

// Locker is an in-process lock.Locker. TTLs are ignored.
type Locker struct {
	mu   sync.Mutex
	held map[string]bool
}

var _ lock.Locker = (*Locker)(nil)

func NewLocker() *Locker { return &Locker{held: map[string]bool{}} }

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (lock.Lease, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return &lease{l: l, key: key}, true, nil
}

func (l *Locker) Held(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key], nil
}

type lease struct {
	l    *Locker
	key  string
	once sync.Once
}

func (le *lease) Release(ctx context.Context) error {
	le.once.Do(func() {
		le.l.mu.Lock()
		delete(le.l.held, le.key)
		le.l.mu.Unlock()
	})
	return nil
}
