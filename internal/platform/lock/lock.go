// Package lock provides short-lived named locks for upload sessions.
package lock

import (
	"context"
	"regexp"
	"time"
)

// Lease is a held lock. Release is safe to call more than once.
type Lease interface {
	Release(ctx context.Context) error
}

type Locker interface {
	// TryLock never blocks. ok is false when someone else holds key.
	TryLock(ctx context.Context, key string, ttl time.Duration) (lease Lease, ok bool, err error)
	// Held reports whether key is currently locked by anyone.
	Held(ctx context.Context, key string) (bool, error)
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func sanitizeKey(key string) string {
	s := unsafeKeyChars.ReplaceAllString(key, "_")
	if s == "" {
		return "_"
	}
	return s
}
