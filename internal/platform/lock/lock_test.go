package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

func TestSanitizeKey(t *testing.T) {
	for in, want := range map[string]string{
		"upload:abc-123": "upload_abc-123",
		"../../etc":      "_etc",
		"":               "_",
	} {
		if got := sanitizeKey(in); got != want {
			t.Fatalf("sanitizeKey(%q): want=%q got=%q", in, want, got)
		}
	}
}

func TestFileLocker(t *testing.T) {
	ctx := context.Background()
	l, err := NewFileLocker(logger.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("NewFileLocker: %v", err)
	}

	if held, err := l.Held(ctx, "upload:s1"); err != nil || held {
		t.Fatalf("Held before lock: held=%v err=%v", held, err)
	}
	lease, ok, err := l.TryLock(ctx, "upload:s1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := l.TryLock(ctx, "upload:s1", time.Minute); ok {
		t.Fatalf("TryLock: second acquire must fail while held")
	}
	if held, _ := l.Held(ctx, "upload:s1"); !held {
		t.Fatalf("Held: expected true while locked")
	}
	if _, ok, _ := l.TryLock(ctx, "upload:s2", time.Minute); !ok {
		t.Fatalf("TryLock: other keys must not be blocked")
	}

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release twice: %v", err)
	}
	if _, ok, _ := l.TryLock(ctx, "upload:s1", time.Minute); !ok {
		t.Fatalf("TryLock after release: expected success")
	}
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis lock tests")
	}
	ctx := context.Background()
	rdb, err := NewRedisClient(ctx, addr, "", 0)
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	defer rdb.Close()

	l := NewRedisLocker(logger.NewNop(), rdb, "mediaforge:test:")
	key := "upload:" + time.Now().Format("150405.000000000")
	lease, ok, err := l.TryLock(ctx, key, 5*time.Second)
	if err != nil || !ok {
		t.Fatalf("TryLock: ok=%v err=%v", ok, err)
	}
	if _, ok, _ := l.TryLock(ctx, key, 5*time.Second); ok {
		t.Fatalf("TryLock: second acquire must fail")
	}
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if held, _ := l.Held(ctx, key); held {
		t.Fatalf("Held after release: expected false")
	}
}
