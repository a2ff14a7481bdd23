package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

// releaseScript deletes the key only while it still carries our token, so an expired lease
// cannot drop a lock somebody else acquired since.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

func NewRedisLocker(log *logger.Logger, rdb goredis.UniversalClient, prefix string) *RedisLocker {
	if prefix == "" {
		prefix = "mediaforge:lock:"
	}
	return &RedisLocker{
		log:    log.With("component", "RedisLocker"),
		rdb:    rdb,
		prefix: prefix,
	}
}

// NewRedisClient dials addr and pings it once.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	full := l.prefix + sanitizeKey(key)
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis lock %s: %w", full, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{locker: l, key: full, token: token}, true, nil
}

func (l *RedisLocker) Held(ctx context.Context, key string) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.prefix+sanitizeKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type redisLease struct {
	locker *RedisLocker
	key    string
	token  string
	once   sync.Once
	err    error
}

func (r *redisLease) Release(ctx context.Context) error {
	r.once.Do(func() {
		err := releaseScript.Run(ctx, r.locker.rdb, []string{r.key}, r.token).Err()
		if err != nil && !errors.Is(err, goredis.Nil) {
			r.err = fmt.Errorf("redis unlock %s: %w", r.key, err)
			r.locker.log.Warn("lock release failed", "key", r.key, "error", err)
		}
	})
	return r.err
}
