package ranking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"transferdesk/pkg/platform/sentinel"
)

// Locker serializes ranking generation per cohort. Acquire returns
// sentinel.ErrLocked when another generation holds the cohort.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryLocker is a process-local Locker for tests and single-instance
// deployments.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]bool)}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, sentinel.ErrLocked
	}
	l.held[key] = true
	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}
	return release, nil
}

const (
	cohortLockKeyPrefix = "ranking:lock:"
	cohortLockTTL       = 30 * time.Second
)

// RedisLocker serializes generation across instances with SET NX. The TTL
// bounds how long a crashed generation can wedge a cohort.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

// releaseLock deletes the key only while it still holds the acquirer's token.
// A release that fires after the TTL expired must not drop a lock a later
// acquirer now holds.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := cohortLockKeyPrefix + key
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, redisKey, token, cohortLockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, sentinel.ErrLocked
	}
	release := func() {
		_ = releaseLock.Run(context.Background(), l.client, []string{redisKey}, token).Err()
	}
	return release, nil
}
