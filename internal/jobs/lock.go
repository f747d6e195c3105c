package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker guards a job so only one replica runs it at a time.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

// RedisLocker is a SET NX lock with token-checked release.
type RedisLocker struct {
	client goredis.Cmdable
	script *goredis.Script
	prefix string
}

// NewRedisLocker returns nil when client is nil.
func NewRedisLocker(client goredis.Cmdable, prefix string) *RedisLocker {
	if client == nil {
		return nil
	}
	if prefix == "" {
		prefix = "jobs:lock:"
	}
	return &RedisLocker{
		client: client,
		script: goredis.NewScript(lockReleaseScript),
		prefix: prefix,
	}
}

// TryLock acquires key for ttl. The returned token is needed to release it.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, errors.New("jobs: lock client not configured")
	}
	if key == "" {
		return "", false, errors.New("jobs: lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("jobs: lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

// Release drops the lock if token still owns it.
func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil {
		return nil
	}
	if key == "" || token == "" {
		return nil
	}
	return l.script.Run(ctx, l.client, []string{l.prefix + key}, token).Err()
}
