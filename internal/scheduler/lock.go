package scheduler

import (
	"context"
	"fmt"
	"time"

	"obcampaign-service/internal/pkg/ids"

	"github.com/redis/go-redis/v9"
)

// RedisLocker takes a per-tick lock with SET NX PX. The lock is never
// released; it expires after its ttl.
type RedisLocker struct {
	client redis.Cmdable
	owner  string
}

func NewRedisLocker(client redis.Cmdable) *RedisLocker {
	return &RedisLocker{client: client, owner: ids.ULID()}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to take scheduler lock %s: %w", key, err)
	}
	return ok, nil
}
