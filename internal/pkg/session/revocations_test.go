package session

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func unreachable() *Revocations {
	return NewRevocations(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}))
}

func TestRevokeSkipsWithoutRedis(t *testing.T) {
	r := unreachable()

	assert.Error(t, r.Revoke(context.Background(), "", time.Minute))
	// Expired tokens never reach Redis.
	assert.NoError(t, r.Revoke(context.Background(), "jti-1", 0))
}

func TestRedisFailuresSurface(t *testing.T) {
	r := unreachable()

	_, err := r.IsRevoked(context.Background(), "jti-1")
	assert.ErrorContains(t, err, "failed to check revoked tokens")

	err = r.Revoke(context.Background(), "jti-1", time.Minute)
	assert.ErrorContains(t, err, "failed to revoke token")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "obcampaign:revoked:abc", unreachable().key("abc"))
}
