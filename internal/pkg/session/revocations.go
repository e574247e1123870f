// internal/pkg/session/revocations.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revocations is a Redis backed list of revoked access token ids. Entries
// expire together with the token they revoke.
type Revocations struct {
	client redis.Cmdable
	prefix string
}

func NewRevocations(client redis.Cmdable) *Revocations {
	return &Revocations{client: client, prefix: "obcampaign:revoked:"}
}

// Revoke blacklists jti for ttl. A token that already expired is ignored.
func (r *Revocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return fmt.Errorf("token has no id")
	}
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revoked tokens: %w", err)
	}
	return exists > 0, nil
}

func (r *Revocations) key(jti string) string {
	return r.prefix + jti
}
