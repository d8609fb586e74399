// Package revocation keeps a Redis denylist of session token ids (jti) so individual
// stateless tokens can be invalidated before they expire.
//
// Entries expire together with the token they block, so the list never outgrows the
// set of live tokens.
package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrEmptyID is returned when revoking a token without a jti.
	ErrEmptyID = errors.New("revocation: empty token id")
	// ErrRedisUnavailable wraps Redis transport failures.
	ErrRedisUnavailable = errors.New("revocation: redis unavailable")
)

// Denylist records revoked token ids.
type Denylist struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// New returns a Denylist storing keys under prefix. An empty prefix selects "authgate:rv".
func New(redisClient redis.UniversalClient, prefix string) *Denylist {
	if prefix == "" {
		prefix = "authgate:rv"
	}
	return &Denylist{redis: redisClient, prefix: prefix, now: time.Now}
}

// WithClock returns a copy of d that reads time from now.
func (d *Denylist) WithClock(now func() time.Time) *Denylist {
	cp := *d
	cp.now = now
	return &cp
}

// Revoke blocks jti until expiresAt. Tokens already past expiry are ignored because
// validation rejects them anyway.
func (d *Denylist) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return ErrEmptyID
	}
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.redis.Set(ctx, d.key(jti), 1, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether jti is on the denylist.
func (d *Denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	n, err := d.redis.Exists(ctx, d.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

func (d *Denylist) key(jti string) string {
	return d.prefix + ":" + jti
}
