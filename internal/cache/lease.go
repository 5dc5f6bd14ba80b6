package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const leasePrefix = "trendbot:lease:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Lease is a best-effort cross-process mutex keyed by name. Only the holder
// that acquired a key can release it.
type Lease struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLease(client *redis.Client, ttl time.Duration) *Lease {
	return &Lease{client: client, ttl: ttl}
}

// TryAcquire returns a release func when the key was free. ok is false when
// another holder owns it.
func (l *Lease) TryAcquire(ctx context.Context, name string) (release func(context.Context) error, ok bool, err error) {
	key := leasePrefix + name
	token := uuid.NewString()

	err = l.client.SetArgs(ctx, key, token, redis.SetArgs{Mode: "NX", TTL: l.ttl}).Err()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("acquire lease %s: %w", name, err)
	}

	release = func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("release lease %s: %w", name, err)
		}
		return nil
	}
	return release, true, nil
}
