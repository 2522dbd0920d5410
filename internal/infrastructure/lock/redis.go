// Package lock provides named advisory locks for per-(user, date, slot)
// mutual exclusion: a Redis-backed implementation for multi-instance
// deployments and an in-process one for tests and single-node setups.
package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/moodplate/engine/internal/ports/outbound"
)

// releaseScript deletes the key only when it still holds our token, so an
// expired lock reacquired by someone else is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// pollInterval is the retry cadence while waiting for a held lock.
const pollInterval = 50 * time.Millisecond

// RedisLocker implements outbound.Locker on SET NX PX.
type RedisLocker struct {
	client redis.UniversalClient
	logger *zap.Logger
}

// NewRedisLocker creates a Redis-backed locker.
func NewRedisLocker(client redis.UniversalClient, logger *zap.Logger) *RedisLocker {
	return &RedisLocker{client: client, logger: logger.Named("redis-lock")}
}

// Acquire polls SET NX until it wins or the wait budget runs out. ok=false
// with nil error means the key stayed held; the caller skips, it does not
// retry.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl, wait time.Duration) (outbound.ReleaseFunc, bool, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return nil, false, err
		}
		if ok {
			return l.releaseFunc(key, token), true, nil
		}
		if time.Now().After(deadline) {
			return nil, false, nil
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (l *RedisLocker) releaseFunc(key, token string) outbound.ReleaseFunc {
	return func() {
		// Release must not inherit a canceled request context.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil && err != redis.Nil {
			l.logger.Warn("Lock release failed; key will expire by TTL",
				zap.String("key", key), zap.Error(err))
		}
	}
}
