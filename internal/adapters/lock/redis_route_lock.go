package lock

import (
	"context"
	"fmt"
	"log"
	"time"

	"dispatch-routing-service/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "routelock:"

// releaseScript deletes the lock only when the stored token still matches,
// so an expired lock re-acquired by another holder is never released by the
// original one.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisRouteLock is the per-route advisory lock shared by all service
// instances. SET NX with a TTL bounds the hold: a crashed holder cannot
// wedge a route, and the reconcile transaction's stop-set re-validation
// backstops the rare expiry mid-flight.
type RedisRouteLock struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewRedisRouteLock(client *redis.Client) *RedisRouteLock {
	return &RedisRouteLock{Client: client, TTL: 2 * time.Minute}
}

func (l *RedisRouteLock) TryAcquire(ctx context.Context, routeID string) (func(), error) {
	key := lockKeyPrefix + routeID
	token := uuid.NewString()

	ok, err := l.Client.SetNX(ctx, key, token, l.TTL).Result()
	if err != nil {
		return nil, fmt.Errorf("route lock %s: %w", routeID, err)
	}
	if !ok {
		return nil, fmt.Errorf("route lock %s: %w", routeID, domain.ErrRouteBusy)
	}

	release := func() {
		// Release must not inherit a cancelled request context.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.Client, []string{key}, token).Err(); err != nil {
			log.Printf("route lock release failed: route=%s err=%v", routeID, err)
		}
	}

	return release, nil
}

func (l *RedisRouteLock) Held(ctx context.Context, routeID string) (bool, error) {
	n, err := l.Client.Exists(ctx, lockKeyPrefix+routeID).Result()
	if err != nil {
		return false, fmt.Errorf("route lock %s: %w", routeID, err)
	}
	return n > 0, nil
}
