package guard

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/auth_service/internal/logging"
)

const (
	DefaultKeyPrefix = "auth:refresh-rotation:"
	DefaultTTL       = 10 * time.Second
)

// releaseScript deletes the key only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Redis shares the guard between processes. The lock expires after TTL so
// a crashed holder cannot wedge a token forever.
type Redis struct {
	rdb    redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedis(rdb redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{rdb: rdb, prefix: DefaultKeyPrefix, ttl: ttl}
}

func (r *Redis) key(id uint) string {
	return r.prefix + strconv.FormatUint(uint64(id), 10)
}

func (r *Redis) Acquire(ctx context.Context, id uint) (func(), error) {
	key := r.key(id)
	owner := uuid.NewString()

	ok, err := r.rdb.SetNX(ctx, key, owner, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire rotation lock: %w", err)
	}
	if !ok {
		return nil, ErrHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(relCtx, r.rdb, []string{key}, owner).Err(); err != nil {
				logging.FromContext(ctx).Warn("rotation_lock_release_failed", "key", key, "error", err)
			}
		})
	}, nil
}
