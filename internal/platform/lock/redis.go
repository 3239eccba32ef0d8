package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/docfill-backend/internal/platform/logger"
)

var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a single-instance lease lock for deployments with more than one
// replica. Leases expire after ttl so a crashed holder cannot wedge a key.
type Redis struct {
	rdb    goredis.UniversalClient
	prefix string
	ttl    time.Duration
	poll   time.Duration
	log    *logger.Logger
}

func NewRedis(rdb goredis.UniversalClient, prefix string, ttl time.Duration, baseLog *logger.Logger) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if prefix == "" {
		prefix = "docfill:lock:"
	}
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Redis{rdb: rdb, prefix: prefix, ttl: ttl, poll: 25 * time.Millisecond, log: baseLog.With("component", "RedisLock")}
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	k := r.prefix + key
	token := uuid.NewString()
	t := time.NewTicker(r.poll)
	defer t.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, k, token, r.ttl).Result()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrNotAcquired, ctx.Err())
		case <-t.C:
		}
	}
	return func() {
		// Release must outlive a canceled request context.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, r.rdb, []string{k}, token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
			r.log.Warn("redis lock release failed", "key", key, "error", err)
		}
	}, nil
}
