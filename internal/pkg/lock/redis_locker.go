package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultRetryInterval = 25 * time.Millisecond

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every instance using the same Redis.
// The TTL bounds how long a crashed holder can block a key.
type RedisLocker struct {
	client        *redis.Client
	prefix        string
	ttl           time.Duration
	retryInterval time.Duration
}

func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{
		client:        client,
		prefix:        prefix,
		ttl:           ttl,
		retryInterval: defaultRetryInterval,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(l.retryInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ErrNotAcquired
			}
			return nil, err
		}
		if ok {
			return func() {
				// release must work even when the request context is gone
				releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrNotAcquired
		case <-ticker.C:
		}
	}
}

var _ Locker = (*RedisLocker)(nil)
