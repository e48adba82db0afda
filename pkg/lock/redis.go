package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes KEYS[1] only while it holds ARGV[1]. Redis runs the
// script atomically, so no other client can interleave between GET and DEL.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client redis.Cmdable
}

func NewRedisLocker(client redis.Cmdable) *RedisLocker {
	return &RedisLocker{client: client}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := validate(key, ttl); err != nil {
		return "", err
	}

	token := NewToken()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("%w: acquire %s: %v", ErrUnavailable, key, err)
	}
	if !ok {
		return "", ErrBusy
	}
	return token, nil
}

func (l *RedisLocker) Release(ctx context.Context, key, token string) (bool, error) {
	if key == "" {
		return false, ErrInvalidKey
	}

	deleted, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: release %s: %v", ErrUnavailable, key, err)
	}
	return deleted == 1, nil
}
