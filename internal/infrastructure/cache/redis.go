package cache

import (
	"context"
	"fmt"
	"time"

	interfaces "college-records/internal/interfaces/infrastructure"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisLocker is a single-instance Redis lock: SET NX PX to take it and a
// token-checked delete to release it.
type RedisLocker struct {
	client *redis.Client
	prefix string
}

func NewRedisLocker(addr, password string, db int, prefix string) *RedisLocker {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisLocker{
		client: rdb,
		prefix: prefix,
	}
}

func (r *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, r.prefix+key, token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return "", false, nil
	}

	return token, true, nil
}

func (r *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	luaScript := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		end
		return 0
	`

	err := r.client.Eval(ctx, luaScript, []string{r.prefix + key}, token).Err()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}

	return nil
}

func (r *RedisLocker) Close() error {
	return r.client.Close()
}

func (r *RedisLocker) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

var _ interfaces.Locker = (*RedisLocker)(nil)
