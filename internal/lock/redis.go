package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/vietanh2810/fuelticket-api/internal/config"
)

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`

// RedisLock is a single node lease lock used to keep one replica running a
// background job at a time.
type RedisLock struct {
	client *redis.Client
}

func NewRedisLock(ctx context.Context, conf *config.RedisConfig) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("client.Ping -> %w", err)
	}

	return &RedisLock{client: client}, nil
}

// TryAcquire sets name for ttl if nobody holds it. The returned release
// function only removes the lock if it still belongs to this caller.
func (l *RedisLock) TryAcquire(ctx context.Context, name string, ttl time.Duration) (func(context.Context) error, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, name, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("l.client.SetNX -> %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		if err := l.client.Eval(ctx, releaseScript, []string{name}, token).Err(); err != nil {
			return fmt.Errorf("l.client.Eval -> %w", err)
		}

		return nil
	}

	return release, true, nil
}

func (l *RedisLock) Close() error {
	return l.client.Close()
}
