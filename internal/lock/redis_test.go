package lock

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietanh2810/fuelticket-api/internal/config"
)

func newTestLock(t *testing.T) *RedisLock {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err = pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	resource, err := pool.Run("redis", "7-alpine", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })

	conf := &config.RedisConfig{Addr: fmt.Sprintf("localhost:%s", resource.GetPort("6379/tcp"))}

	var lock *RedisLock
	err = pool.Retry(func() error {
		var err error
		lock, err = NewRedisLock(context.Background(), conf)
		return err
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = lock.Close() })

	return lock
}

func TestRedisLock(t *testing.T) {
	lock := newTestLock(t)
	ctx := context.Background()

	release, ok, err := lock.TryAcquire(ctx, "jobs:test", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = lock.TryAcquire(ctx, "jobs:test", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release(ctx))

	again, ok, err := lock.TryAcquire(ctx, "jobs:test", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, again(ctx))
}

func TestRedisLock_ReleaseKeepsForeignLock(t *testing.T) {
	lock := newTestLock(t)
	ctx := context.Background()

	release, ok, err := lock.TryAcquire(ctx, "jobs:expiry", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(100 * time.Millisecond)

	_, ok, err = lock.TryAcquire(ctx, "jobs:expiry", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, release(ctx))

	_, ok, err = lock.TryAcquire(ctx, "jobs:expiry", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewRedisLock_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := NewRedisLock(ctx, &config.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
