package guard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func exerciseGuard(t *testing.T, g Guard) {
	t.Helper()
	ctx := context.Background()

	release, err := g.Acquire(ctx, 1)
	require.NoError(t, err)

	_, err = g.Acquire(ctx, 1)
	assert.ErrorIs(t, err, ErrHeld)

	other, err := g.Acquire(ctx, 2)
	require.NoError(t, err, "ids are independent")
	other()

	release()
	release()

	again, err := g.Acquire(ctx, 1)
	require.NoError(t, err)
	again()
}

func TestMemory(t *testing.T) {
	exerciseGuard(t, NewMemory())
}

func TestMemory_OnlyOneConcurrentWinner(t *testing.T) {
	g := NewMemory()
	var wins atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := g.Acquire(context.Background(), 7); err == nil {
				wins.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestRedis(t *testing.T) {
	_, client := newTestRedis(t)
	exerciseGuard(t, NewRedis(client, time.Second))
}

func TestRedis_LockExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	g := NewRedis(client, time.Second)

	_, err := g.Acquire(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, time.Second, mr.TTL(DefaultKeyPrefix+"3"))

	mr.FastForward(2 * time.Second)
	release, err := g.Acquire(context.Background(), 3)
	require.NoError(t, err)
	release()
}

func TestRedis_ReleaseKeepsForeignLock(t *testing.T) {
	mr, client := newTestRedis(t)
	g := NewRedis(client, time.Second)

	stale, err := g.Acquire(context.Background(), 4)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	fresh, err := g.Acquire(context.Background(), 4)
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists(DefaultKeyPrefix+"4"), "stale holder must not drop the new lock")

	fresh()
	assert.False(t, mr.Exists(DefaultKeyPrefix+"4"))
}

func TestRedis_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err = NewRedis(client, time.Second).Acquire(context.Background(), 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrHeld)
}
