//go:build integration

package redisqueue_test

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"vn.io.arda/notification-pipeline/internal/domain"
	"vn.io.arda/notification-pipeline/internal/infrastructure/redisqueue"
)

func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	addr, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(addr)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

func TestQueue_FIFO(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	client := newRedisClient(t)
	q := redisqueue.New(client, "test:pending")

	_, ok, err := q.Pop(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, id := range []string{"a@example.com", "b@example.com"} {
		require.NoError(t, q.Push(ctx, domain.Intent{
			Title:    "New message",
			Action:   domain.ActionOpenChat,
			EntityID: id,
			Channel:  domain.ChannelChat,
			Extras:   map[string]string{"k": "v"},
			Version:  1,
		}))
	}
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	in, ok, err := q.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a@example.com", in.EntityID)
	assert.Equal(t, domain.ActionOpenChat, in.Action)
	assert.Equal(t, "v", in.Extras["k"])

	in, ok, err = q.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b@example.com", in.EntityID)
}

func TestQueue_PushFrontKeepsOrderAtHead(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	client := newRedisClient(t)
	q := redisqueue.New(client, "test:pending-front")

	require.NoError(t, q.Push(ctx, domain.Intent{EntityID: "c@example.com"}))
	require.NoError(t, q.PushFront(ctx))
	require.NoError(t, q.PushFront(ctx,
		domain.Intent{EntityID: "a@example.com"},
		domain.Intent{EntityID: "b@example.com"},
	))

	for _, want := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		in, ok, err := q.Pop(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, in.EntityID)
	}
}

func TestQueue_BadPayloadIsDropped(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	client := newRedisClient(t)
	q := redisqueue.New(client, "")

	require.NoError(t, client.RPush(ctx, redisqueue.DefaultKey, "not-json").Err())
	require.NoError(t, q.Push(ctx, domain.Intent{EntityID: "ok"}))

	_, _, err := q.Pop(ctx)
	assert.Error(t, err)

	in, ok, err := q.Pop(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ok", in.EntityID)
}
