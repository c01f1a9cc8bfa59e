package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/statusgraph/internal/models"
	"github.com/noah-isme/statusgraph/pkg/pubsub"
)

func TestThreadInvalidatorHandle(t *testing.T) {
	store := newStatusStore(reply(1, 0, 1), reply(2, 1, 2), reply(7, 0, 3))
	cache := newMemoryCache()
	threads := NewContextService(ContextServiceParams{Statuses: store, Cache: cache})
	inv := NewThreadInvalidator(nil, threads, "statuses:events", nil)
	ctx := context.Background()

	inv.Handle(ctx, "statuses:events", []byte(`{"type":"status.created","status_id":2}`))
	assert.Equal(t, []string{"context:1:*"}, cache.invalidated)

	// deleted reply: fall back to its parent
	inv.Handle(ctx, "statuses:events", []byte(`{"type":"status.deleted","status_id":99,"in_reply_to_id":2}`))
	assert.Equal(t, "context:1:*", cache.invalidated[1])

	inv.Handle(ctx, "statuses:events", []byte(`{"type":"status.deleted","status_id":7,"root_id":7}`))
	assert.Equal(t, "context:7:*", cache.invalidated[2])

	inv.Handle(ctx, "statuses:events", []byte(`{"type":"status.deleted","status_id":500}`))
	assert.Equal(t, "context:500:*", cache.invalidated[3])

	inv.Handle(ctx, "statuses:events", []byte(`not json`))
	inv.Handle(ctx, "statuses:events", []byte(`{"type":"status.created"}`))
	assert.Len(t, cache.invalidated, 4)
}

func TestThreadInvalidatorSubscribesOverRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := newStatusStore(reply(1, 0, 1), reply(2, 1, 2))
	cache := newMemoryCache()
	cache.entries["context:1:2"] = models.Context{DescendantIDs: []int64{}}
	threads := NewContextService(ContextServiceParams{Statuses: store, Cache: cache})
	inv := NewThreadInvalidator(pubsub.NewRedisSubscriber(rdb, nil), threads, "statuses:events", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, inv.Start(ctx))

	require.NoError(t, pubsub.NewRedisPublisher(rdb).Publish(ctx, "statuses:events", []byte(`{"type":"status.created","status_id":2}`)))
	assert.Eventually(t, func() bool {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		return len(cache.entries) == 0
	}, time.Second, 10*time.Millisecond)
}
