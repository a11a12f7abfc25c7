// Package redisqueue keeps deferred routes in a Redis list so they survive restarts.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"vn.io.arda/notification-pipeline/internal/domain"
)

// DefaultKey is the list holding pending intents.
const DefaultKey = "notifications:pending-routes"

// Queue is a FIFO application.PendingQueue on a Redis list: RPUSH to enqueue, LPOP to dequeue.
type Queue struct {
	client redis.UniversalClient
	key    string
}

// New creates a Queue on key. An empty key uses DefaultKey.
func New(client redis.UniversalClient, key string) *Queue {
	if key == "" {
		key = DefaultKey
	}
	return &Queue{client: client, key: key}
}

func (q *Queue) Push(ctx context.Context, in domain.Intent) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode pending intent: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", q.key, err)
	}
	return nil
}

// PushFront returns ins to the head of the list in the given order. LPUSH inserts each
// value at the head in turn, so the values go in reversed.
func (q *Queue) PushFront(ctx context.Context, ins ...domain.Intent) error {
	if len(ins) == 0 {
		return nil
	}
	values := make([]any, len(ins))
	for i, in := range ins {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode pending intent: %w", err)
		}
		values[len(ins)-1-i] = payload
	}
	if err := q.client.LPush(ctx, q.key, values...).Err(); err != nil {
		return fmt.Errorf("redis lpush %s: %w", q.key, err)
	}
	return nil
}

// Pop removes the oldest intent. An entry that no longer decodes is dropped with an error
// so a single bad payload cannot wedge the queue.
func (q *Queue) Pop(ctx context.Context) (domain.Intent, bool, error) {
	payload, err := q.client.LPop(ctx, q.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Intent{}, false, nil
	}
	if err != nil {
		return domain.Intent{}, false, fmt.Errorf("redis lpop %s: %w", q.key, err)
	}

	var in domain.Intent
	if err := json.Unmarshal(payload, &in); err != nil {
		return domain.Intent{}, false, fmt.Errorf("decode pending intent: %w", err)
	}
	return in, true, nil
}

func (q *Queue) Len(ctx context.Context) (int, error) {
	n, err := q.client.LLen(ctx, q.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis llen %s: %w", q.key, err)
	}
	return int(n), nil
}
