package application

import (
	"context"
	"sync"

	"vn.io.arda/notification-pipeline/internal/domain"
)

// MemoryQueue is the in-process PendingQueue. Deferred routes are lost on restart;
// use infrastructure/redisqueue when they must survive.
type MemoryQueue struct {
	mu    sync.Mutex
	items []domain.Intent
}

// NewMemoryQueue creates an empty queue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{}
}

func (q *MemoryQueue) Push(_ context.Context, in domain.Intent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, in)
	return nil
}

func (q *MemoryQueue) PushFront(_ context.Context, ins ...domain.Intent) error {
	if len(ins) == 0 {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	items := make([]domain.Intent, 0, len(ins)+len(q.items))
	items = append(items, ins...)
	q.items = append(items, q.items...)
	return nil
}

func (q *MemoryQueue) Pop(_ context.Context) (domain.Intent, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return domain.Intent{}, false, nil
	}
	in := q.items[0]
	q.items[0] = domain.Intent{}
	q.items = q.items[1:]
	return in, true, nil
}

func (q *MemoryQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items), nil
}
