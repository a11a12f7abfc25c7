package application

import (
	"sync"
	"time"

	"vn.io.arda/notification-pipeline/internal/domain"
)

// EventKind names a lifecycle change.
type EventKind string

const (
	EventAdded    EventKind = "added"
	EventUpdated  EventKind = "updated"
	EventRead     EventKind = "read"
	EventConsumed EventKind = "consumed"
	EventDeleted  EventKind = "deleted"
)

// Event is published after a record change has been persisted.
type Event struct {
	Kind   EventKind      `json:"kind"`
	Record *domain.Record `json:"record"`
	At     time.Time      `json:"at"`
}

// EventBus fans lifecycle events out to subscribers. Every subscriber has its own
// unbounded FIFO, so Publish never blocks and each subscriber sees events in order.
type EventBus struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

// NewEventBus creates a bus with no subscribers.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[*Subscription]struct{})}
}

// Subscription delivers events on C until Close is called.
type Subscription struct {
	C <-chan Event

	bus    *EventBus
	out    chan Event
	mu     sync.Mutex
	queue  []Event
	signal chan struct{}
	done   chan struct{}
	once   sync.Once
}

// Subscribe registers a new subscriber.
func (b *EventBus) Subscribe() *Subscription {
	out := make(chan Event)
	s := &Subscription{
		C:      out,
		bus:    b,
		out:    out,
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go s.pump()
	return s
}

// Publish queues e for every current subscriber.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for s := range b.subs {
		s.enqueue(e)
	}
}

// Subscribers returns the number of active subscriptions.
func (b *EventBus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unsubscribes. C is closed once the pump stops; undelivered events are dropped.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		s.bus.mu.Unlock()
		close(s.done)
	})
}

func (s *Subscription) enqueue(e Event) {
	s.mu.Lock()
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	defer close(s.out)

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.signal:
				continue
			case <-s.done:
				return
			}
		}
		e := s.queue[0]
		s.queue[0] = Event{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- e:
		case <-s.done:
			return
		}
	}
}
