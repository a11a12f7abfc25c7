package application

import (
	"strings"
	"sync"

	"vn.io.arda/notification-pipeline/internal/domain"
)

// FilterFunc inspects an intent and returns what to suppress for it.
type FilterFunc func(in domain.Intent) domain.FilterDecision

// FilterChain is the runtime set of registered filters. Decisions of all filters are
// merged per axis, so a filter can add suppression but never remove it.
type FilterChain struct {
	mu      sync.RWMutex
	nextID  uint64
	filters []filterEntry
}

type filterEntry struct {
	id uint64
	fn FilterFunc
}

// FilterHandle unregisters its filter on Remove. Remove is idempotent.
type FilterHandle struct {
	chain *FilterChain
	id    uint64
	once  sync.Once
}

// NewFilterChain creates an empty chain.
func NewFilterChain() *FilterChain {
	return &FilterChain{}
}

// Add registers fn and returns the handle that removes it.
func (c *FilterChain) Add(fn FilterFunc) *FilterHandle {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.filters = append(c.filters, filterEntry{id: c.nextID, fn: fn})
	return &FilterHandle{chain: c, id: c.nextID}
}

// Remove unregisters the filter.
func (h *FilterHandle) Remove() {
	h.once.Do(func() {
		h.chain.remove(h.id)
	})
}

func (c *FilterChain) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, f := range c.filters {
		if f.id == id {
			c.filters = append(c.filters[:i], c.filters[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered filters.
func (c *FilterChain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.filters)
}

// Evaluate merges the decisions of every registered filter for in.
// Filters run outside the lock so they may register or remove filters themselves.
func (c *FilterChain) Evaluate(in domain.Intent) domain.FilterDecision {
	c.mu.RLock()
	snapshot := make([]filterEntry, len(c.filters))
	copy(snapshot, c.filters)
	c.mu.RUnlock()

	var d domain.FilterDecision
	for _, f := range snapshot {
		d = d.Merge(f.fn(in))
		if d == domain.IgnoreAll {
			break
		}
	}
	return d
}

// IgnoreChannel returns a filter asserting d for intents on channel (case-insensitive).
// Typical use is a page that suppresses its own channel while it is open.
func IgnoreChannel(channel string, d domain.FilterDecision) FilterFunc {
	return func(in domain.Intent) domain.FilterDecision {
		if strings.EqualFold(in.Channel, channel) {
			return d
		}
		return domain.FilterDecision{}
	}
}

// IgnoreEntity returns a filter asserting d for intents that reference entityID,
// e.g. the chat currently on screen.
func IgnoreEntity(entityID string, d domain.FilterDecision) FilterFunc {
	return func(in domain.Intent) domain.FilterDecision {
		if in.EntityID == entityID {
			return d
		}
		return domain.FilterDecision{}
	}
}
