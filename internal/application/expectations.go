package application

import (
	"sync"
	"time"

	"vn.io.arda/notification-pipeline/internal/domain"
)

// Predicate selects records an expectation is waiting for.
type Predicate func(r *domain.Record) bool

// Expectation is a registered predicate awaiting a future record. It either resolves a
// waiter (WaitFor) or triggers consumption of the matched record (Expect).
type Expectation struct {
	predicate    Predicate
	expiresAt    time.Time
	waiter       chan *domain.Record
	routeOnMatch bool

	done     chan struct{}
	doneOnce sync.Once
}

// Done is closed once the expectation matched, expired or was removed.
func (e *Expectation) Done() <-chan struct{} { return e.done }

// RouteOnMatch reports whether a match should auto-consume the record.
func (e *Expectation) RouteOnMatch() bool { return e.routeOnMatch }

func (e *Expectation) finish() {
	e.doneOnce.Do(func() { close(e.done) })
}

// ExpectationTable is the in-memory, mutex-guarded list of outstanding expectations.
type ExpectationTable struct {
	mu    sync.Mutex
	items []*Expectation
}

// NewExpectationTable creates an empty table.
func NewExpectationTable() *ExpectationTable {
	return &ExpectationTable{}
}

// Add registers a new expectation. waiter, if non-nil, must have capacity for one record.
func (t *ExpectationTable) Add(p Predicate, expiresAt time.Time, waiter chan *domain.Record, routeOnMatch bool) *Expectation {
	e := &Expectation{
		predicate:    p,
		expiresAt:    expiresAt,
		waiter:       waiter,
		routeOnMatch: routeOnMatch,
		done:         make(chan struct{}),
	}

	t.mu.Lock()
	t.items = append(t.items, e)
	t.mu.Unlock()
	return e
}

// Remove drops e if it is still registered.
func (t *ExpectationTable) Remove(e *Expectation) {
	t.mu.Lock()
	for i, it := range t.items {
		if it == e {
			t.items = append(t.items[:i], t.items[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
	e.finish()
}

// Len returns the number of outstanding expectations.
func (t *ExpectationTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.items)
}

// Satisfy offers r to every outstanding expectation in a single pass. Expired entries are
// dropped; matching entries are removed and their waiters resolved. The matched expectations
// are returned so the caller can act on RouteOnMatch.
func (t *ExpectationTable) Satisfy(r *domain.Record, now time.Time) []*Expectation {
	var matched, expired []*Expectation

	t.mu.Lock()
	kept := t.items[:0]
	for _, e := range t.items {
		switch {
		case e.expiresAt.Before(now):
			expired = append(expired, e)
		case e.predicate(r):
			matched = append(matched, e)
		default:
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(t.items); i++ {
		t.items[i] = nil
	}
	t.items = kept
	t.mu.Unlock()

	for _, e := range expired {
		e.finish()
	}
	for _, e := range matched {
		if e.waiter != nil {
			select {
			case e.waiter <- r.Clone():
			default:
			}
		}
		e.finish()
	}
	return matched
}
