package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"vn.io.arda/notification-pipeline/internal/domain"
	"vn.io.arda/notification-pipeline/internal/metrics"
)

const (
	DefaultMaxPerChannel = 100
	DefaultMaxTotal      = 1000
)

// Config holds the retention and dedup settings of the Service.
type Config struct {
	MaxPerChannel int
	MaxTotal      int
	BucketWindow  time.Duration
}

// Option customises a Service.
type Option func(*Service)

func WithConfig(cfg Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

func WithRenderer(r Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

func WithFilterChain(c *FilterChain) Option {
	return func(s *Service) { s.filters = c }
}

func WithPendingQueue(q PendingQueue) Option {
	return func(s *Service) { s.pending = q }
}

func WithEventBus(b *EventBus) Option {
	return func(s *Service) { s.events = b }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock replaces time.Now, for record timestamps and Id buckets alike.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service orchestrates ingestion, lifecycle transitions, querying, retention,
// expectations and deferred routing of notifications.
type Service struct {
	store        domain.Store
	router       Router
	renderer     Renderer
	filters      *FilterChain
	pending      PendingQueue
	events       *EventBus
	expectations *ExpectationTable
	ids          *domain.IDResolver
	locks        *keyLock
	metrics      *metrics.Metrics
	now          func() time.Time
	cfg          Config

	pruneMu sync.Mutex

	countsMu      sync.Mutex
	channelCounts map[string]channelCount
}

// channelCount is keyed by the folded channel name and reports the first spelling seen.
type channelCount struct {
	name string
	n    int
}

// NewService creates a Service over store, routing consumed notifications through router.
func NewService(store domain.Store, router Router, opts ...Option) *Service {
	s := &Service{
		store:         store,
		router:        router,
		renderer:      noopRenderer{},
		expectations:  NewExpectationTable(),
		locks:         newKeyLock(),
		now:           time.Now,
		channelCounts: make(map[string]channelCount),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.filters == nil {
		s.filters = NewFilterChain()
	}
	if s.pending == nil {
		s.pending = NewMemoryQueue()
	}
	if s.events == nil {
		s.events = NewEventBus()
	}
	if s.cfg.MaxPerChannel <= 0 {
		s.cfg.MaxPerChannel = DefaultMaxPerChannel
	}
	if s.cfg.MaxTotal <= 0 {
		s.cfg.MaxTotal = DefaultMaxTotal
	}
	s.ids = domain.NewIDResolver(s.cfg.BucketWindow)
	s.ids.Now = s.now
	return s
}

// Filters returns the chain consulted for render/store suppression. The router shares it
// for route suppression.
func (s *Service) Filters() *FilterChain { return s.filters }

// Events returns the lifecycle event bus.
func (s *Service) Events() *EventBus { return s.events }

// AddIgnoreFilter registers a runtime filter. Call Remove on the handle to drop it.
func (s *Service) AddIgnoreFilter(fn FilterFunc) *FilterHandle {
	return s.filters.Add(fn)
}

// ComputeID returns the Id an intent would be stored under right now.
func (s *Service) ComputeID(in domain.Intent) string {
	return s.ids.ComputeID(in)
}

// Add ingests an intent. A record with the same Id is updated in place; otherwise a new
// record is stored as Delivered and retention pruning runs. Intents whose presentation or
// filters forbid storage are offered to expectations but never persisted.
func (s *Service) Add(ctx context.Context, in domain.Intent, source domain.Source, rawPayload string) (*domain.Record, error) {
	in = normalizeIntent(in)

	decision := s.filters.Evaluate(in)
	persist := in.Presentation.Stores() && !decision.IgnoreStore
	render := in.Presentation.Renders() && !decision.IgnoreRender

	rec, err := s.newRecord(in, source, rawPayload)
	if err != nil {
		return nil, err
	}

	if !persist {
		s.satisfy(ctx, rec)
		s.render(ctx, in, render)
		s.metrics.IncIngested(rec.Channel, "transient")
		log.Info().
			Str("id", rec.ID).
			Str("channel", rec.Channel).
			Str("source", string(source)).
			Str("reason", "ignore_store_or_presentation").
			Msg("notification not stored")
		return rec, nil
	}

	unlock := s.locks.Lock(rec.ID)
	stored, created, err := s.upsert(ctx, rec)
	unlock()
	if err != nil {
		return nil, err
	}

	if created {
		s.incrementChannel(stored.Channel)
		s.metrics.IncIngested(stored.Channel, "created")
		log.Info().
			Str("id", stored.ID).
			Str("channel", stored.Channel).
			Str("action", stored.Action).
			Str("source", string(source)).
			Msg("notification stored")
		s.raise(ctx, EventAdded, stored)

		if _, err := s.Prune(ctx); err != nil {
			return stored, err
		}
	} else {
		s.metrics.IncIngested(stored.Channel, "merged")
		log.Info().
			Str("id", stored.ID).
			Str("channel", stored.Channel).
			Int("occurrences", stored.OccurrenceCount).
			Msg("notification merged")
		s.raise(ctx, EventUpdated, stored)
	}

	s.render(ctx, in, render)
	return stored, nil
}

// upsert inserts rec, or merges it into the stored record with the same Id. The caller
// holds the per-Id lock; the store's unique key covers writers in other processes.
func (s *Service) upsert(ctx context.Context, rec *domain.Record) (*domain.Record, bool, error) {
	existing, err := s.store.FindByID(ctx, rec.ID)
	switch {
	case err == nil:
		merged, err := s.merge(ctx, existing, rec)
		return merged, false, err

	case errors.Is(err, domain.ErrNotFound):
		err = s.store.Insert(ctx, rec)
		if err == nil {
			return rec, true, nil
		}
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, false, fmt.Errorf("insert notification: %w", err)
		}
		existing, err = s.store.FindByID(ctx, rec.ID)
		if err != nil {
			return nil, false, fmt.Errorf("reload notification after conflict: %w", err)
		}
		merged, err := s.merge(ctx, existing, rec)
		return merged, false, err

	default:
		return nil, false, fmt.Errorf("find notification: %w", err)
	}
}

func (s *Service) merge(ctx context.Context, existing, incoming *domain.Record) (*domain.Record, error) {
	existing.Title = incoming.Title
	existing.Body = incoming.Body
	existing.Action = incoming.Action
	existing.EntityID = incoming.EntityID
	existing.CorrelationID = incoming.CorrelationID
	existing.ExtrasJSON = incoming.ExtrasJSON
	if incoming.RawPayload != nil {
		existing.RawPayload = incoming.RawPayload
	}
	existing.SchemaVersion = incoming.SchemaVersion
	existing.Source = incoming.Source
	existing.Presentation = incoming.Presentation
	existing.State = domain.StateDelivered
	if existing.DeliveredAt == nil {
		now := s.now().UTC()
		existing.DeliveredAt = &now
	}
	if existing.OccurrenceCount < 1 {
		existing.OccurrenceCount = 1
	}
	existing.OccurrenceCount++

	if err := s.store.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("update notification: %w", err)
	}
	return existing, nil
}

// Consume marks the record Consumed and routes it. Deferred routes are queued for
// ProcessPending. An unknown id is a no-op and yields the empty result.
func (s *Service) Consume(ctx context.Context, id string) (domain.RouteResult, error) {
	unlock := s.locks.Lock(id)
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		unlock()
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("find notification: %w", err)
	}

	now := s.now().UTC()
	rec.State = domain.StateConsumed
	rec.ConsumedAt = &now
	err = s.store.Update(ctx, rec)
	unlock()
	if err != nil {
		return "", fmt.Errorf("update notification: %w", err)
	}

	s.raise(ctx, EventConsumed, rec)

	in := rec.ToIntent()
	result, err := s.router.Route(ctx, in, true)
	if err != nil {
		return result, err
	}
	s.metrics.IncRouted(string(result))

	if result == domain.RouteDeferred {
		if err := s.pending.Push(ctx, in); err != nil {
			return result, fmt.Errorf("queue deferred route: %w", err)
		}
		s.reportPending(ctx)
		log.Debug().Str("id", id).Msg("route deferred until navigation is ready")
	}

	log.Info().Str("id", id).Str("result", string(result)).Msg("notification consumed")
	return result, nil
}

// MarkRead moves a New or Delivered record to Read. Read and Consumed records, and unknown
// ids, are left untouched.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		unlock()
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find notification: %w", err)
	}
	if rec.State.Rank() >= domain.StateRead.Rank() {
		unlock()
		return nil
	}

	now := s.now().UTC()
	rec.State = domain.StateRead
	rec.ReadAt = &now
	err = s.store.Update(ctx, rec)
	unlock()
	if err != nil {
		return fmt.Errorf("update notification: %w", err)
	}

	s.raise(ctx, EventRead, rec)
	return nil
}

// Get returns the records matching q, oldest first, capped at q.Limit.
func (s *Service) Get(ctx context.Context, q domain.NotificationQuery) ([]*domain.Record, error) {
	all, err := s.store.ListOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}

	results := make([]*domain.Record, 0, len(all))
	for _, r := range all {
		if !q.Matches(r) {
			continue
		}
		results = append(results, r)
		if q.Limit > 0 && len(results) >= q.Limit {
			break
		}
	}
	return results, nil
}

// Delete removes the given records. Unknown ids are skipped.
func (s *Service) Delete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		rec, err := s.store.FindByID(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("find notification: %w", err)
		}
		if _, err := s.remove(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Prune enforces retention: first at most MaxPerChannel records per channel, then at most
// MaxTotal records overall, deleting oldest first. Channels are grouped case-insensitively.
// It returns the number of records it deleted; concurrent calls never delete the same record twice.
func (s *Service) Prune(ctx context.Context) (int, error) {
	s.pruneMu.Lock()
	defer s.pruneMu.Unlock()

	all, err := s.store.ListOrdered(ctx)
	if err != nil {
		return 0, fmt.Errorf("list notifications: %w", err)
	}
	slices.SortStableFunc(all, func(a, b *domain.Record) int {
		return a.TimestampCreated.Compare(b.TimestampCreated)
	})

	perChannel := make(map[string][]*domain.Record)
	for _, r := range all {
		key := channelKey(r.Channel)
		perChannel[key] = append(perChannel[key], r)
	}

	doomed := make(map[string]struct{})
	var toDelete []*domain.Record
	for _, list := range perChannel {
		if excess := len(list) - s.cfg.MaxPerChannel; excess > 0 {
			for _, r := range list[:excess] {
				doomed[r.ID] = struct{}{}
				toDelete = append(toDelete, r)
			}
		}
	}

	if need := len(all) - len(toDelete) - s.cfg.MaxTotal; need > 0 {
		for _, r := range all {
			if need == 0 {
				break
			}
			if _, ok := doomed[r.ID]; ok {
				continue
			}
			doomed[r.ID] = struct{}{}
			toDelete = append(toDelete, r)
			need--
		}
	}

	deleted := 0
	for _, r := range toDelete {
		removed, err := s.remove(ctx, r)
		if err != nil {
			return deleted, err
		}
		if removed {
			deleted++
		}
	}

	if deleted > 0 {
		s.metrics.AddPruned(deleted)
		log.Info().Int("deleted", deleted).Int("remaining", len(all)-deleted).Msg("notification retention pruning completed")
	}
	return deleted, nil
}

// remove deletes r under its per-Id lock. It reports false when the record was already
// gone, in which case counters and subscribers are left alone.
func (s *Service) remove(ctx context.Context, r *domain.Record) (bool, error) {
	unlock := s.locks.Lock(r.ID)
	_, err := s.store.FindByID(ctx, r.ID)
	if errors.Is(err, domain.ErrNotFound) {
		unlock()
		return false, nil
	}
	if err != nil {
		unlock()
		return false, fmt.Errorf("find notification: %w", err)
	}
	err = s.store.Delete(ctx, r.ID)
	unlock()
	if err != nil {
		return false, fmt.Errorf("delete notification: %w", err)
	}

	s.decrementChannel(r.Channel)
	s.raise(ctx, EventDeleted, r)
	return true, nil
}

// WaitFor returns the first record matching p. Stored records are checked first; otherwise
// it waits for a matching record to be added or updated. A timeout yields (nil, nil);
// cancellation of ctx yields ctx.Err().
func (s *Service) WaitFor(ctx context.Context, p Predicate, timeout time.Duration) (*domain.Record, error) {
	// Register before scanning so a record stored in between is not missed.
	waiter := make(chan *domain.Record, 1)
	exp := s.expectations.Add(p, s.now().Add(timeout), waiter, false)
	s.metrics.SetExpectations(s.expectations.Len())
	defer func() {
		s.expectations.Remove(exp)
		s.metrics.SetExpectations(s.expectations.Len())
	}()

	all, err := s.store.ListOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	for _, r := range all {
		if p(r) {
			return r, nil
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-waiter:
		return r, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Expect registers a predicate whose first matching record is consumed and routed
// automatically. The registration expires after timeout, or earlier if ctx is cancelled.
// A route already triggered is not cancelled.
func (s *Service) Expect(ctx context.Context, p Predicate, timeout time.Duration) {
	exp := s.expectations.Add(p, s.now().Add(timeout), nil, true)
	s.metrics.SetExpectations(s.expectations.Len())

	go func() {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
		case <-exp.Done():
		}
		s.expectations.Remove(exp)
		s.metrics.SetExpectations(s.expectations.Len())
	}()
}

// ProcessPending retries deferred routes in FIFO order. Intents that defer again go back
// to the head of the queue for the next call. Cancellation is checked between items.
func (s *Service) ProcessPending(ctx context.Context) (int, error) {
	n, err := s.pending.Len(ctx)
	if err != nil {
		return 0, fmt.Errorf("pending queue length: %w", err)
	}

	var again []domain.Intent
	routed := 0
	var runErr error

	for range n {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		in, ok, err := s.pending.Pop(ctx)
		if err != nil {
			runErr = fmt.Errorf("pop pending route: %w", err)
			break
		}
		if !ok {
			break
		}

		result, err := s.router.Route(ctx, in, true)
		if err != nil {
			again = append(again, in)
			runErr = err
			break
		}
		s.metrics.IncRouted(string(result))
		if result == domain.RouteDeferred {
			again = append(again, in)
			continue
		}
		routed++
	}

	// Intents pushed while this pass ran queue behind the ones that deferred again.
	requeueCtx := context.WithoutCancel(ctx)
	if err := s.pending.PushFront(requeueCtx, again...); err != nil && runErr == nil {
		runErr = fmt.Errorf("requeue pending route: %w", err)
	}
	s.reportPending(requeueCtx)

	if routed > 0 || len(again) > 0 {
		log.Info().Int("routed", routed).Int("deferred", len(again)).Msg("pending routes processed")
	}
	return routed, runErr
}

// ChannelCounts returns a snapshot of the live record count per channel. Spellings of a
// channel that differ only in case share one entry, named after the first one seen.
func (s *Service) ChannelCounts() map[string]int {
	s.countsMu.Lock()
	defer s.countsMu.Unlock()

	out := make(map[string]int, len(s.channelCounts))
	for _, c := range s.channelCounts {
		out[c.name] = c.n
	}
	return out
}

// RebuildChannelCounts recomputes the channel counters from the store. Run it at startup.
func (s *Service) RebuildChannelCounts(ctx context.Context) error {
	all, err := s.store.ListOrdered(ctx)
	if err != nil {
		return fmt.Errorf("list notifications: %w", err)
	}

	counts := make(map[string]channelCount)
	for _, r := range all {
		key := channelKey(r.Channel)
		c, ok := counts[key]
		if !ok {
			c.name = r.Channel
		}
		c.n++
		counts[key] = c
	}

	s.countsMu.Lock()
	s.channelCounts = counts
	s.countsMu.Unlock()
	return nil
}

// raise publishes the lifecycle event and offers the record to outstanding expectations.
func (s *Service) raise(ctx context.Context, kind EventKind, r *domain.Record) {
	s.events.Publish(Event{Kind: kind, Record: r.Clone(), At: s.now().UTC()})
	if kind == EventDeleted {
		return
	}
	s.satisfy(ctx, r)
}

func (s *Service) satisfy(ctx context.Context, r *domain.Record) {
	matched := s.expectations.Satisfy(r, s.now())
	if len(matched) == 0 {
		return
	}
	s.metrics.SetExpectations(s.expectations.Len())

	for _, e := range matched {
		if !e.RouteOnMatch() {
			continue
		}
		id := r.ID
		detached := context.WithoutCancel(ctx)
		go func() {
			if _, err := s.Consume(detached, id); err != nil {
				log.Error().Err(err).Str("id", id).Msg("auto-consume of expected notification failed")
			}
		}()
	}
}

func (s *Service) render(ctx context.Context, in domain.Intent, allowed bool) {
	if !allowed {
		return
	}
	if err := s.renderer.Render(ctx, in); err != nil {
		log.Warn().Err(err).Str("channel", in.Channel).Msg("notification render failed")
	}
}

func (s *Service) reportPending(ctx context.Context) {
	if n, err := s.pending.Len(ctx); err == nil {
		s.metrics.SetPending(n)
	}
}

func (s *Service) newRecord(in domain.Intent, source domain.Source, rawPayload string) (*domain.Record, error) {
	extras := in.Extras
	if extras == nil {
		extras = map[string]string{}
	}
	extrasJSON, err := json.Marshal(extras)
	if err != nil {
		return nil, fmt.Errorf("encode extras: %w", err)
	}

	now := s.now().UTC()
	rec := &domain.Record{
		ObjectID:         uuid.NewString(),
		ID:               s.ids.ComputeIDAt(in, now),
		Channel:          in.Channel,
		Title:            in.Title,
		Body:             domain.StringPtr(in.Body),
		CorrelationID:    domain.StringPtr(in.CorrelationID),
		Action:           string(in.Action),
		EntityID:         domain.StringPtr(in.EntityID),
		ExtrasJSON:       string(extrasJSON),
		RawPayload:       domain.StringPtr(rawPayload),
		SchemaVersion:    in.Version,
		TimestampCreated: now,
		State:            domain.StateNew,
		Source:           source,
		Presentation:     in.Presentation,
		OccurrenceCount:  1,
	}

	rec.State = domain.StateDelivered
	rec.DeliveredAt = &now
	return rec, nil
}

func normalizeIntent(in domain.Intent) domain.Intent {
	if in.Action == "" {
		in.Action = domain.ActionUnknown
	}
	if in.Version < 1 {
		in.Version = domain.DefaultSchemaVersion
	}
	if in.Presentation == "" {
		in.Presentation = domain.PresentationRenderAndStore
	}
	return in
}

func channelKey(channel string) string {
	return strings.ToLower(channel)
}

func (s *Service) incrementChannel(channel string) {
	key := channelKey(channel)
	s.countsMu.Lock()
	c, ok := s.channelCounts[key]
	if !ok {
		c.name = channel
	}
	c.n++
	s.channelCounts[key] = c
	s.countsMu.Unlock()
}

func (s *Service) decrementChannel(channel string) {
	key := channelKey(channel)
	s.countsMu.Lock()
	if c, ok := s.channelCounts[key]; ok {
		c.n--
		if c.n <= 0 {
			delete(s.channelCounts, key)
		} else {
			s.channelCounts[key] = c
		}
	}
	s.countsMu.Unlock()
}
