// Package memory is an in-process domain.Store, used for tests and the "memory" database driver.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"vn.io.arda/notification-pipeline/internal/domain"
)

type entry struct {
	rec *domain.Record
	seq uint64
}

// Store keeps records in a map keyed by Id. Records are cloned on the way in and out.
type Store struct {
	mu      sync.RWMutex
	records map[string]entry
	seq     uint64
}

// New creates an empty Store.
func New() *Store {
	return &Store{records: make(map[string]entry)}
}

func (s *Store) Insert(ctx context.Context, r *domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[r.ID]; ok {
		return domain.ErrDuplicate
	}
	s.seq++
	s.records[r.ID] = entry{rec: r.Clone(), seq: s.seq}
	return nil
}

func (s *Store) Update(ctx context.Context, r *domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.records[r.ID]
	if !ok {
		return domain.ErrNotFound
	}
	e.rec = r.Clone()
	s.records[r.ID] = e
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.records, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) FindByID(ctx context.Context, id string) (*domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e.rec.Clone(), nil
}

// ListOrdered returns clones ordered by TimestampCreated, ties broken by insertion order.
func (s *Store) ListOrdered(ctx context.Context) ([]*domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	entries := make([]entry, 0, len(s.records))
	for _, e := range s.records {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	slices.SortFunc(entries, func(a, b entry) int {
		if c := a.rec.TimestampCreated.Compare(b.rec.TimestampCreated); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]*domain.Record, len(entries))
	for i, e := range entries {
		out[i] = e.rec.Clone()
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
