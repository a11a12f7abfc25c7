// Package storetest holds the conformance suite every domain.Store implementation runs.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"vn.io.arda/notification-pipeline/internal/domain"
)

// Suite exercises the domain.Store contract. Embed it and set NewStore, which must
// return an empty store for every test.
type Suite struct {
	suite.Suite
	NewStore func() domain.Store

	store domain.Store
}

func (s *Suite) SetupTest() {
	s.store = s.NewStore()
}

// NewRecord builds a Delivered record with the given Id created at created.
func NewRecord(id string, created time.Time) *domain.Record {
	delivered := created
	return &domain.Record{
		ObjectID:         uuid.NewString(),
		ID:               id,
		Channel:          domain.ChannelChat,
		Title:            "New message",
		Body:             domain.StringPtr("hello"),
		Action:           string(domain.ActionOpenChat),
		EntityID:         domain.StringPtr("alice@example.com"),
		ExtrasJSON:       `{"k":"v"}`,
		SchemaVersion:    domain.DefaultSchemaVersion,
		TimestampCreated: created.UTC(),
		DeliveredAt:      &delivered,
		State:            domain.StateDelivered,
		Source:           domain.SourceXmpp,
		Presentation:     domain.PresentationRenderAndStore,
		OccurrenceCount:  1,
	}
}

func (s *Suite) TestInsertAndFind() {
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 123456000, time.UTC)
	rec := NewRecord("id-1", created)
	rec.RawPayload = domain.StringPtr("<message/>")

	s.Require().NoError(s.store.Insert(ctx, rec))

	got, err := s.store.FindByID(ctx, "id-1")
	s.Require().NoError(err)
	s.Equal(rec.ObjectID, got.ObjectID)
	s.Equal(rec.Title, got.Title)
	s.Equal("hello", *got.Body)
	s.Nil(got.CorrelationID)
	s.Equal("<message/>", *got.RawPayload)
	s.Equal(`{"k":"v"}`, got.ExtrasJSON)
	s.True(created.Equal(got.TimestampCreated))
	s.Require().NotNil(got.DeliveredAt)
	s.True(created.Equal(*got.DeliveredAt))
	s.Nil(got.ReadAt)
	s.Equal(domain.StateDelivered, got.State)
	s.Equal(domain.SourceXmpp, got.Source)
	s.Equal(domain.PresentationRenderAndStore, got.Presentation)
	s.Equal(1, got.OccurrenceCount)
}

func (s *Suite) TestInsertDuplicate() {
	ctx := context.Background()
	now := time.Now()

	s.Require().NoError(s.store.Insert(ctx, NewRecord("dup", now)))
	err := s.store.Insert(ctx, NewRecord("dup", now))
	s.ErrorIs(err, domain.ErrDuplicate)
}

func (s *Suite) TestConcurrentInsertSingleWinner() {
	ctx := context.Background()
	now := time.Now()
	const goroutines = 20

	var wg sync.WaitGroup
	var ok, dup atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Insert(ctx, NewRecord("race", now))
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrDuplicate):
				dup.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), ok.Load())
	s.Equal(int32(goroutines-1), dup.Load())
}

func (s *Suite) TestUpdate() {
	ctx := context.Background()
	rec := NewRecord("upd", time.Now())
	s.Require().NoError(s.store.Insert(ctx, rec))

	readAt := time.Now().UTC().Truncate(time.Microsecond)
	rec.State = domain.StateRead
	rec.ReadAt = &readAt
	rec.OccurrenceCount = 3
	rec.Body = nil
	s.Require().NoError(s.store.Update(ctx, rec))

	got, err := s.store.FindByID(ctx, "upd")
	s.Require().NoError(err)
	s.Equal(domain.StateRead, got.State)
	s.Require().NotNil(got.ReadAt)
	s.True(readAt.Equal(*got.ReadAt))
	s.Equal(3, got.OccurrenceCount)
	s.Nil(got.Body)
}

func (s *Suite) TestUpdateMissing() {
	err := s.store.Update(context.Background(), NewRecord("missing", time.Now()))
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *Suite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), "missing")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *Suite) TestDeleteIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.store.Insert(ctx, NewRecord("del", time.Now())))

	s.Require().NoError(s.store.Delete(ctx, "del"))
	s.Require().NoError(s.store.Delete(ctx, "del"))

	_, err := s.store.FindByID(ctx, "del")
	s.ErrorIs(err, domain.ErrNotFound)
}

func (s *Suite) TestListOrdered() {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for _, i := range []int{3, 0, 2, 1} {
		s.Require().NoError(s.store.Insert(ctx, NewRecord(fmt.Sprintf("r%d", i), base.Add(time.Duration(i)*time.Millisecond))))
	}

	list, err := s.store.ListOrdered(ctx)
	s.Require().NoError(err)
	s.Require().Len(list, 4)
	for i, r := range list {
		s.Equal(fmt.Sprintf("r%d", i), r.ID)
	}
}
