package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vn.io.arda/notification-pipeline/internal/domain"
	"vn.io.arda/notification-pipeline/internal/infrastructure/memory"
)

func record(id string, created time.Time) *domain.Record {
	return &domain.Record{
		ObjectID:         "obj-" + id,
		ID:               id,
		Channel:          domain.ChannelChat,
		Title:            "hello",
		Action:           string(domain.ActionOpenChat),
		ExtrasJSON:       "{}",
		SchemaVersion:    1,
		TimestampCreated: created,
		State:            domain.StateDelivered,
		Source:           domain.SourceLocal,
		OccurrenceCount:  1,
	}
}

func TestStore_InsertDuplicate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	now := time.Now()

	require.NoError(t, s.Insert(ctx, record("a", now)))
	assert.ErrorIs(t, s.Insert(ctx, record("a", now)), domain.ErrDuplicate)
	assert.Equal(t, 1, s.Len())
}

func TestStore_UpdateMissing(t *testing.T) {
	err := memory.New().Update(context.Background(), record("nope", time.Now()))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_FindReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Insert(ctx, record("a", time.Now())))

	got, err := s.FindByID(ctx, "a")
	require.NoError(t, err)
	got.Title = "mutated"

	again, err := s.FindByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "hello", again.Title)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.Insert(ctx, record("a", time.Now())))

	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"))

	_, err := s.FindByID(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ListOrdered(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, record("c", base.Add(2*time.Second))))
	require.NoError(t, s.Insert(ctx, record("a", base)))
	require.NoError(t, s.Insert(ctx, record("b1", base.Add(time.Second))))
	require.NoError(t, s.Insert(ctx, record("b2", base.Add(time.Second))))

	list, err := s.ListOrdered(ctx)
	require.NoError(t, err)

	ids := make([]string, len(list))
	for i, r := range list {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"a", "b1", "b2", "c"}, ids)
}
