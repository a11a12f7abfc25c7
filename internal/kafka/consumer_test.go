package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"vn.io.arda/notification-pipeline/internal/domain"
	"vn.io.arda/notification-pipeline/internal/kafka/handlers"
)

type addCall struct {
	in     domain.Intent
	source domain.Source
	raw    string
}

type fakeIngester struct {
	mu    sync.Mutex
	calls []addCall
	err   error
}

func (f *fakeIngester) Add(_ context.Context, in domain.Intent, source domain.Source, raw string) (*domain.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, addCall{in: in, source: source, raw: raw})
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Record{ID: "x"}, nil
}

func TestProcess_RoutesByTopic(t *testing.T) {
	ing := &fakeIngester{}
	c := &Consumer{ingester: ing}

	c.process(t.Context(), &kgo.Record{
		Topic: handlers.TopicXmppEvents,
		Value: []byte(`{"eventType":"TOKEN_ADDED","payload":{"tokenId":"t-1","friendlyName":"Gold"}}`),
	})
	c.process(t.Context(), &kgo.Record{
		Topic: handlers.TopicPushDeliveries,
		Value: []byte(`{"myTitle":"Alice","myBody":"hi","entityId":"alice@example.com","action":"OpenChat"}`),
	})
	c.process(t.Context(), &kgo.Record{
		Topic: handlers.TopicLocalIntents,
		Value: []byte(`{"title":"Backup finished"}`),
	})

	require.Len(t, ing.calls, 3)
	assert.Equal(t, domain.SourceXmpp, ing.calls[0].source)
	assert.Equal(t, domain.ChannelTokens, ing.calls[0].in.Channel)
	assert.Equal(t, domain.SourcePush, ing.calls[1].source)
	assert.Equal(t, domain.ActionOpenChat, ing.calls[1].in.Action)
	assert.Equal(t, domain.SourceLocal, ing.calls[2].source)
	assert.Equal(t, domain.ChannelSystem, ing.calls[2].in.Channel)
}

func TestProcess_SkipsUnmatched(t *testing.T) {
	ing := &fakeIngester{}
	c := &Consumer{ingester: ing}

	c.process(t.Context(), &kgo.Record{Topic: handlers.TopicXmppEvents, Value: []byte(`{"eventType":"SOMETHING_ELSE"}`)})
	c.process(t.Context(), &kgo.Record{Topic: handlers.TopicXmppEvents, Value: []byte(`not json`)})
	c.process(t.Context(), &kgo.Record{Topic: "unknown-topic", Value: []byte(`{}`)})

	assert.Empty(t, ing.calls)
}

func TestProcess_IngestErrorDoesNotPanic(t *testing.T) {
	ing := &fakeIngester{err: errors.New("store down")}
	c := &Consumer{ingester: ing}

	assert.NotPanics(t, func() {
		c.process(t.Context(), &kgo.Record{Topic: handlers.TopicLocalIntents, Value: []byte(`{"title":"x"}`)})
	})
	assert.Len(t, ing.calls, 1)
}
