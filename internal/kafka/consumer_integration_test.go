//go:build integration

package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/redpanda"
	"github.com/twmb/franz-go/pkg/kgo"

	"vn.io.arda/notification-pipeline/internal/domain"
	"vn.io.arda/notification-pipeline/internal/kafka/handlers"
)

func TestConsumer_EndToEnd(t *testing.T) {
	ctx := t.Context()

	container, err := redpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v23.3.3", redpanda.WithAutoCreateTopics())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	broker, err := container.KafkaSeedBroker(ctx)
	require.NoError(t, err)

	producer, err := kgo.NewClient(kgo.SeedBrokers(broker), kgo.AllowAutoTopicCreation())
	require.NoError(t, err)
	t.Cleanup(producer.Close)

	payload := `{"eventType":"CHAT_MESSAGE","eventId":"e-1","payload":{"from":"alice@example.com","body":"hi"}}`
	require.NoError(t, producer.ProduceSync(ctx, &kgo.Record{Topic: handlers.TopicXmppEvents, Value: []byte(payload)}).FirstErr())

	ing := &fakeIngester{}
	consumer, err := New([]string{broker}, "notification-pipeline-it", []string{handlers.TopicXmppEvents}, ing)
	require.NoError(t, err)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		consumer.Start(runCtx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		ing.mu.Lock()
		defer ing.mu.Unlock()
		return len(ing.calls) == 1
	}, 30*time.Second, 100*time.Millisecond)

	cancel()
	<-done

	assert.Equal(t, domain.SourceXmpp, ing.calls[0].source)
	assert.Equal(t, "alice@example.com", ing.calls[0].in.EntityID)
	assert.Equal(t, "e-1", ing.calls[0].in.Extras["eventId"])
}
