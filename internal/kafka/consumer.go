package kafka

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/twmb/franz-go/pkg/kgo"
	"vn.io.arda/notification-pipeline/internal/domain"
	"vn.io.arda/notification-pipeline/internal/kafka/registry"

	// Blank imports trigger init() in each handler file,
	// registering all event handlers into the registry.
	_ "vn.io.arda/notification-pipeline/internal/kafka/handlers"
)

// Ingester accepts translated intents. *application.Service satisfies it.
type Ingester interface {
	Add(ctx context.Context, in domain.Intent, source domain.Source, rawPayload string) (*domain.Record, error)
}

// Consumer wraps the franz-go Kafka client.
type Consumer struct {
	client   *kgo.Client
	ingester Ingester
}

// New creates a Consumer with the given brokers, group ID, and topics.
func New(brokers []string, groupID string, topics []string, ingester Ingester) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(groupID),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, err
	}
	return &Consumer{client: client, ingester: ingester}, nil
}

// Start begins polling Kafka and processing records. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	log.Info().Msg("kafka consumer started")

	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			break
		}

		fetches.EachError(func(topic string, partition int32, err error) {
			log.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("kafka fetch error")
		})

		fetches.EachRecord(func(r *kgo.Record) {
			c.process(ctx, r)
		})

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			log.Error().Err(err).Msg("kafka commit error")
		}
	}

	c.client.Close()
	log.Info().Msg("kafka consumer stopped")
}

// process translates a Kafka record through the registry and hands the intent to the ingester.
// Records are committed even when ingestion fails; a poison record must not stall the partition.
func (c *Consumer) process(ctx context.Context, r *kgo.Record) {
	log.Debug().
		Str("topic", r.Topic).
		Str("key", string(r.Key)).
		Msg("processing kafka record")

	// push-deliveries and local-intents don't use eventType routing
	var inbound *domain.Inbound
	if registry.HasDirect(r.Topic) {
		inbound = registry.DispatchDirect(r.Topic, r.Value)
	} else {
		inbound = registry.Dispatch(r.Topic, r.Value)
	}

	if inbound == nil {
		log.Debug().Str("topic", r.Topic).Msg("no handler matched, skipping")
		return
	}

	if _, err := c.ingester.Add(ctx, inbound.Intent, inbound.Source, inbound.RawPayload); err != nil {
		log.Error().Err(err).
			Str("topic", r.Topic).
			Str("channel", inbound.Intent.Channel).
			Str("action", string(inbound.Intent.Action)).
			Str("entity_id", inbound.Intent.EntityID).
			Msg("failed to ingest notification from kafka event")
	}
}
