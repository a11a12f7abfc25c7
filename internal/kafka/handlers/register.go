package handlers

import (
	"vn.io.arda/notification-pipeline/internal/kafka/registry"
)

// Topic names consumed by the pipeline.
const (
	TopicXmppEvents     = "xmpp-events"
	TopicPushDeliveries = "push-deliveries"
	TopicLocalIntents   = "local-intents"
)

// Register is a convenience alias so each handler file calls Register(...)
// instead of registry.Register(...).
func Register(topic, eventType string, h registry.EventHandler) {
	registry.Register(topic, eventType, h)
}

// RegisterDirect registers a handler for topics that don't use eventType routing.
func RegisterDirect(topic string, h registry.EventHandler) {
	registry.Register(topic, "", h)
}
