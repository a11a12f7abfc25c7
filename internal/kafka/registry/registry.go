// Package registry provides a lightweight event handler registry for Kafka events.
// Each handler file registers itself via init(), so the consumer never changes when a
// new event type is added.
package registry

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
	"vn.io.arda/notification-pipeline/internal/domain"
)

// EventHandler maps raw Kafka message bytes to an inbound notification.
// Returning nil means "skip this event".
type EventHandler func(data []byte) *domain.Inbound

var handlers = map[string]EventHandler{}

// Register binds a handler to a {topic}:{eventType} key.
// Panics on duplicate registration to catch wiring mistakes early.
func Register(topic, eventType string, h EventHandler) {
	key := topic + ":" + eventType
	if _, exists := handlers[key]; exists {
		panic("registry: duplicate handler registered for key: " + key)
	}
	handlers[key] = h
}

// Dispatch looks up and calls the handler for the given topic + eventType.
// The eventType is read from the "eventType" JSON field in data.
// Returns nil if no handler matches or data cannot be parsed.
func Dispatch(topic string, data []byte) *domain.Inbound {
	var head struct {
		EventType string `json:"eventType"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		log.Warn().Str("topic", topic).Err(err).Msg("registry: failed to read eventType")
		return nil
	}

	key := topic + ":" + head.EventType
	h, ok := handlers[key]
	if !ok {
		log.Debug().Str("key", key).Msg("registry: no handler registered")
		return nil
	}
	return h(data)
}

// DispatchDirect calls the handler registered for a topic without eventType routing.
// Used for topics like push-deliveries where the whole message is the payload.
func DispatchDirect(topic string, data []byte) *domain.Inbound {
	h, ok := handlers[topic+":"]
	if !ok {
		return nil
	}
	return h(data)
}

// HasDirect reports whether topic has a direct handler.
func HasDirect(topic string) bool {
	_, ok := handlers[topic+":"]
	return ok
}
