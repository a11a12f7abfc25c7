package http

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"vn.io.arda/notification-pipeline/internal/application"
	"vn.io.arda/notification-pipeline/internal/domain"
	"vn.io.arda/notification-pipeline/internal/routing"
)

// ErrNoDevice is returned by GoTo when no attached device accepted the navigation.
// It wraps routing.ErrNavigationUnavailable so the route is deferred until a device attaches.
var ErrNoDevice = fmt.Errorf("no device attached: %w", routing.ErrNavigationUnavailable)

// Client represents a connected SSE client, one per attached device.
type Client struct {
	deviceID string
	send     chan []byte
}

// Hub manages all active SSE client connections. Attached devices are the presentation
// layer of the pipeline: the Hub is both the routing.Navigator and the application.Renderer.
// Single-instance model: all broadcast is in-process.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string][]*Client // deviceID -> clients
	onConnect func()
}

// NewHub creates a new SSE Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string][]*Client),
	}
}

// OnConnect sets a callback run in its own goroutine whenever a device attaches.
func (h *Hub) OnConnect(fn func()) {
	h.mu.Lock()
	h.onConnect = fn
	h.mu.Unlock()
}

// Register adds a new SSE client.
func (h *Hub) Register(deviceID string, send chan []byte) *Client {
	c := &Client{deviceID: deviceID, send: send}

	h.mu.Lock()
	h.clients[deviceID] = append(h.clients[deviceID], c)
	fn := h.onConnect
	h.mu.Unlock()

	log.Debug().Str("device", deviceID).Msg("SSE client connected")
	if fn != nil {
		go fn()
	}
	return c
}

// Unregister removes an SSE client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.clients[c.deviceID]
	updated := make([]*Client, 0, len(clients))
	for _, existing := range clients {
		if existing != c {
			updated = append(updated, existing)
		}
	}

	if len(updated) == 0 {
		delete(h.clients, c.deviceID)
	} else {
		h.clients[c.deviceID] = updated
	}

	log.Debug().Str("device", c.deviceID).Msg("SSE client disconnected")
}

// ConnectedCount returns the total number of connected SSE clients.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

// CurrentPageReady reports whether any device is attached to navigate.
func (h *Hub) CurrentPageReady() bool {
	return h.ConnectedCount() > 0
}

type navigateFrame struct {
	Page string `json:"page"`
	Args any    `json:"args,omitempty"`
}

// GoTo asks every attached device to open page.
func (h *Hub) GoTo(ctx context.Context, page string, args any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h.broadcast("navigate", navigateFrame{Page: page, Args: args}) == 0 {
		return ErrNoDevice
	}
	return nil
}

// Render shows the intent on every attached device. With no device attached the
// notification is simply not rendered.
func (h *Hub) Render(ctx context.Context, in domain.Intent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.broadcast("notification", in)
	return nil
}

// Forward streams lifecycle events from sub to attached devices until sub is closed.
func (h *Hub) Forward(sub *application.Subscription) {
	for e := range sub.C {
		h.broadcast("lifecycle", e)
	}
}

// broadcast sends the frame to every client and returns how many accepted it.
func (h *Hub) broadcast(event string, payload any) int {
	msg, err := buildSSEMessage(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("encode SSE frame")
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for deviceID, clients := range h.clients {
		for _, c := range clients {
			select {
			case c.send <- msg:
				delivered++
			default:
				// Client is slow/disconnected, skip
				log.Warn().Str("device", deviceID).Str("event", event).Msg("SSE client send buffer full, skipping")
			}
		}
	}
	return delivered
}

// buildSSEMessage formats a payload as an SSE frame.
func buildSSEMessage(event string, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []byte("event: " + event + "\ndata: " + string(b) + "\n\n"), nil
}
