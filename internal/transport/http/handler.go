package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"vn.io.arda/notification-pipeline/internal/application"
	"vn.io.arda/notification-pipeline/internal/domain"
	"vn.io.arda/notification-pipeline/internal/transport/mw"
)

const (
	defaultWaitTimeout = 10 * time.Second
	maxWaitTimeout     = 60 * time.Second
	sseHeartbeat       = 25 * time.Second
)

// Handler holds all HTTP handler methods.
type Handler struct {
	svc *application.Service
	hub *Hub

	filtersMu sync.Mutex
	filters   map[string]*application.FilterHandle
}

// NewHandler creates a new Handler.
func NewHandler(svc *application.Service, hub *Hub) *Handler {
	return &Handler{svc: svc, hub: hub, filters: make(map[string]*application.FilterHandle)}
}

// --- REST Handlers ---

// ListNotifications GET /notifications?channel=Chat&state=Delivered&limit=20
func (h *Handler) ListNotifications(c echo.Context) error {
	q := domain.NotificationQuery{
		Channels: splitQuery(c, "channel"),
		Limit:    parseIntQuery(c, "limit", 0),
	}
	for _, s := range splitQuery(c, "state") {
		state := domain.State(s)
		if state.Rank() < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown state: "+s)
		}
		q.States = append(q.States, state)
	}

	records, err := h.svc.Get(c.Request().Context(), q)
	if err != nil {
		return internalError(err, "list notifications")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data":  records,
		"limit": q.Limit,
	})
}

// ChannelCounts GET /notifications/channels
func (h *Handler) ChannelCounts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.ChannelCounts())
}

type addRequest struct {
	domain.Intent
	Source domain.Source `json:"source"`
}

// Add POST /notifications
func (h *Handler) Add(c echo.Context) error {
	var req addRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Title == "" && req.Body == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title or body is required")
	}
	switch req.Source {
	case "":
		req.Source = domain.SourceLocal
	case domain.SourceLocal, domain.SourcePush, domain.SourceXmpp:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown source: "+string(req.Source))
	}
	req.Action = domain.ParseAction(string(req.Action))

	rec, err := h.svc.Add(c.Request().Context(), req.Intent, req.Source, "")
	if err != nil {
		return internalError(err, "add notification")
	}
	return c.JSON(http.StatusCreated, rec)
}

// Consume POST /notifications/:id/consume
func (h *Handler) Consume(c echo.Context) error {
	result, err := h.svc.Consume(c.Request().Context(), c.Param("id"))
	if err != nil {
		return internalError(err, "consume notification")
	}
	if result == "" {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	return c.JSON(http.StatusOK, map[string]domain.RouteResult{"result": result})
}

// MarkRead POST /notifications/:id/read
func (h *Handler) MarkRead(c echo.Context) error {
	if err := h.svc.MarkRead(c.Request().Context(), c.Param("id")); err != nil {
		return internalError(err, "mark notification read")
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete DELETE /notifications/:id
func (h *Handler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return internalError(err, "delete notification")
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteMany POST /notifications/delete {"ids": [...]}
func (h *Handler) DeleteMany(c echo.Context) error {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := h.svc.Delete(c.Request().Context(), req.IDs...); err != nil {
		return internalError(err, "delete notifications")
	}
	return c.NoContent(http.StatusNoContent)
}

// Prune POST /notifications/prune
func (h *Handler) Prune(c echo.Context) error {
	n, err := h.svc.Prune(c.Request().Context())
	if err != nil {
		return internalError(err, "prune notifications")
	}
	return c.JSON(http.StatusOK, map[string]int{"deleted": n})
}

// ProcessPending POST /notifications/pending/process
func (h *Handler) ProcessPending(c echo.Context) error {
	n, err := h.svc.ProcessPending(c.Request().Context())
	if err != nil {
		return internalError(err, "process pending routes")
	}
	return c.JSON(http.StatusOK, map[string]int{"routed": n})
}

// Wait GET /notifications/wait?channel=&entityId=&correlationId=&timeout=5s
// Responds 200 with the first matching record, or 204 when the timeout elapses.
func (h *Handler) Wait(c echo.Context) error {
	pred, err := predicateFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	timeout, err := parseTimeout(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rec, err := h.svc.WaitFor(c.Request().Context(), pred, timeout)
	if err != nil {
		if c.Request().Context().Err() != nil {
			return nil
		}
		return internalError(err, "wait for notification")
	}
	if rec == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, rec)
}

// Expect POST /notifications/expect?channel=&entityId=&correlationId=&timeout=30s
// The first matching record is consumed and routed automatically.
func (h *Handler) Expect(c echo.Context) error {
	pred, err := predicateFromQuery(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	timeout, err := parseTimeout(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	// The registration outlives the request.
	h.svc.Expect(context.WithoutCancel(c.Request().Context()), pred, timeout)
	return c.NoContent(http.StatusAccepted)
}

type filterRequest struct {
	Channel      string `json:"channel"`
	EntityID     string `json:"entityId"`
	IgnoreRender bool   `json:"ignoreRender"`
	IgnoreStore  bool   `json:"ignoreStore"`
	IgnoreRoute  bool   `json:"ignoreRoute"`
}

// AddFilter POST /filters registers a runtime ignore filter for a channel or an entity.
func (h *Handler) AddFilter(c echo.Context) error {
	var req filterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	d := domain.FilterDecision{IgnoreRender: req.IgnoreRender, IgnoreStore: req.IgnoreStore, IgnoreRoute: req.IgnoreRoute}
	if !d.Any() {
		return echo.NewHTTPError(http.StatusBadRequest, "filter suppresses nothing")
	}

	var fn application.FilterFunc
	switch {
	case req.Channel != "" && req.EntityID != "":
		return echo.NewHTTPError(http.StatusBadRequest, "set either channel or entityId")
	case req.Channel != "":
		fn = application.IgnoreChannel(req.Channel, d)
	case req.EntityID != "":
		fn = application.IgnoreEntity(req.EntityID, d)
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "channel or entityId is required")
	}

	id := uuid.NewString()
	handle := h.svc.AddIgnoreFilter(fn)
	h.filtersMu.Lock()
	h.filters[id] = handle
	h.filtersMu.Unlock()

	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

// RemoveFilter DELETE /filters/:id
func (h *Handler) RemoveFilter(c echo.Context) error {
	h.filtersMu.Lock()
	handle, ok := h.filters[c.Param("id")]
	delete(h.filters, c.Param("id"))
	h.filtersMu.Unlock()

	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "filter not found")
	}
	handle.Remove()
	return c.NoContent(http.StatusNoContent)
}

// --- SSE Handler ---

// Stream GET /notifications/stream is the SSE endpoint. An attached stream makes the device
// the navigation target and triggers processing of deferred routes.
func (h *Handler) Stream(c echo.Context) error {
	deviceID := mw.DeviceID(c)

	// SSE headers
	w := c.Response()
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable proxy buffering

	// Send initial "connected" event before registering, so it always comes first.
	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"ok\"}\n\n")
	w.Flush()

	sendCh := make(chan []byte, 32)
	client := h.hub.Register(deviceID, sendCh)
	defer h.hub.Unregister(client)

	log.Info().Str("device", deviceID).Msg("SSE stream opened")

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case msg := <-sendCh:
			if _, err := w.Write(msg); err != nil {
				return nil
			}
			w.Flush()

		case <-heartbeat.C:
			if _, err := w.Write([]byte(": ping\n\n")); err != nil {
				return nil
			}
			w.Flush()

		case <-ctx.Done():
			log.Info().Str("device", deviceID).Msg("SSE stream closed by client")
			return nil
		}
	}
}

// --- Healthcheck ---

// Health GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"sse_clients": h.hub.ConnectedCount(),
	})
}

// --- Helpers ---

func internalError(err error, op string) error {
	log.Error().Err(err).Str("op", op).Msg("request failed")
	return echo.ErrInternalServerError
}

// splitQuery accepts both repeated and comma-separated values.
func splitQuery(c echo.Context, key string) []string {
	var out []string
	for _, v := range c.QueryParams()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseIntQuery(c echo.Context, key string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func parseTimeout(c echo.Context) (time.Duration, error) {
	raw := c.QueryParam("timeout")
	if raw == "" {
		return defaultWaitTimeout, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, errors.New("invalid timeout: " + raw)
	}
	return min(d, maxWaitTimeout), nil
}

func predicateFromQuery(c echo.Context) (application.Predicate, error) {
	channel := c.QueryParam("channel")
	entityID := c.QueryParam("entityId")
	correlationID := c.QueryParam("correlationId")
	if channel == "" && entityID == "" && correlationID == "" {
		return nil, errors.New("channel, entityId or correlationId is required")
	}

	return func(r *domain.Record) bool {
		if channel != "" && !strings.EqualFold(r.Channel, channel) {
			return false
		}
		if entityID != "" && domain.Deref(r.EntityID) != entityID {
			return false
		}
		if correlationID != "" && domain.Deref(r.CorrelationID) != correlationID {
			return false
		}
		return true
	}, nil
}
