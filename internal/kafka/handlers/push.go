package handlers

import (
	"encoding/json"
	"strconv"
	"strings"

	"vn.io.arda/notification-pipeline/internal/domain"
)

func init() {
	RegisterDirect(TopicPushDeliveries, handlePushDelivery)
}

// Keys carried in a push data map. Lookups are case-insensitive.
const (
	pushKeyTitle          = "myTitle"
	pushKeyBody           = "myBody"
	pushKeyChannel        = "channelId"
	pushKeyAction         = "action"
	pushKeyEntityID       = "entityId"
	pushKeyCorrelationID  = "correlationId"
	pushKeySilent         = "silent"
	pushKeyDeliverySilent = "delivery.silent"
)

// handlePushDelivery converts a push data map into an intent. Keys the pipeline does not
// interpret are kept as extras; the whole map is retained as the raw payload.
func handlePushDelivery(data []byte) *domain.Inbound {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	fields := make(map[string]string, len(raw))
	original := make(map[string]string, len(raw))
	for k, v := range raw {
		s := stringify(v)
		fields[strings.ToLower(k)] = s
		original[k] = s
	}

	get := func(key string) string { return fields[strings.ToLower(key)] }

	in := domain.Intent{
		Title:         get(pushKeyTitle),
		Body:          get(pushKeyBody),
		Channel:       get(pushKeyChannel),
		Action:        domain.ActionUnknown,
		EntityID:      get(pushKeyEntityID),
		CorrelationID: get(pushKeyCorrelationID),
		Version:       domain.DefaultSchemaVersion,
		Presentation:  domain.PresentationRenderAndStore,
	}
	if in.Channel == "" {
		in.Channel = domain.ChannelChat
	}
	if a := get(pushKeyAction); a != "" {
		in.Action = domain.ParseAction(a)
	}
	if isTrue(get(pushKeySilent)) || isTrue(get(pushKeyDeliverySilent)) {
		in.Presentation = domain.PresentationStoreOnly
	}

	in.Extras = make(map[string]string)
	for k, v := range original {
		if isPushControlKey(k) {
			continue
		}
		in.Extras[k] = v
	}

	rawJSON, err := json.Marshal(original)
	if err != nil {
		rawJSON = data
	}

	return &domain.Inbound{
		Intent:     in,
		Source:     domain.SourcePush,
		RawPayload: string(rawJSON),
	}
}

func isPushControlKey(k string) bool {
	switch strings.ToLower(k) {
	case strings.ToLower(pushKeyTitle), strings.ToLower(pushKeyBody), strings.ToLower(pushKeyChannel),
		strings.ToLower(pushKeyAction), strings.ToLower(pushKeyEntityID), strings.ToLower(pushKeyCorrelationID),
		pushKeySilent, pushKeyDeliverySilent:
		return true
	}
	return false
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}
