package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// State is the lifecycle position of a stored notification.
type State string

const (
	StateNew       State = "New"
	StateDelivered State = "Delivered"
	StateRead      State = "Read"
	StateConsumed  State = "Consumed"
)

// Rank orders states along the lifecycle New < Delivered < Read < Consumed.
func (s State) Rank() int {
	switch s {
	case StateNew:
		return 0
	case StateDelivered:
		return 1
	case StateRead:
		return 2
	case StateConsumed:
		return 3
	}
	return -1
}

// Record is the persisted notification. ObjectID is the opaque storage key; ID is the
// content hash used for application-level identity and is unique across the store.
type Record struct {
	ObjectID         string       `json:"objectId"`
	ID               string       `json:"id"`
	Channel          string       `json:"channel"`
	Title            string       `json:"title"`
	Body             *string      `json:"body,omitempty"`
	CorrelationID    *string      `json:"correlationId,omitempty"`
	Action           string       `json:"action"`
	EntityID         *string      `json:"entityId,omitempty"`
	ExtrasJSON       string       `json:"extrasJson"`
	RawPayload       *string      `json:"rawPayload,omitempty"`
	SchemaVersion    int          `json:"schemaVersion"`
	TimestampCreated time.Time    `json:"timestampCreated"`
	DeliveredAt      *time.Time   `json:"deliveredAt,omitempty"`
	ReadAt           *time.Time   `json:"readAt,omitempty"`
	ConsumedAt       *time.Time   `json:"consumedAt,omitempty"`
	State            State        `json:"state"`
	Source           Source       `json:"source"`
	Presentation     Presentation `json:"presentation"`
	OccurrenceCount  int          `json:"occurrenceCount"`
	LegacyType       *string      `json:"legacyType,omitempty"`
	LegacyCategory   *string      `json:"legacyCategory,omitempty"`
}

// Clone returns a deep copy so stores and callers never share mutable state.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Body = cloneString(r.Body)
	c.CorrelationID = cloneString(r.CorrelationID)
	c.EntityID = cloneString(r.EntityID)
	c.RawPayload = cloneString(r.RawPayload)
	c.LegacyType = cloneString(r.LegacyType)
	c.LegacyCategory = cloneString(r.LegacyCategory)
	c.DeliveredAt = cloneTime(r.DeliveredAt)
	c.ReadAt = cloneTime(r.ReadAt)
	c.ConsumedAt = cloneTime(r.ConsumedAt)
	return &c
}

// Extras decodes ExtrasJSON. A malformed payload yields an empty map.
func (r *Record) Extras() map[string]string {
	extras := map[string]string{}
	if r.ExtrasJSON != "" {
		_ = json.Unmarshal([]byte(r.ExtrasJSON), &extras)
	}
	return extras
}

// ToIntent converts a stored record back into the intent shape the router consumes.
func (r *Record) ToIntent() Intent {
	return Intent{
		Title:         r.Title,
		Body:          Deref(r.Body),
		Action:        ParseAction(r.Action),
		EntityID:      Deref(r.EntityID),
		Channel:       r.Channel,
		Extras:        r.Extras(),
		Version:       r.SchemaVersion,
		CorrelationID: Deref(r.CorrelationID),
		Presentation:  r.Presentation,
	}
}

// NotificationQuery filters Get. Empty allow-lists match everything; Limit <= 0 means no cap.
type NotificationQuery struct {
	Channels []string
	States   []State
	Limit    int
}

// Matches reports whether r passes the channel and state allow-lists.
// Channel comparison is case-insensitive.
func (q NotificationQuery) Matches(r *Record) bool {
	if len(q.Channels) > 0 {
		found := false
		for _, c := range q.Channels {
			if strings.EqualFold(c, r.Channel) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(q.States) > 0 {
		found := false
		for _, s := range q.States {
			if s == r.State {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// StringPtr returns nil for the empty string, otherwise a pointer to s.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the empty string for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
