package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// DefaultBucketWindow is the dedup window used when none is configured.
const DefaultBucketWindow = time.Minute

// IDResolver derives the stable notification Id from an intent.
//
// The canonical string is Channel|Action|EntityId|CorrelationId|TimeBucket where TimeBucket is
// the current UTC time truncated to Window. Identical intents inside one window collapse to one
// Id; the same intent one window later gets a new Id.
type IDResolver struct {
	Window time.Duration
	Now    func() time.Time
}

// NewIDResolver returns a resolver with the given window (DefaultBucketWindow if <= 0).
func NewIDResolver(window time.Duration) *IDResolver {
	if window <= 0 {
		window = DefaultBucketWindow
	}
	return &IDResolver{Window: window, Now: time.Now}
}

// ComputeID hashes the intent's identifying fields at the current bucket.
func (r *IDResolver) ComputeID(in Intent) string {
	return r.ComputeIDAt(in, r.now())
}

// ComputeIDAt hashes the intent's identifying fields in the bucket containing at.
func (r *IDResolver) ComputeIDAt(in Intent, at time.Time) string {
	action := in.Action
	if action == "" {
		action = ActionUnknown
	}

	var b strings.Builder
	b.WriteString(in.Channel)
	b.WriteByte('|')
	b.WriteString(string(action))
	b.WriteByte('|')
	b.WriteString(in.EntityID)
	b.WriteByte('|')
	b.WriteString(in.CorrelationID)
	b.WriteByte('|')
	b.WriteString(r.Bucket(at).Format(time.RFC3339))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Bucket rounds t down to the start of its window, in UTC.
func (r *IDResolver) Bucket(t time.Time) time.Time {
	w := r.Window
	if w <= 0 {
		w = DefaultBucketWindow
	}
	return t.UTC().Truncate(w)
}

func (r *IDResolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
