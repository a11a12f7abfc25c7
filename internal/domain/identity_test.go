package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vn.io.arda/notification-pipeline/internal/domain"
)

func chatIntent() domain.Intent {
	return domain.Intent{
		Title:         "Message from Alice",
		Channel:       domain.ChannelChat,
		Action:        domain.ActionOpenChat,
		EntityID:      "alice@example.com",
		CorrelationID: "msg-42",
	}
}

func TestComputeID_SameBucketSameID(t *testing.T) {
	r := domain.NewIDResolver(time.Minute)
	base := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)

	a := r.ComputeIDAt(chatIntent(), base.Add(2*time.Second))
	b := r.ComputeIDAt(chatIntent(), base.Add(58*time.Second))

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestComputeID_DifferentBucketsDifferentIDs(t *testing.T) {
	r := domain.NewIDResolver(time.Minute)
	base := time.Date(2026, 3, 1, 10, 15, 30, 0, time.UTC)

	// The same logical event more than one window later is a new notification.
	a := r.ComputeIDAt(chatIntent(), base)
	b := r.ComputeIDAt(chatIntent(), base.Add(61*time.Second))

	assert.NotEqual(t, a, b)
}

func TestComputeID_BucketEdge(t *testing.T) {
	r := domain.NewIDResolver(time.Minute)
	edge := time.Date(2026, 3, 1, 10, 16, 0, 0, time.UTC)

	before := r.ComputeIDAt(chatIntent(), edge.Add(-time.Nanosecond))
	after := r.ComputeIDAt(chatIntent(), edge)

	assert.NotEqual(t, before, after)
}

func TestComputeID_IgnoresTitleBodyAndExtras(t *testing.T) {
	r := domain.NewIDResolver(time.Minute)
	at := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)

	in := chatIntent()
	other := chatIntent()
	other.Title = "different"
	other.Body = "body"
	other.Extras = map[string]string{"k": "v"}

	assert.Equal(t, r.ComputeIDAt(in, at), r.ComputeIDAt(other, at))
}

func TestComputeID_CorrelationParticipates(t *testing.T) {
	r := domain.NewIDResolver(time.Minute)
	at := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)

	withCorr := chatIntent()
	without := chatIntent()
	without.CorrelationID = ""

	assert.NotEqual(t, r.ComputeIDAt(withCorr, at), r.ComputeIDAt(without, at))
}

func TestComputeID_UsesInjectedClock(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 15, 0, 0, time.FixedZone("UTC+7", 7*3600))
	r := domain.NewIDResolver(0)
	r.Now = func() time.Time { return at }

	require.Equal(t, domain.DefaultBucketWindow, r.Window)
	assert.Equal(t, r.ComputeIDAt(chatIntent(), at.UTC()), r.ComputeID(chatIntent()))
	assert.Equal(t, time.UTC, r.Bucket(at).Location())
}
