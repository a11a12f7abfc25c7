package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vn.io.arda/notification-pipeline/internal/domain"
)

func TestRecordToIntent(t *testing.T) {
	r := &domain.Record{
		ID:            "abc",
		Channel:       domain.ChannelContracts,
		Title:         "Contract proposal",
		Body:          domain.StringPtr("Sign please"),
		Action:        string(domain.ActionOpenContract),
		EntityID:      domain.StringPtr("contract-1"),
		CorrelationID: domain.StringPtr("corr"),
		ExtrasJSON:    `{"role":"Buyer"}`,
		SchemaVersion: 2,
		Presentation:  domain.PresentationStoreOnly,
	}

	in := r.ToIntent()

	assert.Equal(t, domain.ActionOpenContract, in.Action)
	assert.Equal(t, "contract-1", in.EntityID)
	assert.Equal(t, "Sign please", in.Body)
	assert.Equal(t, "corr", in.CorrelationID)
	assert.Equal(t, map[string]string{"role": "Buyer"}, in.Extras)
	assert.Equal(t, 2, in.Version)
	assert.Equal(t, domain.PresentationStoreOnly, in.Presentation)
}

func TestRecordToIntent_UnknownActionAndBadExtras(t *testing.T) {
	r := &domain.Record{Action: "Teleport", ExtrasJSON: "not json"}

	in := r.ToIntent()

	assert.Equal(t, domain.ActionUnknown, in.Action)
	assert.Empty(t, in.Extras)
}

func TestRecordClone_IsDeep(t *testing.T) {
	r := &domain.Record{ID: "x", Body: domain.StringPtr("b")}
	c := r.Clone()
	*c.Body = "changed"

	assert.Equal(t, "b", *r.Body)
}

func TestNotificationQueryMatches(t *testing.T) {
	r := &domain.Record{Channel: "Chat", State: domain.StateDelivered}

	assert.True(t, domain.NotificationQuery{}.Matches(r))
	assert.True(t, domain.NotificationQuery{Channels: []string{"chat"}}.Matches(r))
	assert.False(t, domain.NotificationQuery{Channels: []string{"Wallet"}}.Matches(r))
	assert.True(t, domain.NotificationQuery{States: []domain.State{domain.StateDelivered, domain.StateRead}}.Matches(r))
	assert.False(t, domain.NotificationQuery{States: []domain.State{domain.StateConsumed}}.Matches(r))
}

func TestStateRank(t *testing.T) {
	assert.Less(t, domain.StateNew.Rank(), domain.StateDelivered.Rank())
	assert.Less(t, domain.StateDelivered.Rank(), domain.StateRead.Rank())
	assert.Less(t, domain.StateRead.Rank(), domain.StateConsumed.Rank())
}
