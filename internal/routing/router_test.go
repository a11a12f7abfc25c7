package routing_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vn.io.arda/notification-pipeline/internal/domain"
	"vn.io.arda/notification-pipeline/internal/routing"
)

type navCall struct {
	page string
	args any
}

type fakeNavigator struct {
	mu    sync.Mutex
	ready bool
	err   error
	calls []navCall
}

func (n *fakeNavigator) CurrentPageReady() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ready
}

func (n *fakeNavigator) GoTo(_ context.Context, page string, args any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.calls = append(n.calls, navCall{page: page, args: args})
	return nil
}

func (n *fakeNavigator) last() navCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.calls) == 0 {
		return navCall{}
	}
	return n.calls[len(n.calls)-1]
}

type fakeResolver struct {
	contacts   map[string]*routing.Contact
	identities map[string]*routing.Identity
	contracts  map[string]*routing.Contract
	tokens     map[string]*routing.Token
	petitions  map[string]*routing.Petition
	err        error
}

func (r *fakeResolver) ResolveContact(_ context.Context, id string) (*routing.Contact, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.contacts[id], nil
}

func (r *fakeResolver) ResolveIdentity(_ context.Context, id string) (*routing.Identity, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.identities[id], nil
}

func (r *fakeResolver) ResolveContract(_ context.Context, id string) (*routing.Contract, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.contracts[id], nil
}

func (r *fakeResolver) ResolveToken(_ context.Context, id string) (*routing.Token, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.tokens[id], nil
}

func (r *fakeResolver) ResolvePetition(_ context.Context, id string) (*routing.Petition, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.petitions[id], nil
}

type routeFilterFunc func(domain.Intent) domain.FilterDecision

func (f routeFilterFunc) Evaluate(in domain.Intent) domain.FilterDecision { return f(in) }

func TestRoute_OpenChatWithoutEntityIsNoHandler(t *testing.T) {
	nav := &fakeNavigator{ready: true}
	r := routing.New(nav, &fakeResolver{}, nil)

	res, err := r.Route(context.Background(), domain.Intent{Action: domain.ActionOpenChat}, true)

	require.NoError(t, err)
	assert.Equal(t, domain.RouteNoHandler, res)
	assert.Empty(t, nav.calls)
}

func TestRoute_NotReadyIsDeferred(t *testing.T) {
	nav := &fakeNavigator{ready: false}
	r := routing.New(nav, &fakeResolver{}, nil)

	res, err := r.Route(context.Background(), domain.Intent{Action: domain.ActionOpenChat, EntityID: "alice@example.com"}, true)

	require.NoError(t, err)
	assert.Equal(t, domain.RouteDeferred, res)
	assert.Empty(t, nav.calls)
}

func TestRoute_OpenChatSuccess(t *testing.T) {
	nav := &fakeNavigator{ready: true}
	resolver := &fakeResolver{contacts: map[string]*routing.Contact{
		"alice@example.com": {BareJID: "alice@example.com", FriendlyName: "Alice", LegalID: "legal-1"},
	}}
	r := routing.New(nav, resolver, nil)

	res, err := r.Route(context.Background(), domain.Intent{Action: domain.ActionOpenChat, EntityID: "alice@example.com"}, true)

	require.NoError(t, err)
	assert.Equal(t, domain.RouteSuccess, res)
	assert.Equal(t, routing.PageChat, nav.last().page)
	assert.Equal(t, routing.ChatArgs{LegalID: "legal-1", BareJID: "alice@example.com", FriendlyName: "Alice"}, nav.last().args)
}

func TestRoute_OpenChatUnknownContactFallsBackToRawID(t *testing.T) {
	nav := &fakeNavigator{ready: true}
	r := routing.New(nav, &fakeResolver{}, nil)

	res, err := r.Route(context.Background(), domain.Intent{Action: domain.ActionOpenChat, EntityID: "bob@example.com"}, false)

	require.NoError(t, err)
	assert.Equal(t, domain.RouteSuccess, res)
	assert.Equal(t, routing.ChatArgs{BareJID: "bob@example.com", FriendlyName: "bob@example.com"}, nav.last().args)
}

func TestRoute_LookupFailureIsFailed(t *testing.T) {
	nav := &fakeNavigator{ready: true}
	r := routing.New(nav, &fakeResolver{err: errors.New("xmpp offline")}, nil)

	res, err := r.Route(context.Background(), domain.Intent{Action: domain.ActionOpenChat, EntityID: "alice@example.com"}, true)

	require.NoError(t, err)
	assert.Equal(t, domain.RouteFailed, res)
	assert.Empty(t, nav.calls)
}

func TestRoute_IgnoredByFilter(t *testing.T) {
	nav := &fakeNavigator{ready: true}
	filter := routeFilterFunc(func(in domain.Intent) domain.FilterDecision {
		return domain.FilterDecision{IgnoreRoute: in.Channel == domain.ChannelChat}
	})
	r := routing.New(nav, &fakeResolver{}, filter)

	// Ignored wins even when no handler exists for the action.
	res, err := r.Route(context.Background(), domain.Intent{Action: domain.ActionUnknown, Channel: domain.ChannelChat}, true)

	require.NoError(t, err)
	assert.Equal(t, domain.RouteIgnored, res)
}

func TestRoute_UnknownActionIsNoHandler(t *testing.T) {
	r := routing.New(&fakeNavigator{ready: true}, &fakeResolver{}, nil)

	res, err := r.Route(context.Background(), domain.Intent{Action: domain.ActionUnknown}, true)

	require.NoError(t, err)
	assert.Equal(t, domain.RouteNoHandler, res)
}

func TestRoute_IdentityPrefersPendingApplication(t *testing.T) {
	nav := &fakeNavigator{ready: true}
	resolver := &fakeResolver{identities: map[string]*routing.Identity{
		"id-1": {ID: "id-1", ApplicationRef: "kyc-9", ApplicationApproved: false},
		"id-2": {ID: "id-2", Approved: true, ApplicationRef: "kyc-7", ApplicationApproved: true},
	}}
	r := routing.New(nav, resolver, nil)

	res, err := r.Route(context.Background(), domain.Intent{Action: domain.ActionOpenIdentity, EntityID: "id-1"}, true)
	require.NoError(t, err)
	assert.Equal(t, domain.RouteSuccess, res)
	assert.Equal(t, routing.PageKycApplication, nav.last().page)
	assert.Equal(t, routing.KycApplicationArgs{ReferenceID: "kyc-9", IdentityID: "id-1"}, nav.last().args)

	res, err = r.Route(context.Background(), domain.Intent{Action: domain.ActionOpenIdentity, EntityID: "id-2"}, true)
	require.NoError(t, err)
	assert.Equal(t, domain.RouteSuccess, res)
	assert.Equal(t, routing.PageIdentity, nav.last().page)
}

func TestRoute_ContractLookupFailureFallsBackToList(t *testing.T) {
	nav := &fakeNavigator{ready: true}
	r := routing.New(nav, &fakeResolver{err: errors.New("timeout")}, nil)

	res, err := r.Route(context.Background(), domain.Intent{Action: domain.ActionOpenContract, EntityID: "c-1"}, true)

	require.NoError(t, err)
	assert.Equal(t, domain.RouteSuccess, res)
	assert.Equal(t, routing.PageContracts, nav.last().page)
}

func TestRoute_ContractFound(t *testing.T) {
	nav := &fakeNavigator{ready: true}
	resolver := &fakeResolver{contracts: map[string]*routing.Contract{"c-1": {ID: "c-1"}}}
	r := routing.New(nav, resolver, nil)

	res, err := r.Route(context.Background(), domain.Intent{
		Action:   domain.ActionOpenContract,
		EntityID: "c-1",
		Extras:   map[string]string{"role": "Seller"},
	}, true)

	require.NoError(t, err)
	assert.Equal(t, domain.RouteSuccess, res)
	assert.Equal(t, routing.ContractArgs{ContractID: "c-1", Role: "Seller"}, nav.last().args)
}

func TestRoute_TokenAndPetitionFallbacks(t *testing.T) {
	nav := &fakeNavigator{ready: true}
	resolver := &fakeResolver{
		tokens:    map[string]*routing.Token{"t-1": {ID: "t-1"}},
		petitions: map[string]*routing.Petition{"p-1": {ID: "p-1", From: "bob@example.com", Purpose: "KYC"}},
	}
	r := routing.New(nav, resolver, nil)
	ctx := context.Background()

	cases := []struct {
		in   domain.Intent
		page string
	}{
		{domain.Intent{Action: domain.ActionOpenToken, EntityID: "t-1"}, routing.PageToken},
		{domain.Intent{Action: domain.ActionOpenToken, EntityID: "missing"}, routing.PageTokens},
		{domain.Intent{Action: domain.ActionOpenPetition, EntityID: "p-1"}, routing.PagePetition},
		{domain.Intent{Action: domain.ActionOpenPetition}, routing.PagePetitions},
		{domain.Intent{Action: domain.ActionOpenBalance, Extras: map[string]string{"currency": "EUR"}}, routing.PageWallet},
		{domain.Intent{Action: domain.ActionOpenSettings}, routing.PageSettings},
		{domain.Intent{Action: domain.ActionOpenProfile}, routing.PageContacts},
		{domain.Intent{Action: domain.ActionOpenPresenceRequest, EntityID: "carol@example.com"}, routing.PagePresenceRequest},
	}
	for _, tc := range cases {
		res, err := r.Route(ctx, tc.in, true)
		require.NoError(t, err)
		assert.Equal(t, domain.RouteSuccess, res, tc.in.Action)
		assert.Equal(t, tc.page, nav.last().page, tc.in.Action)
	}
}

func TestRoute_NavigationErrorIsFailed(t *testing.T) {
	nav := &fakeNavigator{ready: true, err: errors.New("page gone")}
	r := routing.New(nav, &fakeResolver{}, nil)

	res, err := r.Route(context.Background(), domain.Intent{Action: domain.ActionOpenSettings}, true)

	require.NoError(t, err)
	assert.Equal(t, domain.RouteFailed, res)
}

func TestRoute_NavigationUnavailableIsDeferred(t *testing.T) {
	nav := &fakeNavigator{ready: true, err: fmt.Errorf("device detached: %w", routing.ErrNavigationUnavailable)}
	r := routing.New(nav, &fakeResolver{}, nil)

	res, err := r.Route(context.Background(), domain.Intent{Action: domain.ActionOpenSettings}, true)

	require.NoError(t, err)
	assert.Equal(t, domain.RouteDeferred, res)
}

func TestRoute_CancelledContextPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := routing.New(&fakeNavigator{ready: true}, &fakeResolver{}, nil)

	_, err := r.Route(ctx, domain.Intent{Action: domain.ActionOpenSettings}, true)

	assert.ErrorIs(t, err, context.Canceled)
}
