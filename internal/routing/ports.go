package routing

import (
	"context"
	"errors"

	"vn.io.arda/notification-pipeline/internal/domain"
)

// ErrNavigationUnavailable is wrapped by Navigator.GoTo errors meaning nothing could
// navigate right now. The router defers such routes instead of failing them.
var ErrNavigationUnavailable = errors.New("navigation unavailable")

// Navigator is the presentation layer the router drives.
type Navigator interface {
	// CurrentPageReady reports whether navigation can happen now.
	CurrentPageReady() bool
	GoTo(ctx context.Context, page string, args any) error
}

// RouteFilter supplies the route-suppression axis of the filter chain.
type RouteFilter interface {
	Evaluate(in domain.Intent) domain.FilterDecision
}

// Contact is a roster entry. FriendlyName may be empty.
type Contact struct {
	BareJID      string `json:"bareJid"`
	FriendlyName string `json:"friendlyName"`
	LegalID      string `json:"legalId"`
}

// Identity is a legal identity together with the state of its latest application.
type Identity struct {
	ID       string `json:"id"`
	Approved bool   `json:"approved"`
	// ApplicationRef points at a pending KYC application, if one exists.
	ApplicationRef      string `json:"applicationRef"`
	ApplicationApproved bool   `json:"applicationApproved"`
}

// HasPendingApplication reports whether an application exists that still needs attention.
func (i *Identity) HasPendingApplication() bool {
	return i.ApplicationRef != "" && !i.ApplicationApproved
}

// Contract is the minimal contract view needed for routing.
type Contract struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// Token is the minimal wallet token view needed for routing.
type Token struct {
	ID string `json:"id"`
}

// Petition is the minimal petition view needed for routing.
type Petition struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Purpose string `json:"purpose"`
}

// EntityResolver looks up the domain entities referenced by notifications.
// A nil entity with a nil error means "not found".
type EntityResolver interface {
	ResolveContact(ctx context.Context, bareJID string) (*Contact, error)
	ResolveIdentity(ctx context.Context, id string) (*Identity, error)
	ResolveContract(ctx context.Context, id string) (*Contract, error)
	ResolveToken(ctx context.Context, id string) (*Token, error)
	ResolvePetition(ctx context.Context, id string) (*Petition, error)
}
