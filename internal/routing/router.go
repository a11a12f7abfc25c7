// Package routing turns consumed notifications into navigation.
package routing

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"vn.io.arda/notification-pipeline/internal/domain"
)

// Router dispatches intents to pages by action. It satisfies application.Router.
type Router struct {
	nav      Navigator
	resolver EntityResolver
	filter   RouteFilter
}

// New creates a Router. filter may be nil.
func New(nav Navigator, resolver EntityResolver, filter RouteFilter) *Router {
	return &Router{nav: nav, resolver: resolver, filter: filter}
}

// Route navigates for in. Navigation that is not ready, or a navigator reporting
// ErrNavigationUnavailable, yields Deferred. Suppressed routing yields Ignored. Other lookup
// and navigation failures are logged and yield Failed. The returned error is non-nil only
// when ctx was cancelled.
func (r *Router) Route(ctx context.Context, in domain.Intent, fromUserInteraction bool) (domain.RouteResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.RouteFailed, err
	}

	if !r.nav.CurrentPageReady() {
		return domain.RouteDeferred, nil
	}

	if r.filter != nil && r.filter.Evaluate(in).IgnoreRoute {
		return domain.RouteIgnored, nil
	}

	result, err := r.dispatch(ctx, in)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			log.Debug().Str("action", string(in.Action)).Msg("notification routing cancelled")
			return domain.RouteFailed, ctxErr
		}
		log.Error().Err(err).
			Str("action", string(in.Action)).
			Str("entity_id", in.EntityID).
			Bool("user_interaction", fromUserInteraction).
			Msg("notification routing failed")
		return domain.RouteFailed, nil
	}
	return result, nil
}

func (r *Router) dispatch(ctx context.Context, in domain.Intent) (domain.RouteResult, error) {
	switch in.Action {
	case domain.ActionOpenChat:
		return r.routeChat(ctx, in)
	case domain.ActionOpenProfile:
		return r.goTo(ctx, PageContacts, nil)
	case domain.ActionOpenPresenceRequest:
		return r.routePresence(ctx, in)
	case domain.ActionOpenSettings:
		return r.goTo(ctx, PageSettings, nil)
	case domain.ActionOpenIdentity:
		return r.routeIdentity(ctx, in)
	case domain.ActionOpenContract:
		return r.routeContract(ctx, in)
	case domain.ActionOpenToken:
		return r.routeToken(ctx, in)
	case domain.ActionOpenBalance:
		return r.goTo(ctx, PageWallet, WalletArgs{Currency: in.Extras["currency"]})
	case domain.ActionOpenPetition:
		return r.routePetition(ctx, in)
	default:
		return domain.RouteNoHandler, nil
	}
}

func (r *Router) routeChat(ctx context.Context, in domain.Intent) (domain.RouteResult, error) {
	if in.EntityID == "" {
		return domain.RouteNoHandler, nil
	}

	contact, err := r.resolver.ResolveContact(ctx, in.EntityID)
	if err != nil {
		return domain.RouteFailed, fmt.Errorf("resolve contact %s: %w", in.EntityID, err)
	}

	args := ChatArgs{BareJID: in.EntityID, FriendlyName: in.EntityID}
	if contact != nil {
		args.LegalID = contact.LegalID
		if contact.FriendlyName != "" {
			args.FriendlyName = contact.FriendlyName
		}
	}
	return r.goTo(ctx, PageChat, args)
}

func (r *Router) routePresence(ctx context.Context, in domain.Intent) (domain.RouteResult, error) {
	if in.EntityID == "" {
		return r.goTo(ctx, PageContacts, nil)
	}

	contact, err := r.resolver.ResolveContact(ctx, in.EntityID)
	if err != nil {
		if isCancelled(ctx, err) {
			return domain.RouteFailed, err
		}
		log.Warn().Err(err).Str("entity_id", in.EntityID).Msg("contact lookup failed, falling back to contact list")
		return r.goTo(ctx, PageContacts, nil)
	}

	args := PresenceRequestArgs{BareJID: in.EntityID, FriendlyName: in.EntityID}
	if contact != nil && contact.FriendlyName != "" {
		args.FriendlyName = contact.FriendlyName
	}
	return r.goTo(ctx, PagePresenceRequest, args)
}

// routeIdentity prefers an unfinished application over the identity itself.
func (r *Router) routeIdentity(ctx context.Context, in domain.Intent) (domain.RouteResult, error) {
	if in.EntityID == "" {
		return domain.RouteNoHandler, nil
	}

	identity, err := r.resolver.ResolveIdentity(ctx, in.EntityID)
	if err != nil {
		return domain.RouteFailed, fmt.Errorf("resolve identity %s: %w", in.EntityID, err)
	}

	if identity != nil && identity.HasPendingApplication() {
		return r.goTo(ctx, PageKycApplication, KycApplicationArgs{
			ReferenceID: identity.ApplicationRef,
			IdentityID:  identity.ID,
		})
	}
	return r.goTo(ctx, PageIdentity, IdentityArgs{IdentityID: in.EntityID})
}

func (r *Router) routeContract(ctx context.Context, in domain.Intent) (domain.RouteResult, error) {
	if in.EntityID == "" {
		return r.goTo(ctx, PageContracts, nil)
	}

	contract, err := r.resolver.ResolveContract(ctx, in.EntityID)
	if err != nil || contract == nil {
		if isCancelled(ctx, err) {
			return domain.RouteFailed, err
		}
		logFallback(err, in, PageContracts)
		return r.goTo(ctx, PageContracts, nil)
	}

	role := contract.Role
	if role == "" {
		role = in.Extras["role"]
	}
	return r.goTo(ctx, PageContract, ContractArgs{ContractID: contract.ID, Role: role})
}

func (r *Router) routeToken(ctx context.Context, in domain.Intent) (domain.RouteResult, error) {
	if in.EntityID == "" {
		return r.goTo(ctx, PageTokens, nil)
	}

	token, err := r.resolver.ResolveToken(ctx, in.EntityID)
	if err != nil || token == nil {
		if isCancelled(ctx, err) {
			return domain.RouteFailed, err
		}
		logFallback(err, in, PageTokens)
		return r.goTo(ctx, PageTokens, nil)
	}
	return r.goTo(ctx, PageToken, TokenArgs{TokenID: token.ID})
}

func (r *Router) routePetition(ctx context.Context, in domain.Intent) (domain.RouteResult, error) {
	if in.EntityID == "" {
		return r.goTo(ctx, PagePetitions, nil)
	}

	petition, err := r.resolver.ResolvePetition(ctx, in.EntityID)
	if err != nil || petition == nil {
		if isCancelled(ctx, err) {
			return domain.RouteFailed, err
		}
		logFallback(err, in, PagePetitions)
		return r.goTo(ctx, PagePetitions, nil)
	}
	return r.goTo(ctx, PagePetition, PetitionArgs{
		PetitionID: petition.ID,
		From:       petition.From,
		Purpose:    petition.Purpose,
	})
}

func (r *Router) goTo(ctx context.Context, page string, args any) (domain.RouteResult, error) {
	if err := r.nav.GoTo(ctx, page, args); err != nil {
		if errors.Is(err, ErrNavigationUnavailable) {
			log.Debug().Str("page", page).Err(err).Msg("navigation unavailable, deferring route")
			return domain.RouteDeferred, nil
		}
		return domain.RouteFailed, fmt.Errorf("navigate to %s: %w", page, err)
	}
	return domain.RouteSuccess, nil
}

func isCancelled(ctx context.Context, err error) bool {
	ctxErr := ctx.Err()
	return err != nil && ctxErr != nil && errors.Is(err, ctxErr)
}

func logFallback(err error, in domain.Intent, page string) {
	ev := log.Warn()
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Str("action", string(in.Action)).
		Str("entity_id", in.EntityID).
		Str("fallback", page).
		Msg("entity lookup failed, falling back to list view")
}
