// Package directory resolves contacts, identities, contracts, tokens and petitions from the
// account's directory service over HTTP.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"vn.io.arda/notification-pipeline/internal/routing"
)

const DefaultCacheTTL = 30 * time.Second

// Resolver implements routing.EntityResolver against the directory REST API.
type Resolver struct {
	baseURL string // e.g. "http://directory:8080/api/v1"
	token   string

	httpClient *http.Client
	group      singleflight.Group

	// Small in-memory cache so a burst of notifications for one entity costs one lookup.
	mu        sync.RWMutex
	cacheTTL  time.Duration
	cacheData map[string]cacheEntry // key: "<kind>:<id>"
	now       func() time.Time
}

type cacheEntry struct {
	data      any
	expiresAt time.Time
}

// Option customises a Resolver.
type Option func(*Resolver)

func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.httpClient = c }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.cacheTTL = ttl }
}

// New creates a Resolver. token, if set, is sent as a bearer token.
func New(baseURL, token string, opts ...Option) *Resolver {
	r := &Resolver{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cacheTTL:   DefaultCacheTTL,
		cacheData:  make(map[string]cacheEntry),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) ResolveContact(ctx context.Context, bareJID string) (*routing.Contact, error) {
	return resolve[routing.Contact](ctx, r, "contacts", bareJID)
}

func (r *Resolver) ResolveIdentity(ctx context.Context, id string) (*routing.Identity, error) {
	return resolve[routing.Identity](ctx, r, "identities", id)
}

func (r *Resolver) ResolveContract(ctx context.Context, id string) (*routing.Contract, error) {
	return resolve[routing.Contract](ctx, r, "contracts", id)
}

func (r *Resolver) ResolveToken(ctx context.Context, id string) (*routing.Token, error) {
	return resolve[routing.Token](ctx, r, "tokens", id)
}

func (r *Resolver) ResolvePetition(ctx context.Context, id string) (*routing.Petition, error) {
	return resolve[routing.Petition](ctx, r, "petitions", id)
}

// resolve fetches kind/id, sharing one in-flight request per key. A 404 is cached as
// "not found" and yields (nil, nil).
func resolve[T any](ctx context.Context, r *Resolver, kind, id string) (*T, error) {
	cacheKey := kind + ":" + id
	if cached, ok := r.fromCache(cacheKey); ok {
		v, _ := cached.(*T)
		return v, nil
	}

	v, err, _ := r.group.Do(cacheKey, func() (any, error) {
		var out T
		found, err := r.get(ctx, kind, id, &out)
		if err != nil {
			return nil, err
		}
		var res *T
		if found {
			res = &out
		}
		r.toCache(cacheKey, res)
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

func (r *Resolver) get(ctx context.Context, kind, id string, out any) (bool, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", r.baseURL, kind, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("directory %s/%s: %w", kind, id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("directory %s/%s: status %d", kind, id, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("directory %s/%s: decode: %w", kind, id, err)
	}
	return true, nil
}

// Invalidate drops every cached entry, e.g. after the roster changed.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheData = make(map[string]cacheEntry)
}

// fromCache retrieves a cached value if not expired.
func (r *Resolver) fromCache(key string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cacheData[key]
	if !ok || r.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.data, true
}

// toCache stores a value with the configured TTL.
func (r *Resolver) toCache(key string, data any) {
	if r.cacheTTL <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cacheData[key] = cacheEntry{data: data, expiresAt: r.now().Add(r.cacheTTL)}
}
