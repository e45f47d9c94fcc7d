// Package session provides the in-memory session facade consumed by
// embedders: a mutex-guarded view of the authenticated user and active
// tenant, kept in sync with the durable sessions.Store after every auth
// operation.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/tenants"
	"github.com/jrsteele09/go-auth-client/token/claims"
	"github.com/rs/zerolog"
)

// AuthAPI is the slice of the auth API the manager depends on.
type AuthAPI interface {
	FetchTenantInfo(ctx context.Context, key string) (*tenants.Tenant, error)
	LoginWithCredentials(ctx context.Context, username, password, tenantKey string) error
	BeginSSO(ctx context.Context, tenantKey string) (string, error)
	HandleOAuthCallback(ctx context.Context, code string) error
}

// State is a point-in-time snapshot of the session.
type State struct {
	Authenticated bool
	User          *claims.UnverifiedClaims
	Tenant        *tenants.Tenant
}

// Manager holds the reactive session state. Mutations of the in-memory state
// are mutex-guarded; concurrent logins are not mutually excluded, so the
// last network response to resolve wins, same as the store underneath.
type Manager struct {
	mu    sync.RWMutex
	store *sessions.Store
	api   AuthAPI
	state State
	log   zerolog.Logger
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager initializes a Manager whose state is derived from whatever the
// store already holds, so a restarted process resumes its session.
func NewManager(store *sessions.Store, api AuthAPI, options ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] store is required")
	}
	if api == nil {
		return nil, errors.New("[NewManager] auth API is required")
	}

	manager := &Manager{store: store, api: api, log: zerolog.Nop()}
	for _, option := range options {
		option(manager)
	}
	manager.reload()
	return manager, nil
}

// Login authenticates with credentials and re-derives the session state from
// the freshly stored token.
func (m *Manager) Login(ctx context.Context, username, password, tenantKey string) error {
	if err := m.api.LoginWithCredentials(ctx, username, password, tenantKey); err != nil {
		return err
	}
	m.reload()
	return nil
}

// LoginSSO starts the PKCE flow and returns the authorization URL the caller
// must navigate to. Session state is unchanged until HandleCallback.
func (m *Manager) LoginSSO(ctx context.Context, tenantKey string) (string, error) {
	return m.api.BeginSSO(ctx, tenantKey)
}

// HandleCallback completes the PKCE flow with the authorization code and
// re-derives the session state.
func (m *Manager) HandleCallback(ctx context.Context, code string) error {
	if err := m.api.HandleOAuthCallback(ctx, code); err != nil {
		return err
	}
	m.reload()
	return nil
}

// LookupTenant resolves a tenant descriptor and caches it in the store as a
// side effect, so callers relying on the return value alone still leave the
// descriptor behind for the next start.
func (m *Manager) LookupTenant(ctx context.Context, key string) (*tenants.Tenant, error) {
	tenant, err := m.api.FetchTenantInfo(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := m.store.SetTenantInfo(tenant); err != nil {
		return nil, fmt.Errorf("[Manager.LookupTenant] cache descriptor: %w", err)
	}

	m.mu.Lock()
	m.state.Tenant = tenant
	m.mu.Unlock()
	return tenant, nil
}

// Logout clears the durable store and the in-memory state synchronously.
func (m *Manager) Logout() error {
	if err := m.store.ClearAll(); err != nil {
		return fmt.Errorf("[Manager.Logout] clear store: %w", err)
	}
	m.mu.Lock()
	m.state = State{}
	m.mu.Unlock()
	m.log.Info().Msg("session cleared")
	return nil
}

// Current returns a snapshot of the session state.
func (m *Manager) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsAuthenticated re-checks the stored token against the clock, so a session
// that expired since the last reload reads as unauthenticated.
func (m *Manager) IsAuthenticated() bool {
	return m.store.IsAuthenticated()
}

// reload re-derives the in-memory state from the durable store.
func (m *Manager) reload() {
	var state State
	state.Authenticated = m.store.IsAuthenticated()
	if raw, ok := m.store.Token(); ok {
		if c, ok := claims.Decode(raw); ok {
			state.User = c
		}
	}
	if tenant, ok := m.store.TenantInfo(); ok {
		state.Tenant = tenant
	}

	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}
