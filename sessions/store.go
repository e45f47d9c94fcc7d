// Package sessions owns all persisted session state: the access/refresh
// token pair, the active tenant, and the in-flight PKCE code verifier. The
// Store is the sole read/write authority over that state; it performs no
// network calls and every operation is synchronous.
package sessions

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-client/sessions/storage"
	"github.com/jrsteele09/go-auth-client/tenants"
	"github.com/jrsteele09/go-auth-client/token/claims"
)

// Storage keys. Five independent string entries, no schema versioning.
const (
	accessTokenKey  = "access_token"
	refreshTokenKey = "refresh_token"
	tenantKeyKey    = "tenant_key"
	tenantInfoKey   = "tenant_info"
	codeVerifierKey = "pkce_code_verifier"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Store reads and writes session state through a storage.Storage namespace.
type Store struct {
	storage storage.Storage
	nowTime func() time.Time
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

func NewStore(st storage.Storage, options ...StoreOption) *Store {
	store := &Store{storage: st, nowTime: func() time.Time { return NowTimeFunc() }}
	for _, option := range options {
		option(store)
	}
	return store
}

// Token returns the raw stored access token.
func (s *Store) Token() (string, bool) {
	return s.storage.Get(accessTokenKey)
}

// RefreshToken returns the raw stored refresh token.
func (s *Store) RefreshToken() (string, bool) {
	return s.storage.Get(refreshTokenKey)
}

// SetTokens overwrites the access token unconditionally. The refresh token
// is left untouched when refresh is nil, so a response that omits it does
// not destroy a previously issued one.
func (s *Store) SetTokens(access string, refresh *string) error {
	if err := s.storage.Set(accessTokenKey, access); err != nil {
		return fmt.Errorf("[Store.SetTokens] access token: %w", err)
	}
	if refresh != nil {
		if err := s.storage.Set(refreshTokenKey, *refresh); err != nil {
			return fmt.Errorf("[Store.SetTokens] refresh token: %w", err)
		}
	}
	return nil
}

// ClearTokens removes the token pair and any in-flight PKCE code verifier.
func (s *Store) ClearTokens() error {
	for _, key := range []string{accessTokenKey, refreshTokenKey, codeVerifierKey} {
		if err := s.storage.Delete(key); err != nil {
			return fmt.Errorf("[Store.ClearTokens] delete %s: %w", key, err)
		}
	}
	return nil
}

// TenantKey returns the active tenant identifier.
func (s *Store) TenantKey() (string, bool) {
	return s.storage.Get(tenantKeyKey)
}

func (s *Store) SetTenantKey(key string) error {
	return s.storage.Set(tenantKeyKey, key)
}

// ClearTenant removes the tenant identifier and the cached descriptor.
func (s *Store) ClearTenant() error {
	if err := s.storage.Delete(tenantKeyKey); err != nil {
		return fmt.Errorf("[Store.ClearTenant] delete tenant key: %w", err)
	}
	if err := s.storage.Delete(tenantInfoKey); err != nil {
		return fmt.Errorf("[Store.ClearTenant] delete tenant info: %w", err)
	}
	return nil
}

// TenantInfo returns the cached tenant descriptor. A corrupt stored value is
// treated as absent and the corrupt entry is purged, so a bad write can
// never wedge subsequent reads.
func (s *Store) TenantInfo() (*tenants.Tenant, bool) {
	raw, ok := s.storage.Get(tenantInfoKey)
	if !ok {
		return nil, false
	}
	var tenant tenants.Tenant
	if err := json.Unmarshal([]byte(raw), &tenant); err != nil {
		_ = s.storage.Delete(tenantInfoKey)
		return nil, false
	}
	return &tenant, true
}

func (s *Store) SetTenantInfo(tenant *tenants.Tenant) error {
	data, err := json.Marshal(tenant)
	if err != nil {
		return fmt.Errorf("[Store.SetTenantInfo] marshal: %w", err)
	}
	return s.storage.Set(tenantInfoKey, string(data))
}

// CodeVerifier returns the PKCE code verifier persisted for an in-flight
// SSO redirect.
func (s *Store) CodeVerifier() (string, bool) {
	return s.storage.Get(codeVerifierKey)
}

func (s *Store) SetCodeVerifier(verifier string) error {
	return s.storage.Set(codeVerifierKey, verifier)
}

func (s *Store) ClearCodeVerifier() error {
	return s.storage.Delete(codeVerifierKey)
}

// IsAuthenticated reports whether a token exists, decodes, and has an exp
// claim strictly in the future. Expiry is enforced here, not by the storage.
func (s *Store) IsAuthenticated() bool {
	raw, ok := s.Token()
	if !ok {
		return false
	}
	c, ok := claims.Decode(raw)
	if !ok {
		return false
	}
	return c.Exp > s.nowTime().Unix()
}

// ClearAll removes every persisted session entry. Called on logout.
func (s *Store) ClearAll() error {
	if err := s.ClearTokens(); err != nil {
		return err
	}
	return s.ClearTenant()
}
