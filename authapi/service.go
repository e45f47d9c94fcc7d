// Package authapi performs all network interaction with the platform backend
// and the identity provider for authentication: tenant lookup, credential
// login, refresh-token exchange, and the PKCE authorization-code flow.
// Persisted session state lives in the sessions.Store the Service is
// constructed with; nothing here caches tokens in memory.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-auth-client/internal/apierrors"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/tenants"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Service is the authentication API client. All methods are safe for
// concurrent use; concurrent refresh attempts are coalesced behind a single
// in-flight exchange.
type Service struct {
	store        *sessions.Store
	platformURL  string
	idpURL       string
	clientID     string
	redirectURI  string
	scopes       []string
	discovery    bool
	httpClient   *http.Client
	log          zerolog.Logger
	messages     Messages
	refreshGroup singleflight.Group
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithHTTPClient replaces the underlying HTTP client (primarily for testing).
func WithHTTPClient(client *http.Client) ServiceOption {
	return func(s *Service) {
		s.httpClient = client
	}
}

// WithLogger sets the logger used for flow diagnostics.
func WithLogger(log zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.log = log
	}
}

// WithMessages overrides the user-facing error strings.
func WithMessages(m Messages) ServiceOption {
	return func(s *Service) {
		s.messages = m
	}
}

// WithRedirectURI overrides the configured OAuth redirect URI. The sso
// command uses this to point the flow at its loopback callback server.
func WithRedirectURI(uri string) ServiceOption {
	return func(s *Service) {
		s.redirectURI = uri
	}
}

// NewService initializes a Service with required dependencies.
func NewService(store *sessions.Store, cfg config.Config, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("[NewService] store is required")
	}
	if cfg == nil {
		return nil, errors.New("[NewService] config is required")
	}

	service := &Service{
		store:       store,
		platformURL: strings.TrimRight(cfg.GetPlatformBaseURL(), "/"),
		idpURL:      strings.TrimRight(cfg.GetIdentityProviderURL(), "/"),
		clientID:    cfg.GetOAuthClientID(),
		redirectURI: cfg.GetOAuthRedirectURI(),
		scopes:      cfg.GetOAuthScopes(),
		discovery:   cfg.GetOIDCDiscovery(),
		httpClient:  &http.Client{Timeout: cfg.GetRequestTimeout()},
		log:         zerolog.Nop(),
		messages:    DefaultMessages(),
	}
	for _, option := range options {
		option(service)
	}
	return service, nil
}

// FetchTenantInfo looks a tenant up by its short key. A 404 becomes the
// tenant-not-found domain error; any other non-OK status is surfaced as a
// connectivity problem. The descriptor is returned, not persisted - callers
// that want the cached-descriptor side effect go through session.Manager.
func (s *Service) FetchTenantInfo(ctx context.Context, key string) (*tenants.Tenant, error) {
	endpoint := fmt.Sprintf("%s/public/tenants/info/%s", s.platformURL, url.PathEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("[Service.FetchTenantInfo] build request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apierrors.Network(s.messages.ServerUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apierrors.Domain(s.messages.TenantNotFound, apierrors.ErrTenantNotFound)
	case resp.StatusCode != http.StatusOK:
		s.log.Warn().Int("status", resp.StatusCode).Str("tenant", key).Msg("tenant lookup rejected")
		return nil, apierrors.Domain(s.messages.ServerUnreachable, apierrors.ErrServerUnreachable)
	}

	var tenant tenants.Tenant
	if err := json.NewDecoder(resp.Body).Decode(&tenant); err != nil {
		return nil, fmt.Errorf("[Service.FetchTenantInfo] decode response: %w", err)
	}
	return &tenant, nil
}

// LoginWithCredentials authenticates against the platform login endpoint and
// persists the returned token pair. The tenant key is stored only after the
// tokens have been persisted, so a failed token write never leaves a tenant
// key pointing at no session.
func (s *Service) LoginWithCredentials(ctx context.Context, username, password, tenantKey string) error {
	payload := map[string]string{
		"username":  username,
		"password":  password,
		"tenantKey": tenantKey,
	}

	resp, err := s.postJSON(ctx, s.platformURL+"/public/auth/login", payload)
	if err != nil {
		return apierrors.Network(s.messages.ServerUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		message := s.messages.InvalidCredentials
		var body errorBody
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
			message = body.Message
		}
		s.log.Debug().Int("status", resp.StatusCode).Str("tenant", tenantKey).Msg("login rejected")
		return apierrors.Domain(message, apierrors.ErrInvalidCredentials)
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("[Service.LoginWithCredentials] decode response: %w", err)
	}

	if err := s.store.SetTokens(tokenResp.AccessToken, tokenResp.RefreshToken); err != nil {
		return fmt.Errorf("[Service.LoginWithCredentials] persist tokens: %w", err)
	}
	if err := s.store.SetTenantKey(tenantKey); err != nil {
		return fmt.Errorf("[Service.LoginWithCredentials] persist tenant key: %w", err)
	}

	s.log.Info().Str("tenant", tenantKey).Msg("credential login succeeded")
	return nil
}

// RefreshAccessToken exchanges the stored refresh token for a new pair.
// A missing refresh token or tenant key short-circuits to false without a
// network call. Network and HTTP failures also yield false rather than an
// error: this method is invoked opportunistically from the 401 retry path,
// and its caller decides what to surface. Concurrent callers share a single
// in-flight exchange, so a burst of 401s cannot burn a rotating refresh
// token more than once.
func (s *Service) RefreshAccessToken(ctx context.Context) bool {
	refreshToken, ok := s.store.RefreshToken()
	if !ok || refreshToken == "" {
		return false
	}
	tenantKey, ok := s.store.TenantKey()
	if !ok || tenantKey == "" {
		return false
	}

	result, _, shared := s.refreshGroup.Do("refresh", func() (any, error) {
		return s.exchangeRefreshToken(ctx, refreshToken, tenantKey), nil
	})
	if shared {
		s.log.Debug().Msg("refresh coalesced with concurrent caller")
	}

	refreshed, _ := result.(bool)
	return refreshed
}

func (s *Service) exchangeRefreshToken(ctx context.Context, refreshToken, tenantKey string) bool {
	payload := map[string]string{
		"refreshToken": refreshToken,
		"tenantKey":    tenantKey,
	}

	resp, err := s.postJSON(ctx, s.platformURL+"/public/auth/refresh", payload)
	if err != nil {
		s.log.Debug().Err(err).Msg("refresh exchange failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.log.Debug().Int("status", resp.StatusCode).Msg("refresh exchange rejected")
		return false
	}

	var tokenResp TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		s.log.Debug().Err(err).Msg("refresh response undecodable")
		return false
	}
	if err := s.store.SetTokens(tokenResp.AccessToken, tokenResp.RefreshToken); err != nil {
		s.log.Error().Err(err).Msg("persisting refreshed tokens failed")
		return false
	}
	return true
}

func (s *Service) postJSON(ctx context.Context, endpoint string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.httpClient.Do(req)
}
