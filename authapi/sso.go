package authapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-auth-client/internal/apierrors"
	"golang.org/x/oauth2"
)

// BeginSSO prepares the PKCE authorization-code flow for a tenant's realm
// and returns the authorization URL the caller must navigate to. The code
// verifier and tenant key are persisted before the URL is returned, so the
// state survives the round-trip through the identity provider regardless of
// what the caller does with the URL.
func (s *Service) BeginSSO(ctx context.Context, tenantKey string) (string, error) {
	verifier := oauth2.GenerateVerifier()

	if err := s.store.SetCodeVerifier(verifier); err != nil {
		return "", fmt.Errorf("[Service.BeginSSO] persist code verifier: %w", err)
	}
	if err := s.store.SetTenantKey(tenantKey); err != nil {
		return "", fmt.Errorf("[Service.BeginSSO] persist tenant key: %w", err)
	}

	conf := s.oauthConfig(s.realmEndpoints(ctx, tenantKey))
	authURL := conf.AuthCodeURL("", oauth2.S256ChallengeOption(verifier))

	s.log.Info().Str("tenant", tenantKey).Msg("starting SSO authorization flow")
	return authURL, nil
}

// HandleOAuthCallback exchanges the authorization code delivered to the
// redirect URI for a token pair. A missing tenant key or code verifier means
// the callback was reached from a stale or foreign context; that is a
// precondition failure, not a network one. The verifier is single-use: it is
// cleared whether the exchange succeeds or fails.
func (s *Service) HandleOAuthCallback(ctx context.Context, code string) error {
	tenantKey, ok := s.store.TenantKey()
	if !ok || tenantKey == "" {
		return apierrors.Precondition(s.messages.SessionInvalid)
	}
	verifier, ok := s.store.CodeVerifier()
	if !ok || verifier == "" {
		return apierrors.Precondition(s.messages.SessionInvalid)
	}

	conf := s.oauthConfig(s.realmEndpoints(ctx, tenantKey))
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, exchangeErr := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))

	if err := s.store.ClearCodeVerifier(); err != nil {
		s.log.Error().Err(err).Msg("clearing code verifier failed")
	}

	if exchangeErr != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(exchangeErr, &retrieveErr) {
			status := retrieveErr.Response.StatusCode
			s.log.Warn().Int("status", status).Str("tenant", tenantKey).Msg("token exchange rejected")
			return apierrors.HTTPStatus(status, http.StatusText(status))
		}
		return apierrors.Network(s.messages.ServerUnreachable, exchangeErr)
	}

	var refresh *string
	if token.RefreshToken != "" {
		refresh = &token.RefreshToken
	}
	if err := s.store.SetTokens(token.AccessToken, refresh); err != nil {
		return fmt.Errorf("[Service.HandleOAuthCallback] persist tokens: %w", err)
	}

	s.log.Info().Str("tenant", tenantKey).Msg("SSO login succeeded")
	return nil
}

func (s *Service) oauthConfig(endpoint oauth2.Endpoint) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    s.clientID,
		RedirectURL: s.redirectURI,
		Scopes:      s.scopes,
		Endpoint:    endpoint,
	}
}

// realmEndpoints resolves the authorization and token endpoints for a tenant
// realm. With discovery enabled the endpoints come from the realm's OIDC
// metadata; otherwise, and whenever discovery fails, the fixed
// openid-connect path layout is used.
func (s *Service) realmEndpoints(ctx context.Context, tenantKey string) oauth2.Endpoint {
	issuer := fmt.Sprintf("%s/realms/%s", s.idpURL, tenantKey)

	if s.discovery {
		provider, err := oidc.NewProvider(oidc.ClientContext(ctx, s.httpClient), issuer)
		if err == nil {
			return provider.Endpoint()
		}
		s.log.Warn().Err(err).Str("issuer", issuer).Msg("OIDC discovery failed, using fixed endpoint layout")
	}

	// Public client: the client_id travels in the form body, not Basic auth.
	return oauth2.Endpoint{
		AuthURL:   issuer + "/protocol/openid-connect/auth",
		TokenURL:  issuer + "/protocol/openid-connect/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
}
