package config

type OAuthConfig interface {
	GetIdentityProviderURL() string
	GetOAuthClientID() string
	GetOAuthRedirectURI() string
	GetOAuthScopes() []string
	GetOIDCDiscovery() bool
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetIdentityProviderURL returns the base URL of the identity provider.
// Per-tenant realms live under "{idp}/realms/{tenantKey}".
func (OAuth) GetIdentityProviderURL() string {
	return GetEnv("IDP_BASE_URL", "http://localhost:8180")
}

func (OAuth) GetOAuthClientID() string {
	return GetEnv("OAUTH_CLIENT_ID", "admin-console")
}

// GetOAuthRedirectURI returns the redirect URI registered with the identity
// provider. The default targets the loopback callback server started by the
// sso command.
func (OAuth) GetOAuthRedirectURI() string {
	return GetEnv("OAUTH_REDIRECT_URI", "http://127.0.0.1:8321/auth/callback")
}

func (OAuth) GetOAuthScopes() []string {
	return []string{"openid", "profile", "email"}
}

// GetOIDCDiscovery reports whether realm endpoints should be resolved via
// OIDC discovery instead of the fixed openid-connect path layout.
func (OAuth) GetOIDCDiscovery() bool {
	return GetEnv("OIDC_DISCOVERY", "") == "true"
}
