package authapi

// TokenResponse is the token payload returned by the platform login and
// refresh endpoints and by the identity provider's token endpoint (RFC 6749
// access token response).
type TokenResponse struct {
	// AccessToken is the JWT presented as "Authorization: Bearer <token>".
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque token exchanged for new access tokens.
	// May be omitted; an omitted refresh token never clobbers a stored one.
	RefreshToken *string `json:"refresh_token,omitempty"`

	// TokenType is "bearer" for every endpoint this client talks to.
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is a lifetime hint in seconds. The authoritative expiry is
	// the access token's own exp claim.
	ExpiresIn int `json:"expires_in,omitempty"`

	Scope string `json:"scope,omitempty"`
}

// errorBody is the JSON error envelope the platform returns on rejected
// requests.
type errorBody struct {
	Message string `json:"message"`
}
