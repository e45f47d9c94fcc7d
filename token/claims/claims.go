// Package claims extracts claims from a compact JWT WITHOUT verifying its
// signature. Verification is the identity provider's and the resource
// server's responsibility; the decoded result exists only for optimistic
// client-side use (showing a username, checking local expiry, reading the
// tenant hint) and must never be treated as an authorization decision.
package claims

import (
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-client/internal/utils"
)

// UnverifiedClaims holds the claims of a decoded, unverified access token.
// The name is deliberate: nothing here has been checked against a signature.
type UnverifiedClaims struct {
	Exp               int64    `json:"exp"`
	Iat               int64    `json:"iat"`
	Iss               string   `json:"iss"`
	Sub               string   `json:"sub"`
	TenantID          string   `json:"tenant_id,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	Email             string   `json:"email,omitempty"`
	Roles             []string `json:"roles,omitempty"`
}

// Decode parses a three-part compact JWT and returns its claims. Any
// structural, base64 or JSON failure yields (nil, false) - callers must treat
// "no claims" as "unauthenticated", never as an error condition.
func Decode(rawToken string) (*UnverifiedClaims, bool) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, false
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(rawToken, jwtlib.MapClaims{})
	if err != nil {
		return nil, false
	}

	mapClaims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, false
	}

	exp, _ := mapClaims["exp"].(float64)
	iat, _ := mapClaims["iat"].(float64)
	iss, _ := mapClaims["iss"].(string)
	sub, _ := mapClaims["sub"].(string)
	tenantID, _ := mapClaims["tenant_id"].(string)
	username, _ := mapClaims["preferred_username"].(string)
	email, _ := mapClaims["email"].(string)

	// Keycloak nests realm roles under realm_access.roles.
	var roles []string
	if realmAccess, ok := mapClaims["realm_access"].(map[string]any); ok {
		if claimRoles, ok := realmAccess["roles"].([]any); ok {
			roles = utils.ToStringSlice(claimRoles)
		}
	}

	return &UnverifiedClaims{
		Exp:               int64(exp),
		Iat:               int64(iat),
		Iss:               iss,
		Sub:               sub,
		TenantID:          tenantID,
		PreferredUsername: username,
		Email:             email,
		Roles:             roles,
	}, true
}

// DisplayName returns the best available human-readable identity:
// preferred_username, then email, then the subject.
func (c *UnverifiedClaims) DisplayName() string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	if c.Email != "" {
		return c.Email
	}
	return c.Sub
}

// HasRole reports whether the decoded realm roles include role.
func (c *UnverifiedClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}
