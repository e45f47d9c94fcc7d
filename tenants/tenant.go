// Package tenants defines the tenant descriptor returned by the platform's
// public tenant-lookup endpoint. Each tenant is addressed by a short key that
// also selects the identity provider realm used for SSO.
package tenants

// Tenant describes a tenant organization as served by
// GET /public/tenants/info/{key}. Branding fields (Logo, PrimaryColor) are
// consumed verbatim by UI embedders.
type Tenant struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	Logo         string `json:"logo"`
	PrimaryColor string `json:"primaryColor"`
	DBType       string `json:"dbType,omitempty"`
}
