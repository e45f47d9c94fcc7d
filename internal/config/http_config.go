package config

import (
	"strconv"
	"time"
)

type HTTPConfig interface {
	GetRequestTimeout() time.Duration
	GetTenantHeader() string
}

type HTTP struct{}

var _ HTTPConfig = HTTP{}

// GetRequestTimeout returns the per-request deadline applied by the HTTP
// client core. HTTP_TIMEOUT_MS overrides the 10 second default.
func (HTTP) GetRequestTimeout() time.Duration {
	ms, err := strconv.Atoi(GetEnv("HTTP_TIMEOUT_MS", "10000"))
	if err != nil || ms <= 0 {
		ms = 10000
	}
	return time.Duration(ms) * time.Millisecond
}

// GetTenantHeader returns the header name carrying the active tenant key.
func (HTTP) GetTenantHeader() string {
	return GetEnv("TENANT_HEADER", "X-Tenant-Key")
}
