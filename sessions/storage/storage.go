// Package storage provides the string key-value namespace backing the
// session store. Two implementations are provided: an in-memory map for
// tests and short-lived tools, and a single-file store for durable sessions.
package storage

// Storage is a flat, origin-scoped string namespace. Get reports absence via
// the boolean rather than an error; Set and Delete return an error only when
// the backing medium fails.
type Storage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}
