package apiclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/apiclient"
	"github.com/jrsteele09/go-auth-client/internal/apierrors"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/sessions/storage"
	"github.com/stretchr/testify/require"
)

// fakeRefresher stands in for the auth API's refresh path.
type fakeRefresher struct {
	store    *sessions.Store
	newToken string
	succeed  bool
	calls    int
}

func (f *fakeRefresher) RefreshAccessToken(_ context.Context) bool {
	f.calls++
	if !f.succeed {
		return false
	}
	_ = f.store.SetTokens(f.newToken, nil)
	return true
}

func newClientStore(t *testing.T) *sessions.Store {
	t.Helper()
	return sessions.NewStore(storage.NewMemory())
}

func TestNewFromConfig(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
	}))
	defer server.Close()

	t.Setenv("PLATFORM_BASE_URL", server.URL)
	t.Setenv("TENANT_HEADER", "X-Org-Key")
	t.Setenv("HTTP_TIMEOUT_MS", "2500")

	store := newClientStore(t)
	require.NoError(t, store.SetTenantKey("abc123"))

	client := apiclient.NewFromConfig(config.New(), store)
	require.NoError(t, client.Get(context.Background(), "/ping", nil, nil))
	require.Equal(t, "abc123", got.Get("X-Org-Key"))
}

func TestDo_HeaderInjection(t *testing.T) {
	t.Run("injects bearer token and tenant header", func(t *testing.T) {
		var got http.Header
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
		}))
		defer server.Close()

		store := newClientStore(t)
		require.NoError(t, store.SetTokens("token-1", nil))
		require.NoError(t, store.SetTenantKey("abc123"))

		client := apiclient.New(server.URL, store)
		require.NoError(t, client.Get(context.Background(), "/users", nil, nil))

		require.Equal(t, "Bearer token-1", got.Get("Authorization"))
		require.Equal(t, "abc123", got.Get("X-Tenant-Key"))
		require.Equal(t, "application/json", got.Get("Content-Type"))
	})

	t.Run("caller-supplied headers win", func(t *testing.T) {
		var got http.Header
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
		}))
		defer server.Close()

		store := newClientStore(t)
		require.NoError(t, store.SetTokens("token-1", nil))

		client := apiclient.New(server.URL, store)
		headers := http.Header{}
		headers.Set("Authorization", "Basic xyz")
		headers.Set("Content-Type", "text/plain")
		require.NoError(t, client.Do(context.Background(), http.MethodGet, "/raw", nil, nil, headers))

		require.Equal(t, "Basic xyz", got.Get("Authorization"))
		require.Equal(t, "text/plain", got.Get("Content-Type"))
	})

	t.Run("no token means no Authorization header", func(t *testing.T) {
		var got http.Header
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Clone()
		}))
		defer server.Close()

		client := apiclient.New(server.URL, newClientStore(t))
		require.NoError(t, client.Get(context.Background(), "/public", nil, nil))
		require.Empty(t, got.Get("Authorization"))
	})
}

func TestDo_UnauthorizedRetry(t *testing.T) {
	t.Run("401 then refresh success retries exactly once with the new token", func(t *testing.T) {
		var requests []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests = append(requests, r.Header.Get("Authorization"))
			if r.Header.Get("Authorization") != "Bearer fresh-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"id": "42"})
		}))
		defer server.Close()

		store := newClientStore(t)
		require.NoError(t, store.SetTokens("stale-token", nil))
		refresher := &fakeRefresher{store: store, newToken: "fresh-token", succeed: true}

		client := apiclient.New(server.URL, store, apiclient.WithRefresher(refresher))

		var out map[string]string
		require.NoError(t, client.Get(context.Background(), "/users/42", nil, &out))
		require.Equal(t, "42", out["id"])

		// exactly two underlying fetches, the second carrying the new token
		require.Equal(t, []string{"Bearer stale-token", "Bearer fresh-token"}, requests)
		require.Equal(t, 1, refresher.calls)
	})

	t.Run("401 with failed refresh surfaces the 401", func(t *testing.T) {
		var fetches int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fetches++
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		store := newClientStore(t)
		require.NoError(t, store.SetTokens("stale-token", nil))
		refresher := &fakeRefresher{store: store, succeed: false}

		client := apiclient.New(server.URL, store, apiclient.WithRefresher(refresher))
		err := client.Get(context.Background(), "/users", nil, nil)

		require.Equal(t, http.StatusUnauthorized, apierrors.StatusOf(err))
		require.Equal(t, 1, fetches)
		require.Equal(t, 1, refresher.calls)
	})

	t.Run("second 401 after a successful refresh is terminal", func(t *testing.T) {
		var fetches int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fetches++
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		store := newClientStore(t)
		require.NoError(t, store.SetTokens("stale-token", nil))
		refresher := &fakeRefresher{store: store, newToken: "fresh-token", succeed: true}

		client := apiclient.New(server.URL, store, apiclient.WithRefresher(refresher))
		err := client.Get(context.Background(), "/users", nil, nil)

		// one refresh, one retry, then give up - no loop
		require.Equal(t, http.StatusUnauthorized, apierrors.StatusOf(err))
		require.Equal(t, 2, fetches)
		require.Equal(t, 1, refresher.calls)
	})

	t.Run("401 without a refresher is surfaced directly", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		client := apiclient.New(server.URL, newClientStore(t))
		err := client.Get(context.Background(), "/users", nil, nil)
		require.Equal(t, http.StatusUnauthorized, apierrors.StatusOf(err))
	})
}

func TestDo_ErrorClassification(t *testing.T) {
	t.Run("timeout is classified with status 408", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer server.Close()
		defer close(release)

		client := apiclient.New(server.URL, newClientStore(t), apiclient.WithTimeout(100*time.Millisecond))

		start := time.Now()
		err := client.Get(context.Background(), "/slow", nil, nil)
		elapsed := time.Since(start)

		require.True(t, apierrors.IsTimeout(err))
		require.Equal(t, http.StatusRequestTimeout, apierrors.StatusOf(err))
		require.Less(t, elapsed, time.Second, "rejects shortly after the deadline, not when the server answers")
	})

	t.Run("unreachable server is a network error with status 0", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close()

		client := apiclient.New(server.URL, newClientStore(t))
		err := client.Get(context.Background(), "/users", nil, nil)

		require.True(t, apierrors.IsNetwork(err))
		require.Equal(t, 0, apierrors.StatusOf(err))
	})

	t.Run("non-OK status carries the real code", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
		}))
		defer server.Close()

		client := apiclient.New(server.URL, newClientStore(t))
		err := client.Get(context.Background(), "/users", nil, nil)

		kind, ok := apierrors.KindOf(err)
		require.True(t, ok)
		require.Equal(t, apierrors.KindHTTP, kind)
		require.Equal(t, http.StatusConflict, apierrors.StatusOf(err))
	})

	t.Run("caller cancellation propagates untouched", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer server.Close()
		defer close(release)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(50 * time.Millisecond)
			cancel()
		}()

		client := apiclient.New(server.URL, newClientStore(t))
		err := client.Get(ctx, "/slow", nil, nil)
		require.ErrorIs(t, err, context.Canceled)
	})
}
