package authapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/internal/apierrors"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/sessions/storage"
	"github.com/jrsteele09/go-auth-client/tenants"
	"github.com/stretchr/testify/require"
)

const (
	testTenantKey = "abc123"
	testUsername  = "alice"
	testPassword  = "secret"
)

// testConfig overrides the endpoint URLs while keeping the stock defaults
// for everything else.
type testConfig struct {
	config.EnvVars
	config.OAuth
	config.HTTP
	platformURL string
	idpURL      string
}

func (c testConfig) GetPlatformBaseURL() string     { return c.platformURL }
func (c testConfig) GetIdentityProviderURL() string { return c.idpURL }

type testFixture struct {
	store   *sessions.Store
	service *authapi.Service
}

func setupService(t *testing.T, platformURL, idpURL string, options ...authapi.ServiceOption) *testFixture {
	t.Helper()

	store := sessions.NewStore(storage.NewMemory())
	service, err := authapi.NewService(store, testConfig{platformURL: platformURL, idpURL: idpURL}, options...)
	require.NoError(t, err)

	return &testFixture{store: store, service: service}
}

func TestNewService(t *testing.T) {
	t.Run("requires a store", func(t *testing.T) {
		_, err := authapi.NewService(nil, testConfig{})
		require.Error(t, err)
	})

	t.Run("requires a config", func(t *testing.T) {
		_, err := authapi.NewService(sessions.NewStore(storage.NewMemory()), nil)
		require.Error(t, err)
	})
}

func TestFetchTenantInfo(t *testing.T) {
	t.Run("returns the descriptor", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodGet, r.Method)
			require.Equal(t, "/public/tenants/info/"+testTenantKey, r.URL.Path)
			json.NewEncoder(w).Encode(tenants.Tenant{
				Key:          testTenantKey,
				Name:         "Acme Corp",
				Logo:         "https://cdn.example.com/acme.png",
				PrimaryColor: "#ff6600",
			})
		}))
		defer server.Close()

		f := setupService(t, server.URL, server.URL)
		tenant, err := f.service.FetchTenantInfo(context.Background(), testTenantKey)
		require.NoError(t, err)
		require.Equal(t, testTenantKey, tenant.Key)
		require.Equal(t, "Acme Corp", tenant.Name)
	})

	t.Run("404 is tenant-not-found and persists nothing", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		f := setupService(t, server.URL, server.URL)
		_, err := f.service.FetchTenantInfo(context.Background(), testTenantKey)
		require.ErrorIs(t, err, apierrors.ErrTenantNotFound)
		require.Equal(t, "Mã doanh nghiệp không tồn tại", err.Error())

		_, ok := f.store.Token()
		require.False(t, ok)
		_, ok = f.store.TenantKey()
		require.False(t, ok)
	})

	t.Run("other non-OK statuses are connectivity errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		f := setupService(t, server.URL, server.URL)
		_, err := f.service.FetchTenantInfo(context.Background(), testTenantKey)
		require.ErrorIs(t, err, apierrors.ErrServerUnreachable)
	})

	t.Run("unreachable server is a network error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // shut down before use

		f := setupService(t, server.URL, server.URL)
		_, err := f.service.FetchTenantInfo(context.Background(), testTenantKey)
		require.True(t, apierrors.IsNetwork(err))
	})
}

func TestLoginWithCredentials(t *testing.T) {
	t.Run("persists tokens then tenant key", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/public/auth/login", r.URL.Path)

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, testUsername, body["username"])
			require.Equal(t, testPassword, body["password"])
			require.Equal(t, testTenantKey, body["tenantKey"])

			json.NewEncoder(w).Encode(map[string]string{
				"access_token":  "X",
				"refresh_token": "Y",
			})
		}))
		defer server.Close()

		f := setupService(t, server.URL, server.URL)
		require.NoError(t, f.service.LoginWithCredentials(context.Background(), testUsername, testPassword, testTenantKey))

		access, ok := f.store.Token()
		require.True(t, ok)
		require.Equal(t, "X", access)

		refresh, ok := f.store.RefreshToken()
		require.True(t, ok)
		require.Equal(t, "Y", refresh)

		tenantKey, ok := f.store.TenantKey()
		require.True(t, ok)
		require.Equal(t, testTenantKey, tenantKey)
	})

	t.Run("server-provided error message is surfaced", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "account locked"})
		}))
		defer server.Close()

		f := setupService(t, server.URL, server.URL)
		err := f.service.LoginWithCredentials(context.Background(), testUsername, testPassword, testTenantKey)
		require.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
		require.Equal(t, "account locked", err.Error())
	})

	t.Run("unparsable error body falls back to the stock message", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("boom"))
		}))
		defer server.Close()

		f := setupService(t, server.URL, server.URL)
		err := f.service.LoginWithCredentials(context.Background(), testUsername, testPassword, testTenantKey)
		require.ErrorIs(t, err, apierrors.ErrInvalidCredentials)
		require.Equal(t, authapi.DefaultMessages().InvalidCredentials, err.Error())

		_, ok := f.store.Token()
		require.False(t, ok)
	})
}

func TestRefreshAccessToken(t *testing.T) {
	refreshHandler := func(calls *atomic.Int32, delay time.Duration) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if delay > 0 {
				time.Sleep(delay)
			}
			require.Equal(t, "/public/auth/refresh", r.URL.Path)
			json.NewEncoder(w).Encode(map[string]string{
				"access_token":  "new-access",
				"refresh_token": "new-refresh",
			})
		}
	}

	t.Run("missing refresh token short-circuits with zero network calls", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(refreshHandler(&calls, 0))
		defer server.Close()

		f := setupService(t, server.URL, server.URL)
		require.NoError(t, f.store.SetTenantKey(testTenantKey))

		require.False(t, f.service.RefreshAccessToken(context.Background()))
		require.Equal(t, int32(0), calls.Load())
	})

	t.Run("missing tenant key short-circuits", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(refreshHandler(&calls, 0))
		defer server.Close()

		f := setupService(t, server.URL, server.URL)
		refresh := "refresh-1"
		require.NoError(t, f.store.SetTokens("access-1", &refresh))

		require.False(t, f.service.RefreshAccessToken(context.Background()))
		require.Equal(t, int32(0), calls.Load())
	})

	t.Run("successful exchange persists the new pair", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(refreshHandler(&calls, 0))
		defer server.Close()

		f := setupService(t, server.URL, server.URL)
		refresh := "refresh-1"
		require.NoError(t, f.store.SetTokens("access-1", &refresh))
		require.NoError(t, f.store.SetTenantKey(testTenantKey))

		require.True(t, f.service.RefreshAccessToken(context.Background()))

		access, _ := f.store.Token()
		require.Equal(t, "new-access", access)
		newRefresh, _ := f.store.RefreshToken()
		require.Equal(t, "new-refresh", newRefresh)
	})

	t.Run("rejected exchange returns false without error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		f := setupService(t, server.URL, server.URL)
		refresh := "refresh-1"
		require.NoError(t, f.store.SetTokens("access-1", &refresh))
		require.NoError(t, f.store.SetTenantKey(testTenantKey))

		require.False(t, f.service.RefreshAccessToken(context.Background()))
	})

	t.Run("concurrent refreshes share one exchange", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(refreshHandler(&calls, 150*time.Millisecond))
		defer server.Close()

		f := setupService(t, server.URL, server.URL)
		refresh := "refresh-1"
		require.NoError(t, f.store.SetTokens("access-1", &refresh))
		require.NoError(t, f.store.SetTenantKey(testTenantKey))

		const concurrency = 8
		var wg sync.WaitGroup
		results := make([]bool, concurrency)
		for i := 0; i < concurrency; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = f.service.RefreshAccessToken(context.Background())
			}(i)
		}
		wg.Wait()

		for i, refreshed := range results {
			require.True(t, refreshed, "caller %d", i)
		}
		require.Equal(t, int32(1), calls.Load())
	})
}
