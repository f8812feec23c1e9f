package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"bijouterie-be/internal/user"
	"bijouterie-be/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityProbe(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var seen string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := utils.GetUserIDFromContext(r.Context())
		seen = id
		w.WriteHeader(http.StatusOK)
	})
	return h, &seen
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("Valid token sets identity", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")

		token, err := user.GenerateJWT("user-1", "client", "c@example.com")
		require.NoError(t, err)

		probe, seen := identityProbe(t)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)

		AuthMiddleware(probe).ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "user-1", *seen)
	})

	t.Run("Invalid token continues anonymously", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "test-secret")

		probe, seen := identityProbe(t)
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		req.Header.Set("Authorization", "Bearer garbage")

		rec := httptest.NewRecorder()
		AuthMiddleware(probe).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, *seen)
	})
}

func TestRequireAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("Anonymous is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RequireAuth(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Authenticated passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/cart", nil)
		req = req.WithContext(utils.SetUserContext(req.Context(), "user-1", "c@example.com", utils.RoleClient))

		rec := httptest.NewRecorder()
		RequireAuth(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	adminOnly := RequireRole(utils.RoleAdmin)(next)

	t.Run("Admin passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
		req = req.WithContext(utils.SetUserContext(req.Context(), "user-1", "a@example.com", utils.RoleAdmin))

		rec := httptest.NewRecorder()
		adminOnly.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Client is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/orders", nil)
		req = req.WithContext(utils.SetUserContext(req.Context(), "user-1", "c@example.com", utils.RoleClient))

		rec := httptest.NewRecorder()
		adminOnly.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Anonymous is unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		adminOnly.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/orders", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestResolveRateTier(t *testing.T) {
	cases := []struct {
		method string
		path   string
		tier   string
	}{
		{http.MethodPost, "/auth/login", "strict"},
		{http.MethodPost, "/webhooks/stripe", "strict"},
		{http.MethodGet, "/products", "catalog"},
		{http.MethodGet, "/categories", "catalog"},
		{http.MethodPost, "/products", "general"},
		{http.MethodPost, "/orders", "general"},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			_, _, tier := resolveRateTier(req)
			assert.Equal(t, tc.tier, tier)
		})
	}
}

func TestRateLimitEventuallyRejects(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	limited := RateLimitMiddleware(next)

	var rejected bool
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = "10.9.8.7:1234"

		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			rejected = true
			break
		}
	}
	assert.True(t, rejected, "burst should exhaust the strict tier")
}
