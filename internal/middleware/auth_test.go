package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pageturn/chat/internal/directory"
	"github.com/pageturn/chat/internal/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authTestHandler(c echo.Context) error {
	identity, ok := c.Get(middleware.IdentityContextKey).(directory.Identity)
	if !ok {
		return c.String(http.StatusInternalServerError, "identity missing from context")
	}
	return c.String(http.StatusOK, identity.UserID)
}

func TestAuth(t *testing.T) {
	secret := []byte("test-secret")
	users := directory.NewJWTUserDirectory(secret, directory.NewStaticProfiles(nil))
	handler := middleware.Auth(users)(authTestHandler)

	token, err := directory.SignToken(secret, directory.Identity{UserID: "alice"})
	require.NoError(t, err)

	invoke := func(t *testing.T, decorate func(*http.Request)) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		decorate(req)
		rec := httptest.NewRecorder()
		c := echo.New().NewContext(req, rec)
		require.NoError(t, handler(c))
		return rec
	}

	t.Run("accepts a bearer token", func(t *testing.T) {
		rec := invoke(t, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer "+token)
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", rec.Body.String())
	})

	t.Run("accepts a token query parameter", func(t *testing.T) {
		rec := invoke(t, func(r *http.Request) {
			q := r.URL.Query()
			q.Set("token", token)
			r.URL.RawQuery = q.Encode()
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", rec.Body.String())
	})

	t.Run("rejects a missing credential", func(t *testing.T) {
		rec := invoke(t, func(r *http.Request) {})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects an invalid credential", func(t *testing.T) {
		rec := invoke(t, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer not-a-token")
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("rejects a non-bearer scheme", func(t *testing.T) {
		rec := invoke(t, func(r *http.Request) {
			r.Header.Set("Authorization", "Basic "+token)
		})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
