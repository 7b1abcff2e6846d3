package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pageturn/chat/internal/directory"
)

// IdentityContextKey is where the authenticated identity lives on the echo
// context for downstream handlers.
const IdentityContextKey = "identity"

// Auth creates a middleware that protects routes requiring authentication.
// The credential comes from the Authorization header (Bearer scheme) or,
// for websocket upgrades where browsers cannot set headers, from a `token`
// query parameter.
func Auth(users directory.UserDirectory) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			credential := bearerToken(c.Request())
			if credential == "" {
				credential = c.QueryParam("token")
			}
			if credential == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing credential"})
			}

			identity, err := users.Authenticate(c.Request().Context(), credential)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credential"})
			}

			c.Set(IdentityContextKey, identity)
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
