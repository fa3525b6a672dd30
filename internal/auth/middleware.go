package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// userContextKey is the echo context key the middleware stores the resolved
// user under.
const userContextKey = "auth.user"

// Middleware returns an echo middleware that requires a valid bearer token
// and stores the resolved user on the request context.
func Middleware(provider Provider) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c.Request().Header.Get("Authorization"))
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			user, err := provider.UserFromToken(c.Request().Context(), token)
			if err != nil {
				logger.Warn("token resolution failed",
					"path", c.Request().URL.Path,
					"error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user the middleware attached to the context, or nil
// when the route is unauthenticated.
func CurrentUser(c echo.Context) *User {
	user, _ := c.Get(userContextKey).(*User)
	return user
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
