package middlewares

import (
	"net/http"
	"strings"

	"github.com/akarpov/examtrainer/internal/eterror"
	"github.com/akarpov/examtrainer/internal/session"
	"github.com/labstack/echo/v4"
)

const (
	// CurrentUserContextKey is the key to retrieve the current user id from echo.Context.
	CurrentUserContextKey = "current_user"
	// CurrentSessionContextKey is the key to retrieve the current_session from echo.Context.
	CurrentSessionContextKey = "current_session"
)

// Session returns the access-guard middleware. Every protected route goes
// through it; whatever the failure cause (missing, unknown, expired,
// revoked upstream) the response is the same 401 payload.
// It stores the current session and user id into echo.Context.
func Session(m session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := token(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return c.JSON(http.StatusUnauthorized, eterror.Unauthorized())
			}

			sess, err := m.Validate(token)
			if err != nil {
				if eterror.IsUnauthorized(err) {
					return c.JSON(http.StatusUnauthorized, eterror.Unauthorized())
				}
				return err
			}

			c.Set(CurrentSessionContextKey, sess)
			c.Set(CurrentUserContextKey, sess.UserID)

			return next(c)
		}
	}
}

// token extracts the bearer token from the Authorization header.
func token(authorization string) string {
	if !strings.HasPrefix(authorization, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
}
