// Package middleware holds the echo middleware shared by all route groups.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/portrait-booth/internal/model"
	"github.com/iliyamo/portrait-booth/internal/repository"
	"github.com/iliyamo/portrait-booth/internal/utils"
)

// Context keys set by the middleware in this file.
const (
	KeyUserID = "user_id"
	KeyRole   = "role"
	KeyUser   = "user"
)

// JWTAuth validates the Bearer access token and stores its subject and role
// under KeyUserID (uint64) and KeyRole (model.Role).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(KeyUserID, claims.UserID)
			c.Set(KeyRole, claims.Role)
			return next(c)
		}
	}
}

// UserLoader is the slice of the user repository CurrentUser needs.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// CurrentUser loads the authenticated user's row on every request, so a
// role change or a disabled account takes effect before the token expires.
// It must run after JWTAuth.
func CurrentUser(users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := c.Get(KeyUserID).(uint64)
			if !ok || id == 0 {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			u, err := users.GetByID(ctx, id)
			if errors.Is(err, repository.ErrUserNotFound) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown user"})
			}
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
			}
			if u.Status == model.UserDisabled {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "account disabled"})
			}
			c.Set(KeyUser, u)
			c.Set(KeyRole, u.Role)
			return next(c)
		}
	}
}

// UserFrom returns the user CurrentUser stored, or the anonymous user.
func UserFrom(c echo.Context) model.User {
	if u, ok := c.Get(KeyUser).(model.User); ok {
		return u
	}
	return model.Anonymous()
}

// Require rejects the request with 403 unless the current user's role
// allows action.
func Require(action model.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !model.Allowed(UserFrom(c).Role, action) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
