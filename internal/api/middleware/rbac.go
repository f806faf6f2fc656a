package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// CtxRole is set by RBAC once the caller's role is known.
const CtxRole = "role"

// RoleResolver looks up the role stored for a subject. An empty role means
// the subject has no profile yet.
type RoleResolver interface {
	RoleOf(ctx context.Context, subject string) (string, error)
}

// RBAC enforces role-based access control. It must run after Auth.
func RBAC(roles RoleResolver, allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			subject, _ := c.Get(CtxSubject).(string)
			if subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
			}

			role, err := roles.RoleOf(c.Request().Context(), subject)
			if err != nil {
				return err
			}
			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}

			c.Set(CtxRole, role)
			return next(c)
		}
	}
}
