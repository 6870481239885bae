package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/school-records/records-api/internal/core/domain"
)

// RBAC lets through callers whose role is one of allowedRoles. It must run
// after Auth.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return fmt.Errorf("%w: no identity on request", domain.ErrUnauthenticated)
			}
			if _, ok := allowed[id.Principal.Role()]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
