package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Role names as stored in the users table and in the JWT "role" claim.
// ADMIN passes every role check, mirroring how the event staff actually
// works: the administrator can stand in for any desk.
const (
	RoleAdmin        = "ADMIN"
	RoleSecretaria   = "SECRETARIA"   // registration desk: riders, categories, events, races
	RoleCronometraje = "CRONOMETRAJE" // timing desk: records results
	RoleJuez         = "JUEZ"         // judge: read access to everything
	RolePublico      = "PUBLICO"      // spectators: read-only views
)

// RequireRole returns a middleware that enforces that the authenticated user
// has one of the specified roles (ADMIN is always accepted).  It assumes
// JWTAuth has already stored the role claim in the context.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles)+1)
	allowed[RoleAdmin] = true
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get("role").(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireAnyRole only demands that a known role is present, letting every
// authenticated staff member or spectator through.
func RequireAnyRole() echo.MiddlewareFunc {
	return RequireRole(RoleSecretaria, RoleCronometraje, RoleJuez, RolePublico)
}
