package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shopease-api/internal/model"
)

// RequireRole returns a middleware function that enforces that the
// authenticated principal has one of the specified roles. The roles
// accepted should correspond to the values stored in the token's "role"
// claim. It assumes JWTAuth has already run.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	msg := "Access denied"
	if len(roles) == 1 && roles[0] == model.RoleAdmin {
		msg = "Admin access required"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[Role(c)] {
				return c.JSON(http.StatusForbidden, echo.Map{"message": msg})
			}
			return next(c)
		}
	}
}
