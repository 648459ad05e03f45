package middlewares

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/common/response"
)

// RequireRole menolak request jika role di token tidak termasuk roles.
// Harus dipasang setelah JWTMiddleware.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return response.JSON(c, http.StatusUnauthorized, "Missing or invalid JWT claims", nil)
			}
			if !allowed[claims.Role] {
				return response.JSON(c, http.StatusForbidden, "Access denied for role "+claims.Role, nil)
			}
			return next(c)
		}
	}
}
