package middlewares

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/c14220110/telekonsul-backend/internal/common/response"
	"github.com/c14220110/telekonsul-backend/pkg/utils"
)

// ContextKeyClaims adalah key echo.Context tempat klaim JWT disimpan.
const ContextKeyClaims = "claims"

// JWTMiddleware memvalidasi header Authorization: Bearer <token>.
func JWTMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return response.JSON(c, http.StatusUnauthorized, "Authorization header missing", nil)
			}
			tokenStr, ok := BearerToken(authHeader)
			if !ok {
				return response.JSON(c, http.StatusUnauthorized, "Invalid authorization header", nil)
			}
			claims, err := utils.ValidateJWTToken(tokenStr)
			if err != nil {
				return response.JSON(c, http.StatusUnauthorized, "Invalid token: "+err.Error(), nil)
			}
			c.Set(ContextKeyClaims, claims)
			return next(c)
		}
	}
}

// BearerToken mengambil token dari nilai header "Bearer <token>".
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// ClaimsFrom mengambil klaim yang diset JWTMiddleware. Nil jika tidak ada.
func ClaimsFrom(c echo.Context) *utils.Claims {
	claims, _ := c.Get(ContextKeyClaims).(*utils.Claims)
	return claims
}
