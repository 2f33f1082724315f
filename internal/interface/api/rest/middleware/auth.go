package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"file-upload-api/internal/infrastructure/jwt"
)

const CtxClaims = "claims"

// AuthMiddleware validates the bearer token. A nil service disables the check.
func AuthMiddleware(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtService == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "missing Authorization header"},
			)
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "invalid token format"},
			)
			return
		}

		claims, err := jwtService.ValidateToken(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(
				http.StatusUnauthorized,
				gin.H{"error": "invalid token"},
			)
			return
		}

		c.Set(CtxClaims, claims)

		c.Next()
	}
}

// AllowsAlias reports whether the request token grants alias. Requests that
// passed a disabled AuthMiddleware carry no claims and are allowed.
func AllowsAlias(c *gin.Context, alias string) bool {
	v, ok := c.Get(CtxClaims)
	if !ok {
		return true
	}
	claims, ok := v.(*jwt.Claims)
	return ok && claims.Allows(alias)
}
