package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"formscan/internal/service"
)

const (
	ContextKeyOperator = "operator"
	ContextKeyClaims   = "claims"
)

// AuthMiddleware returns Gin middleware that validates operator bearer tokens.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "missing or invalid authorization header"},
			})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := authService.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   gin.H{"code": "UNAUTHORIZED", "message": "invalid or expired token"},
			})
			return
		}

		c.Set(ContextKeyOperator, claims.Operator())
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// GetOperator returns the authenticated operator, or "" when auth is disabled.
func GetOperator(c *gin.Context) string {
	val, exists := c.Get(ContextKeyOperator)
	if !exists {
		return ""
	}
	return val.(string)
}
