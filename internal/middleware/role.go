package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/hamikdash/storefront/internal/auth"
	"github.com/hamikdash/storefront/pkg/response"
)

// RequireRole lets through only requests whose token carries one of roles. It must run after JWT.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		if role == "" {
			response.Unauthorized(c, "admin login required")
			c.Abort()
			return
		}
		if _, ok := allowed[role]; !ok {
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AdminOnly wraps h with the token check and the admin role check.
func AdminOnly(jwtService *auth.JWTService, h gin.HandlerFunc) []gin.HandlerFunc {
	return []gin.HandlerFunc{JWT(jwtService), RequireRole(auth.RoleAdmin), h}
}
