package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/hamikdash/storefront/internal/auth"
	"github.com/hamikdash/storefront/pkg/response"
)

const (
	// ContextSubject is the key for the token subject (admin username) in gin context.
	ContextSubject = "subject"
	// ContextUserRole is the key for user role in gin context.
	ContextUserRole = "user_role"
)

// JWT admits requests carrying a token issued by POST /api/admin/login and puts its
// subject and role in the gin context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthorized(c, "admin login required")
			c.Abort()
			return
		}
		claims, err := jwtService.Validate(raw)
		if err != nil {
			response.Unauthorized(c, "admin session expired or invalid, log in again")
			c.Abort()
			return
		}
		c.Set(ContextSubject, claims.Subject)
		c.Set(ContextUserRole, claims.Role)
		c.Next()
	}
}
