package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/orgtasks/backend/internal/access"
	"github.com/orgtasks/backend/internal/auth"
	"github.com/orgtasks/backend/pkg/response"
)

// RequirePermission returns a middleware that allows only callers whose role holds perm.
// It must run after Authenticate.
func RequirePermission(engine *access.Engine, perm access.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.ClaimsFromContext(c)
		if !ok {
			response.Unauthorized(c, "not authenticated")
			c.Abort()
			return
		}
		if !engine.HasPermission(claims.Role, perm) {
			response.Forbidden(c, "insufficient permission")
			c.Abort()
			return
		}
		c.Next()
	}
}
