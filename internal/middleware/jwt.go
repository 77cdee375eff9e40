package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/orgtasks/backend/internal/auth"
	"github.com/orgtasks/backend/pkg/response"
)

// Authenticate returns a middleware that verifies the bearer access token
// and stores its claims in the gin context.
func Authenticate(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.ExtractBearer(c.GetHeader("Authorization"))
		if !ok {
			response.Unauthorized(c, "access token required")
			c.Abort()
			return
		}
		claims, err := tokens.VerifyAccessToken(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		auth.SetClaims(c, claims)
		c.Next()
	}
}
