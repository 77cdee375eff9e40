package auth

import "github.com/gin-gonic/gin"

// ContextClaims is the gin context key holding *AccessClaims for an authenticated request.
const ContextClaims = "auth_claims"

// SetClaims stores verified claims on the request context.
func SetClaims(c *gin.Context, claims *AccessClaims) {
	c.Set(ContextClaims, claims)
}

// ClaimsFromContext returns the claims stored by SetClaims.
func ClaimsFromContext(c *gin.Context) (*AccessClaims, bool) {
	v, ok := c.Get(ContextClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*AccessClaims)
	return claims, ok && claims != nil
}
