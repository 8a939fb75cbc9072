package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	jwtpkg "supermercado/ordercore/pkg/jwt"
	"supermercado/ordercore/pkg/response"
)

const ContextKeyCaller = "caller_subject"

// JWTAuth guards the agent-facing surface with HS256 service tokens.
func JWTAuth(jwtManager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		claims, err := jwtManager.Validate(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextKeyCaller, claims.Subject)
		c.Next()
	}
}
