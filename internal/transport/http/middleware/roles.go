package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smartbee/auth-service/internal/auth/model"
)

// RequireRoles restricts a route to the given roles. An empty set means any
// authenticated identity passes. Must run after Authenticate.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	allowed := make(map[model.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		identity, ok := IdentityFromContext(c)
		if !ok {
			abortUnauthenticated(c, "authentication required")
			return
		}

		if len(allowed) == 0 {
			c.Next()
			return
		}

		if _, ok := allowed[identity.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "access denied"})
			return
		}

		c.Next()
	}
}
