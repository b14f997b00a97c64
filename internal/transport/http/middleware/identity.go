package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/smartbee/auth-service/internal/auth/model"
)

const identityKey = "auth.identity"

func setIdentity(c *gin.Context, user model.User) {
	c.Set(identityKey, model.Identity{
		ID:    user.ID,
		Email: user.Email,
		Role:  user.Role,
	})
}

// IdentityFromContext returns the identity the guard attached to the request.
func IdentityFromContext(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return model.Identity{}, false
	}
	id, ok := v.(model.Identity)
	return id, ok
}
