package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	customErrors "github.com/smartbee/auth-service/internal/auth/errors"
	"github.com/smartbee/auth-service/internal/auth/service"
)

// Header carrying the refresh token on the silent-refresh path, and the one
// returning the replacement access token.
const (
	RefreshTokenHeader = "Refresh-Token"
	NewTokenHeader     = "New-Token"
)

// Authenticate gates every protected route. A request passes only with a
// verified, non-expired identity whose account is active; an expired access
// token is exchanged on the fly when a valid Refresh-Token header rides along,
// and the replacement surfaces in the New-Token response header.
func Authenticate(svc service.AuthService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthenticated(c, "authentication required")
			return
		}

		user, err := svc.Validate(c.Request.Context(), token)
		switch {
		case err == nil:
			setIdentity(c, user)
			c.Next()

		case customErrors.IsExpiredToken(err):
			refreshToken := c.GetHeader(RefreshTokenHeader)
			if refreshToken == "" {
				abortUnauthenticated(c, "token expired, please log in again")
				return
			}

			access, user, err := svc.RefreshAccess(c.Request.Context(), refreshToken)
			if err != nil {
				if customErrors.IsInternal(err) {
					log.Error("silent refresh failed", zap.Error(err))
					abortServerError(c)
					return
				}
				abortUnauthenticated(c, "invalid refresh token")
				return
			}

			c.Header(NewTokenHeader, access)
			setIdentity(c, user)
			c.Next()

		case customErrors.IsInternal(err):
			log.Error("token validation failed", zap.Error(err))
			abortServerError(c)

		default:
			abortUnauthenticated(c, "invalid token")
		}
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func abortUnauthenticated(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msg})
}

func abortServerError(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
}
