package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/smartbee/auth-service/internal/auth/model"
)

type AccessClaims struct {
	jwt.RegisteredClaims
	Role model.Role `json:"role"`
}

type RefreshClaims struct {
	jwt.RegisteredClaims
}

// JWTUtil mints and verifies the two token kinds. Access and refresh tokens
// are signed with distinct secrets, so one can never pass for the other.
type JWTUtil interface {
	GenerateAccessToken(userID uuid.UUID, role model.Role) (token string, exp time.Time, jti string, err error)
	GenerateRefreshToken(userID uuid.UUID) (token string, exp time.Time, jti string, err error)
	ValidateAccessToken(token string) (claims AccessClaims, err error)
	ValidateRefreshToken(token string) (claims RefreshClaims, err error)
}
