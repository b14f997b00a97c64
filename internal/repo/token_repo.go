package repo

import (
	"context"
	"time"
)

// TokenRepo is the refresh-token revocation list, keyed by jti. Entries expire
// together with the token they shadow, so the list never grows unbounded.
type TokenRepo interface {
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error

	IsRevoked(ctx context.Context, jti string) (bool, error)
}
