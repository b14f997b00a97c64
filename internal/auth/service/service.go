package service

import (
	"context"

	"github.com/smartbee/auth-service/internal/auth/dto"
	"github.com/smartbee/auth-service/internal/auth/model"
)

type AuthService interface {
	Register(ctx context.Context, d dto.RegisterDTO) (model.TokenPair, error)

	Login(ctx context.Context, d dto.LoginDTO) (model.TokenPair, error)

	// Validate verifies an access token and resolves the active account behind
	// it. Expired tokens surface as ErrExpiredToken so the caller can try the
	// refresh path.
	Validate(ctx context.Context, accessToken string) (model.User, error)

	// RefreshAccess mints a new access token from a still-valid refresh token
	// without rotating it. This backs the guard's silent-refresh path.
	RefreshAccess(ctx context.Context, refreshToken string) (string, model.User, error)

	// Refresh rotates the pair: the presented refresh token is revoked and a
	// brand new pair is issued.
	Refresh(ctx context.Context, d dto.RefreshDTO) (model.TokenPair, error)

	Logout(ctx context.Context, d dto.LogoutDTO) error
}
