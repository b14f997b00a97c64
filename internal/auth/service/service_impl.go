package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/smartbee/auth-service/internal/auth/dto"
	customErrors "github.com/smartbee/auth-service/internal/auth/errors"
	"github.com/smartbee/auth-service/internal/auth/jwt"
	"github.com/smartbee/auth-service/internal/auth/model"
	"github.com/smartbee/auth-service/internal/config"
	"github.com/smartbee/auth-service/internal/repo"
)

var argonParams = &argon2id.Params{
	Memory:      64 * 1024, // 64 MiB
	Iterations:  2,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   32,
}

type authService struct {
	userRepo  repo.UserRepo
	tokenRepo repo.TokenRepo
	jwtUtil   jwt.JWTUtil
	cfg       *config.Config
	v         *validator.Validate
}

func New(
	ur repo.UserRepo,
	tr repo.TokenRepo,
	jm jwt.JWTUtil,
	cfg *config.Config,
	v *validator.Validate,
) AuthService {
	return &authService{
		userRepo: ur, tokenRepo: tr, jwtUtil: jm, cfg: cfg, v: v,
	}
}

func (a *authService) Register(ctx context.Context, d dto.RegisterDTO) (model.TokenPair, error) {
	if err := a.v.Struct(d); err != nil {
		return model.TokenPair{}, customErrors.NewInvalidArgument(err.Error())
	}

	passwordHash, err := argon2id.CreateHash(d.Password+a.cfg.PasswordPepper, argonParams)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "Register")
	}

	role := model.Role(d.Role)
	if role == "" {
		role = model.RoleStudent
	}

	user := model.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(d.Email),
		PasswordHash: passwordHash,
		Name:         d.Name,
		Role:         role,
		Status:       model.StatusActive,
	}
	if _, err = a.userRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, customErrors.ErrAlreadyExists) {
			return model.TokenPair{}, customErrors.ErrAlreadyExists
		}
		return model.TokenPair{}, customErrors.WrapInternal(err, "Register")
	}

	return a.issuePair(user)
}

func (a *authService) Login(ctx context.Context, d dto.LoginDTO) (model.TokenPair, error) {
	if err := a.v.Struct(d); err != nil {
		return model.TokenPair{}, customErrors.NewInvalidArgument(err.Error())
	}

	user, err := a.userRepo.GetUserByEmail(ctx, strings.ToLower(d.Email))
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		// unknown email and wrong password are indistinguishable to the caller
		return model.TokenPair{}, customErrors.ErrInvalidCredentials
	case err != nil:
		return model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	}

	ok, err := argon2id.ComparePasswordAndHash(d.Password+a.cfg.PasswordPepper, user.PasswordHash)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "Login")
	}
	if !ok {
		return model.TokenPair{}, customErrors.ErrInvalidCredentials
	}

	if user.Status != model.StatusActive {
		return model.TokenPair{}, customErrors.ErrInactiveAccount
	}

	return a.issuePair(user)
}

func (a *authService) Validate(ctx context.Context, accessToken string) (model.User, error) {
	claims, err := a.jwtUtil.ValidateAccessToken(accessToken)
	if err != nil {
		if customErrors.IsExpiredToken(err) {
			return model.User{}, customErrors.ErrExpiredToken
		}
		return model.User{}, customErrors.ErrInvalidToken
	}

	user, err := a.resolveSubject(ctx, claims.Subject)
	if err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (a *authService) RefreshAccess(ctx context.Context, refreshToken string) (string, model.User, error) {
	claims, err := a.jwtUtil.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", model.User{}, customErrors.ErrInvalidToken
	}

	revoked, err := a.tokenRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", model.User{}, customErrors.WrapInternal(err, "RefreshAccess")
	}
	if revoked {
		return "", model.User{}, customErrors.ErrInvalidToken
	}

	user, err := a.resolveSubject(ctx, claims.Subject)
	if err != nil {
		return "", model.User{}, err
	}

	access, _, _, err := a.jwtUtil.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return "", model.User{}, customErrors.WrapInternal(err, "RefreshAccess")
	}
	return access, user, nil
}

func (a *authService) Refresh(ctx context.Context, d dto.RefreshDTO) (model.TokenPair, error) {
	if err := a.v.Struct(d); err != nil {
		return model.TokenPair{}, customErrors.NewInvalidArgument(err.Error())
	}

	claims, err := a.jwtUtil.ValidateRefreshToken(d.RefreshToken)
	if err != nil {
		return model.TokenPair{}, customErrors.ErrInvalidToken
	}

	revoked, err := a.tokenRepo.IsRevoked(ctx, claims.ID)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "Refresh")
	}
	if revoked {
		return model.TokenPair{}, customErrors.ErrInvalidToken
	}

	user, err := a.resolveSubject(ctx, claims.Subject)
	if err != nil {
		return model.TokenPair{}, err
	}

	// rotate: the old refresh token dies with this exchange
	if err = a.tokenRepo.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "Refresh")
	}

	return a.issuePair(user)
}

func (a *authService) Logout(ctx context.Context, d dto.LogoutDTO) error {
	if err := a.v.Struct(d); err != nil {
		return customErrors.NewInvalidArgument(err.Error())
	}

	claims, err := a.jwtUtil.ValidateRefreshToken(d.RefreshToken)
	if err != nil {
		return customErrors.ErrInvalidToken
	}

	if err = a.tokenRepo.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return customErrors.WrapInternal(err, "Logout")
	}

	return nil
}

func (a *authService) resolveSubject(ctx context.Context, subject string) (model.User, error) {
	uid, err := uuid.Parse(subject)
	if err != nil {
		return model.User{}, customErrors.ErrInvalidToken
	}

	user, err := a.userRepo.GetUserByID(ctx, uid)
	switch {
	case errors.Is(err, customErrors.ErrNotFound):
		// a deleted account is indistinguishable from a bad token
		return model.User{}, customErrors.ErrInvalidToken
	case err != nil:
		// a store outage is not a token problem
		return model.User{}, customErrors.WrapInternal(err, "resolveSubject")
	}

	if user.Status != model.StatusActive {
		return model.User{}, customErrors.ErrInactiveAccount
	}

	return user, nil
}

func (a *authService) issuePair(user model.User) (model.TokenPair, error) {
	at, atExp, _, err := a.jwtUtil.GenerateAccessToken(user.ID, user.Role)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateAccessToken")
	}
	rt, rtExp, jti, err := a.jwtUtil.GenerateRefreshToken(user.ID)
	if err != nil {
		return model.TokenPair{}, customErrors.WrapInternal(err, "GenerateRefreshToken")
	}

	now := time.Now()

	return model.TokenPair{
		AccessToken:     at,
		RefreshToken:    rt,
		AccessTTL:       atExp.Sub(now),
		RefreshTTL:      rtExp.Sub(now),
		User:            user,
		RefreshTokenJTI: jti,
	}, nil
}
