package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/smartbee/auth-service/internal/auth/dto"
	authErrors "github.com/smartbee/auth-service/internal/auth/errors"
	"github.com/smartbee/auth-service/internal/auth/jwt"
	"github.com/smartbee/auth-service/internal/auth/model"
	"github.com/smartbee/auth-service/internal/config"
)

type userRepoStub struct{ users map[string]model.User }

func (u *userRepoStub) CreateUser(ctx context.Context, m model.User) (uuid.UUID, error) {
	for _, v := range u.users {
		if v.Email == m.Email {
			return uuid.Nil, authErrors.ErrAlreadyExists
		}
	}
	u.users[m.ID.String()] = m
	return m.ID, nil
}
func (u *userRepoStub) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	for _, v := range u.users {
		if v.Email == email {
			return v, nil
		}
	}
	return model.User{}, authErrors.ErrNotFound
}
func (u *userRepoStub) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	v, ok := u.users[id.String()]
	if !ok {
		return model.User{}, authErrors.ErrNotFound
	}
	return v, nil
}
func (u *userRepoStub) UpdateUser(ctx context.Context, m model.User) error {
	u.users[m.ID.String()] = m
	return nil
}
func (u *userRepoStub) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, ok := u.users[id.String()]; !ok {
		return authErrors.ErrNotFound
	}
	delete(u.users, id.String())
	return nil
}
func (u *userRepoStub) ListUsers(ctx context.Context) ([]model.User, error) {
	out := make([]model.User, 0, len(u.users))
	for _, v := range u.users {
		out = append(out, v)
	}
	return out, nil
}

type tokenRepoStub struct{ revoked map[string]bool }

func (t *tokenRepoStub) Revoke(ctx context.Context, jti string, exp time.Time) error {
	t.revoked[jti] = true
	return nil
}
func (t *tokenRepoStub) IsRevoked(ctx context.Context, jti string) (bool, error) {
	return t.revoked[jti], nil
}

func testCfg() *config.Config {
	return &config.Config{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		AccessTokenTTL:     time.Minute,
		RefreshTokenTTL:    time.Hour,
		Issuer:             "t",
		Audience:           "t",
		PasswordPepper:     "p",
	}
}

func newSvc(t *testing.T) (AuthService, *userRepoStub, *tokenRepoStub, *jwt.JwtUtilImpl) {
	ur := &userRepoStub{users: make(map[string]model.User)}
	tr := &tokenRepoStub{revoked: make(map[string]bool)}
	cfg := testCfg()
	util, err := jwt.NewJWTUtil(cfg)
	require.NoError(t, err)
	v := validator.New()
	require.NoError(t, v.RegisterValidation("strongpwd", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) >= 8
	}))
	return New(ur, tr, util, cfg, v), ur, tr, util
}

func TestAuthService_RegisterLogin(t *testing.T) {
	svc, _, _, _ := newSvc(t)
	ctx := context.Background()

	pair, err := svc.Register(ctx, dto.RegisterDTO{Email: "a@x.com", Password: "secret123", Name: "Ada"})
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)

	pair2, err := svc.Login(ctx, dto.LoginDTO{Email: "a@x.com", Password: "secret123"})
	require.NoError(t, err)
	require.NotEmpty(t, pair2.RefreshToken)
}

func TestAuthService_LoginRoleInToken(t *testing.T) {
	svc, _, _, util := newSvc(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, dto.RegisterDTO{Email: "tutor@x.com", Password: "secret123", Name: "Tia", Role: "tutor"})
	require.NoError(t, err)

	pair, err := svc.Login(ctx, dto.LoginDTO{Email: "tutor@x.com", Password: "secret123"})
	require.NoError(t, err)

	claims, err := util.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, model.RoleTutor, claims.Role)
}

func TestAuthService_LoginEmailCaseInsensitive(t *testing.T) {
	svc, _, _, _ := newSvc(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, dto.RegisterDTO{Email: "Mixed@Case.com", Password: "secret123", Name: "Mia"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, dto.LoginDTO{Email: "mixed@case.COM", Password: "secret123"})
	require.NoError(t, err)
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	svc, _, _, _ := newSvc(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, dto.RegisterDTO{Email: "dup@x.com", Password: "secret123", Name: "One"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, dto.RegisterDTO{Email: "dup@x.com", Password: "secret123", Name: "Two"})
	require.True(t, authErrors.IsAlreadyExists(err))
}

func TestAuthService_RegisterInvalid(t *testing.T) {
	svc, _, _, _ := newSvc(t)
	_, err := svc.Register(context.Background(), dto.RegisterDTO{})
	require.Error(t, err)
	require.True(t, authErrors.IsInvalidArgument(err))
}

func TestAuthService_LoginInvalidPassword(t *testing.T) {
	svc, _, _, _ := newSvc(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, dto.RegisterDTO{Email: "user@x.com", Password: "secret123", Name: "Uri"})
	require.NoError(t, err)
	_, err = svc.Login(ctx, dto.LoginDTO{Email: "user@x.com", Password: "wrong"})
	require.True(t, authErrors.IsInvalidCredentials(err))
}

func TestAuthService_LoginUnknownEmail(t *testing.T) {
	svc, _, _, _ := newSvc(t)
	_, err := svc.Login(context.Background(), dto.LoginDTO{Email: "ghost@x.com", Password: "whatever"})
	require.True(t, authErrors.IsInvalidCredentials(err))
}

func TestAuthService_ValidateAndRefresh(t *testing.T) {
	svc, _, tr, util := newSvc(t)
	ctx := context.Background()

	pair, err := svc.Register(ctx, dto.RegisterDTO{Email: "v@x.com", Password: "secret123", Name: "Val"})
	require.NoError(t, err)

	user, err := svc.Validate(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, pair.User.ID, user.ID)

	refreshed, err := svc.Refresh(ctx, dto.RefreshDTO{RefreshToken: pair.RefreshToken})
	require.NoError(t, err)

	// the exchanged refresh token must be revoked
	claims, err := util.ValidateRefreshToken(pair.RefreshToken)
	require.NoError(t, err)
	revoked, err := tr.IsRevoked(ctx, claims.ID)
	require.NoError(t, err)
	require.True(t, revoked)

	// and its replay rejected
	_, err = svc.Refresh(ctx, dto.RefreshDTO{RefreshToken: pair.RefreshToken})
	require.True(t, authErrors.IsInvalidToken(err))

	require.NoError(t, svc.Logout(ctx, dto.LogoutDTO{RefreshToken: refreshed.RefreshToken}))
	_, _, err = svc.RefreshAccess(ctx, refreshed.RefreshToken)
	require.True(t, authErrors.IsInvalidToken(err))
}

func TestAuthService_RefreshAccessNoRotation(t *testing.T) {
	svc, _, tr, util := newSvc(t)
	ctx := context.Background()

	pair, err := svc.Register(ctx, dto.RegisterDTO{Email: "silent@x.com", Password: "secret123", Name: "Sil"})
	require.NoError(t, err)

	access, user, err := svc.RefreshAccess(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, pair.User.ID, user.ID)

	claims, err := util.ValidateAccessToken(access)
	require.NoError(t, err)
	require.Equal(t, pair.User.ID.String(), claims.Subject)

	// silent refresh must not consume the refresh token
	revoked, err := tr.IsRevoked(ctx, pair.RefreshTokenJTI)
	require.NoError(t, err)
	require.False(t, revoked)

	_, _, err = svc.RefreshAccess(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestAuthService_ValidateExpired(t *testing.T) {
	_, ur, tr, _ := newSvc(t)
	cfg := testCfg()
	cfg.AccessTokenTTL = -time.Minute
	util, err := jwt.NewJWTUtil(cfg)
	require.NoError(t, err)
	v := validator.New()
	require.NoError(t, v.RegisterValidation("strongpwd", func(fl validator.FieldLevel) bool { return true }))
	svc := New(ur, tr, util, cfg, v)

	pair, err := svc.Register(context.Background(), dto.RegisterDTO{Email: "exp@x.com", Password: "secret123", Name: "Exp"})
	require.NoError(t, err)

	_, err = svc.Validate(context.Background(), pair.AccessToken)
	require.True(t, authErrors.IsExpiredToken(err))
}

func TestAuthService_InactiveAccount(t *testing.T) {
	svc, ur, _, _ := newSvc(t)
	ctx := context.Background()

	pair, err := svc.Register(ctx, dto.RegisterDTO{Email: "off@x.com", Password: "secret123", Name: "Off"})
	require.NoError(t, err)

	u := ur.users[pair.User.ID.String()]
	u.Status = model.StatusInactive
	ur.users[pair.User.ID.String()] = u

	_, err = svc.Validate(ctx, pair.AccessToken)
	require.True(t, authErrors.IsInactiveAccount(err))

	_, err = svc.Login(ctx, dto.LoginDTO{Email: "off@x.com", Password: "secret123"})
	require.True(t, authErrors.IsInactiveAccount(err))
}

// outageUserRepo simulates a credential store that is down: lookups fail with
// an internal error rather than not-found.
type outageUserRepo struct{ *userRepoStub }

func (o *outageUserRepo) GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	return model.User{}, authErrors.WrapInternal(errors.New("connection refused"), "GetUserByID")
}

func TestAuthService_StoreOutageIsInternal(t *testing.T) {
	ur := &userRepoStub{users: make(map[string]model.User)}
	tr := &tokenRepoStub{revoked: make(map[string]bool)}
	cfg := testCfg()
	util, err := jwt.NewJWTUtil(cfg)
	require.NoError(t, err)
	v := validator.New()
	require.NoError(t, v.RegisterValidation("strongpwd", func(fl validator.FieldLevel) bool { return true }))
	svc := New(&outageUserRepo{ur}, tr, util, cfg, v)

	pair, err := svc.Register(context.Background(), dto.RegisterDTO{Email: "out@x.com", Password: "secret123", Name: "Out"})
	require.NoError(t, err)

	// a store outage on a valid token must surface as internal, never as an
	// invalid token that tells the client to drop its session
	_, err = svc.Validate(context.Background(), pair.AccessToken)
	require.True(t, authErrors.IsInternal(err))
	require.False(t, authErrors.IsInvalidToken(err))

	_, _, err = svc.RefreshAccess(context.Background(), pair.RefreshToken)
	require.True(t, authErrors.IsInternal(err))
}

func TestAuthService_ValidateDeletedUser(t *testing.T) {
	svc, ur, _, _ := newSvc(t)
	ctx := context.Background()

	pair, err := svc.Register(ctx, dto.RegisterDTO{Email: "gone@x.com", Password: "secret123", Name: "Gone"})
	require.NoError(t, err)
	require.NoError(t, ur.DeleteUser(ctx, pair.User.ID))

	_, err = svc.Validate(ctx, pair.AccessToken)
	require.True(t, authErrors.IsInvalidToken(err))
}
