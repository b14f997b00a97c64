package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/smartbee/auth-service/internal/auth/model"
)

// UserRepo is the credential store. Emails are stored lowercased; lookup is
// therefore case-insensitive as long as callers normalize first.
type UserRepo interface {
	CreateUser(ctx context.Context, u model.User) (uuid.UUID, error)

	GetUserByEmail(ctx context.Context, email string) (model.User, error)

	GetUserByID(ctx context.Context, id uuid.UUID) (model.User, error)

	UpdateUser(ctx context.Context, u model.User) error

	DeleteUser(ctx context.Context, id uuid.UUID) error

	ListUsers(ctx context.Context) ([]model.User, error)
}
