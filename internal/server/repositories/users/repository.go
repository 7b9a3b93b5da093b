// Package users declares and implements the account repository.
package users

import (
	"context"

	"github.com/dmitrijs2005/boilerbudget/internal/server/models"
)

type Repository interface {
	// Create inserts user. A taken email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetAvatarKey(ctx context.Context, id string, key string) error
}
