package repository

import (
	"context"

	"docrepo/internal/model"
)

// UserRepository looks up accounts. Both finders return ErrNotFound for an unknown user.
type UserRepository interface {
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
}
