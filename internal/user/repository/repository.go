package repository

import (
	"context"

	"trasepad/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// Create persists the user and fills in the assigned ID.
	Create(ctx context.Context, u *domain.User) error
}
