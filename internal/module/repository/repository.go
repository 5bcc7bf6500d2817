package repository

import (
	"context"

	"trasepad/backend/internal/module/domain"
)

// Repository defines persistence for module permission entries.
type Repository interface {
	GetByName(ctx context.Context, name string) (*domain.Module, error)
	// ListForFlags returns the modules a session with the given permission
	// flags may open, ordered by name. Used to build the main menu.
	ListForFlags(ctx context.Context, flags int64) ([]*domain.Module, error)
	Create(ctx context.Context, m *domain.Module) error
}
