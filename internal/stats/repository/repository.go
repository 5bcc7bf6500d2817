package repository

import (
	"context"
	"time"

	"trasepad/backend/internal/stats/domain"
)

// Repository defines persistence for access statistics.
type Repository interface {
	Create(ctx context.Context, s *domain.AccessStat) error
	// CountSince returns the number of accesses to module recorded at or after since.
	CountSince(ctx context.Context, module string, since time.Time) (int64, error)
	// ListByModule returns the most recent accesses for module, newest first.
	ListByModule(ctx context.Context, module string, limit int32) ([]*domain.AccessStat, error)
}
