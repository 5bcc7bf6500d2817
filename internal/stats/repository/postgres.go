package repository

import (
	"context"
	"database/sql"
	"time"

	"trasepad/backend/internal/stats/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an access-stats repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the access stat. The stat must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.AccessStat) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_stats (id, token, module, created_at) VALUES ($1, $2, $3, $4)`,
		s.ID, s.Token, s.Module, s.CreatedAt)
	return err
}

// CountSince returns the number of accesses to module recorded at or after since.
func (r *PostgresRepository) CountSince(ctx context.Context, module string, since time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM access_stats WHERE module = $1 AND created_at >= $2`,
		module, since).Scan(&n)
	return n, err
}

// ListByModule returns the most recent accesses for module, newest first.
func (r *PostgresRepository) ListByModule(ctx context.Context, module string, limit int32) ([]*domain.AccessStat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, token, module, created_at FROM access_stats
		 WHERE module = $1 ORDER BY created_at DESC LIMIT $2`, module, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.AccessStat
	for rows.Next() {
		var s domain.AccessStat
		if err := rows.Scan(&s.ID, &s.Token, &s.Module, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}
