package repository

import (
	"context"
	"database/sql"
	"errors"

	"trasepad/backend/internal/module/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a module repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByName returns the module entry for name, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*domain.Module, error) {
	var m domain.Module
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, title, required_flags FROM modules WHERE name = $1`,
		name).Scan(&m.ID, &m.Name, &m.Title, &m.RequiredFlags)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// ListForFlags returns modules accessible with the given permission flags, ordered by name.
func (r *PostgresRepository) ListForFlags(ctx context.Context, flags int64) ([]*domain.Module, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, title, required_flags FROM modules
		 WHERE required_flags = 0 OR (required_flags & $1) <> 0
		 ORDER BY name`, flags)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Module
	for rows.Next() {
		var m domain.Module
		if err := rows.Scan(&m.ID, &m.Name, &m.Title, &m.RequiredFlags); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// Create persists the module entry and fills in the assigned ID.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.Module) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO modules (name, title, required_flags) VALUES ($1, $2, $3) RETURNING id`,
		m.Name, m.Title, m.RequiredFlags).Scan(&m.ID)
}
