package repository

import (
	"context"
	"database/sql"

	"trasepad/backend/internal/company/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a company repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const defaultSearchLimit = 100

// Search returns companies whose name contains substr, case-insensitively.
// The substring is passed as a bind parameter, never interpolated.
func (r *PostgresRepository) Search(ctx context.Context, substr string, limit int) ([]*domain.Company, error) {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, year FROM companies
		 WHERE name ILIKE '%' || $1 || '%'
		 ORDER BY name, year
		 LIMIT $2`, substr, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCompanies(rows)
}

// ListNames returns every stored company name, ordered by id.
func (r *PostgresRepository) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM companies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// List returns every stored company, ordered by id.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Company, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, year FROM companies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCompanies(rows)
}

// Create inserts the company and fills in the sequence-assigned ID.
func (r *PostgresRepository) Create(ctx context.Context, c *domain.Company) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO companies (name, year) VALUES ($1, $2) RETURNING id`,
		c.Name, c.Year,
	).Scan(&c.ID)
}

func scanCompanies(rows *sql.Rows) ([]*domain.Company, error) {
	var out []*domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Year); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
