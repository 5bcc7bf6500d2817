// Package repository provides data access for company records.
package repository

import (
	"context"

	"trasepad/backend/internal/company/domain"
)

// CompanyRepository defines data access methods for companies.
type CompanyRepository interface {
	// Search returns companies whose name contains substr, case-insensitively,
	// up to limit rows. Returns an empty slice when nothing matches.
	Search(ctx context.Context, substr string, limit int) ([]*domain.Company, error)
	// ListNames returns every stored company name, ordered by id.
	ListNames(ctx context.Context) ([]string, error)
	// List returns every stored company, ordered by id.
	List(ctx context.Context) ([]*domain.Company, error)
	// Create inserts a company and fills in the generated ID.
	Create(ctx context.Context, c *domain.Company) error
}
