// Package service implements the company name-check tools: substring search,
// fuzzy matching of a probe name against stored companies, and deduplication
// of submitted name lists.
package service

import (
	"context"
	"errors"

	"trasepad/backend/internal/company/domain"
	"trasepad/backend/internal/namematch"
)

// ErrEmptyName is returned when a probe name normalizes to nothing
// (empty input or stopwords only).
var ErrEmptyName = errors.New("name has no matchable content")

// CompanyRepo defines the persistence methods the service needs.
type CompanyRepo interface {
	Search(ctx context.Context, substr string, limit int) ([]*domain.Company, error)
	List(ctx context.Context) ([]*domain.Company, error)
	Create(ctx context.Context, c *domain.Company) error
}

// Group is one equivalence class from DedupeNames. Representative is the
// first name seen for the class; Names holds every input name in it,
// Representative included, in input order.
type Group struct {
	Representative string
	Names          []string
}

// Service provides company search and name-matching operations.
type Service struct {
	companies CompanyRepo
}

// New creates a company service backed by the given repository.
func New(companies CompanyRepo) *Service {
	return &Service{companies: companies}
}

// Search returns stored companies whose name contains substr, case-insensitively.
func (s *Service) Search(ctx context.Context, substr string, limit int) ([]*domain.Company, error) {
	return s.companies.Search(ctx, substr, limit)
}

// Add validates and stores a new company record.
func (s *Service) Add(ctx context.Context, c *domain.Company) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.companies.Create(ctx, c)
}

// FindMatches returns every stored company whose name is equivalent to
// rawName under fragment matching. A probe that normalizes to nothing
// matches no company and returns ErrEmptyName.
func (s *Service) FindMatches(ctx context.Context, rawName string) ([]*domain.Company, error) {
	probe := namematch.Normalize(rawName)
	if len(probe) == 0 {
		return nil, ErrEmptyName
	}
	all, err := s.companies.List(ctx)
	if err != nil {
		return nil, err
	}
	var matches []*domain.Company
	for _, c := range all {
		if namematch.Equivalent(probe, namematch.Normalize(c.Name)) {
			matches = append(matches, c)
		}
	}
	return matches, nil
}

// DedupeNames groups the submitted names into equivalence classes. Each name
// joins the first earlier class whose representative it is equivalent to, or
// starts a new class. Class order follows first appearance in the input.
// Names that normalize to nothing each form their own singleton class.
func (s *Service) DedupeNames(names []string) []Group {
	var groups []Group
	var reps [][]string
	for _, name := range names {
		frags := namematch.Normalize(name)
		placed := false
		if len(frags) > 0 {
			for i, rep := range reps {
				if namematch.Equivalent(frags, rep) {
					groups[i].Names = append(groups[i].Names, name)
					placed = true
					break
				}
			}
		}
		if !placed {
			groups = append(groups, Group{Representative: name, Names: []string{name}})
			reps = append(reps, frags)
		}
	}
	return groups
}
