// Package domain defines the company entity used by the name-matching tools.
package domain

import "errors"

// ErrInvalidCompany is returned when a company record fails validation.
var ErrInvalidCompany = errors.New("invalid company")

// Company is a tracked company record. Year is the assessment year the record
// belongs to; the same company may appear once per year.
type Company struct {
	ID   int64
	Name string
	Year int
}

// Validate checks the fields required to store a company.
func (c *Company) Validate() error {
	if c.Name == "" {
		return ErrInvalidCompany
	}
	if c.Year < 0 {
		return ErrInvalidCompany
	}
	return nil
}
