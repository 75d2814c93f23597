package domain

import "time"

// TechCategory classifies a detected technology.
type TechCategory string

const (
	CategoryServer    TechCategory = "server"
	CategoryFramework TechCategory = "framework"
	CategoryCMS       TechCategory = "cms"
	CategoryLibrary   TechCategory = "library"
	CategoryDatabase  TechCategory = "database"
	CategoryLanguage  TechCategory = "language"
	CategoryCDN       TechCategory = "cdn"
	CategoryAnalytics TechCategory = "analytics"
	CategoryOther     TechCategory = "other"
)

// IsValid returns true if the category is known.
func (c TechCategory) IsValid() bool {
	switch c {
	case CategoryServer, CategoryFramework, CategoryCMS, CategoryLibrary, CategoryDatabase,
		CategoryLanguage, CategoryCDN, CategoryAnalytics, CategoryOther:
		return true
	default:
		return false
	}
}

// Technology is a piece of software detected on a subdomain.
// Duplicates under the same subdomain are allowed.
type Technology struct {
	ID          string       `json:"id" db:"id"`
	SubdomainID string       `json:"subdomainId" db:"subdomain_id"`
	Technology  string       `json:"technology" db:"technology"`
	Version     string       `json:"version" db:"version"`
	Category    TechCategory `json:"category" db:"category"`
	Notes       string       `json:"notes" db:"notes"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" db:"updated_at"`
}

// CreateTechnologyRequest is the request body for creating a technology.
type CreateTechnologyRequest struct {
	Technology string       `json:"technology"`
	Version    string       `json:"version,omitempty"`
	Category   TechCategory `json:"category,omitempty"`
	Notes      string       `json:"notes,omitempty"`
}

// UpdateTechnologyRequest is the request body for updating a technology.
type UpdateTechnologyRequest struct {
	Technology *string       `json:"technology,omitempty"`
	Version    *string       `json:"version,omitempty"`
	Category   *TechCategory `json:"category,omitempty"`
	Notes      *string       `json:"notes,omitempty"`
}
