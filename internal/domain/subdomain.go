package domain

import "time"

// SubdomainStatus reports whether a discovered host is still reachable.
type SubdomainStatus string

const (
	SubdomainActive   SubdomainStatus = "active"
	SubdomainInactive SubdomainStatus = "inactive"
)

// IsValid returns true if the status is active or inactive.
func (s SubdomainStatus) IsValid() bool {
	return s == SubdomainActive || s == SubdomainInactive
}

// Subdomain is a host discovered under a project. Its name is stored
// trimmed and lower-cased and is unique within the project.
type Subdomain struct {
	ID            string          `json:"id" db:"id"`
	ProjectID     string          `json:"projectId" db:"project_id"`
	Subdomain     string          `json:"subdomain" db:"subdomain"`
	IPAddress     string          `json:"ipAddress" db:"ip_address"`
	Status        SubdomainStatus `json:"status" db:"status"`
	DiscoveryDate time.Time       `json:"discoveryDate" db:"discovery_date"`
	Notes         string          `json:"notes" db:"notes"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}

// CreateSubdomainRequest is the request body for creating a subdomain.
type CreateSubdomainRequest struct {
	Subdomain     string          `json:"subdomain"`
	IPAddress     string          `json:"ipAddress,omitempty"`
	Status        SubdomainStatus `json:"status,omitempty"`
	DiscoveryDate *time.Time      `json:"discoveryDate,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// UpdateSubdomainRequest is the request body for updating a subdomain.
type UpdateSubdomainRequest struct {
	Subdomain     *string          `json:"subdomain,omitempty"`
	IPAddress     *string          `json:"ipAddress,omitempty"`
	Status        *SubdomainStatus `json:"status,omitempty"`
	DiscoveryDate *time.Time       `json:"discoveryDate,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
}
