package domain

import "time"

// ProjectStatus is the lifecycle state of an engagement.
type ProjectStatus string

const (
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectArchived   ProjectStatus = "archived"
)

// IsValid returns true if the status is one of the known project states.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectInProgress, ProjectCompleted, ProjectArchived:
		return true
	default:
		return false
	}
}

// Project is the root of the hierarchy: one security-assessment engagement.
type Project struct {
	ID          string        `json:"id" db:"id"`
	Name        string        `json:"name" db:"name"`
	Domain      string        `json:"domain" db:"domain"`
	Client      string        `json:"client" db:"client"`
	StartDate   time.Time     `json:"startDate" db:"start_date"`
	EndDate     *time.Time    `json:"endDate,omitempty" db:"end_date"`
	Status      ProjectStatus `json:"status" db:"status"`
	Description string        `json:"description" db:"description"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" db:"updated_at"`
}

// CreateProjectRequest is the request body for creating a project.
type CreateProjectRequest struct {
	Name        string        `json:"name"`
	Domain      string        `json:"domain"`
	Client      string        `json:"client"`
	StartDate   *time.Time    `json:"startDate,omitempty"`
	EndDate     *time.Time    `json:"endDate,omitempty"`
	Status      ProjectStatus `json:"status,omitempty"`
	Description string        `json:"description,omitempty"`
}

// UpdateProjectRequest is the request body for updating a project.
type UpdateProjectRequest struct {
	Name        *string        `json:"name,omitempty"`
	Domain      *string        `json:"domain,omitempty"`
	Client      *string        `json:"client,omitempty"`
	StartDate   *time.Time     `json:"startDate,omitempty"`
	EndDate     *time.Time     `json:"endDate,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty"`
	Description *string        `json:"description,omitempty"`
}
