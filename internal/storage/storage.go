package storage

import (
	"context"

	"github.com/bcnelson/recon-tracker/internal/domain"
)

// Storage defines the interface for the storage layer.
// Implementations must be safe for concurrent use.
//
// Create* returns domain.ErrAlreadyExists when a subdomain name is already
// taken in its project, and an error matching domain.ErrDanglingParent when
// the parent record does not exist. Get*, Update* and single-record Delete* return
// domain.ErrNotFound for unknown ids. Deleting a project or subdomain that
// still has children fails with domain.ErrReferenced. Bulk DeleteAll* calls
// succeed when nothing matches.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Projects
	CreateProject(ctx context.Context, project *domain.Project) error
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context) ([]*domain.Project, error)
	UpdateProject(ctx context.Context, project *domain.Project) error
	DeleteProject(ctx context.Context, id string) error

	// Subdomains
	CreateSubdomain(ctx context.Context, subdomain *domain.Subdomain) error
	GetSubdomain(ctx context.Context, id string) (*domain.Subdomain, error)
	GetSubdomainByName(ctx context.Context, projectID, name string) (*domain.Subdomain, error)
	ListSubdomains(ctx context.Context, projectID string) ([]*domain.Subdomain, error)
	UpdateSubdomain(ctx context.Context, subdomain *domain.Subdomain) error
	DeleteSubdomain(ctx context.Context, id string) error
	DeleteAllSubdomainsForProject(ctx context.Context, projectID string) error

	// Technologies
	CreateTechnology(ctx context.Context, tech *domain.Technology) error
	GetTechnology(ctx context.Context, id string) (*domain.Technology, error)
	ListTechnologies(ctx context.Context, subdomainID string) ([]*domain.Technology, error)
	UpdateTechnology(ctx context.Context, tech *domain.Technology) error
	DeleteTechnology(ctx context.Context, id string) error
	DeleteAllTechnologiesForSubdomains(ctx context.Context, subdomainIDs []string) error

	// Vulnerabilities
	CreateVulnerability(ctx context.Context, vuln *domain.Vulnerability) error
	GetVulnerability(ctx context.Context, id string) (*domain.Vulnerability, error)
	ListVulnerabilities(ctx context.Context, subdomainID string) ([]*domain.Vulnerability, error)
	UpdateVulnerability(ctx context.Context, vuln *domain.Vulnerability) error
	DeleteVulnerability(ctx context.Context, id string) error
	DeleteAllVulnerabilitiesForSubdomains(ctx context.Context, subdomainIDs []string) error
}
