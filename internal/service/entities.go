package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bcnelson/recon-tracker/internal/domain"
	"github.com/bcnelson/recon-tracker/internal/validation"
	"go.uber.org/zap"
)

// ============================================
// Projects
// ============================================

// CreateProject validates req and stores a new project.
func (s *Service) CreateProject(ctx context.Context, req domain.CreateProjectRequest) (*domain.Project, error) {
	if err := validation.CreateProject(&req); err != nil {
		return nil, err
	}

	now := s.now()
	project := &domain.Project{
		ID:          s.newID(),
		Name:        req.Name,
		Domain:      req.Domain,
		Client:      req.Client,
		StartDate:   now,
		EndDate:     req.EndDate,
		Status:      req.Status,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.StartDate != nil {
		project.StartDate = req.StartDate.UTC()
	}
	if project.Status == "" {
		project.Status = domain.ProjectInProgress
	}

	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.log.Debug("project created", zap.String("project_id", project.ID), zap.String("domain", project.Domain))
	return project, nil
}

// GetProject returns a project by id.
func (s *Service) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	return s.store.GetProject(ctx, id)
}

// ListProjects returns every project, newest first.
func (s *Service) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	return s.store.ListProjects(ctx)
}

// UpdateProject applies the fields set in req to a project.
func (s *Service) UpdateProject(ctx context.Context, id string, req domain.UpdateProjectRequest) (*domain.Project, error) {
	if err := validation.UpdateProject(&req); err != nil {
		return nil, err
	}

	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		project.Name = *req.Name
	}
	if req.Domain != nil {
		project.Domain = *req.Domain
	}
	if req.Client != nil {
		project.Client = *req.Client
	}
	if req.StartDate != nil {
		project.StartDate = req.StartDate.UTC()
	}
	if req.EndDate != nil {
		end := req.EndDate.UTC()
		project.EndDate = &end
	}
	if req.Status != nil {
		project.Status = *req.Status
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	project.UpdatedAt = s.now()

	if err := s.store.UpdateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

// ============================================
// Subdomains
// ============================================

// CreateSubdomain validates req and stores a new subdomain under projectID.
// The normalized name must be unused within the project.
func (s *Service) CreateSubdomain(ctx context.Context, projectID string, req domain.CreateSubdomainRequest) (*domain.Subdomain, error) {
	if err := validation.CreateSubdomain(&req); err != nil {
		return nil, err
	}
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	if err := s.checkSubdomainAvailable(ctx, projectID, req.Subdomain, ""); err != nil {
		return nil, err
	}

	now := s.now()
	subdomain := &domain.Subdomain{
		ID:            s.newID(),
		ProjectID:     projectID,
		Subdomain:     req.Subdomain,
		IPAddress:     req.IPAddress,
		Status:        req.Status,
		DiscoveryDate: now,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.DiscoveryDate != nil {
		subdomain.DiscoveryDate = req.DiscoveryDate.UTC()
	}
	if subdomain.Status == "" {
		subdomain.Status = domain.SubdomainActive
	}

	if err := s.store.CreateSubdomain(ctx, subdomain); err != nil {
		return nil, translateUniqueError(err, subdomain.Subdomain)
	}

	s.log.Debug("subdomain created",
		zap.String("project_id", projectID),
		zap.String("subdomain_id", subdomain.ID),
		zap.String("subdomain", subdomain.Subdomain))
	return subdomain, nil
}

// GetSubdomain returns a subdomain by id.
func (s *Service) GetSubdomain(ctx context.Context, id string) (*domain.Subdomain, error) {
	return s.store.GetSubdomain(ctx, id)
}

// ListSubdomains returns the subdomains of a project ordered by name.
// An unknown project has no subdomains.
func (s *Service) ListSubdomains(ctx context.Context, projectID string) ([]*domain.Subdomain, error) {
	return s.store.ListSubdomains(ctx, projectID)
}

// UpdateSubdomain applies the fields set in req to a subdomain. Renaming onto
// a name already used in the project fails with domain.ErrDuplicateKey.
func (s *Service) UpdateSubdomain(ctx context.Context, id string, req domain.UpdateSubdomainRequest) (*domain.Subdomain, error) {
	if err := validation.UpdateSubdomain(&req); err != nil {
		return nil, err
	}

	subdomain, err := s.store.GetSubdomain(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Subdomain != nil && *req.Subdomain != subdomain.Subdomain {
		if err := s.checkSubdomainAvailable(ctx, subdomain.ProjectID, *req.Subdomain, subdomain.ID); err != nil {
			return nil, err
		}
		subdomain.Subdomain = *req.Subdomain
	}
	if req.IPAddress != nil {
		subdomain.IPAddress = *req.IPAddress
	}
	if req.Status != nil {
		subdomain.Status = *req.Status
	}
	if req.DiscoveryDate != nil {
		subdomain.DiscoveryDate = req.DiscoveryDate.UTC()
	}
	if req.Notes != nil {
		subdomain.Notes = *req.Notes
	}
	subdomain.UpdatedAt = s.now()

	if err := s.store.UpdateSubdomain(ctx, subdomain); err != nil {
		return nil, translateUniqueError(err, subdomain.Subdomain)
	}
	return subdomain, nil
}

// ============================================
// Technologies
// ============================================

// CreateTechnology validates req and stores a new technology under subdomainID.
func (s *Service) CreateTechnology(ctx context.Context, subdomainID string, req domain.CreateTechnologyRequest) (*domain.Technology, error) {
	if err := validation.CreateTechnology(&req); err != nil {
		return nil, err
	}
	if err := s.requireSubdomain(ctx, subdomainID); err != nil {
		return nil, err
	}

	now := s.now()
	tech := &domain.Technology{
		ID:          s.newID(),
		SubdomainID: subdomainID,
		Technology:  req.Technology,
		Version:     req.Version,
		Category:    req.Category,
		Notes:       req.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if tech.Category == "" {
		tech.Category = domain.CategoryOther
	}

	if err := s.store.CreateTechnology(ctx, tech); err != nil {
		return nil, fmt.Errorf("creating technology: %w", err)
	}
	return tech, nil
}

// GetTechnology returns a technology by id.
func (s *Service) GetTechnology(ctx context.Context, id string) (*domain.Technology, error) {
	return s.store.GetTechnology(ctx, id)
}

// ListTechnologies returns the technologies of a subdomain ordered by
// category then name.
func (s *Service) ListTechnologies(ctx context.Context, subdomainID string) ([]*domain.Technology, error) {
	return s.store.ListTechnologies(ctx, subdomainID)
}

// UpdateTechnology applies the fields set in req to a technology.
func (s *Service) UpdateTechnology(ctx context.Context, id string, req domain.UpdateTechnologyRequest) (*domain.Technology, error) {
	if err := validation.UpdateTechnology(&req); err != nil {
		return nil, err
	}

	tech, err := s.store.GetTechnology(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Technology != nil {
		tech.Technology = *req.Technology
	}
	if req.Version != nil {
		tech.Version = *req.Version
	}
	if req.Category != nil {
		tech.Category = *req.Category
	}
	if req.Notes != nil {
		tech.Notes = *req.Notes
	}
	tech.UpdatedAt = s.now()

	if err := s.store.UpdateTechnology(ctx, tech); err != nil {
		return nil, err
	}
	return tech, nil
}

// DeleteTechnology removes a single technology.
func (s *Service) DeleteTechnology(ctx context.Context, id string) error {
	return s.store.DeleteTechnology(ctx, id)
}

// ============================================
// Vulnerabilities
// ============================================

// CreateVulnerability validates req and stores a new vulnerability under subdomainID.
func (s *Service) CreateVulnerability(ctx context.Context, subdomainID string, req domain.CreateVulnerabilityRequest) (*domain.Vulnerability, error) {
	if err := validation.CreateVulnerability(&req); err != nil {
		return nil, err
	}
	if err := s.requireSubdomain(ctx, subdomainID); err != nil {
		return nil, err
	}

	now := s.now()
	vuln := &domain.Vulnerability{
		ID:            s.newID(),
		SubdomainID:   subdomainID,
		Title:         req.Title,
		Description:   req.Description,
		Severity:      req.Severity,
		CVSS:          req.CVSS,
		CVE:           req.CVE,
		Status:        req.Status,
		Proof:         req.Proof,
		Remediation:   req.Remediation,
		DiscoveryDate: now,
		AffectedURL:   req.AffectedURL,
		Impact:        req.Impact,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.DiscoveryDate != nil {
		vuln.DiscoveryDate = req.DiscoveryDate.UTC()
	}
	if vuln.Status == "" {
		vuln.Status = domain.VulnOpen
	}

	if err := s.store.CreateVulnerability(ctx, vuln); err != nil {
		return nil, fmt.Errorf("creating vulnerability: %w", err)
	}

	s.log.Debug("vulnerability recorded",
		zap.String("subdomain_id", subdomainID),
		zap.String("vulnerability_id", vuln.ID),
		zap.Stringer("severity", vuln.Severity))
	return vuln, nil
}

// GetVulnerability returns a vulnerability by id.
func (s *Service) GetVulnerability(ctx context.Context, id string) (*domain.Vulnerability, error) {
	return s.store.GetVulnerability(ctx, id)
}

// ListVulnerabilities returns the vulnerabilities of a subdomain in insertion order.
func (s *Service) ListVulnerabilities(ctx context.Context, subdomainID string) ([]*domain.Vulnerability, error) {
	return s.store.ListVulnerabilities(ctx, subdomainID)
}

// UpdateVulnerability applies the fields set in req to a vulnerability.
func (s *Service) UpdateVulnerability(ctx context.Context, id string, req domain.UpdateVulnerabilityRequest) (*domain.Vulnerability, error) {
	if err := validation.UpdateVulnerability(&req); err != nil {
		return nil, err
	}

	vuln, err := s.store.GetVulnerability(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		vuln.Title = *req.Title
	}
	if req.Description != nil {
		vuln.Description = *req.Description
	}
	if req.Severity != nil {
		vuln.Severity = *req.Severity
	}
	if req.CVSS != nil {
		score := *req.CVSS
		vuln.CVSS = &score
	}
	if req.CVE != nil {
		vuln.CVE = *req.CVE
	}
	if req.Status != nil {
		vuln.Status = *req.Status
	}
	if req.Proof != nil {
		vuln.Proof = *req.Proof
	}
	if req.Remediation != nil {
		vuln.Remediation = *req.Remediation
	}
	if req.DiscoveryDate != nil {
		vuln.DiscoveryDate = req.DiscoveryDate.UTC()
	}
	if req.AffectedURL != nil {
		vuln.AffectedURL = *req.AffectedURL
	}
	if req.Impact != nil {
		vuln.Impact = *req.Impact
	}
	vuln.UpdatedAt = s.now()

	if err := s.store.UpdateVulnerability(ctx, vuln); err != nil {
		return nil, err
	}
	return vuln, nil
}

// DeleteVulnerability removes a single vulnerability.
func (s *Service) DeleteVulnerability(ctx context.Context, id string) error {
	return s.store.DeleteVulnerability(ctx, id)
}

// ============================================
// Parent checks
// ============================================

// requireProject fails with a dangling-parent error when projectID does not resolve.
func (s *Service) requireProject(ctx context.Context, projectID string) error {
	if _, err := s.store.GetProject(ctx, projectID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DanglingParent(domain.KindProject, projectID)
		}
		return err
	}
	return nil
}

// requireSubdomain fails with a dangling-parent error when subdomainID does not resolve.
func (s *Service) requireSubdomain(ctx context.Context, subdomainID string) error {
	if _, err := s.store.GetSubdomain(ctx, subdomainID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.DanglingParent(domain.KindSubdomain, subdomainID)
		}
		return err
	}
	return nil
}
