package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bcnelson/recon-tracker/internal/domain"
	"go.uber.org/zap"
)

// ImportProject recreates a project from an export bundle. Every record goes
// through the same validated create path as a direct call, with new ids. The
// bundle's statistics and export date are ignored.
//
// If any record is rejected the partially imported project is removed again
// with DeleteProject, and the original error is returned. A failed cleanup is
// reported as an InconsistentStateError.
func (s *Service) ImportProject(ctx context.Context, bundle *domain.ExportBundle) (*domain.Project, error) {
	if bundle == nil {
		return nil, fmt.Errorf("empty bundle: %w", domain.ErrInvalidInput)
	}

	p := bundle.Project
	startDate := p.StartDate
	project, err := s.CreateProject(ctx, domain.CreateProjectRequest{
		Name:        p.Name,
		Domain:      p.Domain,
		Client:      p.Client,
		StartDate:   nonZero(&startDate),
		EndDate:     p.EndDate,
		Status:      p.Status,
		Description: p.Description,
	})
	if err != nil {
		return nil, err
	}

	if err := s.importSubdomains(ctx, project.ID, bundle.Subdomains); err != nil {
		log := s.log.With(zap.String("project_id", project.ID))
		log.Warn("import failed, removing partial project", zap.Error(err))
		if cleanupErr := s.DeleteProject(context.WithoutCancel(ctx), project.ID); cleanupErr != nil {
			var inconsistent *domain.InconsistentStateError
			if errors.As(cleanupErr, &inconsistent) {
				return nil, inconsistent
			}
			return nil, &domain.InconsistentStateError{
				Kind:   domain.KindProject,
				RootID: project.ID,
				Step:   "import cleanup",
				Err:    cleanupErr,
			}
		}
		return nil, err
	}

	s.log.Info("project imported",
		zap.String("project_id", project.ID),
		zap.Int("subdomains", len(bundle.Subdomains)))
	return project, nil
}

func (s *Service) importSubdomains(ctx context.Context, projectID string, entries []domain.ExportSubdomain) error {
	for i, entry := range entries {
		discovered := entry.DiscoveryDate
		sd, err := s.CreateSubdomain(ctx, projectID, domain.CreateSubdomainRequest{
			Subdomain:     entry.Subdomain,
			IPAddress:     entry.IPAddress,
			Status:        entry.Status,
			DiscoveryDate: nonZero(&discovered),
			Notes:         entry.Notes,
		})
		if err != nil {
			return fmt.Errorf("subdomain %d (%s): %w", i, entry.Subdomain, err)
		}

		for j, t := range entry.Technologies {
			_, err := s.CreateTechnology(ctx, sd.ID, domain.CreateTechnologyRequest{
				Technology: t.Technology,
				Version:    t.Version,
				Category:   t.Category,
				Notes:      t.Notes,
			})
			if err != nil {
				return fmt.Errorf("subdomain %s technology %d: %w", sd.Subdomain, j, err)
			}
		}

		for j, v := range entry.Vulnerabilities {
			found := v.DiscoveryDate
			_, err := s.CreateVulnerability(ctx, sd.ID, domain.CreateVulnerabilityRequest{
				Title:         v.Title,
				Description:   v.Description,
				Severity:      v.Severity,
				CVSS:          v.CVSS,
				CVE:           v.CVE,
				Status:        v.Status,
				Proof:         v.Proof,
				Remediation:   v.Remediation,
				DiscoveryDate: nonZero(&found),
				AffectedURL:   v.AffectedURL,
				Impact:        v.Impact,
			})
			if err != nil {
				return fmt.Errorf("subdomain %s vulnerability %d: %w", sd.Subdomain, j, err)
			}
		}
	}
	return nil
}

// nonZero returns nil for an unset time so that the create path applies its
// default.
func nonZero(t *time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return t
}
