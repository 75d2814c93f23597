package service

import (
	"context"
	"errors"

	"github.com/bcnelson/recon-tracker/internal/domain"
	"golang.org/x/sync/errgroup"
)

// children holds one subdomain's technologies and vulnerabilities.
type children struct {
	technologies    []*domain.Technology
	vulnerabilities []*domain.Vulnerability
}

// loadChildren fetches the children of every subdomain with bounded
// parallelism. The result is index-aligned with subdomains.
func (s *Service) loadChildren(ctx context.Context, subdomains []*domain.Subdomain, withTechnologies bool) ([]children, error) {
	out := make([]children, len(subdomains))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, sd := range subdomains {
		g.Go(func() error {
			if withTechnologies {
				techs, err := s.store.ListTechnologies(ctx, sd.ID)
				if err != nil {
					return err
				}
				out[i].technologies = techs
			}
			vulns, err := s.store.ListVulnerabilities(ctx, sd.ID)
			if err != nil {
				return err
			}
			out[i].vulnerabilities = vulns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func countSeverities(vulns []*domain.Vulnerability) domain.SeverityCounts {
	var counts domain.SeverityCounts
	for _, v := range vulns {
		counts.Add(v.Severity)
	}
	return counts
}

func projectStats(subdomains []*domain.Subdomain, kids []children) domain.ProjectStats {
	stats := domain.ProjectStats{TotalSubdomains: len(subdomains)}
	for _, c := range kids {
		stats.VulnerabilitiesBySeverity.Merge(countSeverities(c.vulnerabilities))
	}
	stats.TotalVulnerabilities = stats.VulnerabilitiesBySeverity.Total()
	return stats
}

// SubdomainDetail returns a subdomain with its parent project's summary, its
// children and derived counts.
func (s *Service) SubdomainDetail(ctx context.Context, id string) (*domain.SubdomainDetail, error) {
	subdomain, err := s.store.GetSubdomain(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		project *domain.Project
		techs   []*domain.Technology
		vulns   []*domain.Vulnerability
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		project, err = s.store.GetProject(gctx, subdomain.ProjectID)
		return err
	})
	g.Go(func() (err error) {
		techs, err = s.store.ListTechnologies(gctx, id)
		return err
	})
	g.Go(func() (err error) {
		vulns, err = s.store.ListVulnerabilities(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		// A missing project means a cascade removed it; the subdomain is on
		// its way out too.
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &domain.SubdomainDetail{
		Subdomain: subdomain,
		Project: domain.ProjectSummary{
			ID:     project.ID,
			Name:   project.Name,
			Domain: project.Domain,
			Client: project.Client,
		},
		Technologies:    techs,
		Vulnerabilities: vulns,
		Stats: domain.SubdomainStats{
			TotalTechnologies:       len(techs),
			TotalVulnerabilities:    len(vulns),
			CriticalVulnerabilities: countSeverities(vulns).Critical,
		},
	}, nil
}

// ProjectStats counts a project's vulnerabilities per severity across all of
// its subdomains.
func (s *Service) ProjectStats(ctx context.Context, id string) (*domain.ProjectStats, error) {
	if _, err := s.store.GetProject(ctx, id); err != nil {
		return nil, err
	}
	subdomains, err := s.store.ListSubdomains(ctx, id)
	if err != nil {
		return nil, err
	}
	kids, err := s.loadChildren(ctx, subdomains, false)
	if err != nil {
		return nil, err
	}

	stats := projectStats(subdomains, kids)
	return &stats, nil
}

// ListSubdomainsWithChildren returns the subdomains of a project, ordered by
// name, each with its technologies and vulnerabilities embedded.
func (s *Service) ListSubdomainsWithChildren(ctx context.Context, projectID string) ([]*domain.SubdomainWithChildren, error) {
	subdomains, err := s.store.ListSubdomains(ctx, projectID)
	if err != nil {
		return nil, err
	}
	kids, err := s.loadChildren(ctx, subdomains, true)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.SubdomainWithChildren, len(subdomains))
	for i, sd := range subdomains {
		out[i] = &domain.SubdomainWithChildren{
			Subdomain:       sd,
			Technologies:    kids[i].technologies,
			Vulnerabilities: kids[i].vulnerabilities,
		}
	}
	return out, nil
}

// ExportProject builds a self-contained document describing a project and
// its whole subtree. The statistics block is computed from the same reads as
// the subdomain entries, and ExportDate is taken once aggregation completes.
func (s *Service) ExportProject(ctx context.Context, id string) (*domain.ExportBundle, error) {
	project, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	subdomains, err := s.store.ListSubdomains(ctx, id)
	if err != nil {
		return nil, err
	}
	kids, err := s.loadChildren(ctx, subdomains, true)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.ExportSubdomain, len(subdomains))
	for i, sd := range subdomains {
		techs := make([]domain.ExportTechnology, len(kids[i].technologies))
		for j, t := range kids[i].technologies {
			techs[j] = domain.NewExportTechnology(t)
		}
		vulns := make([]domain.ExportVulnerability, len(kids[i].vulnerabilities))
		for j, v := range kids[i].vulnerabilities {
			vulns[j] = domain.NewExportVulnerability(v)
		}
		entries[i] = domain.ExportSubdomain{
			Subdomain:       sd.Subdomain,
			IPAddress:       sd.IPAddress,
			Status:          sd.Status,
			DiscoveryDate:   sd.DiscoveryDate,
			Notes:           sd.Notes,
			Technologies:    techs,
			Vulnerabilities: vulns,
		}
	}

	return &domain.ExportBundle{
		Project: domain.ExportProject{
			Name:        project.Name,
			Domain:      project.Domain,
			Client:      project.Client,
			StartDate:   project.StartDate,
			EndDate:     project.EndDate,
			Status:      project.Status,
			Description: project.Description,
		},
		Subdomains: entries,
		Statistics: projectStats(subdomains, kids),
		ExportDate: s.now(),
	}, nil
}
