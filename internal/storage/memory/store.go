package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bcnelson/recon-tracker/internal/domain"
)

// Store is an in-memory implementation of the storage interface.
// Records are copied on the way in and out so callers never share memory
// with the store. Child inserts are rejected when the parent is missing and
// parent deletes are rejected while children remain, mirroring the foreign
// keys of the SQL store.
type Store struct {
	mu sync.RWMutex

	projects        map[string]*domain.Project
	subdomains      map[string]*domain.Subdomain
	subdomainNames  map[string]string // key: projectID:subdomain, value: subdomain id
	technologies    map[string]*domain.Technology
	vulnerabilities map[string]*domain.Vulnerability
	vulnSeq         map[string]uint64 // insertion order of vulnerabilities
	seq             uint64
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		projects:        make(map[string]*domain.Project),
		subdomains:      make(map[string]*domain.Subdomain),
		subdomainNames:  make(map[string]string),
		technologies:    make(map[string]*domain.Technology),
		vulnerabilities: make(map[string]*domain.Vulnerability),
		vulnSeq:         make(map[string]uint64),
	}
}

func (s *Store) Close() error { return nil }

// ============================================
// Projects
// ============================================

func copyProject(p *domain.Project) *domain.Project {
	c := *p
	if p.EndDate != nil {
		end := *p.EndDate
		c.EndDate = &end
	}
	return &c
}

func (s *Store) CreateProject(ctx context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.projects[project.ID]; exists {
		return domain.ErrAlreadyExists
	}
	s.projects[project.ID] = copyProject(project)
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	project, exists := s.projects[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return copyProject(project), nil
}

func (s *Store) ListProjects(ctx context.Context) ([]*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	projects := make([]*domain.Project, 0, len(s.projects))
	for _, project := range s.projects {
		projects = append(projects, copyProject(project))
	}
	// Newest first
	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.After(projects[j].CreatedAt)
		}
		return projects[i].ID < projects[j].ID
	})
	return projects, nil
}

func (s *Store) UpdateProject(ctx context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.projects[project.ID]; !exists {
		return domain.ErrNotFound
	}
	s.projects[project.ID] = copyProject(project)
	return nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.projects[id]; !exists {
		return domain.ErrNotFound
	}
	for _, subdomain := range s.subdomains {
		if subdomain.ProjectID == id {
			return domain.ErrReferenced
		}
	}
	delete(s.projects, id)
	return nil
}

// ============================================
// Subdomains
// ============================================

func subdomainKey(projectID, name string) string { return projectID + ":" + name }

func copySubdomain(sd *domain.Subdomain) *domain.Subdomain {
	c := *sd
	return &c
}

func (s *Store) CreateSubdomain(ctx context.Context, subdomain *domain.Subdomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.subdomains[subdomain.ID]; exists {
		return domain.ErrAlreadyExists
	}
	if _, exists := s.projects[subdomain.ProjectID]; !exists {
		return domain.DanglingParent(domain.KindProject, subdomain.ProjectID)
	}
	key := subdomainKey(subdomain.ProjectID, subdomain.Subdomain)
	if _, exists := s.subdomainNames[key]; exists {
		return domain.ErrAlreadyExists
	}
	s.subdomains[subdomain.ID] = copySubdomain(subdomain)
	s.subdomainNames[key] = subdomain.ID
	return nil
}

func (s *Store) GetSubdomain(ctx context.Context, id string) (*domain.Subdomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subdomain, exists := s.subdomains[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return copySubdomain(subdomain), nil
}

func (s *Store) GetSubdomainByName(ctx context.Context, projectID, name string) (*domain.Subdomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, exists := s.subdomainNames[subdomainKey(projectID, name)]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return copySubdomain(s.subdomains[id]), nil
}

func (s *Store) ListSubdomains(ctx context.Context, projectID string) ([]*domain.Subdomain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subdomains := make([]*domain.Subdomain, 0)
	for _, subdomain := range s.subdomains {
		if subdomain.ProjectID == projectID {
			subdomains = append(subdomains, copySubdomain(subdomain))
		}
	}
	sort.Slice(subdomains, func(i, j int) bool { return subdomains[i].Subdomain < subdomains[j].Subdomain })
	return subdomains, nil
}

func (s *Store) UpdateSubdomain(ctx context.Context, subdomain *domain.Subdomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.subdomains[subdomain.ID]
	if !exists {
		return domain.ErrNotFound
	}
	oldKey := subdomainKey(existing.ProjectID, existing.Subdomain)
	newKey := subdomainKey(subdomain.ProjectID, subdomain.Subdomain)
	if newKey != oldKey {
		if _, taken := s.subdomainNames[newKey]; taken {
			return domain.ErrAlreadyExists
		}
		delete(s.subdomainNames, oldKey)
		s.subdomainNames[newKey] = subdomain.ID
	}
	s.subdomains[subdomain.ID] = copySubdomain(subdomain)
	return nil
}

func (s *Store) DeleteSubdomain(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	subdomain, exists := s.subdomains[id]
	if !exists {
		return domain.ErrNotFound
	}
	if s.hasChildren(id) {
		return domain.ErrReferenced
	}
	delete(s.subdomainNames, subdomainKey(subdomain.ProjectID, subdomain.Subdomain))
	delete(s.subdomains, id)
	return nil
}

func (s *Store) DeleteAllSubdomainsForProject(ctx context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, subdomain := range s.subdomains {
		if subdomain.ProjectID == projectID && s.hasChildren(id) {
			return domain.ErrReferenced
		}
	}
	for id, subdomain := range s.subdomains {
		if subdomain.ProjectID == projectID {
			delete(s.subdomainNames, subdomainKey(subdomain.ProjectID, subdomain.Subdomain))
			delete(s.subdomains, id)
		}
	}
	return nil
}

// hasChildren reports whether any technology or vulnerability references the
// subdomain. Callers must hold s.mu.
func (s *Store) hasChildren(subdomainID string) bool {
	for _, tech := range s.technologies {
		if tech.SubdomainID == subdomainID {
			return true
		}
	}
	for _, vuln := range s.vulnerabilities {
		if vuln.SubdomainID == subdomainID {
			return true
		}
	}
	return false
}

// ============================================
// Technologies
// ============================================

func copyTechnology(t *domain.Technology) *domain.Technology {
	c := *t
	return &c
}

func (s *Store) CreateTechnology(ctx context.Context, tech *domain.Technology) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.technologies[tech.ID]; exists {
		return domain.ErrAlreadyExists
	}
	if _, exists := s.subdomains[tech.SubdomainID]; !exists {
		return domain.DanglingParent(domain.KindSubdomain, tech.SubdomainID)
	}
	s.technologies[tech.ID] = copyTechnology(tech)
	return nil
}

func (s *Store) GetTechnology(ctx context.Context, id string) (*domain.Technology, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tech, exists := s.technologies[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return copyTechnology(tech), nil
}

func (s *Store) ListTechnologies(ctx context.Context, subdomainID string) ([]*domain.Technology, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	techs := make([]*domain.Technology, 0)
	for _, tech := range s.technologies {
		if tech.SubdomainID == subdomainID {
			techs = append(techs, copyTechnology(tech))
		}
	}
	sort.Slice(techs, func(i, j int) bool {
		if techs[i].Category != techs[j].Category {
			return techs[i].Category < techs[j].Category
		}
		if techs[i].Technology != techs[j].Technology {
			return techs[i].Technology < techs[j].Technology
		}
		return techs[i].ID < techs[j].ID
	})
	return techs, nil
}

func (s *Store) UpdateTechnology(ctx context.Context, tech *domain.Technology) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.technologies[tech.ID]; !exists {
		return domain.ErrNotFound
	}
	s.technologies[tech.ID] = copyTechnology(tech)
	return nil
}

func (s *Store) DeleteTechnology(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.technologies[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.technologies, id)
	return nil
}

func (s *Store) DeleteAllTechnologiesForSubdomains(ctx context.Context, subdomainIDs []string) error {
	parents := idSet(subdomainIDs)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, tech := range s.technologies {
		if parents[tech.SubdomainID] {
			delete(s.technologies, id)
		}
	}
	return nil
}

// ============================================
// Vulnerabilities
// ============================================

func copyVulnerability(v *domain.Vulnerability) *domain.Vulnerability {
	c := *v
	if v.CVSS != nil {
		score := *v.CVSS
		c.CVSS = &score
	}
	return &c
}

func (s *Store) CreateVulnerability(ctx context.Context, vuln *domain.Vulnerability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vulnerabilities[vuln.ID]; exists {
		return domain.ErrAlreadyExists
	}
	if _, exists := s.subdomains[vuln.SubdomainID]; !exists {
		return domain.DanglingParent(domain.KindSubdomain, vuln.SubdomainID)
	}
	s.seq++
	s.vulnerabilities[vuln.ID] = copyVulnerability(vuln)
	s.vulnSeq[vuln.ID] = s.seq
	return nil
}

func (s *Store) GetVulnerability(ctx context.Context, id string) (*domain.Vulnerability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vuln, exists := s.vulnerabilities[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return copyVulnerability(vuln), nil
}

func (s *Store) ListVulnerabilities(ctx context.Context, subdomainID string) ([]*domain.Vulnerability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vulns := make([]*domain.Vulnerability, 0)
	for _, vuln := range s.vulnerabilities {
		if vuln.SubdomainID == subdomainID {
			vulns = append(vulns, copyVulnerability(vuln))
		}
	}
	sort.Slice(vulns, func(i, j int) bool { return s.vulnSeq[vulns[i].ID] < s.vulnSeq[vulns[j].ID] })
	return vulns, nil
}

func (s *Store) UpdateVulnerability(ctx context.Context, vuln *domain.Vulnerability) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vulnerabilities[vuln.ID]; !exists {
		return domain.ErrNotFound
	}
	s.vulnerabilities[vuln.ID] = copyVulnerability(vuln)
	return nil
}

func (s *Store) DeleteVulnerability(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.vulnerabilities[id]; !exists {
		return domain.ErrNotFound
	}
	delete(s.vulnerabilities, id)
	delete(s.vulnSeq, id)
	return nil
}

func (s *Store) DeleteAllVulnerabilitiesForSubdomains(ctx context.Context, subdomainIDs []string) error {
	parents := idSet(subdomainIDs)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, vuln := range s.vulnerabilities {
		if parents[vuln.SubdomainID] {
			delete(s.vulnerabilities, id)
			delete(s.vulnSeq, id)
		}
	}
	return nil
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
