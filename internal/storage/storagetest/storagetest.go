// Package storagetest holds the behavioural tests every storage.Storage
// implementation must pass.
package storagetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bcnelson/recon-tracker/internal/domain"
	"github.com/bcnelson/recon-tracker/internal/storage"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises store against the storage contract. newStore must return an
// empty store; it is called once per subtest.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	t.Run("ProjectCRUD", func(t *testing.T) { testProjectCRUD(t, newStore(t)) })
	t.Run("ProjectListNewestFirst", func(t *testing.T) { testProjectListOrder(t, newStore(t)) })
	t.Run("SubdomainUniquePerProject", func(t *testing.T) { testSubdomainUnique(t, newStore(t)) })
	t.Run("SubdomainRenameCollision", func(t *testing.T) { testSubdomainRename(t, newStore(t)) })
	t.Run("SubdomainListOrder", func(t *testing.T) { testSubdomainListOrder(t, newStore(t)) })
	t.Run("DanglingParent", func(t *testing.T) { testDanglingParent(t, newStore(t)) })
	t.Run("TechnologyListOrder", func(t *testing.T) { testTechnologyListOrder(t, newStore(t)) })
	t.Run("VulnerabilityCRUD", func(t *testing.T) { testVulnerabilityCRUD(t, newStore(t)) })
	t.Run("VulnerabilityInsertionOrder", func(t *testing.T) { testVulnerabilityInsertionOrder(t, newStore(t)) })
	t.Run("BulkDeletes", func(t *testing.T) { testBulkDeletes(t, newStore(t)) })
	t.Run("DeleteWithChildrenRejected", func(t *testing.T) { testDeleteWithChildren(t, newStore(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newStore(t)) })
}

func now() time.Time {
	// Rounded so that every engine round-trips the value exactly.
	return time.Now().UTC().Truncate(time.Millisecond)
}

// NewProject returns a valid project that has not been stored yet.
func NewProject(name string) *domain.Project {
	ts := now()
	return &domain.Project{
		ID:        uuid.NewString(),
		Name:      name,
		Domain:    "acme.test",
		Client:    "Acme Corp",
		StartDate: ts,
		Status:    domain.ProjectInProgress,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

// NewSubdomain returns a valid subdomain of projectID that has not been stored yet.
func NewSubdomain(projectID, name string) *domain.Subdomain {
	ts := now()
	return &domain.Subdomain{
		ID:            uuid.NewString(),
		ProjectID:     projectID,
		Subdomain:     name,
		Status:        domain.SubdomainActive,
		DiscoveryDate: ts,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
}

// NewTechnology returns a valid technology of subdomainID that has not been stored yet.
func NewTechnology(subdomainID, name string, category domain.TechCategory) *domain.Technology {
	ts := now()
	return &domain.Technology{
		ID:          uuid.NewString(),
		SubdomainID: subdomainID,
		Technology:  name,
		Category:    category,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

// NewVulnerability returns a valid vulnerability of subdomainID that has not been stored yet.
func NewVulnerability(subdomainID, title string, severity domain.Severity) *domain.Vulnerability {
	ts := now()
	return &domain.Vulnerability{
		ID:            uuid.NewString(),
		SubdomainID:   subdomainID,
		Title:         title,
		Severity:      severity,
		Status:        domain.VulnOpen,
		DiscoveryDate: ts,
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
}

func testProjectCRUD(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	p := NewProject("Acme")
	end := p.StartDate.Add(24 * time.Hour)
	p.EndDate = &end
	require.NoError(t, store.CreateProject(ctx, p))

	got, err := store.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Domain, got.Domain)
	require.NotNil(t, got.EndDate)
	assert.True(t, end.Equal(*got.EndDate))

	got.Status = domain.ProjectCompleted
	got.Description = "wrapped up"
	require.NoError(t, store.UpdateProject(ctx, got))

	got, err = store.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectCompleted, got.Status)
	assert.Equal(t, "wrapped up", got.Description)

	require.NoError(t, store.DeleteProject(ctx, p.ID))
	_, err = store.GetProject(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testProjectListOrder(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	older := NewProject("older")
	older.CreatedAt = older.CreatedAt.Add(-time.Hour)
	newer := NewProject("newer")
	require.NoError(t, store.CreateProject(ctx, older))
	require.NoError(t, store.CreateProject(ctx, newer))

	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "newer", projects[0].Name)
	assert.Equal(t, "older", projects[1].Name)
}

func testSubdomainUnique(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	p1 := NewProject("one")
	p2 := NewProject("two")
	require.NoError(t, store.CreateProject(ctx, p1))
	require.NoError(t, store.CreateProject(ctx, p2))

	require.NoError(t, store.CreateSubdomain(ctx, NewSubdomain(p1.ID, "app.acme.test")))
	err := store.CreateSubdomain(ctx, NewSubdomain(p1.ID, "app.acme.test"))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	// The same name under another project is fine.
	require.NoError(t, store.CreateSubdomain(ctx, NewSubdomain(p2.ID, "app.acme.test")))

	found, err := store.GetSubdomainByName(ctx, p1.ID, "app.acme.test")
	require.NoError(t, err)
	assert.Equal(t, p1.ID, found.ProjectID)

	// Deleting frees the name.
	require.NoError(t, store.DeleteSubdomain(ctx, found.ID))
	require.NoError(t, store.CreateSubdomain(ctx, NewSubdomain(p1.ID, "app.acme.test")))
}

func testSubdomainRename(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	p := NewProject("Acme")
	require.NoError(t, store.CreateProject(ctx, p))
	a := NewSubdomain(p.ID, "a.acme.test")
	b := NewSubdomain(p.ID, "b.acme.test")
	require.NoError(t, store.CreateSubdomain(ctx, a))
	require.NoError(t, store.CreateSubdomain(ctx, b))

	b.Subdomain = "a.acme.test"
	assert.ErrorIs(t, store.UpdateSubdomain(ctx, b), domain.ErrAlreadyExists)

	b.Subdomain = "c.acme.test"
	require.NoError(t, store.UpdateSubdomain(ctx, b))
	_, err := store.GetSubdomainByName(ctx, p.ID, "b.acme.test")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetSubdomainByName(ctx, p.ID, "c.acme.test")
	assert.NoError(t, err)
}

func testSubdomainListOrder(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	p := NewProject("Acme")
	require.NoError(t, store.CreateProject(ctx, p))
	for _, name := range []string{"www.acme.test", "api.acme.test", "mail.acme.test"} {
		require.NoError(t, store.CreateSubdomain(ctx, NewSubdomain(p.ID, name)))
	}

	subdomains, err := store.ListSubdomains(ctx, p.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(subdomains))
	for _, sd := range subdomains {
		names = append(names, sd.Subdomain)
	}
	assert.Equal(t, []string{"api.acme.test", "mail.acme.test", "www.acme.test"}, names)

	empty, err := store.ListSubdomains(ctx, uuid.NewString())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func testDanglingParent(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	err := store.CreateSubdomain(ctx, NewSubdomain(uuid.NewString(), "app.acme.test"))
	assert.ErrorIs(t, err, domain.ErrDanglingParent)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = store.CreateTechnology(ctx, NewTechnology(uuid.NewString(), "nginx", domain.CategoryServer))
	assert.ErrorIs(t, err, domain.ErrDanglingParent)

	err = store.CreateVulnerability(ctx, NewVulnerability(uuid.NewString(), "XSS", domain.SeverityHigh))
	assert.ErrorIs(t, err, domain.ErrDanglingParent)
}

func testTechnologyListOrder(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	p := NewProject("Acme")
	require.NoError(t, store.CreateProject(ctx, p))
	sd := NewSubdomain(p.ID, "app.acme.test")
	require.NoError(t, store.CreateSubdomain(ctx, sd))

	require.NoError(t, store.CreateTechnology(ctx, NewTechnology(sd.ID, "nginx", domain.CategoryServer)))
	require.NoError(t, store.CreateTechnology(ctx, NewTechnology(sd.ID, "react", domain.CategoryFramework)))
	require.NoError(t, store.CreateTechnology(ctx, NewTechnology(sd.ID, "apache", domain.CategoryServer)))
	// Duplicates are allowed.
	require.NoError(t, store.CreateTechnology(ctx, NewTechnology(sd.ID, "nginx", domain.CategoryServer)))

	techs, err := store.ListTechnologies(ctx, sd.ID)
	require.NoError(t, err)
	got := make([]string, 0, len(techs))
	for _, tech := range techs {
		got = append(got, string(tech.Category)+"/"+tech.Technology)
	}
	assert.Equal(t, []string{"framework/react", "server/apache", "server/nginx", "server/nginx"}, got)
}

func testVulnerabilityCRUD(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	p := NewProject("Acme")
	require.NoError(t, store.CreateProject(ctx, p))
	sd := NewSubdomain(p.ID, "app.acme.test")
	require.NoError(t, store.CreateSubdomain(ctx, sd))

	first := NewVulnerability(sd.ID, "first", domain.SeverityLow)
	score := 9.8
	first.CVSS = &score
	second := NewVulnerability(sd.ID, "second", domain.SeverityCritical)
	second.CreatedAt = first.CreatedAt.Add(time.Millisecond)
	require.NoError(t, store.CreateVulnerability(ctx, first))
	require.NoError(t, store.CreateVulnerability(ctx, second))

	vulns, err := store.ListVulnerabilities(ctx, sd.ID)
	require.NoError(t, err)
	require.Len(t, vulns, 2)
	assert.Equal(t, "first", vulns[0].Title)
	assert.Equal(t, "second", vulns[1].Title)
	require.NotNil(t, vulns[0].CVSS)
	assert.InDelta(t, 9.8, *vulns[0].CVSS, 0.0001)
	assert.Nil(t, vulns[1].CVSS)

	second.Status = domain.VulnRemediated
	require.NoError(t, store.UpdateVulnerability(ctx, second))
	got, err := store.GetVulnerability(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.VulnRemediated, got.Status)

	require.NoError(t, store.DeleteVulnerability(ctx, first.ID))
	_, err = store.GetVulnerability(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Vulnerabilities sharing a timestamp come back in the order they were stored.
func testVulnerabilityInsertionOrder(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	p := NewProject("Acme")
	require.NoError(t, store.CreateProject(ctx, p))
	sd := NewSubdomain(p.ID, "app.acme.test")
	require.NoError(t, store.CreateSubdomain(ctx, sd))

	ts := now()
	var want []string
	for i := 0; i < 8; i++ {
		v := NewVulnerability(sd.ID, fmt.Sprintf("finding %d", i), domain.SeverityMedium)
		v.DiscoveryDate, v.CreatedAt, v.UpdatedAt = ts, ts, ts
		require.NoError(t, store.CreateVulnerability(ctx, v))
		want = append(want, v.ID)
	}

	vulns, err := store.ListVulnerabilities(ctx, sd.ID)
	require.NoError(t, err)
	got := make([]string, len(vulns))
	for i, v := range vulns {
		got[i] = v.ID
	}
	assert.Equal(t, want, got)
}

func testBulkDeletes(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	p := NewProject("Acme")
	other := NewProject("Other")
	require.NoError(t, store.CreateProject(ctx, p))
	require.NoError(t, store.CreateProject(ctx, other))

	a := NewSubdomain(p.ID, "a.acme.test")
	b := NewSubdomain(p.ID, "b.acme.test")
	keep := NewSubdomain(other.ID, "a.acme.test")
	for _, sd := range []*domain.Subdomain{a, b, keep} {
		require.NoError(t, store.CreateSubdomain(ctx, sd))
		require.NoError(t, store.CreateTechnology(ctx, NewTechnology(sd.ID, "nginx", domain.CategoryServer)))
		require.NoError(t, store.CreateVulnerability(ctx, NewVulnerability(sd.ID, "XSS", domain.SeverityHigh)))
	}

	// Empty id sets are a no-op.
	require.NoError(t, store.DeleteAllTechnologiesForSubdomains(ctx, nil))
	require.NoError(t, store.DeleteAllVulnerabilitiesForSubdomains(ctx, []string{}))

	ids := []string{a.ID, b.ID}
	require.NoError(t, store.DeleteAllTechnologiesForSubdomains(ctx, ids))
	require.NoError(t, store.DeleteAllVulnerabilitiesForSubdomains(ctx, ids))
	require.NoError(t, store.DeleteAllSubdomainsForProject(ctx, p.ID))

	subdomains, err := store.ListSubdomains(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, subdomains)
	for _, id := range ids {
		techs, err := store.ListTechnologies(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, techs)
		vulns, err := store.ListVulnerabilities(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, vulns)
	}

	// Records of the other project are untouched.
	techs, err := store.ListTechnologies(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, techs, 1)
	vulns, err := store.ListVulnerabilities(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, vulns, 1)

	require.NoError(t, store.DeleteProject(ctx, p.ID))
}

func testDeleteWithChildren(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	p := NewProject("Acme")
	require.NoError(t, store.CreateProject(ctx, p))
	sd := NewSubdomain(p.ID, "app.acme.test")
	require.NoError(t, store.CreateSubdomain(ctx, sd))
	require.NoError(t, store.CreateTechnology(ctx, NewTechnology(sd.ID, "nginx", domain.CategoryServer)))

	assert.ErrorIs(t, store.DeleteProject(ctx, p.ID), domain.ErrReferenced)
	assert.ErrorIs(t, store.DeleteSubdomain(ctx, sd.ID), domain.ErrReferenced)
	assert.ErrorIs(t, store.DeleteAllSubdomainsForProject(ctx, p.ID), domain.ErrReferenced)

	// Nothing was removed.
	_, err := store.GetProject(ctx, p.ID)
	assert.NoError(t, err)
	_, err = store.GetSubdomain(ctx, sd.ID)
	assert.NoError(t, err)

	require.NoError(t, store.DeleteAllTechnologiesForSubdomains(ctx, []string{sd.ID}))
	require.NoError(t, store.DeleteSubdomain(ctx, sd.ID))
	require.NoError(t, store.DeleteProject(ctx, p.ID))
}

func testNotFound(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	missing := uuid.NewString()

	_, err := store.GetProject(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetSubdomain(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetTechnology(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetVulnerability(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, store.UpdateProject(ctx, &domain.Project{ID: missing}), domain.ErrNotFound)
	assert.ErrorIs(t, store.UpdateTechnology(ctx, &domain.Technology{ID: missing}), domain.ErrNotFound)

	assert.ErrorIs(t, store.DeleteProject(ctx, missing), domain.ErrNotFound)
	assert.ErrorIs(t, store.DeleteSubdomain(ctx, missing), domain.ErrNotFound)
	assert.ErrorIs(t, store.DeleteTechnology(ctx, missing), domain.ErrNotFound)
	assert.ErrorIs(t, store.DeleteVulnerability(ctx, missing), domain.ErrNotFound)
}
