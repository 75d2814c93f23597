package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bcnelson/recon-tracker/internal/domain"
	"github.com/bcnelson/recon-tracker/internal/storage"
	"github.com/bcnelson/recon-tracker/internal/storage/memory"
	"github.com/bcnelson/recon-tracker/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stepClock advances by one second on every reading so that records created
// in sequence have distinct, ordered timestamps.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(t *testing.T) *Service {
	return newTestServiceWithStore(t, memory.New())
}

func newTestServiceWithStore(t *testing.T, store storage.Storage) *Service {
	t.Helper()
	svc := New(store, zaptest.NewLogger(t), 4)
	clock := &stepClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc.now = clock.Now
	return svc
}

func mustProject(t *testing.T, svc *Service, name string) *domain.Project {
	t.Helper()
	p, err := svc.CreateProject(context.Background(), domain.CreateProjectRequest{
		Name:   name,
		Domain: "acme.test",
		Client: "Acme Corp",
	})
	require.NoError(t, err)
	return p
}

func mustSubdomain(t *testing.T, svc *Service, projectID, name string) *domain.Subdomain {
	t.Helper()
	sd, err := svc.CreateSubdomain(context.Background(), projectID, domain.CreateSubdomainRequest{Subdomain: name})
	require.NoError(t, err)
	return sd
}

func mustTechnology(t *testing.T, svc *Service, subdomainID, name string, category domain.TechCategory) *domain.Technology {
	t.Helper()
	tech, err := svc.CreateTechnology(context.Background(), subdomainID, domain.CreateTechnologyRequest{
		Technology: name,
		Category:   category,
	})
	require.NoError(t, err)
	return tech
}

func mustVulnerability(t *testing.T, svc *Service, subdomainID, title string, severity domain.Severity) *domain.Vulnerability {
	t.Helper()
	vuln, err := svc.CreateVulnerability(context.Background(), subdomainID, domain.CreateVulnerabilityRequest{
		Title:    title,
		Severity: severity,
	})
	require.NoError(t, err)
	return vuln
}

func TestCreateProjectDefaults(t *testing.T) {
	svc := newTestService(t)

	p, err := svc.CreateProject(context.Background(), domain.CreateProjectRequest{
		Name:   " Acme ",
		Domain: " ACME.test",
		Client: "Acme Corp",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Acme", p.Name)
	assert.Equal(t, "acme.test", p.Domain)
	assert.Equal(t, domain.ProjectInProgress, p.Status)
	assert.False(t, p.StartDate.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)
}

func TestCreateProjectValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateProject(context.Background(), domain.CreateProjectRequest{Name: "Acme"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	var errs validation.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Len(t, errs, 2) // domain and client

	projects, err := svc.ListProjects(context.Background())
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestUpdateProjectIsPartial(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc, "Acme")

	status := domain.ProjectCompleted
	updated, err := svc.UpdateProject(ctx, p.ID, domain.UpdateProjectRequest{Status: &status})
	require.NoError(t, err)

	assert.Equal(t, p.ID, updated.ID)
	assert.Equal(t, "Acme", updated.Name)
	assert.Equal(t, p.Domain, updated.Domain)
	assert.Equal(t, domain.ProjectCompleted, updated.Status)
	assert.Equal(t, p.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(p.UpdatedAt))

	stored, err := svc.GetProject(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectCompleted, stored.Status)
}

func TestListProjectsNewestFirst(t *testing.T) {
	svc := newTestService(t)
	mustProject(t, svc, "first")
	mustProject(t, svc, "second")

	projects, err := svc.ListProjects(context.Background())
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "second", projects[0].Name)
}

func TestCreateChildUnderMissingParent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateSubdomain(ctx, "no-such-project", domain.CreateSubdomainRequest{Subdomain: "a.acme.test"})
	assert.ErrorIs(t, err, domain.ErrDanglingParent)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.CreateTechnology(ctx, "no-such-subdomain", domain.CreateTechnologyRequest{Technology: "nginx"})
	assert.ErrorIs(t, err, domain.ErrDanglingParent)

	_, err = svc.CreateVulnerability(ctx, "no-such-subdomain", domain.CreateVulnerabilityRequest{
		Title:    "XSS",
		Severity: domain.SeverityHigh,
	})
	assert.ErrorIs(t, err, domain.ErrDanglingParent)
}

func TestValidationRunsBeforeParentCheck(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.CreateVulnerability(context.Background(), "no-such-subdomain", domain.CreateVulnerabilityRequest{
		Title:    "XSS",
		Severity: "apocalyptic",
	})
	var errs validation.ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.Equal(t, "severity", errs[0].Field)
}

func TestTechnologyDefaultsAndOrdering(t *testing.T) {
	svc := newTestService(t)
	p := mustProject(t, svc, "Acme")
	sd := mustSubdomain(t, svc, p.ID, "app.acme.test")

	other := mustTechnology(t, svc, sd.ID, "jquery", "")
	assert.Equal(t, domain.CategoryOther, other.Category)
	mustTechnology(t, svc, sd.ID, "nginx", domain.CategoryServer)
	mustTechnology(t, svc, sd.ID, "django", domain.CategoryFramework)

	techs, err := svc.ListTechnologies(context.Background(), sd.ID)
	require.NoError(t, err)
	var names []string
	for _, tech := range techs {
		names = append(names, tech.Technology)
	}
	assert.Equal(t, []string{"django", "jquery", "nginx"}, names)
}

func TestUpdateTechnologyAndVulnerability(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc, "Acme")
	sd := mustSubdomain(t, svc, p.ID, "app.acme.test")
	tech := mustTechnology(t, svc, sd.ID, "nginx", domain.CategoryServer)
	vuln := mustVulnerability(t, svc, sd.ID, "XSS", domain.SeverityMedium)
	assert.Equal(t, domain.VulnOpen, vuln.Status)

	version := "1.25.3"
	gotTech, err := svc.UpdateTechnology(ctx, tech.ID, domain.UpdateTechnologyRequest{Version: &version})
	require.NoError(t, err)
	assert.Equal(t, "nginx", gotTech.Technology)
	assert.Equal(t, "1.25.3", gotTech.Version)
	assert.Equal(t, sd.ID, gotTech.SubdomainID)

	severity := domain.SeverityCritical
	score := 9.1
	gotVuln, err := svc.UpdateVulnerability(ctx, vuln.ID, domain.UpdateVulnerabilityRequest{
		Severity: &severity,
		CVSS:     &score,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SeverityCritical, gotVuln.Severity)
	require.NotNil(t, gotVuln.CVSS)
	assert.InDelta(t, 9.1, *gotVuln.CVSS, 0.0001)
	assert.Equal(t, "XSS", gotVuln.Title)

	bad := domain.TechCategory("webserver")
	_, err = svc.UpdateTechnology(ctx, tech.ID, domain.UpdateTechnologyRequest{Category: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDeleteLeafRecords(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc, "Acme")
	sd := mustSubdomain(t, svc, p.ID, "app.acme.test")
	tech := mustTechnology(t, svc, sd.ID, "nginx", domain.CategoryServer)
	vuln := mustVulnerability(t, svc, sd.ID, "XSS", domain.SeverityLow)

	require.NoError(t, svc.DeleteTechnology(ctx, tech.ID))
	require.NoError(t, svc.DeleteVulnerability(ctx, vuln.ID))

	assert.ErrorIs(t, svc.DeleteTechnology(ctx, tech.ID), domain.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteVulnerability(ctx, vuln.ID), domain.ErrNotFound)

	// The parent is untouched.
	_, err := svc.GetSubdomain(ctx, sd.ID)
	assert.NoError(t, err)
}

// Every get, update and delete on an unknown id fails NotFound.
func TestUnknownIDsAreNotFound(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	const missing = "00000000-0000-0000-0000-000000000000"
	name := "x"
	title := "x"

	checks := map[string]func() error{
		"GetProject":          func() error { _, err := svc.GetProject(ctx, missing); return err },
		"UpdateProject":       func() error { _, err := svc.UpdateProject(ctx, missing, domain.UpdateProjectRequest{Name: &name}); return err },
		"DeleteProject":       func() error { return svc.DeleteProject(ctx, missing) },
		"GetSubdomain":        func() error { _, err := svc.GetSubdomain(ctx, missing); return err },
		"UpdateSubdomain":     func() error { _, err := svc.UpdateSubdomain(ctx, missing, domain.UpdateSubdomainRequest{}); return err },
		"DeleteSubdomain":     func() error { return svc.DeleteSubdomain(ctx, missing) },
		"GetTechnology":       func() error { _, err := svc.GetTechnology(ctx, missing); return err },
		"UpdateTechnology":    func() error { _, err := svc.UpdateTechnology(ctx, missing, domain.UpdateTechnologyRequest{Technology: &name}); return err },
		"DeleteTechnology":    func() error { return svc.DeleteTechnology(ctx, missing) },
		"GetVulnerability":    func() error { _, err := svc.GetVulnerability(ctx, missing); return err },
		"UpdateVulnerability": func() error { _, err := svc.UpdateVulnerability(ctx, missing, domain.UpdateVulnerabilityRequest{Title: &title}); return err },
		"DeleteVulnerability": func() error { return svc.DeleteVulnerability(ctx, missing) },
		"SubdomainDetail":     func() error { _, err := svc.SubdomainDetail(ctx, missing); return err },
		"ProjectStats":        func() error { _, err := svc.ProjectStats(ctx, missing); return err },
		"ExportProject":       func() error { _, err := svc.ExportProject(ctx, missing); return err },
	}

	for name, check := range checks {
		t.Run(name, func(t *testing.T) {
			err := check()
			assert.ErrorIs(t, err, domain.ErrNotFound)
			assert.NotErrorIs(t, err, domain.ErrInconsistentState)
		})
	}
}
