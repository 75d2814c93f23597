package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/bcnelson/recon-tracker/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectStatsCountsSeverities(t *testing.T) {
	svc := newTestService(t)
	p := mustProject(t, svc, "Acme")
	sd := mustSubdomain(t, svc, p.ID, "app.acme.test")
	mustVulnerability(t, svc, sd.ID, "SQLi", domain.SeverityCritical)
	mustVulnerability(t, svc, sd.ID, "Verbose errors", domain.SeverityLow)

	stats, err := svc.ProjectStats(context.Background(), p.ID)
	require.NoError(t, err)

	want := &domain.ProjectStats{
		TotalSubdomains:           1,
		TotalVulnerabilities:      2,
		VulnerabilitiesBySeverity: domain.SeverityCounts{Critical: 1, Low: 1},
	}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("ProjectStats mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectStatsEmptyProject(t *testing.T) {
	svc := newTestService(t)
	p := mustProject(t, svc, "Acme")

	stats, err := svc.ProjectStats(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ProjectStats{}, *stats)
}

func TestSubdomainDetailCounts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc, "Acme")
	sd := mustSubdomain(t, svc, p.ID, "app.acme.test")
	other := mustSubdomain(t, svc, p.ID, "api.acme.test")

	mustTechnology(t, svc, sd.ID, "nginx", domain.CategoryServer)
	mustTechnology(t, svc, sd.ID, "nginx", domain.CategoryServer) // duplicates are allowed
	mustTechnology(t, svc, sd.ID, "react", domain.CategoryFramework)
	mustVulnerability(t, svc, sd.ID, "SQLi", domain.SeverityCritical)
	mustVulnerability(t, svc, sd.ID, "RCE", domain.SeverityCritical)
	mustVulnerability(t, svc, sd.ID, "XSS", domain.SeverityHigh)
	mustVulnerability(t, svc, other.ID, "Other", domain.SeverityCritical)

	detail, err := svc.SubdomainDetail(ctx, sd.ID)
	require.NoError(t, err)

	assert.Equal(t, sd.ID, detail.Subdomain.ID)
	assert.Equal(t, domain.ProjectSummary{ID: p.ID, Name: "Acme", Domain: "acme.test", Client: "Acme Corp"}, detail.Project)
	assert.Equal(t, domain.SubdomainStats{
		TotalTechnologies:       3,
		TotalVulnerabilities:    3,
		CriticalVulnerabilities: 2,
	}, detail.Stats)
	assert.Len(t, detail.Technologies, 3)
	require.Len(t, detail.Vulnerabilities, 3)
	assert.Equal(t, "SQLi", detail.Vulnerabilities[0].Title)
	assert.Equal(t, "XSS", detail.Vulnerabilities[2].Title)
}

func TestSubdomainDetailEmptyChildrenAreArrays(t *testing.T) {
	svc := newTestService(t)
	p := mustProject(t, svc, "Acme")
	sd := mustSubdomain(t, svc, p.ID, "app.acme.test")

	detail, err := svc.SubdomainDetail(context.Background(), sd.ID)
	require.NoError(t, err)

	raw, err := json.Marshal(detail)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"technologies":[]`)
	assert.Contains(t, string(raw), `"vulnerabilities":[]`)
}

// Project totals are the per-bucket sum of each subdomain's own counts.
func TestProjectStatsAreSumOfSubdomains(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc, "Acme")

	layout := map[string][]domain.Severity{
		"a.acme.test": {domain.SeverityCritical, domain.SeverityCritical, domain.SeverityInfo},
		"b.acme.test": {domain.SeverityHigh, domain.SeverityMedium, domain.SeverityLow, domain.SeverityLow},
		"c.acme.test": nil,
		"d.acme.test": {domain.SeverityCritical},
	}
	for name, severities := range layout {
		sd := mustSubdomain(t, svc, p.ID, name)
		for _, sev := range severities {
			mustVulnerability(t, svc, sd.ID, "finding", sev)
		}
	}

	subdomains, err := svc.ListSubdomains(ctx, p.ID)
	require.NoError(t, err)
	var sum domain.SeverityCounts
	for _, sd := range subdomains {
		vulns, err := svc.ListVulnerabilities(ctx, sd.ID)
		require.NoError(t, err)
		sum.Merge(countSeverities(vulns))
	}

	stats, err := svc.ProjectStats(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, sum, stats.VulnerabilitiesBySeverity)
	assert.Equal(t, domain.SeverityCounts{Critical: 3, High: 1, Medium: 1, Low: 2, Info: 1}, stats.VulnerabilitiesBySeverity)
	assert.Equal(t, 4, stats.TotalSubdomains)
	assert.Equal(t, 8, stats.TotalVulnerabilities)
}

func TestListSubdomainsWithChildren(t *testing.T) {
	svc := newTestService(t)
	p := mustProject(t, svc, "Acme")
	b := mustSubdomain(t, svc, p.ID, "b.acme.test")
	a := mustSubdomain(t, svc, p.ID, "a.acme.test")
	mustTechnology(t, svc, b.ID, "nginx", domain.CategoryServer)
	mustVulnerability(t, svc, b.ID, "XSS", domain.SeverityHigh)

	list, err := svc.ListSubdomainsWithChildren(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, a.ID, list[0].ID)
	assert.Empty(t, list[0].Technologies)
	assert.NotNil(t, list[0].Technologies)
	assert.Equal(t, b.ID, list[1].ID)
	require.Len(t, list[1].Technologies, 1)
	assert.Equal(t, "nginx", list[1].Technologies[0].Technology)
	require.Len(t, list[1].Vulnerabilities, 1)
	assert.Equal(t, "XSS", list[1].Vulnerabilities[0].Title)
}

func TestExportProject(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc, "Acme")
	sd := mustSubdomain(t, svc, p.ID, "app.acme.test")
	mustSubdomain(t, svc, p.ID, "empty.acme.test")
	mustTechnology(t, svc, sd.ID, "nginx", domain.CategoryServer)
	score := 9.8
	_, err := svc.CreateVulnerability(ctx, sd.ID, domain.CreateVulnerabilityRequest{
		Title:    "SQLi",
		Severity: domain.SeverityCritical,
		CVSS:     &score,
		CVE:      "CVE-2024-0001",
	})
	require.NoError(t, err)

	bundle, err := svc.ExportProject(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, "Acme", bundle.Project.Name)
	require.Len(t, bundle.Subdomains, 2)
	assert.Equal(t, "app.acme.test", bundle.Subdomains[0].Subdomain)
	assert.Equal(t, []domain.ExportTechnology{{Technology: "nginx", Category: domain.CategoryServer}}, bundle.Subdomains[0].Technologies)
	require.Len(t, bundle.Subdomains[0].Vulnerabilities, 1)
	assert.Equal(t, "CVE-2024-0001", bundle.Subdomains[0].Vulnerabilities[0].CVE)
	assert.Equal(t, domain.VulnOpen, bundle.Subdomains[0].Vulnerabilities[0].Status)

	empty := bundle.Subdomains[1]
	assert.NotNil(t, empty.Technologies)
	assert.NotNil(t, empty.Vulnerabilities)

	assert.Equal(t, 2, bundle.Statistics.TotalSubdomains)
	assert.Equal(t, 1, bundle.Statistics.VulnerabilitiesBySeverity.Critical)
	assert.False(t, bundle.ExportDate.IsZero())
}

// Two exports of an unchanged hierarchy differ only in their timestamp.
func TestExportIsStableAcrossReads(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tr := buildTree(t, svc, "acme", 3)

	first, err := svc.ExportProject(ctx, tr.project.ID)
	require.NoError(t, err)
	second, err := svc.ExportProject(ctx, tr.project.ID)
	require.NoError(t, err)

	assert.True(t, second.ExportDate.After(first.ExportDate))
	if diff := cmp.Diff(first, second, cmpopts.IgnoreFields(domain.ExportBundle{}, "ExportDate")); diff != "" {
		t.Errorf("exports differ (-first +second):\n%s", diff)
	}
}
