package service

import (
	"context"
	"errors"
	"testing"

	"github.com/bcnelson/recon-tracker/internal/domain"
	"github.com/bcnelson/recon-tracker/internal/storage"
	"github.com/bcnelson/recon-tracker/internal/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type tree struct {
	project *domain.Project
	subs    []*domain.Subdomain
	techs   []*domain.Technology
	vulns   []*domain.Vulnerability
}

// buildTree creates a project with n subdomains, each with two technologies
// and three vulnerabilities.
func buildTree(t *testing.T, svc *Service, name string, n int) tree {
	t.Helper()
	tr := tree{project: mustProject(t, svc, name)}
	for i := 0; i < n; i++ {
		sd := mustSubdomain(t, svc, tr.project.ID, string(rune('a'+i))+"."+name+".test")
		tr.subs = append(tr.subs, sd)
		tr.techs = append(tr.techs,
			mustTechnology(t, svc, sd.ID, "nginx", domain.CategoryServer),
			mustTechnology(t, svc, sd.ID, "react", domain.CategoryFramework))
		tr.vulns = append(tr.vulns,
			mustVulnerability(t, svc, sd.ID, "SQLi", domain.SeverityCritical),
			mustVulnerability(t, svc, sd.ID, "XSS", domain.SeverityMedium),
			mustVulnerability(t, svc, sd.ID, "Banner", domain.SeverityInfo))
	}
	return tr
}

func assertTreeGone(t *testing.T, svc *Service, tr tree) {
	t.Helper()
	ctx := context.Background()

	_, err := svc.GetProject(ctx, tr.project.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	subs, err := svc.ListSubdomains(ctx, tr.project.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	for _, sd := range tr.subs {
		_, err := svc.GetSubdomain(ctx, sd.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		techs, err := svc.ListTechnologies(ctx, sd.ID)
		require.NoError(t, err)
		assert.Empty(t, techs)
		vulns, err := svc.ListVulnerabilities(ctx, sd.ID)
		require.NoError(t, err)
		assert.Empty(t, vulns)
	}
	for _, tech := range tr.techs {
		_, err := svc.GetTechnology(ctx, tech.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
	for _, vuln := range tr.vulns {
		_, err := svc.GetVulnerability(ctx, vuln.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
}

// After DeleteProject nothing rooted at the project is reachable.
func TestDeleteProjectRemovesSubtree(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		svc := newTestService(t)
		victim := buildTree(t, svc, "victim", n)
		bystander := buildTree(t, svc, "bystander", 2)

		require.NoError(t, svc.DeleteProject(context.Background(), victim.project.ID))
		assertTreeGone(t, svc, victim)

		stats, err := svc.ProjectStats(context.Background(), bystander.project.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.TotalSubdomains)
		assert.Equal(t, 6, stats.TotalVulnerabilities)
	}
}

// A technology two levels down goes with its project.
func TestDeleteProjectRemovesTechnology(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	p := mustProject(t, svc, "Acme")
	sd := mustSubdomain(t, svc, p.ID, "app.acme.test")
	tech := mustTechnology(t, svc, sd.ID, "nginx", domain.CategoryServer)

	require.NoError(t, svc.DeleteProject(ctx, p.ID))

	_, err := svc.GetTechnology(ctx, tech.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteSubdomainLeavesSiblings(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tr := buildTree(t, svc, "acme", 2)

	require.NoError(t, svc.DeleteSubdomain(ctx, tr.subs[0].ID))

	_, err := svc.GetSubdomain(ctx, tr.subs[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GetTechnology(ctx, tr.techs[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GetVulnerability(ctx, tr.vulns[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	detail, err := svc.SubdomainDetail(ctx, tr.subs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, detail.Stats.TotalTechnologies)
	assert.Equal(t, 3, detail.Stats.TotalVulnerabilities)

	assert.ErrorIs(t, svc.DeleteSubdomain(ctx, tr.subs[0].ID), domain.ErrNotFound)
}

// recordingStore records the order of destructive calls.
type recordingStore struct {
	storage.Storage
	calls []string
}

func (r *recordingStore) DeleteAllTechnologiesForSubdomains(ctx context.Context, ids []string) error {
	r.calls = append(r.calls, "technologies")
	return r.Storage.DeleteAllTechnologiesForSubdomains(ctx, ids)
}

func (r *recordingStore) DeleteAllVulnerabilitiesForSubdomains(ctx context.Context, ids []string) error {
	r.calls = append(r.calls, "vulnerabilities")
	return r.Storage.DeleteAllVulnerabilitiesForSubdomains(ctx, ids)
}

func (r *recordingStore) DeleteAllSubdomainsForProject(ctx context.Context, id string) error {
	r.calls = append(r.calls, "subdomains")
	return r.Storage.DeleteAllSubdomainsForProject(ctx, id)
}

func (r *recordingStore) DeleteSubdomain(ctx context.Context, id string) error {
	r.calls = append(r.calls, "subdomain")
	return r.Storage.DeleteSubdomain(ctx, id)
}

func (r *recordingStore) DeleteProject(ctx context.Context, id string) error {
	r.calls = append(r.calls, "project")
	return r.Storage.DeleteProject(ctx, id)
}

func TestCascadeOrderIsBottomUpAndBatched(t *testing.T) {
	store := &recordingStore{Storage: memory.New()}
	svc := newTestServiceWithStore(t, store)
	ctx := context.Background()
	tr := buildTree(t, svc, "acme", 3)

	require.NoError(t, svc.DeleteSubdomain(ctx, tr.subs[0].ID))
	assert.Equal(t, []string{"technologies", "vulnerabilities", "subdomain"}, store.calls)

	store.calls = nil
	require.NoError(t, svc.DeleteProject(ctx, tr.project.ID))
	// One batch call per kind regardless of the number of subdomains.
	assert.Equal(t, []string{"technologies", "vulnerabilities", "subdomains", "project"}, store.calls)
}

// failingStore fails one cascade step.
type failingStore struct {
	storage.Storage
	failVulnerabilities bool
	failProject         error
}

func (f *failingStore) DeleteAllVulnerabilitiesForSubdomains(ctx context.Context, ids []string) error {
	if f.failVulnerabilities {
		return errors.New("disk on fire")
	}
	return f.Storage.DeleteAllVulnerabilitiesForSubdomains(ctx, ids)
}

func (f *failingStore) DeleteProject(ctx context.Context, id string) error {
	if f.failProject != nil {
		return f.failProject
	}
	return f.Storage.DeleteProject(ctx, id)
}

func TestCascadeFailureIsInconsistentState(t *testing.T) {
	store := &failingStore{Storage: memory.New()}
	core, logs := observer.New(zapcore.ErrorLevel)
	svc := New(store, zap.New(core), 4)
	ctx := context.Background()
	tr := buildTree(t, svc, "acme", 2)

	store.failVulnerabilities = true
	err := svc.DeleteProject(ctx, tr.project.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInconsistentState)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	var inconsistent *domain.InconsistentStateError
	require.ErrorAs(t, err, &inconsistent)
	assert.Equal(t, domain.KindProject, inconsistent.Kind)
	assert.Equal(t, tr.project.ID, inconsistent.RootID)
	assert.Equal(t, "delete vulnerabilities", inconsistent.Step)

	// Surfaced loudly.
	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "delete vulnerabilities", fields["step"])
	assert.Equal(t, tr.project.ID, fields["root_id"])

	// Technologies went first, so the hierarchy is now partial; the root survives.
	_, err = svc.GetProject(ctx, tr.project.ID)
	assert.NoError(t, err)
	_, err = svc.GetTechnology(ctx, tr.techs[0].ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.GetVulnerability(ctx, tr.vulns[0].ID)
	assert.NoError(t, err)

	// Not retried automatically, but a later call can finish the job.
	store.failVulnerabilities = false
	require.NoError(t, svc.DeleteProject(ctx, tr.project.ID))
	assertTreeGone(t, svc, tr)
}

func TestCascadeLosingConcurrentDeleteIsNotFound(t *testing.T) {
	store := &failingStore{Storage: memory.New(), failProject: domain.ErrNotFound}
	svc := newTestServiceWithStore(t, store)
	tr := buildTree(t, svc, "acme", 1)

	err := svc.DeleteProject(context.Background(), tr.project.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrInconsistentState)
}

func TestCascadeIgnoresCallerCancellation(t *testing.T) {
	svc := newTestService(t)
	tr := buildTree(t, svc, "acme", 2)

	ctx, cancel := context.WithCancel(context.Background())
	// The root lookup happens before the cascade, so cancel only afterwards
	// by wrapping the store.
	store := &cancelAfterLookup{Storage: svc.store, cancel: cancel}
	svc.store = store

	require.NoError(t, svc.DeleteProject(ctx, tr.project.ID))
	assertTreeGone(t, svc, tr)
}

type cancelAfterLookup struct {
	storage.Storage
	cancel context.CancelFunc
}

func (c *cancelAfterLookup) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	p, err := c.Storage.GetProject(ctx, id)
	c.cancel()
	return p, err
}

func (c *cancelAfterLookup) DeleteAllTechnologiesForSubdomains(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.Storage.DeleteAllTechnologiesForSubdomains(ctx, ids)
}

// A child inserted behind the cascade blocks the parent delete instead of
// being orphaned.
type lateInsertStore struct {
	storage.Storage
	insert func()
}

func (l *lateInsertStore) DeleteAllSubdomainsForProject(ctx context.Context, id string) error {
	if l.insert != nil {
		l.insert()
		l.insert = nil
	}
	return l.Storage.DeleteAllSubdomainsForProject(ctx, id)
}

func TestCascadeRacingChildInsertLeavesNoOrphans(t *testing.T) {
	store := &lateInsertStore{Storage: memory.New()}
	svc := newTestServiceWithStore(t, store)
	ctx := context.Background()
	tr := buildTree(t, svc, "acme", 1)

	var late *domain.Technology
	store.insert = func() {
		late = mustTechnology(t, svc, tr.subs[0].ID, "late", domain.CategoryOther)
	}

	err := svc.DeleteProject(ctx, tr.project.ID)
	assert.ErrorIs(t, err, domain.ErrInconsistentState)
	assert.ErrorIs(t, err, domain.ErrReferenced)

	// The late child still has its whole ownership chain.
	got, err := svc.GetTechnology(ctx, late.ID)
	require.NoError(t, err)
	sd, err := svc.GetSubdomain(ctx, got.SubdomainID)
	require.NoError(t, err)
	_, err = svc.GetProject(ctx, sd.ProjectID)
	require.NoError(t, err)
}
