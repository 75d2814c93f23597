package service

import (
	"context"
	"errors"

	"github.com/bcnelson/recon-tracker/internal/domain"
	"go.uber.org/zap"
)

// cascadeStep is one store call of a cascade deletion.
type cascadeStep struct {
	name string
	run  func(ctx context.Context) error
}

// DeleteSubdomain removes a subdomain together with its technologies and
// vulnerabilities, children first.
func (s *Service) DeleteSubdomain(ctx context.Context, id string) error {
	if _, err := s.store.GetSubdomain(ctx, id); err != nil {
		return err
	}

	ids := []string{id}
	return s.runCascade(ctx, domain.KindSubdomain, id, []cascadeStep{
		{"delete technologies", func(ctx context.Context) error {
			return s.store.DeleteAllTechnologiesForSubdomains(ctx, ids)
		}},
		{"delete vulnerabilities", func(ctx context.Context) error {
			return s.store.DeleteAllVulnerabilitiesForSubdomains(ctx, ids)
		}},
		{"delete subdomain", func(ctx context.Context) error {
			return s.store.DeleteSubdomain(ctx, id)
		}},
	})
}

// DeleteProject removes a project and its whole subtree: technologies and
// vulnerabilities of every subdomain in one batch each, then the subdomains,
// then the project.
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	if _, err := s.store.GetProject(ctx, id); err != nil {
		return err
	}

	var ids []string
	return s.runCascade(ctx, domain.KindProject, id, []cascadeStep{
		{"list subdomains", func(ctx context.Context) error {
			subdomains, err := s.store.ListSubdomains(ctx, id)
			if err != nil {
				return err
			}
			ids = make([]string, 0, len(subdomains))
			for _, sd := range subdomains {
				ids = append(ids, sd.ID)
			}
			return nil
		}},
		{"delete technologies", func(ctx context.Context) error {
			return s.store.DeleteAllTechnologiesForSubdomains(ctx, ids)
		}},
		{"delete vulnerabilities", func(ctx context.Context) error {
			return s.store.DeleteAllVulnerabilitiesForSubdomains(ctx, ids)
		}},
		{"delete subdomains", func(ctx context.Context) error {
			return s.store.DeleteAllSubdomainsForProject(ctx, id)
		}},
		{"delete project", func(ctx context.Context) error {
			return s.store.DeleteProject(ctx, id)
		}},
	})
}

// runCascade executes steps in order. Any failure is reported as an
// InconsistentStateError, except a NotFound on the final step, which means a
// concurrent deletion of the same root finished first.
//
// Caller cancellation does not interrupt a cascade once it has started.
func (s *Service) runCascade(ctx context.Context, kind domain.Kind, rootID string, steps []cascadeStep) error {
	ctx = context.WithoutCancel(ctx)
	log := s.log.With(zap.Stringer("kind", kind), zap.String("root_id", rootID))

	for i, step := range steps {
		err := step.run(ctx)
		if err == nil {
			continue
		}
		if i == len(steps)-1 && errors.Is(err, domain.ErrNotFound) {
			log.Info("cascade root already deleted", zap.String("step", step.name))
			return domain.ErrNotFound
		}

		log.Error("cascade deletion failed part-way, hierarchy needs operator attention",
			zap.String("step", step.name),
			zap.Int("completed_steps", i),
			zap.Int("total_steps", len(steps)),
			zap.Error(err))
		return &domain.InconsistentStateError{
			Kind:   kind,
			RootID: rootID,
			Step:   step.name,
			Err:    err,
		}
	}

	log.Info("cascade deletion complete")
	return nil
}
