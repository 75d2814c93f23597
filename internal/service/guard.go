package service

import (
	"context"
	"errors"

	"github.com/bcnelson/recon-tracker/internal/domain"
)

// checkSubdomainAvailable reports domain.ErrDuplicateKey when name is already
// used by a subdomain of projectID other than exceptID. name must already be
// normalized. The store's unique index remains the authority; this only
// rejects the common case early.
func (s *Service) checkSubdomainAvailable(ctx context.Context, projectID, name, exceptID string) error {
	existing, err := s.store.GetSubdomainByName(ctx, projectID, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID == exceptID:
		return nil
	default:
		return domain.DuplicateSubdomain(name)
	}
}

// translateUniqueError converts the store's uniqueness signal into
// domain.ErrDuplicateKey. A concurrent writer that passed the fast-path check
// ends up here.
func translateUniqueError(err error, name string) error {
	if errors.Is(err, domain.ErrAlreadyExists) {
		return domain.DuplicateSubdomain(name)
	}
	return err
}
