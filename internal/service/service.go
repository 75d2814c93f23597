// Package service implements the engagement tracker's operations on top of a
// storage.Storage: validated CRUD for the four record kinds, subdomain
// uniqueness, cascade deletion and the aggregate read views.
package service

import (
	"time"

	"github.com/bcnelson/recon-tracker/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultConcurrency is the aggregation fan-out used when none is configured.
const DefaultConcurrency = 8

// Service coordinates every operation on the hierarchy.
type Service struct {
	store       storage.Storage
	log         *zap.Logger
	concurrency int
	now         func() time.Time
	newID       func() string
}

// New creates a new Service. concurrency bounds how many subdomains the
// aggregate views load in parallel.
func New(store storage.Storage, logger *zap.Logger, concurrency int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Service{
		store:       store,
		log:         logger.Named("service"),
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
	}
}
