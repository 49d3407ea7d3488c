package application

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
	"github.com/ericfisherdev/nextslot/internal/domain/port/driven"
)

// DirectoryService reads the services and providers configured on the
// booking account, so catalog entries can be checked against the upstream.
type DirectoryService struct {
	dir    driven.Directory
	logger *slog.Logger
}

// NewDirectoryService creates a DirectoryService backed by dir.
func NewDirectoryService(dir driven.Directory, logger *slog.Logger) *DirectoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryService{dir: dir, logger: logger}
}

// Services returns the upstream services. Inactive ones are dropped unless
// includeInactive is set.
func (s *DirectoryService) Services(ctx context.Context, includeInactive bool) ([]model.BookableService, error) {
	services, err := s.dir.ListServices(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.BookableService, 0, len(services))
	for _, svc := range services {
		if svc.Active || includeInactive {
			out = append(out, svc)
		}
	}

	s.logger.Debug("upstream services listed", "total", len(services), "returned", len(out))
	return out, nil
}

// Providers returns the upstream providers. Inactive ones are dropped unless
// includeInactive is set.
func (s *DirectoryService) Providers(ctx context.Context, includeInactive bool) ([]model.Provider, error) {
	providers, err := s.dir.ListProviders(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.Provider, 0, len(providers))
	for _, p := range providers {
		if p.Active || includeInactive {
			out = append(out, p)
		}
	}

	s.logger.Debug("upstream providers listed", "total", len(providers), "returned", len(out))
	return out, nil
}
