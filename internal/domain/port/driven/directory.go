package driven

import (
	"context"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
)

// Directory defines the driven port for reading the services and providers
// configured on the booking account. Lists are sorted by ID.
type Directory interface {
	ListServices(ctx context.Context) ([]model.BookableService, error)
	ListProviders(ctx context.Context) ([]model.Provider, error)
}
