// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"

	"github.com/ericfisherdev/nextslot/internal/domain/model"
)

// Authenticator defines the driven port for obtaining a fresh Session from
// the booking API. Implementations do not retry; a failure is returned as a
// *model.AuthError.
type Authenticator interface {
	Authenticate(ctx context.Context) (model.Session, error)
}

// TokenProvider hands out a bearer token for the next upstream call.
type TokenProvider interface {
	// Token returns a token that is valid for at least the safety margin,
	// authenticating first if needed.
	Token(ctx context.Context) (string, error)
	// Invalidate discards the cached session if it still holds token, so the
	// next Token call re-authenticates. A token that was already replaced is
	// ignored.
	Invalidate(token string)
}
