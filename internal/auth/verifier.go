package auth

import "context"

// Identity is a verified assertion from a federated identity provider.
type Identity struct {
	Subject string // Provider-scoped stable user id.
	Email   string
	Name    string
	Picture string
}

// IdentityVerifier verifies a federated identity assertion and extracts the
// asserted identity. Implementations must reject assertions issued for a
// different audience.
type IdentityVerifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}
