package auth

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/idtoken"
)

// GoogleVerifier validates Google ID tokens against the provider's public
// keys and the configured OAuth client id.
type GoogleVerifier struct {
	clientID string
}

// NewGoogleVerifier constructs a GoogleVerifier for the given client id.
func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: strings.TrimSpace(clientID)}
}

// Verify checks the ID token signature, expiry, and audience, and returns the
// asserted identity.
func (v *GoogleVerifier) Verify(ctx context.Context, credential string) (*Identity, error) {
	if v == nil || v.clientID == "" {
		return nil, fmt.Errorf("auth: google verifier not configured")
	}
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return nil, fmt.Errorf("auth: empty credential")
	}

	payload, err := idtoken.Validate(ctx, credential, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("auth: verify google token: %w", err)
	}

	identity := &Identity{Subject: payload.Subject}
	if email, ok := payload.Claims["email"].(string); ok {
		identity.Email = strings.ToLower(strings.TrimSpace(email))
	}
	if name, ok := payload.Claims["name"].(string); ok {
		identity.Name = strings.TrimSpace(name)
	}
	if picture, ok := payload.Claims["picture"].(string); ok {
		identity.Picture = picture
	}
	if identity.Subject == "" || identity.Email == "" {
		return nil, fmt.Errorf("auth: google token missing subject or email")
	}
	return identity, nil
}
