package auth

import "context"

// Refresher defines the contract for any component that can exchange a
// refresh token for a new token pair against the authentication endpoint.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}
