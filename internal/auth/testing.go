package auth

import "context"

// SetClaimsForTesting injects claims into a context to simulate an
// authenticated request in tests.
func SetClaimsForTesting(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}
