package session

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors returned by Manager operations.
var (
	// ErrNotAuthenticated is returned for absent, anonymous or logged out sessions.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionExpired is returned on the first access after the idle timeout
	// elapsed. The session is destroyed; later accesses see ErrNotAuthenticated.
	ErrSessionExpired = errors.New("session expired")
	// ErrIdentityStoreUnavailable wraps failures of the credential store other
	// than a credential mismatch.
	ErrIdentityStoreUnavailable = errors.New("identity store unavailable")
	// ErrCatalogLookupFailed matches every *CatalogLookupError.
	ErrCatalogLookupFailed = errors.New("catalog lookup failed")
	// ErrTokenGeneration is returned when a session token cannot be generated.
	ErrTokenGeneration = errors.New("failed to generate session token")
)

// CatalogLookupError reports a failed product lookup. The underlying error,
// e.g. product.ErrNotFound, stays reachable through errors.Is.
type CatalogLookupError struct {
	ProductID string
	Err       error
}

func (e *CatalogLookupError) Error() string {
	return fmt.Sprintf("lookup product %s: %v", e.ProductID, e.Err)
}

func (e *CatalogLookupError) Unwrap() error {
	return e.Err
}

// Is reports ErrCatalogLookupFailed equivalence.
func (e *CatalogLookupError) Is(target error) bool {
	return target == ErrCatalogLookupFailed
}
