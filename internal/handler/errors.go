package handler

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/checkout"
	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/identity"
	"github.com/xenking/kart-checkout/internal/domain/payment"
	"github.com/xenking/kart-checkout/internal/domain/product"
	"github.com/xenking/kart-checkout/internal/session"
)

// errInvalidBody marks malformed request bodies.
var errInvalidBody = errors.New("invalid request body")

func invalidBody(err error) error {
	return fmt.Errorf("%w: %w", errInvalidBody, err)
}

// statusOf maps domain errors to HTTP status codes. Unknown errors map to 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrSessionExpired),
		errors.Is(err, session.ErrNotAuthenticated),
		errors.Is(err, identity.ErrAuthFailure):
		return http.StatusUnauthorized
	// Must precede ErrCatalogLookupFailed, which wraps product.ErrNotFound.
	case errors.Is(err, product.ErrNotFound),
		errors.Is(err, cart.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, checkout.ErrEmptyCart):
		return http.StatusConflict
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrQuantityTooLarge),
		errors.Is(err, payment.ErrPaymentRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, checkout.ErrOrderPersistFailed),
		errors.Is(err, session.ErrIdentityStoreUnavailable),
		errors.Is(err, session.ErrCatalogLookupFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// serverErrorMessage returns the fixed client-facing text for a server side
// failure.
func serverErrorMessage(err error) string {
	switch {
	case errors.Is(err, checkout.ErrOrderPersistFailed):
		return "order could not be saved; the cart was kept"
	case errors.Is(err, session.ErrIdentityStoreUnavailable):
		return "identity store unavailable"
	case errors.Is(err, session.ErrCatalogLookupFailed):
		return "product catalog unavailable"
	default:
		return "internal server error"
	}
}

// writeError writes err as {"code":...,"message":...}. Payment rejections also
// carry the offending field. Server side failures are logged and their details
// are not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()

	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
		msg = serverErrorMessage(err)
	}
	if status == http.StatusUnauthorized && errors.Is(err, identity.ErrAuthFailure) {
		msg = identity.ErrAuthFailure.Error()
	}

	var rejected *payment.RejectedError
	hasField := errors.As(err, &rejected)

	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
			if hasField {
				e.Field("field", func(e *jx.Encoder) { e.Str(rejected.Field) })
			}
		})
	})
}
