package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-checkout/internal/domain/payment"
)

// BeginCheckout returns the cart under review. It fails with 409 when the cart
// is empty.
func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	snap, err := h.checkout.BeginCheckout(r.Context(), h.token(r))
	h.writeCart(w, r, http.StatusOK, snap, err)
}

// SubmitPayment validates the card, places the order and empties the cart.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var (
		details payment.Details
		expiry  string
	)
	err := readObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "holderName":
			details.HolderName, err = d.Str()
		case "cardNumber":
			details.CardNumber, err = d.Str()
		case "cvv":
			details.CVV, err = d.Str()
		case "expiryDate":
			expiry, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	// An unparseable expiry is left for the validator to reject, after the
	// session and cart checks.
	details.ExpiryInput = expiry
	if ym, err := payment.ParseYearMonth(expiry); err == nil {
		details.Expiry = ym
	}

	res, err := h.checkout.SubmitPayment(r.Context(), h.token(r), details)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("status", func(e *jx.Encoder) { e.Str(res.Status.String()) })
			e.Field("order", func(e *jx.Encoder) { encodeOrder(e, *res.Order) })
		})
	})
}

// ListOrders returns the orders placed by the caller's identity, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	identityID, err := h.sessions.Identity(h.token(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	orders, err := h.orders.ListByIdentity(r.Context(), identityID)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list orders"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, o := range orders {
				encodeOrder(e, o)
			}
		})
	})
}
