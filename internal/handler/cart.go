package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/history"
)

// GetCart returns the caller's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.CartView(h.token(r))
	h.writeCart(w, r, http.StatusOK, snap, err)
}

// AddItem adds a product to the cart at its current catalog price.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var (
		productID string
		quantity  = 1
	)
	err := readObject(w, r, func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			productID, err = d.Str()
		case "quantity":
			quantity, err = d.Int()
		default:
			err = d.Skip()
		}
		return err
	})
	if err == nil && productID == "" {
		err = invalidBody(errors.New("productId is required"))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	snap, err := h.sessions.AddToCart(r.Context(), h.token(r), productID, quantity)
	h.writeCart(w, r, http.StatusOK, snap, err)
}

// UpdateItem sets the quantity of a cart line. Zero removes the line.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	quantity, found := 0, false
	err := readObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		var err error
		quantity, err = d.Int()
		found = true
		return err
	})
	if err == nil && !found {
		err = invalidBody(errors.New("quantity is required"))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	snap, err := h.sessions.UpdateCartQuantity(h.token(r), r.PathValue("productId"), quantity)
	h.writeCart(w, r, http.StatusOK, snap, err)
}

// RemoveItem drops a line from the cart. Removing an absent line succeeds.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.RemoveFromCart(h.token(r), r.PathValue("productId"))
	h.writeCart(w, r, http.StatusOK, snap, err)
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.ClearCart(h.token(r))
	h.writeCart(w, r, http.StatusOK, snap, err)
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, status int, snap cart.Snapshot, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, func(e *jx.Encoder) { encodeSnapshot(e, snap) })
}

// GetHistory returns the caller's browse history, most recent first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.sessions.BrowseHistory(h.token(r))
	h.writeHistory(w, r, entries, err)
}

// RecordBrowse records a product view in the browse history.
func (h *Handler) RecordBrowse(w http.ResponseWriter, r *http.Request) {
	var productID string
	err := readObject(w, r, func(d *jx.Decoder, key string) error {
		if key != "productId" {
			return d.Skip()
		}
		var err error
		productID, err = d.Str()
		return err
	})
	if err == nil && productID == "" {
		err = invalidBody(errors.New("productId is required"))
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := h.sessions.RecordBrowse(r.Context(), h.token(r), productID)
	h.writeHistory(w, r, entries, err)
}

// ClearHistory empties the caller's browse history.
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	err := h.sessions.ClearBrowseHistory(h.token(r))
	h.writeHistory(w, r, []history.Entry{}, err)
}

func (h *Handler) writeHistory(w http.ResponseWriter, r *http.Request, entries []history.Entry, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeHistory(e, entries) })
}
