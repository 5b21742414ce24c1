package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/session"
)

// SearchProducts lists products whose name or category contains the q query
// parameter. Without q the whole catalog is returned.
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, errors.Wrap(err, "search products"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, p := range products {
				h.encodeProduct(e, p)
			}
		})
	})
}

// GetProduct returns a single product. For an authenticated caller the view is
// also recorded in the browse history.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("productId"))
	if err != nil {
		writeError(w, r, errors.Wrap(err, "get product"))
		return
	}

	if token := h.token(r); token != "" {
		_, err := h.sessions.RecordView(token, *p)
		if err != nil && !errors.Is(err, session.ErrNotAuthenticated) && !errors.Is(err, session.ErrSessionExpired) {
			zctx.From(r.Context()).Warn("Record product view", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeProduct(e, *p) })
}
