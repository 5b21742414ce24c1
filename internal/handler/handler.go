// Package handler exposes sessions, carts and checkout over HTTP.
package handler

import (
	"net/http"

	"github.com/xenking/kart-checkout/internal/checkout"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/product"
	"github.com/xenking/kart-checkout/internal/session"
)

// TokenHeader carries the session token for clients that do not use cookies.
const TokenHeader = "X-Session-Token"

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// CookieName is the name of the session cookie.
	CookieName string
	// SecureCookie marks the session cookie Secure.
	SecureCookie bool
	// ImageBaseURL is prepended to relative image paths in product responses.
	ImageBaseURL string
}

// Handler serves the shop API.
type Handler struct {
	sessions *session.Manager
	checkout *checkout.Pipeline
	products product.Repository
	orders   order.Repository

	cookieName   string
	secureCookie bool
	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	sessions *session.Manager,
	pipeline *checkout.Pipeline,
	products product.Repository,
	orders order.Repository,
) *Handler {
	name := cfg.CookieName
	if name == "" {
		name = "kart_session"
	}
	return &Handler{
		sessions:     sessions,
		checkout:     pipeline,
		products:     products,
		orders:       orders,
		cookieName:   name,
		secureCookie: cfg.SecureCookie,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/session", h.OpenSession)
	mux.HandleFunc("GET /api/session", h.GetSession)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/logout", h.Logout)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)
	mux.HandleFunc("POST /api/cart/items", h.AddItem)
	mux.HandleFunc("PUT /api/cart/items/{productId}", h.UpdateItem)
	mux.HandleFunc("DELETE /api/cart/items/{productId}", h.RemoveItem)

	mux.HandleFunc("GET /api/history", h.GetHistory)
	mux.HandleFunc("POST /api/history", h.RecordBrowse)
	mux.HandleFunc("DELETE /api/history", h.ClearHistory)

	mux.HandleFunc("GET /api/products", h.SearchProducts)
	mux.HandleFunc("GET /api/products/{productId}", h.GetProduct)

	mux.HandleFunc("POST /api/checkout", h.BeginCheckout)
	mux.HandleFunc("POST /api/checkout/payment", h.SubmitPayment)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
}

// token returns the session token from the header or, failing that, the
// session cookie.
func (h *Handler) token(r *http.Request) string {
	if v := r.Header.Get(TokenHeader); v != "" {
		return v
	}
	if c, err := r.Cookie(h.cookieName); err == nil {
		return c.Value
	}
	return ""
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
