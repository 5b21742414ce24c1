package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-checkout/internal/checkout"
	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/identity"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/payment"
	"github.com/xenking/kart-checkout/internal/domain/product"
	"github.com/xenking/kart-checkout/internal/session"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products []product.Product
	getErr   error
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, product.ErrNotFound
}

func (m *mockProductRepo) Search(_ context.Context, term string) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(term)) {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockVerifier struct {
	err error
}

func (m *mockVerifier) Verify(_ context.Context, identifier, secret string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if secret != "secret" {
		return "", identity.ErrAuthFailure
	}
	return "id-" + identifier, nil
}

type mockOrderRepo struct {
	mu      sync.Mutex
	orders  []order.Order
	err     error
	listErr error
}

func (m *mockOrderRepo) Persist(_ context.Context, d order.Draft) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	id := fmt.Sprintf("order-%d", len(m.orders)+1)
	m.orders = append(m.orders, *d.Order(id))
	return id, nil
}

func (m *mockOrderRepo) ListByIdentity(_ context.Context, identityID string) ([]order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []order.Order
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].IdentityID == identityID {
			out = append(out, m.orders[i])
		}
	}
	return out, nil
}

// --- Helpers ---

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestProduct(id, name, price string) product.Product {
	return product.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Category: "test",
		Image: product.Image{
			Thumbnail: "thumb.jpg",
			Mobile:    "mobile.jpg",
			Tablet:    "tablet.jpg",
			Desktop:   "desktop.jpg",
		},
	}
}

type testServer struct {
	srv      *httptest.Server
	products *mockProductRepo
	verifier *mockVerifier
	orders   *mockOrderRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		products: &mockProductRepo{products: []product.Product{
			newTestProduct("p1", "Widget", "10.00"),
			newTestProduct("p2", "Gadget", "2.50"),
		}},
		verifier: &mockVerifier{},
		orders:   &mockOrderRepo{},
	}

	clock := func() time.Time { return testNow }
	sessions := session.NewManager(session.NewMemoryStore(), ts.products, ts.verifier, session.WithClock(clock))
	pipeline, err := checkout.NewPipeline(sessions, payment.NewSimulatedGatewayAt(clock), ts.orders)
	require.NoError(t, err)

	mux := http.NewServeMux()
	New(Config{ImageBaseURL: "https://cdn.example/"}, sessions, pipeline, ts.products, ts.orders).Register(mux)

	ts.srv = httptest.NewServer(mux)
	t.Cleanup(ts.srv.Close)
	return ts
}

type response struct {
	Code    int
	Header  http.Header
	Cookies []*http.Cookie
	Body    map[string]any
	List    []any
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := response{Code: resp.StatusCode, Header: resp.Header, Cookies: resp.Cookies()}
	if resp.StatusCode == http.StatusNoContent {
		return out
	}
	var raw any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	switch v := raw.(type) {
	case map[string]any:
		out.Body = v
	case []any:
		out.List = v
	}
	return out
}

func (ts *testServer) login(t *testing.T, identifier string) string {
	t.Helper()
	resp := ts.do(t, http.MethodPost, "/api/login", "", map[string]string{"identifier": identifier, "secret": "secret"})
	require.Equal(t, http.StatusOK, resp.Code)
	token, _ := resp.Body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func (ts *testServer) add(t *testing.T, token, productID string, qty int) response {
	t.Helper()
	return ts.do(t, http.MethodPost, "/api/cart/items", token, map[string]any{"productId": productID, "quantity": qty})
}

func validPayment() map[string]string {
	return map[string]string{
		"holderName": "Jane Doe",
		"cardNumber": "4111111111111111",
		"cvv":        "123",
		"expiryDate": "03-2027",
	}
}

// --- Tests ---

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	t.Run("SetsCookie", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/login", "", map[string]string{"identifier": "alice", "secret": "secret"})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "id-alice", resp.Body["identityId"])

		require.Len(t, resp.Cookies, 1)
		c := resp.Cookies[0]
		assert.Equal(t, "kart_session", c.Name)
		assert.Equal(t, resp.Body["token"], c.Value)
		assert.True(t, c.HttpOnly)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/login", "", map[string]string{"identifier": "alice", "secret": "nope"})
		assert.Equal(t, http.StatusUnauthorized, resp.Code)
		assert.Equal(t, "invalid credentials", resp.Body["message"])
	})

	t.Run("MissingFields", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/login", "", map[string]string{"identifier": "alice"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/api/login", "", `{"identifier":`)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, float64(400), resp.Body["code"])
	})

	t.Run("IdentityStoreDown", func(t *testing.T) {
		ts.verifier.err = errors.New("connection refused")
		defer func() { ts.verifier.err = nil }()

		resp := ts.do(t, http.MethodPost, "/api/login", "", map[string]string{"identifier": "alice", "secret": "secret"})
		assert.Equal(t, http.StatusBadGateway, resp.Code)
		assert.Equal(t, "identity store unavailable", resp.Body["message"])
		assert.NotContains(t, resp.Body["message"], "connection refused")
	})
}

func TestAnonymousSessionUpgrade(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodPost, "/api/session", "", nil)
	require.Equal(t, http.StatusCreated, resp.Code)
	anon := resp.Body["token"].(string)

	info := ts.do(t, http.MethodGet, "/api/session", anon, nil)
	require.Equal(t, http.StatusOK, info.Code)
	assert.Equal(t, "anonymous", info.Body["status"])

	// Cart needs an identity.
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/cart", anon, nil).Code)

	login := ts.do(t, http.MethodPost, "/api/login", anon, map[string]string{"identifier": "alice", "secret": "secret"})
	require.Equal(t, http.StatusOK, login.Code)
	assert.Equal(t, anon, login.Body["token"], "anonymous session is upgraded in place")

	info = ts.do(t, http.MethodGet, "/api/session", anon, nil)
	assert.Equal(t, "authenticated", info.Body["status"])
	assert.Equal(t, "id-alice", info.Body["identityId"])
}

func TestCookieToken(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "alice")

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, ts.srv.URL+"/api/cart", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "kart_session", Value: token})

	resp, err := ts.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCartEndpoints(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "alice")

	resp := ts.add(t, token, "p1", 2)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(20), resp.Body["total"])
	assert.Equal(t, float64(2), resp.Body["count"])

	resp = ts.add(t, token, "p2", 1)
	require.Equal(t, http.StatusOK, resp.Code)
	lines := resp.Body["lines"].([]any)
	require.Len(t, lines, 2)
	first := lines[0].(map[string]any)
	assert.Equal(t, "p1", first["productId"])
	assert.Equal(t, "Widget", first["productName"])
	assert.Equal(t, float64(10), first["unitPrice"])
	assert.Equal(t, float64(20), first["subtotal"])

	resp = ts.do(t, http.MethodPut, "/api/cart/items/p1", token, map[string]int{"quantity": 5})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(52.5), resp.Body["total"])

	resp = ts.do(t, http.MethodPut, "/api/cart/items/p3", token, map[string]int{"quantity": 1})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.do(t, http.MethodDelete, "/api/cart/items/p2", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(50), resp.Body["total"])

	resp = ts.do(t, http.MethodDelete, "/api/cart/items/p2", token, nil)
	assert.Equal(t, http.StatusOK, resp.Code, "removing an absent line succeeds")

	resp = ts.do(t, http.MethodDelete, "/api/cart", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(0), resp.Body["total"])
	assert.Empty(t, resp.Body["lines"])
}

func TestAddItem_Errors(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "alice")

	tests := []struct {
		name  string
		token string
		body  any
		want  int
	}{
		{name: "NoSession", token: "", body: map[string]any{"productId": "p1", "quantity": 1}, want: http.StatusUnauthorized},
		{name: "UnknownToken", token: "bogus", body: map[string]any{"productId": "p1", "quantity": 1}, want: http.StatusUnauthorized},
		{name: "ZeroQuantity", token: token, body: map[string]any{"productId": "p1", "quantity": 0}, want: http.StatusUnprocessableEntity},
		{name: "NegativeQuantity", token: token, body: map[string]any{"productId": "p1", "quantity": -3}, want: http.StatusUnprocessableEntity},
		{name: "QuantityTooLarge", token: token, body: map[string]any{"productId": "p1", "quantity": cart.MaxQuantity + 1}, want: http.StatusUnprocessableEntity},
		{name: "QuantityOverflow", token: token, body: `{"productId":"p1","quantity":9223372036854775807}`, want: http.StatusUnprocessableEntity},
		{name: "UnknownProduct", token: token, body: map[string]any{"productId": "nope", "quantity": 1}, want: http.StatusNotFound},
		{name: "MissingProductID", token: token, body: map[string]any{"quantity": 1}, want: http.StatusBadRequest},
		{name: "QuantityNotNumber", token: token, body: `{"productId":"p1","quantity":"two"}`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, http.MethodPost, "/api/cart/items", tt.token, tt.body)
			assert.Equal(t, tt.want, resp.Code)
			assert.Equal(t, float64(tt.want), resp.Body["code"])
		})
	}

	t.Run("CatalogDown", func(t *testing.T) {
		ts.products.getErr = errors.New("timeout")
		defer func() { ts.products.getErr = nil }()

		resp := ts.add(t, token, "p1", 1)
		assert.Equal(t, http.StatusBadGateway, resp.Code)
		assert.Equal(t, "product catalog unavailable", resp.Body["message"])
	})

	view := ts.do(t, http.MethodGet, "/api/cart", token, nil)
	assert.Empty(t, view.Body["lines"])
}

func TestQuantityDefaultsToOne(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "alice")

	resp := ts.do(t, http.MethodPost, "/api/cart/items", token, map[string]string{"productId": "p2"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(1), resp.Body["count"])
}

func TestLogoutAndRestore(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "alice")
	require.Equal(t, http.StatusOK, ts.add(t, token, "p1", 3).Code)

	resp := ts.do(t, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Len(t, resp.Cookies, 1)
	assert.Equal(t, -1, resp.Cookies[0].MaxAge)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/cart", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodPost, "/api/logout", token, nil).Code)

	next := ts.login(t, "alice")
	view := ts.do(t, http.MethodGet, "/api/cart", next, nil)
	require.Equal(t, http.StatusOK, view.Code)
	assert.Equal(t, float64(3), view.Body["count"])
}

func TestProducts(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, http.MethodGet, "/api/products?q=gad", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, resp.List, 1)
	p := resp.List[0].(map[string]any)
	assert.Equal(t, "p2", p["id"])
	assert.Equal(t, float64(2.5), p["price"])
	assert.Equal(t, "https://cdn.example/thumb.jpg", p["image"].(map[string]any)["thumbnail"])

	resp = ts.do(t, http.MethodGet, "/api/products/p1", "", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Widget", resp.Body["name"])

	resp = ts.do(t, http.MethodGet, "/api/products/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestProductViewRecordsHistory(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "alice")

	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/products/p1", token, nil).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/products/p2", token, nil).Code)
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/products/p1", token, nil).Code)

	resp := ts.do(t, http.MethodGet, "/api/history", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, resp.List, 2)
	assert.Equal(t, "p1", resp.List[0].(map[string]any)["productId"])
	assert.Equal(t, "p2", resp.List[1].(map[string]any)["productId"])

	resp = ts.do(t, http.MethodPost, "/api/history", token, map[string]string{"productId": "p2"})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "p2", resp.List[0].(map[string]any)["productId"])

	resp = ts.do(t, http.MethodPost, "/api/history", token, map[string]string{"productId": "nope"})
	assert.Equal(t, http.StatusNotFound, resp.Code)

	// Anonymous views are served but not recorded.
	anon := ts.do(t, http.MethodPost, "/api/session", "", nil).Body["token"].(string)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/products/p1", anon, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/history", anon, nil).Code)
}

func TestClearHistory(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "alice")
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/products/p1", token, nil).Code)

	resp := ts.do(t, http.MethodDelete, "/api/history", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, resp.List)

	resp = ts.do(t, http.MethodGet, "/api/history", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, resp.List)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodDelete, "/api/history", "", nil).Code)
}

func TestCheckoutFlow(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "alice")

	resp := ts.do(t, http.MethodPost, "/api/checkout", token, nil)
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = ts.do(t, http.MethodPost, "/api/checkout/payment", token, validPayment())
	assert.Equal(t, http.StatusConflict, resp.Code)

	require.Equal(t, http.StatusOK, ts.add(t, token, "p1", 2).Code)
	require.Equal(t, http.StatusOK, ts.add(t, token, "p2", 1).Code)

	resp = ts.do(t, http.MethodPost, "/api/checkout", token, nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, float64(22.5), resp.Body["total"])

	resp = ts.do(t, http.MethodPost, "/api/checkout/payment", token, validPayment())
	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "COMPLETED", resp.Body["status"])
	o := resp.Body["order"].(map[string]any)
	assert.Equal(t, "order-1", o["id"])
	assert.Equal(t, float64(22.5), o["total"])
	assert.Equal(t, "2026-10-15T12:00:00Z", o["createdAt"])
	assert.Len(t, o["lines"], 2)

	view := ts.do(t, http.MethodGet, "/api/cart", token, nil)
	assert.Empty(t, view.Body["lines"])

	orders := ts.do(t, http.MethodGet, "/api/orders", token, nil)
	require.Equal(t, http.StatusOK, orders.Code)
	require.Len(t, orders.List, 1)
	assert.Equal(t, "order-1", orders.List[0].(map[string]any)["id"])
}

func TestSubmitPayment_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p map[string]string)
		field  string
	}{
		{name: "Expired", modify: func(p map[string]string) { p["expiryDate"] = "09-2026" }, field: "expiryDate"},
		{name: "BadExpiryFormat", modify: func(p map[string]string) { p["expiryDate"] = "soon" }, field: "expiryDate"},
		{name: "MissingExpiry", modify: func(p map[string]string) { delete(p, "expiryDate") }, field: "expiryDate"},
		{name: "ShortCard", modify: func(p map[string]string) { p["cardNumber"] = "4111" }, field: "cardNumber"},
		{name: "BadCVV", modify: func(p map[string]string) { p["cvv"] = "12a" }, field: "cvv"},
		{name: "NoHolder", modify: func(p map[string]string) { p["holderName"] = "" }, field: "holderName"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			token := ts.login(t, "alice")
			require.Equal(t, http.StatusOK, ts.add(t, token, "p1", 1).Code)

			body := validPayment()
			tt.modify(body)
			resp := ts.do(t, http.MethodPost, "/api/checkout/payment", token, body)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
			assert.Equal(t, tt.field, resp.Body["field"])

			view := ts.do(t, http.MethodGet, "/api/cart", token, nil)
			assert.Equal(t, float64(1), view.Body["count"])
		})
	}
}

// Session and cart problems are reported before the card is looked at.
func TestSubmitPayment_MalformedExpiryOrdering(t *testing.T) {
	ts := newTestServer(t)
	body := validPayment()
	body["expiryDate"] = "garbage"

	resp := ts.do(t, http.MethodPost, "/api/checkout/payment", "", body)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Nil(t, resp.Body["field"])

	token := ts.login(t, "alice")
	resp = ts.do(t, http.MethodPost, "/api/checkout/payment", token, body)
	assert.Equal(t, http.StatusConflict, resp.Code)

	require.Equal(t, http.StatusOK, ts.add(t, token, "p1", 1).Code)
	resp = ts.do(t, http.MethodPost, "/api/checkout/payment", token, body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, "expiryDate", resp.Body["field"])
	assert.Contains(t, resp.Body["message"], "expiry date must be formatted as MM-YYYY")
}

func TestSubmitPayment_PersistFailure(t *testing.T) {
	ts := newTestServer(t)
	token := ts.login(t, "alice")
	require.Equal(t, http.StatusOK, ts.add(t, token, "p1", 1).Code)

	ts.orders.err = errors.New("db down")
	resp := ts.do(t, http.MethodPost, "/api/checkout/payment", token, validPayment())
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Equal(t, "order could not be saved; the cart was kept", resp.Body["message"])
	assert.NotContains(t, resp.Body["message"], "db down")

	view := ts.do(t, http.MethodGet, "/api/cart", token, nil)
	assert.Equal(t, float64(1), view.Body["count"])
}

func TestListOrders_Errors(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/api/orders", "", nil).Code)

	token := ts.login(t, "alice")
	ts.orders.listErr = errors.New("db down")
	resp := ts.do(t, http.MethodGet, "/api/orders", token, nil)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "internal server error", resp.Body["message"])
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{err: session.ErrSessionExpired, want: http.StatusUnauthorized},
		{err: session.ErrNotAuthenticated, want: http.StatusUnauthorized},
		{err: identity.ErrAuthFailure, want: http.StatusUnauthorized},
		{err: &session.CatalogLookupError{ProductID: "x", Err: product.ErrNotFound}, want: http.StatusNotFound},
		{err: &session.CatalogLookupError{ProductID: "x", Err: errors.New("timeout")}, want: http.StatusBadGateway},
		{err: checkout.ErrEmptyCart, want: http.StatusConflict},
		{err: cart.ErrQuantityTooLarge, want: http.StatusUnprocessableEntity},
		{err: &payment.RejectedError{Field: "cvv"}, want: http.StatusUnprocessableEntity},
		{err: &checkout.OrderPersistError{Err: errors.New("x")}, want: http.StatusBadGateway},
		{err: fmt.Errorf("%w: %w", session.ErrIdentityStoreUnavailable, errors.New("x")), want: http.StatusBadGateway},
		{err: errors.New("boom"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}
