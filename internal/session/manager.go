// Package session tracks logged-in shoppers: it maps opaque session tokens to
// carts and browse histories, expires idle sessions and carries cart state
// across independent login sessions of the same identity.
//
// Every record has its own mutex, so concurrent requests sharing a token
// (several browser tabs) are serialized per session. The Manager's map lock is
// never held while a record lock is taken.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/history"
	"github.com/xenking/kart-checkout/internal/domain/identity"
	"github.com/xenking/kart-checkout/internal/domain/product"
)

// DefaultIdleTimeout is the idle period after which a session expires.
const DefaultIdleTimeout = 30 * time.Minute

// Option configures a Manager.
type Option func(*Manager)

// WithIdleTimeout sets the idle timeout. Non-positive values are ignored.
func WithIdleTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.idleTimeout = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithLogger sets the logger used for lifecycle events.
func WithLogger(lg *zap.Logger) Option {
	return func(m *Manager) {
		m.lg = lg
	}
}

// WithTokenGenerator replaces the session token generator.
func WithTokenGenerator(gen func() (string, error)) Option {
	return func(m *Manager) {
		m.newToken = gen
	}
}

// Manager owns all session records of the process.
type Manager struct {
	mu      sync.RWMutex
	records map[string]*Record

	store    Store
	catalog  product.Repository
	verifier identity.Verifier

	idleTimeout time.Duration
	now         func() time.Time
	newToken    func() (string, error)
	lg          *zap.Logger
}

// NewManager creates a Manager backed by the given identity cart store,
// catalog and credential verifier.
func NewManager(
	store Store,
	catalog product.Repository,
	verifier identity.Verifier,
	opts ...Option,
) *Manager {
	m := &Manager{
		records:     make(map[string]*Record),
		store:       store,
		catalog:     catalog,
		verifier:    verifier,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		newToken:    generateToken,
		lg:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// IdleTimeout returns the configured idle timeout.
func (m *Manager) IdleTimeout() time.Duration {
	return m.idleTimeout
}

// Len returns the number of live session records.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}

// Open creates an anonymous session and returns its token.
func (m *Manager) Open() (string, error) {
	rec, err := m.create(m.now())
	if err != nil {
		return "", err
	}
	return rec.token, nil
}

// Login verifies the credentials and binds the session identified by token to
// the resulting identity. See Authenticate for how token is reused.
func (m *Manager) Login(ctx context.Context, token, identifier, secret string) (string, error) {
	identityID, err := m.verifier.Verify(ctx, identifier, secret)
	switch {
	case errors.Is(err, identity.ErrAuthFailure):
		return "", identity.ErrAuthFailure
	case err != nil:
		return "", fmt.Errorf("%w: %w", ErrIdentityStoreUnavailable, err)
	}
	return m.Authenticate(token, identityID)
}

// Authenticate binds a session to identityID and returns the token to use
// from now on.
//
// A live anonymous session is upgraded in place. A live session already bound
// to identityID only has its activity refreshed. In every other case (empty,
// unknown, expired token or a session of another identity) a new session is
// created. Cart and browse history are restored from the store when a prior
// entry exists for identityID.
func (m *Manager) Authenticate(token, identityID string) (string, error) {
	now := m.now()

	if rec := m.lookup(token); rec != nil {
		rec.mu.Lock()
		reused := false
		switch {
		case rec.status.IsTerminal():
		case rec.idle(now, m.idleTimeout):
			rec.status = StatusExpired
		case rec.status == StatusAnonymous:
			m.bindLocked(rec, identityID, now)
			reused = true
		case rec.identityID == identityID:
			rec.lastActivityAt = now
			reused = true
		default:
			// Switching identities without logout: keep the previous owner's state.
			m.mirrorLocked(rec, now)
			rec.status = StatusLoggedOut
		}
		rec.mu.Unlock()

		if reused {
			return token, nil
		}
		m.remove(rec)
	}

	rec, err := m.create(now)
	if err != nil {
		return "", err
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	m.bindLocked(rec, identityID, now)
	return rec.token, nil
}

// Logout stores the session's cart and browse history for its identity and
// destroys the session.
func (m *Manager) Logout(token string) error {
	rec := m.lookup(token)
	if rec == nil {
		return ErrNotAuthenticated
	}
	now := m.now()

	rec.mu.Lock()
	err := m.touchLocked(rec, now)
	if err == nil {
		if rec.status == StatusAuthenticated {
			m.mirrorLocked(rec, now)
		}
		rec.status = StatusLoggedOut
		m.lg.Debug("Session logged out", zap.String("identity", rec.identityID))
	}
	rec.mu.Unlock()

	m.remove(rec)
	return err
}

// Info returns metadata of a live session and refreshes its activity.
func (m *Manager) Info(token string) (Info, error) {
	var info Info
	err := m.withRecord(token, func(rec *Record, _ time.Time) error {
		info = rec.info()
		return nil
	})
	return info, err
}

// Identity returns the identity bound to an authenticated session.
func (m *Manager) Identity(token string) (string, error) {
	var id string
	err := m.withAuthenticated(token, func(rec *Record, _ time.Time) error {
		id = rec.identityID
		return nil
	})
	return id, err
}

// CartView returns a snapshot of the session's cart.
func (m *Manager) CartView(token string) (cart.Snapshot, error) {
	var snap cart.Snapshot
	err := m.withAuthenticated(token, func(rec *Record, now time.Time) error {
		snap = rec.cart.Snapshot(now)
		return nil
	})
	return snap, err
}

// AddToCart looks the product up in the catalog and adds quantity units of it
// at the current catalog price.
func (m *Manager) AddToCart(ctx context.Context, token, productID string, quantity int) (cart.Snapshot, error) {
	if _, err := m.Identity(token); err != nil {
		return cart.Snapshot{}, err
	}
	if quantity <= 0 {
		return m.currentOr(token, cart.ErrInvalidQuantity)
	}

	p, err := m.lookupProduct(ctx, productID)
	if err != nil {
		return m.currentOr(token, err)
	}

	return m.mutateCart(token, func(c *cart.Cart) error {
		return c.Add(p.ID, p.Name, p.Price, quantity)
	})
}

// UpdateCartQuantity sets the quantity of a cart line; zero or less removes it.
func (m *Manager) UpdateCartQuantity(token, productID string, quantity int) (cart.Snapshot, error) {
	return m.mutateCart(token, func(c *cart.Cart) error {
		return c.UpdateQuantity(productID, quantity)
	})
}

// RemoveFromCart removes a cart line. Removing an absent product succeeds.
func (m *Manager) RemoveFromCart(token, productID string) (cart.Snapshot, error) {
	return m.mutateCart(token, func(c *cart.Cart) error {
		c.Remove(productID)
		return nil
	})
}

// ClearCart empties the session's cart.
func (m *Manager) ClearCart(token string) (cart.Snapshot, error) {
	return m.mutateCart(token, func(c *cart.Cart) error {
		c.Clear()
		return nil
	})
}

// RecordBrowse adds a product view to the session's browse history.
func (m *Manager) RecordBrowse(ctx context.Context, token, productID string) ([]history.Entry, error) {
	if _, err := m.Identity(token); err != nil {
		return nil, err
	}
	p, err := m.lookupProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return m.RecordView(token, *p)
}

// RecordView adds an already resolved product to the browse history.
func (m *Manager) RecordView(token string, p product.Product) ([]history.Entry, error) {
	var entries []history.Entry
	err := m.withAuthenticated(token, func(rec *Record, now time.Time) error {
		rec.history.Record(history.Entry{
			ProductID:   p.ID,
			ProductName: p.Name,
			Category:    p.Category,
			ImageRef:    p.Image.Ref(),
			ViewedAt:    now,
		})
		m.mirrorLocked(rec, now)
		entries = rec.history.List()
		return nil
	})
	return entries, err
}

// BrowseHistory returns the session's browse history, most recent first.
func (m *Manager) BrowseHistory(token string) ([]history.Entry, error) {
	var entries []history.Entry
	err := m.withAuthenticated(token, func(rec *Record, _ time.Time) error {
		entries = rec.history.List()
		return nil
	})
	return entries, err
}

// ClearBrowseHistory empties the session's browse history and mirrors the
// result, so later logins of the identity restore no views either.
func (m *Manager) ClearBrowseHistory(token string) error {
	return m.withAuthenticated(token, func(rec *Record, now time.Time) error {
		rec.history.Clear()
		m.mirrorLocked(rec, now)
		return nil
	})
}

// CartAccess exposes a session's live cart to a WithCart callback. It must not
// be retained after the callback returns.
type CartAccess struct {
	m   *Manager
	rec *Record
	now time.Time
}

// IdentityID returns the identity the session is bound to.
func (a *CartAccess) IdentityID() string { return a.rec.identityID }

// Cart returns the live cart.
func (a *CartAccess) Cart() *cart.Cart { return a.rec.cart }

// Now returns the time the access was granted.
func (a *CartAccess) Now() time.Time { return a.now }

// Commit mirrors the current cart and browse history into the store.
func (a *CartAccess) Commit() { a.m.mirrorLocked(a.rec, a.now) }

// ClearCart empties the live cart and drops the cart held in the store for
// the identity. Sessions of the same identity opened later restore an empty
// cart, and sessions already open drop their copy on their next request.
func (a *CartAccess) ClearCart() {
	a.rec.cart.Clear()
	a.rec.cartEpoch = a.m.store.Clear(a.rec.identityID)
}

// WithCart runs fn while holding the session's lock. Other requests on the same
// session block until fn returns.
func (m *Manager) WithCart(token string, fn func(a *CartAccess) error) error {
	return m.withAuthenticated(token, func(rec *Record, now time.Time) error {
		return fn(&CartAccess{m: m, rec: rec, now: now})
	})
}

// Sweep destroys records that are idle past the timeout and returns how many
// were removed. The identity store is never touched.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.RLock()
	candidates := make([]*Record, 0, len(m.records))
	for _, rec := range m.records {
		candidates = append(candidates, rec)
	}
	m.mu.RUnlock()

	removed := 0
	for _, rec := range candidates {
		rec.mu.Lock()
		if !rec.status.IsTerminal() && rec.idle(now, m.idleTimeout) {
			rec.status = StatusExpired
		}
		dead := rec.status.IsTerminal()
		rec.mu.Unlock()

		if dead && m.remove(rec) {
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := m.Sweep(m.now()); n > 0 {
				m.lg.Info("Swept idle sessions",
					zap.Int("removed", n),
					zap.Int("live", m.Len()),
				)
			}
		}
	}
}

func (m *Manager) lookup(token string) *Record {
	if token == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[token]
}

func (m *Manager) create(now time.Time) (*Record, error) {
	for {
		token, err := m.newToken()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrTokenGeneration, err)
		}

		m.mu.Lock()
		if _, taken := m.records[token]; taken {
			m.mu.Unlock()
			continue
		}
		rec := newRecord(token, now)
		m.records[token] = rec
		m.mu.Unlock()
		return rec, nil
	}
}

// remove deletes rec from the map if it is still the record for its token.
func (m *Manager) remove(rec *Record) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[rec.token] != rec {
		return false
	}
	delete(m.records, rec.token)
	return true
}

// touchLocked enforces the idle timeout and refreshes activity.
func (m *Manager) touchLocked(rec *Record, now time.Time) error {
	switch rec.status {
	case StatusExpired:
		return ErrSessionExpired
	case StatusLoggedOut:
		return ErrNotAuthenticated
	}
	if rec.idle(now, m.idleTimeout) {
		rec.status = StatusExpired
		m.lg.Debug("Session expired",
			zap.String("identity", rec.identityID),
			zap.Duration("idle", now.Sub(rec.lastActivityAt)),
		)
		return ErrSessionExpired
	}
	rec.lastActivityAt = now
	return nil
}

func (m *Manager) withRecord(token string, fn func(rec *Record, now time.Time) error) error {
	rec := m.lookup(token)
	if rec == nil {
		return ErrNotAuthenticated
	}
	now := m.now()

	rec.mu.Lock()
	err := m.touchLocked(rec, now)
	if err == nil {
		err = fn(rec, now)
	}
	terminal := rec.status.IsTerminal()
	rec.mu.Unlock()

	if terminal {
		m.remove(rec)
	}
	return err
}

func (m *Manager) withAuthenticated(token string, fn func(rec *Record, now time.Time) error) error {
	return m.withRecord(token, func(rec *Record, now time.Time) error {
		if rec.status != StatusAuthenticated {
			return ErrNotAuthenticated
		}
		m.syncCartLocked(rec)
		return fn(rec, now)
	})
}

// mutateCart applies fn to the live cart and mirrors the result on success.
// The returned snapshot reflects the cart after the call even when fn fails.
func (m *Manager) mutateCart(token string, fn func(c *cart.Cart) error) (cart.Snapshot, error) {
	var snap cart.Snapshot
	err := m.withAuthenticated(token, func(rec *Record, now time.Time) error {
		mutErr := fn(rec.cart)
		if mutErr == nil {
			m.mirrorLocked(rec, now)
		}
		snap = rec.cart.Snapshot(now)
		return mutErr
	})
	return snap, err
}

// currentOr returns the current cart along with err, or the access error if
// the cart cannot be read.
func (m *Manager) currentOr(token string, err error) (cart.Snapshot, error) {
	snap, viewErr := m.CartView(token)
	if viewErr != nil {
		return cart.Snapshot{}, viewErr
	}
	return snap, err
}

func (m *Manager) lookupProduct(ctx context.Context, productID string) (*product.Product, error) {
	p, err := m.catalog.GetByID(ctx, productID)
	if err != nil {
		return nil, &CatalogLookupError{ProductID: productID, Err: err}
	}
	return p, nil
}

func (m *Manager) bindLocked(rec *Record, identityID string, now time.Time) {
	rec.identityID = identityID
	rec.status = StatusAuthenticated
	rec.lastActivityAt = now

	if e, ok := m.store.Restore(identityID); ok {
		rec.cart = cart.FromSnapshot(e.Cart)
		rec.cartEpoch = e.CartEpoch
		rec.history = history.FromEntries(e.History)
		m.lg.Debug("Session restored",
			zap.String("identity", identityID),
			zap.Int("cart_lines", rec.cart.Len()),
			zap.Int("history", rec.history.Len()),
		)
		return
	}
	rec.cart = cart.New()
	rec.cartEpoch = 0
	rec.history = history.New()
}

// syncCartLocked empties the live cart when another session of the same
// identity has ordered it since this record restored or saved it.
func (m *Manager) syncCartLocked(rec *Record) {
	if rec.identityID == "" {
		return
	}
	epoch := m.store.CartEpoch(rec.identityID)
	if epoch <= rec.cartEpoch {
		return
	}
	if !rec.cart.IsEmpty() {
		m.lg.Debug("Dropped cart ordered by another session",
			zap.String("identity", rec.identityID),
			zap.Int("cart_lines", rec.cart.Len()),
		)
		rec.cart.Clear()
	}
	rec.cartEpoch = epoch
}

func (m *Manager) mirrorLocked(rec *Record, now time.Time) {
	if rec.identityID == "" {
		return
	}
	m.syncCartLocked(rec)
	m.store.Save(rec.identityID, Entry{
		Cart:      rec.cart.Snapshot(now),
		History:   rec.history.List(),
		SavedAt:   now,
		CartEpoch: rec.cartEpoch,
	})
}

// generateToken creates a 256-bit random token encoded as unpadded base64url.
func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
