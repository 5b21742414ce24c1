package session

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/history"
)

// Entry is the cart and browse history remembered for one identity.
type Entry struct {
	Cart    cart.Snapshot
	History []history.Entry
	SavedAt time.Time
	// CartEpoch is bumped each time the identity's cart is cleared after an
	// order. A session holding an older epoch holds an already-ordered cart.
	CartEpoch uint64
}

func (e Entry) clone() Entry {
	out := e
	out.Cart.Lines = append([]cart.Line(nil), e.Cart.Lines...)
	out.History = append([]history.Entry(nil), e.History...)
	return out
}

// Store keeps cart and browse history per identity across login sessions.
// Implementations must be safe for concurrent use and hand out copies only.
type Store interface {
	// Save replaces the entry for identityID. The last writer wins, except
	// that an entry whose CartEpoch is behind the stored one only replaces
	// the browse history.
	Save(identityID string, e Entry)
	// Restore returns a copy of the entry for identityID.
	Restore(identityID string) (Entry, bool)
	// Clear drops the cart held for identityID, keeping browse history, and
	// returns the new cart epoch.
	Clear(identityID string) uint64
	// CartEpoch returns the current cart epoch of identityID.
	CartEpoch(identityID string) uint64
}

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store. Concurrent Save calls for the same
// identity are not merged: whichever runs last replaces the other.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Save(identityID string, e Entry) {
	e = e.clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[identityID]; ok && e.CartEpoch < cur.CartEpoch {
		e.Cart = cur.Cart
		e.CartEpoch = cur.CartEpoch
	}
	s.entries[identityID] = e
}

func (s *MemoryStore) Restore(identityID string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[identityID]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

func (s *MemoryStore) Clear(identityID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[identityID]
	if !ok {
		return 0
	}
	e.Cart = cart.Snapshot{Total: decimal.Zero, TakenAt: e.Cart.TakenAt}
	e.CartEpoch++
	s.entries[identityID] = e
	return e.CartEpoch
}

func (s *MemoryStore) CartEpoch(identityID string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[identityID].CartEpoch
}

// Len returns the number of identities with a stored entry.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
