package session

import (
	"sync"
	"time"

	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/history"
)

// Status is the lifecycle state of a session record.
type Status int

const (
	StatusAnonymous Status = iota
	StatusAuthenticated
	StatusExpired
	StatusLoggedOut
)

func (s Status) String() string {
	switch s {
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	case StatusExpired:
		return "expired"
	case StatusLoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusExpired || s == StatusLoggedOut
}

// Record is the state of one login session. All fields are guarded by mu.
type Record struct {
	mu sync.Mutex

	token          string
	identityID     string
	status         Status
	cart           *cart.Cart
	cartEpoch      uint64
	history        *history.History
	createdAt      time.Time
	lastActivityAt time.Time
}

func newRecord(token string, now time.Time) *Record {
	return &Record{
		token:          token,
		status:         StatusAnonymous,
		cart:           cart.New(),
		history:        history.New(),
		createdAt:      now,
		lastActivityAt: now,
	}
}

// Info is a read-only view of a record's metadata.
type Info struct {
	Token          string
	IdentityID     string
	Status         Status
	CreatedAt      time.Time
	LastActivityAt time.Time
}

func (r *Record) info() Info {
	return Info{
		Token:          r.token,
		IdentityID:     r.identityID,
		Status:         r.status,
		CreatedAt:      r.createdAt,
		LastActivityAt: r.lastActivityAt,
	}
}

func (r *Record) idle(now time.Time, timeout time.Duration) bool {
	return now.Sub(r.lastActivityAt) > timeout
}
