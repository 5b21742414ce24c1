package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/cart"
)

// Order is a persisted purchase. Unit prices are fixed when the order is
// drafted and are never re-read from the catalog.
type Order struct {
	ID         string
	IdentityID string
	Lines      []Line
	Total      decimal.Decimal
	CreatedAt  time.Time
}

// Line is a single product entry in an order.
type Line struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Subtotal returns UnitPrice * Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Draft is an order that has not been assigned an identifier yet.
type Draft struct {
	IdentityID string
	Lines      []Line
	Total      decimal.Decimal
	CreatedAt  time.Time
}

// NewDraft builds a Draft from a cart snapshot.
func NewDraft(identityID string, snap cart.Snapshot, at time.Time) Draft {
	lines := make([]Line, len(snap.Lines))
	total := decimal.Zero
	for i, l := range snap.Lines {
		lines[i] = Line{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		}
		total = total.Add(lines[i].Subtotal())
	}
	return Draft{
		IdentityID: identityID,
		Lines:      lines,
		Total:      total.Round(2),
		CreatedAt:  at,
	}
}

// Order returns the order that results from persisting d under id.
func (d Draft) Order(id string) *Order {
	lines := make([]Line, len(d.Lines))
	copy(lines, d.Lines)
	return &Order{
		ID:         id,
		IdentityID: d.IdentityID,
		Lines:      lines,
		Total:      d.Total,
		CreatedAt:  d.CreatedAt,
	}
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Persist stores d and returns the identifier assigned to it.
	Persist(ctx context.Context, d Draft) (string, error)
	// ListByIdentity returns the orders placed by identityID, newest first.
	ListByIdentity(ctx context.Context, identityID string) ([]Order, error)
}
