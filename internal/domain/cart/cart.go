package cart

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for cart mutations.
var (
	ErrInvalidQuantity  = errors.New("quantity must be greater than 0")
	ErrQuantityTooLarge = errors.New("quantity exceeds the per-line maximum")
	ErrInvalidPrice     = errors.New("unit price must not be negative")
	ErrLineNotFound     = errors.New("cart line not found")
)

// MaxQuantity is the largest quantity a single line may hold.
const MaxQuantity = 10_000

// LineNotFoundError indicates an update targeted a product that is not in the cart.
type LineNotFoundError struct {
	ProductID string
}

func (e *LineNotFoundError) Error() string {
	return fmt.Sprintf("product %s is not in the cart", e.ProductID)
}

// Is reports ErrLineNotFound equivalence so callers can match on the sentinel.
func (e *LineNotFoundError) Is(target error) bool {
	return target == ErrLineNotFound
}

// Line is a single product entry in a cart.
type Line struct {
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	Subtotal    decimal.Decimal
}

func (l *Line) recompute() {
	l.Subtotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart holds the lines of one shopper's in-progress purchase.
//
// Cart is not safe for concurrent use; the owning session record serializes
// access to it.
type Cart struct {
	lines map[string]*Line
	// order keeps first-add order so views are stable.
	order []string
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{lines: make(map[string]*Line)}
}

// Add puts quantity units of a product into the cart. When the product is
// already present the quantities are summed and the unit price recorded on
// the first add is kept.
func (c *Cart) Add(productID, name string, unitPrice decimal.Decimal, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > MaxQuantity {
		return ErrQuantityTooLarge
	}
	if unitPrice.IsNegative() {
		return ErrInvalidPrice
	}
	if c.lines == nil {
		c.lines = make(map[string]*Line)
	}

	if l, ok := c.lines[productID]; ok {
		if quantity > MaxQuantity-l.Quantity {
			return ErrQuantityTooLarge
		}
		l.Quantity += quantity
		l.recompute()
		return nil
	}

	l := &Line{
		ProductID:   productID,
		ProductName: name,
		UnitPrice:   unitPrice,
		Quantity:    quantity,
	}
	l.recompute()
	c.lines[productID] = l
	c.order = append(c.order, productID)
	return nil
}

// UpdateQuantity sets the quantity of an existing line. A quantity of zero or
// less removes the line; one above MaxQuantity is rejected.
func (c *Cart) UpdateQuantity(productID string, quantity int) error {
	l, ok := c.lines[productID]
	if !ok {
		return &LineNotFoundError{ProductID: productID}
	}
	if quantity <= 0 {
		c.Remove(productID)
		return nil
	}
	if quantity > MaxQuantity {
		return ErrQuantityTooLarge
	}
	l.Quantity = quantity
	l.recompute()
	return nil
}

// Remove deletes the line for productID. Removing an absent product is a no-op.
func (c *Cart) Remove(productID string) {
	if _, ok := c.lines[productID]; !ok {
		return
	}
	delete(c.lines, productID)
	for i, id := range c.order {
		if id == productID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	clear(c.lines)
	c.order = c.order[:0]
}

// Total returns the sum of all line subtotals.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// Count returns the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Len returns the number of distinct products in the cart.
func (c *Cart) Len() int {
	return len(c.lines)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Line returns a copy of the line for productID.
func (c *Cart) Line(productID string) (Line, bool) {
	l, ok := c.lines[productID]
	if !ok {
		return Line{}, false
	}
	return *l, true
}

// Lines returns copies of all lines in first-add order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out
}

// Clone returns a deep copy of the cart.
func (c *Cart) Clone() *Cart {
	out := New()
	for _, id := range c.order {
		l := *c.lines[id]
		out.lines[id] = &l
		out.order = append(out.order, id)
	}
	return out
}

// Snapshot is an immutable point-in-time copy of a cart, used for checkout
// display and order construction.
type Snapshot struct {
	Lines   []Line
	Total   decimal.Decimal
	Count   int
	TakenAt time.Time
}

// IsEmpty reports whether the snapshot holds no units.
func (s Snapshot) IsEmpty() bool {
	return s.Count == 0
}

// Snapshot captures the current cart contents at time at.
func (c *Cart) Snapshot(at time.Time) Snapshot {
	return Snapshot{
		Lines:   c.Lines(),
		Total:   c.Total(),
		Count:   c.Count(),
		TakenAt: at,
	}
}

// FromSnapshot rebuilds a cart from a snapshot. Subtotals are recomputed from
// unit price and quantity; lines with a non-positive quantity are dropped and
// quantities above MaxQuantity are capped.
func FromSnapshot(s Snapshot) *Cart {
	c := New()
	for _, l := range s.Lines {
		if l.Quantity <= 0 {
			continue
		}
		if _, dup := c.lines[l.ProductID]; dup {
			continue
		}
		line := Line{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    min(l.Quantity, MaxQuantity),
		}
		line.recompute()
		c.lines[l.ProductID] = &line
		c.order = append(c.order, l.ProductID)
	}
	return c
}
