package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-checkout/internal/domain/cart"
)

func TestNewDraft_UsesSnapshotPrices(t *testing.T) {
	c := cart.New()
	require.NoError(t, c.Add("p1", "Widget", decimal.RequireFromString("10.00"), 2))
	require.NoError(t, c.Add("p2", "Gadget", decimal.RequireFromString("0.333"), 3))
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	d := NewDraft("user-1", c.Snapshot(at), at)

	// Later changes to the live cart must not leak into the draft.
	require.NoError(t, c.UpdateQuantity("p1", 7))

	require.Len(t, d.Lines, 2)
	assert.Equal(t, "user-1", d.IdentityID)
	assert.Equal(t, "p1", d.Lines[0].ProductID)
	assert.Equal(t, 2, d.Lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("10.00").Equal(d.Lines[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("21.00").Equal(d.Total))
	assert.Equal(t, at, d.CreatedAt)
}

func TestDraft_Order(t *testing.T) {
	d := Draft{
		IdentityID: "user-1",
		Lines:      []Line{{ProductID: "p1", Quantity: 1, UnitPrice: decimal.NewFromInt(5)}},
		Total:      decimal.NewFromInt(5),
	}

	o := d.Order("order-1")
	d.Lines[0].Quantity = 99

	assert.Equal(t, "order-1", o.ID)
	assert.Equal(t, 1, o.Lines[0].Quantity)
	assert.True(t, decimal.NewFromInt(5).Equal(o.Lines[0].Subtotal()))
}
