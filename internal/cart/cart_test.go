package cart_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HodayaSing/ai-pos/internal/cart"
	"github.com/HodayaSing/ai-pos/internal/pricing"
)

var (
	hummus = cart.Item{ID: 1, Name: "Hummus", UnitPrice: 10, Category: "Starters"}
	lemon  = cart.Item{ID: 2, Name: "Lemonade", UnitPrice: 4.5, Category: "Beverages"}
)

func TestAddIncrementsExistingLine(t *testing.T) {
	c := cart.New("c1")
	c.Add(hummus)
	c.Add(lemon)
	c.Add(hummus)

	require.Len(t, c.Lines, 2)
	require.Equal(t, 2, c.Lines[0].Quantity)
	require.Equal(t, 1, c.Lines[1].Quantity)
	require.Equal(t, 3, c.ItemCount())
}

func TestUpdateQuantityPrunesAndClamps(t *testing.T) {
	c := cart.New("c1")
	c.Add(hummus)
	c.Add(lemon)

	c.UpdateQuantity(hummus.ID, 4)
	require.Equal(t, 4, c.Lines[0].Quantity)

	c.UpdateQuantity(hummus.ID, -3)
	require.Len(t, c.Lines, 1)
	require.Equal(t, lemon.ID, c.Lines[0].ID)

	c.UpdateQuantity(99, 5)
	require.Len(t, c.Lines, 1)

	c.UpdateQuantity(lemon.ID, 0)
	require.Empty(t, c.Lines)
	for _, l := range c.Lines {
		require.Positive(t, l.Quantity)
	}
}

func TestRemove(t *testing.T) {
	c := cart.New("c1")
	c.Add(hummus)
	c.Add(lemon)
	c.Remove(hummus.ID)
	require.Len(t, c.Lines, 1)
	require.Equal(t, "Lemonade", c.Lines[0].Name)
}

func TestClearResetsEverything(t *testing.T) {
	c := cart.New("c1")
	c.Add(hummus)
	require.NoError(t, c.SetTip(pricing.Tip{Kind: pricing.TipAmount, Value: 5}))
	require.NoError(t, c.SetManualDiscount(2))
	require.NoError(t, c.SetCoupon("WELCOME", 3))
	c.SetNote("no onions")

	c.Clear()

	require.Empty(t, c.Lines)
	require.Equal(t, pricing.Tip{Kind: pricing.TipPercentage, Value: 0}, c.Tip)
	require.Equal(t, pricing.Discounts{}, c.Discounts)
	require.Empty(t, c.CouponCode)
	require.Empty(t, c.Note)
	require.Equal(t, pricing.Totals{}, c.Totals())
}

func TestSettersRejectNegative(t *testing.T) {
	c := cart.New("c1")
	require.ErrorIs(t, c.SetTip(pricing.Tip{Kind: pricing.TipPercentage, Value: -1}), cart.ErrInvalidInput)
	require.ErrorIs(t, c.SetTip(pricing.Tip{Kind: "bonus", Value: 1}), cart.ErrInvalidInput)
	require.ErrorIs(t, c.SetManualDiscount(-0.01), cart.ErrInvalidInput)
	require.ErrorIs(t, c.SetCoupon("X", -5), cart.ErrInvalidInput)
}

func TestTotalsFollowState(t *testing.T) {
	c := cart.New("c1")
	c.Add(hummus)
	c.Add(hummus)
	require.NoError(t, c.SetTip(pricing.Tip{Kind: pricing.TipPercentage, Value: 15}))

	totals := c.Totals()
	require.InDelta(t, 27.14, totals.Total, 1e-9)

	require.NoError(t, c.SetManualDiscount(25))
	require.NoError(t, c.SetTip(pricing.Tip{Kind: pricing.TipAmount, Value: 5}))
	totals = c.Totals()
	require.Zero(t, totals.AmountBeforeTip)
	require.InDelta(t, 5.0, totals.Total, 1e-9)
}
