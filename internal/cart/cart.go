package cart

import (
	"errors"
	"fmt"
	"time"

	"github.com/HodayaSing/ai-pos/internal/pricing"
)

// ErrNotFound indicates the requested cart could not be located.
var ErrNotFound = errors.New("cart not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Item is the product data copied into a cart line.
type Item struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"price"`
	Category  string  `json:"category,omitempty"`
}

// Line is one product in the cart.
type Line struct {
	Item
	Quantity int `json:"quantity"`
}

// Cart owns the order lines, the tip and the discounts. Totals are derived
// from it on every read.
type Cart struct {
	ID         string            `json:"id"`
	Lines      []Line            `json:"lines"`
	Tip        pricing.Tip       `json:"tip"`
	Discounts  pricing.Discounts `json:"discounts"`
	CouponCode string            `json:"couponCode,omitempty"`
	Note       string            `json:"note,omitempty"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

// New returns an empty cart with a zero percentage tip.
func New(id string) *Cart {
	return &Cart{
		ID:    id,
		Lines: []Line{},
		Tip:   pricing.Tip{Kind: pricing.TipPercentage},
	}
}

// Add increments the quantity of an existing line or appends the item with quantity 1.
func (c *Cart) Add(item Item) {
	for i := range c.Lines {
		if c.Lines[i].ID == item.ID {
			c.Lines[i].Quantity++
			return
		}
	}
	c.Lines = append(c.Lines, Line{Item: item, Quantity: 1})
}

// UpdateQuantity sets the quantity of the line with the given id. Negative
// quantities become 0 and lines at 0 are dropped. Unknown ids are ignored.
func (c *Cart) UpdateQuantity(id int64, qty int) {
	if qty < 0 {
		qty = 0
	}
	for i := range c.Lines {
		if c.Lines[i].ID == id {
			c.Lines[i].Quantity = qty
		}
	}
	c.prune()
}

// Remove drops the line with the given id.
func (c *Cart) Remove(id int64) {
	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	c.Lines = kept
}

// Clear empties the cart and resets tip, discounts, coupon and note.
func (c *Cart) Clear() {
	c.Lines = []Line{}
	c.Tip = pricing.Tip{Kind: pricing.TipPercentage}
	c.Discounts = pricing.Discounts{}
	c.CouponCode = ""
	c.Note = ""
}

// SetTip replaces the tip.
func (c *Cart) SetTip(tip pricing.Tip) error {
	if tip.Kind != pricing.TipPercentage && tip.Kind != pricing.TipAmount {
		return fmt.Errorf("tip kind %q: %w", tip.Kind, ErrInvalidInput)
	}
	if tip.Value < 0 {
		return fmt.Errorf("tip must not be negative: %w", ErrInvalidInput)
	}
	c.Tip = tip
	return nil
}

// SetManualDiscount replaces the manual discount amount.
func (c *Cart) SetManualDiscount(amount float64) error {
	if amount < 0 {
		return fmt.Errorf("manual discount must not be negative: %w", ErrInvalidInput)
	}
	c.Discounts.Manual = amount
	return nil
}

// SetCoupon records the coupon code and the amount it takes off.
func (c *Cart) SetCoupon(code string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("coupon discount must not be negative: %w", ErrInvalidInput)
	}
	c.CouponCode = code
	c.Discounts.Coupon = amount
	return nil
}

// SetNote replaces the free-text note for the kitchen.
func (c *Cart) SetNote(note string) {
	c.Note = note
}

// ItemCount is the sum of line quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

// Totals computes the order totals for the current state.
func (c *Cart) Totals() pricing.Totals {
	lines := make([]pricing.Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity})
	}
	return pricing.Compute(lines, c.Tip, c.Discounts)
}

func (c *Cart) prune() {
	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if l.Quantity > 0 {
			kept = append(kept, l)
		}
	}
	c.Lines = kept
}

func (c *Cart) clone() *Cart {
	cp := *c
	cp.Lines = append([]Line(nil), c.Lines...)
	if cp.Lines == nil {
		cp.Lines = []Line{}
	}
	return &cp
}
