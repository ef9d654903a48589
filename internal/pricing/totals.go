package pricing

import "github.com/shopspring/decimal"

// TaxRate is the VAT applied to the cart subtotal.
const TaxRate = 0.18

// TipKind selects how a tip value is interpreted.
type TipKind string

const (
	TipPercentage TipKind = "percentage"
	TipAmount     TipKind = "amount"
)

// Line describes one priced cart line.
type Line struct {
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
}

// Tip is either a percentage of the discounted amount or a fixed amount.
type Tip struct {
	Kind  TipKind `json:"kind"`
	Value float64 `json:"value"`
}

// Discounts are subtracted after tax.
type Discounts struct {
	Manual float64 `json:"manual"`
	Coupon float64 `json:"coupon"`
}

// Totals is the derived pricing of a cart.
type Totals struct {
	Subtotal        float64 `json:"subtotal"`
	Tax             float64 `json:"tax"`
	AmountBeforeTip float64 `json:"amountBeforeTip"`
	Tip             float64 `json:"tip"`
	Total           float64 `json:"total"`
}

// Compute derives order totals. Lines with a non-positive quantity are
// ignored. The discounted amount is clamped at zero; a fixed tip is added
// as given even when that amount is zero.
func Compute(lines []Line, tip Tip, discounts Discounts) Totals {
	var subtotal float64
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		subtotal += l.UnitPrice * float64(l.Quantity)
	}
	tax := subtotal * TaxRate

	beforeTip := subtotal + tax - discounts.Manual - discounts.Coupon
	if beforeTip < 0 {
		beforeTip = 0
	}

	var tipAmount float64
	switch tip.Kind {
	case TipPercentage:
		tipAmount = beforeTip * tip.Value / 100
	case TipAmount:
		tipAmount = tip.Value
	}

	return Totals{
		Subtotal:        subtotal,
		Tax:             tax,
		AmountBeforeTip: beforeTip,
		Tip:             tipAmount,
		Total:           beforeTip + tipAmount,
	}
}

// Rounded returns a copy with every component rounded half away from zero to cents.
func (t Totals) Rounded() Totals {
	return Totals{
		Subtotal:        Round2(t.Subtotal),
		Tax:             Round2(t.Tax),
		AmountBeforeTip: Round2(t.AmountBeforeTip),
		Tip:             Round2(t.Tip),
		Total:           Round2(t.Total),
	}
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
