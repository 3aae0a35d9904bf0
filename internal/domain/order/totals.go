package order

import "github.com/xenking/pos-checkout/internal/money"

// Totals are the money figures derived from an order's items and discounts.
type Totals struct {
	Subtotal           money.Amount
	ItemDiscountTotal  money.Amount
	OrderDiscountTotal money.Amount
	DiscountTotal      money.Amount
	TotalDue           money.Amount
}

// CalculateTotals is a pure function of the current collections. TotalDue is
// not clamped and goes negative when discounts exceed the subtotal.
func CalculateTotals(items []Item, discounts []Discount) Totals {
	var t Totals
	for _, item := range items {
		t.Subtotal = t.Subtotal.Add(item.LineSubtotal())
		t.ItemDiscountTotal = t.ItemDiscountTotal.Add(item.LineDiscountTotal)
	}
	for _, d := range discounts {
		t.OrderDiscountTotal = t.OrderDiscountTotal.Add(d.Amount)
	}
	t.DiscountTotal = t.ItemDiscountTotal.Add(t.OrderDiscountTotal)
	t.TotalDue = t.Subtotal.Sub(t.DiscountTotal)
	return t
}

// Recalculate recomputes the derived totals from the order's collections and
// stores them on the order.
func (o *Order) Recalculate() Totals {
	t := CalculateTotals(o.Items, o.Discounts)
	o.Subtotal = t.Subtotal
	o.DiscountTotal = t.DiscountTotal
	o.TotalDue = t.TotalDue
	return t
}

// Totals returns freshly computed totals without mutating the order.
func (o *Order) Totals() Totals {
	return CalculateTotals(o.Items, o.Discounts)
}
