package order

import (
	"time"

	"github.com/xenking/pos-checkout/internal/money"
)

// ReceiptDetails is the view handed to the receipt composer.
type ReceiptDetails struct {
	OrderID     string
	OrderNumber string
	CashierID   string
	Status      Status
	Lines       []ReceiptLine
	Discounts   []ReceiptDiscount
	Payments    []ReceiptPayment
	Totals      Totals
	TotalPaid   money.Amount
	ChangeDue   money.Amount
	IssuedAt    time.Time
}

// ReceiptLine is one printed item line.
type ReceiptLine struct {
	Name         string
	Notes        string
	Quantity     int
	UnitPrice    money.Amount
	LineSubtotal money.Amount
	LineDiscount money.Amount
	LineTotal    money.Amount
}

// ReceiptDiscount is one printed order discount.
type ReceiptDiscount struct {
	DiscountTypeID string
	Amount         money.Amount
	Approved       bool
}

// ReceiptPayment is one printed tender line.
type ReceiptPayment struct {
	Method    PaymentMethod
	Amount    money.Amount
	Tendered  *money.Amount
	Change    *money.Amount
	Reference string
}

// BuildReceipt projects an order into its receipt view. Totals are
// recomputed from the collections rather than read from the order row.
func BuildReceipt(o *Order) ReceiptDetails {
	r := ReceiptDetails{
		OrderID:     o.ID,
		OrderNumber: o.Number,
		CashierID:   o.CashierID,
		Status:      o.Status,
		Totals:      o.Totals(),
		TotalPaid:   o.TotalPaid,
		ChangeDue:   o.ChangeDue,
		IssuedAt:    o.UpdatedAt,
		Lines:       make([]ReceiptLine, len(o.Items)),
		Discounts:   make([]ReceiptDiscount, len(o.Discounts)),
		Payments:    make([]ReceiptPayment, len(o.Payments)),
	}
	for i, item := range o.Items {
		r.Lines[i] = ReceiptLine{
			Name:         item.NameSnapshot,
			Notes:        item.Notes,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			LineSubtotal: item.LineSubtotal(),
			LineDiscount: item.LineDiscountTotal,
			LineTotal:    item.LineTotal(),
		}
	}
	for i, d := range o.Discounts {
		r.Discounts[i] = ReceiptDiscount{
			DiscountTypeID: d.DiscountTypeID,
			Amount:         d.Amount,
			Approved:       d.ApprovedByManagerID != "",
		}
	}
	for i, p := range o.Payments {
		r.Payments[i] = ReceiptPayment{
			Method:    p.Method,
			Amount:    p.Amount,
			Tendered:  p.TenderedAmount,
			Change:    p.ChangeGiven,
			Reference: p.ExternalReference,
		}
	}
	return r
}
