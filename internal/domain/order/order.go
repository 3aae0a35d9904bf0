package order

import (
	"time"

	"github.com/xenking/pos-checkout/internal/money"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusPaid     Status = "PAID"
	StatusVoid     Status = "VOID"
	StatusRefunded Status = "REFUNDED"
)

// Order is the checkout aggregate. It exclusively owns its items, discounts
// and payments for the duration of one transaction.
type Order struct {
	ID        string
	Number    string
	CashierID string
	Status    Status

	Subtotal      money.Amount
	DiscountTotal money.Amount
	TotalDue      money.Amount
	TotalPaid     money.Amount
	ChangeDue     money.Amount

	CreatedAt time.Time
	UpdatedAt time.Time

	Items     []Item
	Discounts []Discount
	Payments  []Payment
}

// Item is a single order line. ProductID is empty for ad-hoc items.
type Item struct {
	ID                string
	OrderID           string
	ProductID         string
	NameSnapshot      string
	Notes             string
	Quantity          int
	UnitPrice         money.Amount
	LineDiscountTotal money.Amount
	CreatedAt         time.Time
}

// LineSubtotal is unitPrice × qty.
func (i Item) LineSubtotal() money.Amount {
	return i.UnitPrice.Mul(i.Quantity)
}

// LineTotal is lineSubtotal − lineDiscountTotal.
func (i Item) LineTotal() money.Amount {
	return i.LineSubtotal().Sub(i.LineDiscountTotal)
}

// Discount is an order-level discount applied from a discount type.
type Discount struct {
	ID                  string
	OrderID             string
	DiscountTypeID      string
	Amount              money.Amount
	AppliedByUserID     string
	ApprovedByManagerID string
	CreatedAt           time.Time
}

// PaymentMethod enumerates accepted tender types.
type PaymentMethod string

const (
	MethodCash     PaymentMethod = "CASH"
	MethodCard     PaymentMethod = "CARD"
	MethodTransfer PaymentMethod = "TRANSFER"
	MethodEWallet  PaymentMethod = "EWALLET"
	MethodOther    PaymentMethod = "OTHER"
)

// Valid reports whether m is a known tender type.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodEWallet, MethodOther:
		return true
	}
	return false
}

// Payment is a tender entry. Amount is positive for finalize entries and
// negative for refund entries; TenderedAmount and ChangeGiven are only set
// on finalize entries.
type Payment struct {
	ID                string
	OrderID           string
	Method            PaymentMethod
	Amount            money.Amount
	TenderedAmount    *money.Amount
	ChangeGiven       *money.Amount
	ExternalReference string
	ProcessedByUserID string
	CreatedAt         time.Time
}

// Summary is the read model returned by GetSummary.
type Summary struct {
	Order        *Order
	Totals       Totals
	ItemCount    int
	PaymentCount int
}
