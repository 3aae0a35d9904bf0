package handler

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-checkout/internal/domain/order"
	"github.com/xenking/pos-checkout/internal/money"
)

// Money travels as a decimal string ("12.50"). Decoding also accepts a JSON
// number, read from its literal text rather than through float64.

func decodeAmount(d *jx.Decoder) (money.Amount, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return money.Zero, err
		}
		return money.Parse(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return money.Zero, err
		}
		return money.Parse(n.String())
	default:
		return money.Zero, errors.Wrap(money.ErrInvalidAmount, "expected string or number")
	}
}

// decodeOptAmount returns nil for an explicit null.
func decodeOptAmount(d *jx.Decoder) (*money.Amount, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	a, err := decodeAmount(d)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func decodeOptString(d *jx.Decoder) (*string, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	s, err := d.Str()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeNullableString(d *jx.Decoder) (string, error) {
	s, err := decodeOptString(d)
	if err != nil || s == nil {
		return "", err
	}
	return *s, nil
}

func decodePayments(d *jx.Decoder) ([]order.PaymentInput, error) {
	var out []order.PaymentInput
	err := d.Arr(func(d *jx.Decoder) error {
		var p order.PaymentInput
		err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "method":
				var s string
				s, err = d.Str()
				p.Method = order.PaymentMethod(s)
			case "amount":
				p.Amount, err = decodeAmount(d)
			case "tenderedAmount":
				p.TenderedAmount, err = decodeOptAmount(d)
			case "changeGiven":
				p.ChangeGiven, err = decodeOptAmount(d)
			case "externalReference":
				p.ExternalReference, err = decodeNullableString(d)
			case "processedByUserId":
				p.ProcessedByUserID, err = d.Str()
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrapf(err, "field %q", key)
			}
			return nil
		})
		if err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

func encodeAmount(e *jx.Encoder, a money.Amount) {
	e.Str(a.String())
}

func encodeOptAmount(e *jx.Encoder, field string, a *money.Amount) {
	if a == nil {
		return
	}
	e.FieldStart(field)
	encodeAmount(e, *a)
}

func encodeOptString(e *jx.Encoder, field, s string) {
	if s == "" {
		return
	}
	e.FieldStart(field)
	e.Str(s)
}

func encodeTime(e *jx.Encoder, t time.Time) {
	e.Str(t.UTC().Format(time.RFC3339Nano))
}

func encodeTotals(e *jx.Encoder, t order.Totals) {
	e.ObjStart()
	e.FieldStart("subtotal")
	encodeAmount(e, t.Subtotal)
	e.FieldStart("itemDiscountTotal")
	encodeAmount(e, t.ItemDiscountTotal)
	e.FieldStart("orderDiscountTotal")
	encodeAmount(e, t.OrderDiscountTotal)
	e.FieldStart("discountTotal")
	encodeAmount(e, t.DiscountTotal)
	e.FieldStart("totalDue")
	encodeAmount(e, t.TotalDue)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("number")
	e.Str(o.Number)
	e.FieldStart("cashierId")
	e.Str(o.CashierID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("subtotal")
	encodeAmount(e, o.Subtotal)
	e.FieldStart("discountTotal")
	encodeAmount(e, o.DiscountTotal)
	e.FieldStart("totalDue")
	encodeAmount(e, o.TotalDue)
	e.FieldStart("totalPaid")
	encodeAmount(e, o.TotalPaid)
	e.FieldStart("changeDue")
	encodeAmount(e, o.ChangeDue)
	e.FieldStart("createdAt")
	encodeTime(e, o.CreatedAt)
	e.FieldStart("updatedAt")
	encodeTime(e, o.UpdatedAt)

	e.FieldStart("items")
	e.ArrStart()
	for _, item := range o.Items {
		encodeItem(e, item)
	}
	e.ArrEnd()

	e.FieldStart("discounts")
	e.ArrStart()
	for _, d := range o.Discounts {
		encodeDiscount(e, d)
	}
	e.ArrEnd()

	e.FieldStart("payments")
	e.ArrStart()
	for _, p := range o.Payments {
		encodePayment(e, p)
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeItem(e *jx.Encoder, item order.Item) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(item.ID)
	encodeOptString(e, "productId", item.ProductID)
	e.FieldStart("nameSnapshot")
	e.Str(item.NameSnapshot)
	encodeOptString(e, "notes", item.Notes)
	e.FieldStart("quantity")
	e.Int(item.Quantity)
	e.FieldStart("unitPrice")
	encodeAmount(e, item.UnitPrice)
	e.FieldStart("lineSubtotal")
	encodeAmount(e, item.LineSubtotal())
	e.FieldStart("lineDiscountTotal")
	encodeAmount(e, item.LineDiscountTotal)
	e.FieldStart("lineTotal")
	encodeAmount(e, item.LineTotal())
	e.FieldStart("createdAt")
	encodeTime(e, item.CreatedAt)
	e.ObjEnd()
}

func encodeDiscount(e *jx.Encoder, d order.Discount) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(d.ID)
	e.FieldStart("discountTypeId")
	e.Str(d.DiscountTypeID)
	e.FieldStart("amount")
	encodeAmount(e, d.Amount)
	e.FieldStart("appliedByUserId")
	e.Str(d.AppliedByUserID)
	encodeOptString(e, "approvedByManagerId", d.ApprovedByManagerID)
	e.FieldStart("createdAt")
	encodeTime(e, d.CreatedAt)
	e.ObjEnd()
}

func encodePayment(e *jx.Encoder, p order.Payment) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(p.ID)
	e.FieldStart("method")
	e.Str(string(p.Method))
	e.FieldStart("amount")
	encodeAmount(e, p.Amount)
	encodeOptAmount(e, "tenderedAmount", p.TenderedAmount)
	encodeOptAmount(e, "changeGiven", p.ChangeGiven)
	encodeOptString(e, "externalReference", p.ExternalReference)
	e.FieldStart("processedByUserId")
	e.Str(p.ProcessedByUserID)
	e.FieldStart("createdAt")
	encodeTime(e, p.CreatedAt)
	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s *order.Summary) {
	e.ObjStart()
	e.FieldStart("order")
	encodeOrder(e, s.Order)
	e.FieldStart("totals")
	encodeTotals(e, s.Totals)
	e.FieldStart("itemCount")
	e.Int(s.ItemCount)
	e.FieldStart("paymentCount")
	e.Int(s.PaymentCount)
	e.ObjEnd()
}

func encodeReceipt(e *jx.Encoder, r *order.ReceiptDetails) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(r.OrderID)
	e.FieldStart("orderNumber")
	e.Str(r.OrderNumber)
	e.FieldStart("cashierId")
	e.Str(r.CashierID)
	e.FieldStart("status")
	e.Str(string(r.Status))
	e.FieldStart("issuedAt")
	encodeTime(e, r.IssuedAt)

	e.FieldStart("lines")
	e.ArrStart()
	for _, l := range r.Lines {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(l.Name)
		encodeOptString(e, "notes", l.Notes)
		e.FieldStart("quantity")
		e.Int(l.Quantity)
		e.FieldStart("unitPrice")
		encodeAmount(e, l.UnitPrice)
		e.FieldStart("lineSubtotal")
		encodeAmount(e, l.LineSubtotal)
		e.FieldStart("lineDiscount")
		encodeAmount(e, l.LineDiscount)
		e.FieldStart("lineTotal")
		encodeAmount(e, l.LineTotal)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("discounts")
	e.ArrStart()
	for _, d := range r.Discounts {
		e.ObjStart()
		e.FieldStart("discountTypeId")
		e.Str(d.DiscountTypeID)
		e.FieldStart("amount")
		encodeAmount(e, d.Amount)
		e.FieldStart("approved")
		e.Bool(d.Approved)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("payments")
	e.ArrStart()
	for _, p := range r.Payments {
		e.ObjStart()
		e.FieldStart("method")
		e.Str(string(p.Method))
		e.FieldStart("amount")
		encodeAmount(e, p.Amount)
		encodeOptAmount(e, "tendered", p.Tendered)
		encodeOptAmount(e, "change", p.Change)
		encodeOptString(e, "reference", p.Reference)
		e.ObjEnd()
	}
	e.ArrEnd()

	e.FieldStart("totals")
	encodeTotals(e, r.Totals)
	e.FieldStart("totalPaid")
	encodeAmount(e, r.TotalPaid)
	e.FieldStart("changeDue")
	encodeAmount(e, r.ChangeDue)
	e.ObjEnd()
}
