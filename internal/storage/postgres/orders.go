package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-checkout/internal/domain/order"
	"github.com/xenking/pos-checkout/internal/money"
)

const (
	orderColumns = `id, number, cashier_id, status, subtotal, discount_total, total_due,
		total_paid, change_due, created_at, updated_at`

	getOrderSQL  = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	lockOrderSQL = getOrderSQL + ` FOR UPDATE`

	listItemsSQL = `SELECT id, order_id, product_id, name_snapshot, notes, quantity, unit_price,
		line_discount_total, created_at
		FROM order_items WHERE order_id = $1 ORDER BY created_at, id`

	listDiscountsSQL = `SELECT id, order_id, discount_type_id, amount, applied_by_user_id,
		approved_by_manager_id, created_at
		FROM order_discounts WHERE order_id = $1 ORDER BY created_at, id`

	listPaymentsSQL = `SELECT id, order_id, method, amount, tendered_amount, change_given,
		external_reference, processed_by_user_id, created_at
		FROM payments WHERE order_id = $1 ORDER BY created_at, id`

	nextOrderSeqSQL = `SELECT nextval('order_number_seq')`

	createOrderSQL = `INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	updateOrderSQL = `UPDATE orders SET status = $2, subtotal = $3, discount_total = $4,
		total_due = $5, total_paid = $6, change_due = $7, updated_at = $8
		WHERE id = $1`

	insertItemSQL = `INSERT INTO order_items (id, order_id, product_id, name_snapshot, notes,
		quantity, unit_price, line_discount_total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	updateItemSQL = `UPDATE order_items SET notes = $3, quantity = $4, unit_price = $5,
		line_discount_total = $6
		WHERE id = $1 AND order_id = $2`

	deleteItemSQL = `DELETE FROM order_items WHERE id = $1 AND order_id = $2`

	insertDiscountSQL = `INSERT INTO order_discounts (id, order_id, discount_type_id, amount,
		applied_by_user_id, approved_by_manager_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	updateDiscountSQL = `UPDATE order_discounts SET amount = $3, approved_by_manager_id = $4
		WHERE id = $1 AND order_id = $2`

	deleteDiscountSQL = `DELETE FROM order_discounts WHERE id = $1 AND order_id = $2`

	insertPaymentSQL = `INSERT INTO payments (id, order_id, method, amount, tendered_amount,
		change_given, external_reference, processed_by_user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	deletePaymentsSQL = `DELETE FROM payments WHERE order_id = $1`
)

func (t *tx) NextOrderSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, nextOrderSeqSQL).Scan(&seq); err != nil {
		return 0, errors.Wrap(err, "next order seq")
	}
	return seq, nil
}

func (t *tx) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	return t.loadOrder(ctx, getOrderSQL, id)
}

func (t *tx) LockOrder(ctx context.Context, id string) (*order.Order, error) {
	return t.loadOrder(ctx, lockOrderSQL, id)
}

func (t *tx) loadOrder(ctx context.Context, query, id string) (*order.Order, error) {
	rows, err := t.tx.Query(ctx, query, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(order.ErrOrderNotFound, "order %s", id)
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}

	rows, err = t.tx.Query(ctx, listItemsSQL, id)
	if err != nil {
		return nil, errors.Wrap(err, "list items")
	}
	if o.Items, err = pgx.CollectRows(rows, scanItem); err != nil {
		return nil, errors.Wrap(err, "list items")
	}

	rows, err = t.tx.Query(ctx, listDiscountsSQL, id)
	if err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}
	if o.Discounts, err = pgx.CollectRows(rows, scanDiscount); err != nil {
		return nil, errors.Wrap(err, "list discounts")
	}

	rows, err = t.tx.Query(ctx, listPaymentsSQL, id)
	if err != nil {
		return nil, errors.Wrap(err, "list payments")
	}
	if o.Payments, err = pgx.CollectRows(rows, scanPayment); err != nil {
		return nil, errors.Wrap(err, "list payments")
	}

	return &o, nil
}

func (t *tx) CreateOrder(ctx context.Context, o *order.Order) error {
	_, err := t.tx.Exec(ctx, createOrderSQL,
		o.ID, o.Number, o.CashierID, string(o.Status),
		o.Subtotal.Decimal(), o.DiscountTotal.Decimal(), o.TotalDue.Decimal(),
		o.TotalPaid.Decimal(), o.ChangeDue.Decimal(),
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %s", o.ID)
	}
	return nil
}

func (t *tx) UpdateOrder(ctx context.Context, o *order.Order) error {
	tag, err := t.tx.Exec(ctx, updateOrderSQL,
		o.ID, string(o.Status),
		o.Subtotal.Decimal(), o.DiscountTotal.Decimal(), o.TotalDue.Decimal(),
		o.TotalPaid.Decimal(), o.ChangeDue.Decimal(),
		o.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "update order %s", o.ID)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(order.ErrOrderNotFound, "order %s", o.ID)
	}
	return nil
}

func (t *tx) InsertItem(ctx context.Context, item *order.Item) error {
	_, err := t.tx.Exec(ctx, insertItemSQL,
		item.ID, item.OrderID, nullString(item.ProductID), item.NameSnapshot, item.Notes,
		item.Quantity, item.UnitPrice.Decimal(), item.LineDiscountTotal.Decimal(), item.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert item %s", item.ID)
	}
	return nil
}

func (t *tx) UpdateItem(ctx context.Context, item *order.Item) error {
	tag, err := t.tx.Exec(ctx, updateItemSQL,
		item.ID, item.OrderID, item.Notes, item.Quantity,
		item.UnitPrice.Decimal(), item.LineDiscountTotal.Decimal(),
	)
	if err != nil {
		return errors.Wrapf(err, "update item %s", item.ID)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(order.ErrItemNotFound, "item %s", item.ID)
	}
	return nil
}

func (t *tx) DeleteItem(ctx context.Context, orderID, itemID string) error {
	tag, err := t.tx.Exec(ctx, deleteItemSQL, itemID, orderID)
	if err != nil {
		return errors.Wrapf(err, "delete item %s", itemID)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(order.ErrItemNotFound, "item %s", itemID)
	}
	return nil
}

func (t *tx) InsertDiscount(ctx context.Context, d *order.Discount) error {
	_, err := t.tx.Exec(ctx, insertDiscountSQL,
		d.ID, d.OrderID, d.DiscountTypeID, d.Amount.Decimal(),
		d.AppliedByUserID, nullString(d.ApprovedByManagerID), d.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert discount %s", d.ID)
	}
	return nil
}

func (t *tx) UpdateDiscount(ctx context.Context, d *order.Discount) error {
	tag, err := t.tx.Exec(ctx, updateDiscountSQL,
		d.ID, d.OrderID, d.Amount.Decimal(), nullString(d.ApprovedByManagerID),
	)
	if err != nil {
		return errors.Wrapf(err, "update discount %s", d.ID)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(order.ErrDiscountNotFound, "discount %s", d.ID)
	}
	return nil
}

func (t *tx) DeleteDiscount(ctx context.Context, orderID, discountID string) error {
	tag, err := t.tx.Exec(ctx, deleteDiscountSQL, discountID, orderID)
	if err != nil {
		return errors.Wrapf(err, "delete discount %s", discountID)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(order.ErrDiscountNotFound, "discount %s", discountID)
	}
	return nil
}

func (t *tx) InsertPayment(ctx context.Context, p *order.Payment) error {
	_, err := t.tx.Exec(ctx, insertPaymentSQL,
		p.ID, p.OrderID, string(p.Method), p.Amount.Decimal(),
		nullAmount(p.TenderedAmount), nullAmount(p.ChangeGiven),
		p.ExternalReference, p.ProcessedByUserID, p.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "insert payment %s", p.ID)
	}
	return nil
}

func (t *tx) DeletePayments(ctx context.Context, orderID string) error {
	if _, err := t.tx.Exec(ctx, deletePaymentsSQL, orderID); err != nil {
		return errors.Wrapf(err, "delete payments of %s", orderID)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                                                  order.Order
		status                                             string
		subtotal, discountTotal, totalDue, paid, changeDue decimal.Decimal
	)
	err := row.Scan(&o.ID, &o.Number, &o.CashierID, &status,
		&subtotal, &discountTotal, &totalDue, &paid, &changeDue,
		&o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	o.Subtotal = money.New(subtotal)
	o.DiscountTotal = money.New(discountTotal)
	o.TotalDue = money.New(totalDue)
	o.TotalPaid = money.New(paid)
	o.ChangeDue = money.New(changeDue)
	return o, err
}

func scanItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		item                order.Item
		productID           *string
		unitPrice, discount decimal.Decimal
	)
	err := row.Scan(&item.ID, &item.OrderID, &productID, &item.NameSnapshot, &item.Notes,
		&item.Quantity, &unitPrice, &discount, &item.CreatedAt,
	)
	if productID != nil {
		item.ProductID = *productID
	}
	item.UnitPrice = money.New(unitPrice)
	item.LineDiscountTotal = money.New(discount)
	return item, err
}

func scanDiscount(row pgx.CollectableRow) (order.Discount, error) {
	var (
		d        order.Discount
		amount   decimal.Decimal
		approver *string
	)
	err := row.Scan(&d.ID, &d.OrderID, &d.DiscountTypeID, &amount,
		&d.AppliedByUserID, &approver, &d.CreatedAt,
	)
	d.Amount = money.New(amount)
	if approver != nil {
		d.ApprovedByManagerID = *approver
	}
	return d, err
}

func scanPayment(row pgx.CollectableRow) (order.Payment, error) {
	var (
		p                decimal.Decimal
		tendered, change decimal.NullDecimal
		method           string
		out              order.Payment
	)
	err := row.Scan(&out.ID, &out.OrderID, &method, &p, &tendered, &change,
		&out.ExternalReference, &out.ProcessedByUserID, &out.CreatedAt,
	)
	out.Method = order.PaymentMethod(method)
	out.Amount = money.New(p)
	out.TenderedAmount = fromNullDecimal(tendered)
	out.ChangeGiven = fromNullDecimal(change)
	return out, err
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullAmount(a *money.Amount) decimal.NullDecimal {
	if a == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: a.Decimal(), Valid: true}
}

func fromNullDecimal(d decimal.NullDecimal) *money.Amount {
	if !d.Valid {
		return nil
	}
	a := money.New(d.Decimal)
	return &a
}
