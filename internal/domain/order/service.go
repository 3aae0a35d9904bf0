package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/pos-checkout/internal/domain/discount"
	"github.com/xenking/pos-checkout/internal/domain/inventory"
	"github.com/xenking/pos-checkout/internal/money"
)

const instrumentationName = "github.com/xenking/pos-checkout/internal/domain/order"

// AddItemRequest holds the input for adding a line to an order. UnitPrice
// and NameSnapshot default to the product's price and name when ProductID
// is set and they are omitted.
type AddItemRequest struct {
	ProductID         string
	NameSnapshot      string
	Notes             string
	Quantity          int
	UnitPrice         *money.Amount
	LineDiscountTotal *money.Amount
}

// UpdateItemRequest is a partial item update; nil fields are left unchanged.
// The name snapshot is immutable once captured.
type UpdateItemRequest struct {
	Notes             *string
	Quantity          *int
	UnitPrice         *money.Amount
	LineDiscountTotal *money.Amount
}

// ApplyDiscountRequest holds the input for applying an order-level discount.
type ApplyDiscountRequest struct {
	DiscountTypeID      string
	AppliedByUserID     string
	ApprovedByManagerID string
	Amount              *money.Amount
}

// UpdateDiscountRequest is a partial discount update.
type UpdateDiscountRequest struct {
	Amount              *money.Amount
	ApprovedByManagerID *string
}

// FinalizeRequest holds the payments used to settle an order.
type FinalizeRequest struct {
	Payments []PaymentInput
}

// RefundRequest holds the refund entries. Restock defaults to the service
// setting when nil.
type RefundRequest struct {
	Payments []PaymentInput
	Restock  *bool
}

// Service is the order transaction engine. Every operation runs in exactly
// one Store transaction; any failure discards all of its writes.
type Service struct {
	store           Store
	lg              *zap.Logger
	tracer          trace.Tracer
	transitions     metric.Int64Counter
	notifier        Notifier
	now             func() time.Time
	numberPrefix    string
	restockOnRefund bool
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for transition logs.
func WithLogger(lg *zap.Logger) Option {
	return func(s *Service) { s.lg = lg }
}

// WithTracerProvider enables per-operation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider enables the committed transitions counter.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) {
		counter, err := mp.Meter(instrumentationName).Int64Counter("pos.order.transitions",
			metric.WithDescription("Committed order status transitions"),
		)
		if err == nil {
			s.transitions = counter
		}
	}
}

// WithNotifier sets the collaborator informed of finalized orders.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithOrderNumberPrefix sets the prefix of human order numbers.
func WithOrderNumberPrefix(prefix string) Option {
	return func(s *Service) { s.numberPrefix = prefix }
}

// WithRestockOnRefund sets the default of RefundRequest.Restock.
func WithRestockOnRefund(restock bool) Option {
	return func(s *Service) { s.restockOnRefund = restock }
}

// NewService creates an order Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		lg:              zap.NewNop(),
		tracer:          tracenoop.NewTracerProvider().Tracer(instrumentationName),
		transitions:     metricnoop.Int64Counter{},
		notifier:        nopNotifier{},
		now:             time.Now,
		numberPrefix:    "POS",
		restockOnRefund: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run executes fn in a traced transaction and maps the result onto the
// error kinds.
func (s *Service) run(ctx context.Context, op string, orderID string, fn func(ctx context.Context, tx Tx) error) error {
	ctx, span := s.tracer.Start(ctx, "order."+op, trace.WithAttributes(
		attribute.String("order.id", orderID),
	))
	defer span.End()

	err := classify(s.store.InTx(ctx, fn))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Service) recordTransition(ctx context.Context, o *Order, from Status) {
	s.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(o.Status))))
	s.lg.Info("Order transitioned",
		zap.String("order_id", o.ID),
		zap.String("from", string(from)),
		zap.String("to", string(o.Status)),
	)
}

// lockMutable locks the order and checks it is still OPEN.
func (s *Service) lockMutable(ctx context.Context, tx Tx, orderID string) (*Order, error) {
	o, err := tx.LockOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "lock order %s", orderID)
	}
	if _, err := o.Next(OpModify); err != nil {
		return nil, err
	}
	return o, nil
}

// saveTotals recomputes totals and persists the order row.
func (s *Service) saveTotals(ctx context.Context, tx Tx, o *Order) error {
	o.Recalculate()
	o.UpdatedAt = s.now()
	if err := tx.UpdateOrder(ctx, o); err != nil {
		return errors.Wrap(err, "update order")
	}
	return nil
}

// CreateOrder opens a new order for the given cashier.
func (s *Service) CreateOrder(ctx context.Context, cashierID string) (*Order, error) {
	cashierID = strings.TrimSpace(cashierID)
	if cashierID == "" {
		return nil, validationf("cashier is required")
	}

	var out *Order
	err := s.run(ctx, "CreateOrder", "", func(ctx context.Context, tx Tx) error {
		if _, err := activeUser(ctx, tx, cashierID, "cashier"); err != nil {
			return err
		}
		seq, err := tx.NextOrderSeq(ctx)
		if err != nil {
			return errors.Wrap(err, "next order number")
		}

		now := s.now()
		o := &Order{
			ID:        uuid.NewString(),
			Number:    fmt.Sprintf("%s-%04d-%06d", s.numberPrefix, now.Year(), seq),
			CashierID: cashierID,
			Status:    StatusOpen,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AddItem appends a line to an OPEN order.
func (s *Service) AddItem(ctx context.Context, orderID string, req AddItemRequest) (*Order, error) {
	if err := checkQuantity(req.Quantity); err != nil {
		return nil, err
	}
	lineDiscount, err := optionalNonNegative(req.LineDiscountTotal, "line discount")
	if err != nil {
		return nil, err
	}

	var out *Order
	err = s.run(ctx, "AddItem", orderID, func(ctx context.Context, tx Tx) error {
		o, err := s.lockMutable(ctx, tx, orderID)
		if err != nil {
			return err
		}

		name := strings.TrimSpace(req.NameSnapshot)
		var unitPrice money.Amount
		if req.UnitPrice != nil {
			unitPrice = *req.UnitPrice
		}
		if req.ProductID != "" {
			p, err := tx.GetProduct(ctx, req.ProductID)
			if err != nil {
				return errors.Wrapf(err, "get product %s", req.ProductID)
			}
			if !p.Active {
				return validationf("product %s is not active", req.ProductID)
			}
			if name == "" {
				name = p.Name
			}
			if req.UnitPrice == nil {
				unitPrice = p.Price
			}
		} else if req.UnitPrice == nil {
			return validationf("unit price is required for ad-hoc items")
		}
		if name == "" {
			return validationf("item name is required")
		}
		if unitPrice.IsNegative() {
			return validationf("unit price must not be negative")
		}

		item := Item{
			ID:                uuid.NewString(),
			OrderID:           o.ID,
			ProductID:         req.ProductID,
			NameSnapshot:      name,
			Notes:             req.Notes,
			Quantity:          req.Quantity,
			UnitPrice:         unitPrice,
			LineDiscountTotal: lineDiscount,
			CreatedAt:         s.now(),
		}
		if err := tx.InsertItem(ctx, &item); err != nil {
			return errors.Wrap(err, "insert item")
		}
		o.Items = append(o.Items, item)

		if err := s.saveTotals(ctx, tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateItem changes quantity, price, notes or line discount of an item.
func (s *Service) UpdateItem(ctx context.Context, orderID, itemID string, req UpdateItemRequest) (*Order, error) {
	if req.Quantity != nil {
		if err := checkQuantity(*req.Quantity); err != nil {
			return nil, err
		}
	}
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return nil, validationf("unit price must not be negative")
	}
	if req.LineDiscountTotal != nil && req.LineDiscountTotal.IsNegative() {
		return nil, validationf("line discount must not be negative")
	}

	var out *Order
	err := s.run(ctx, "UpdateItem", orderID, func(ctx context.Context, tx Tx) error {
		o, err := s.lockMutable(ctx, tx, orderID)
		if err != nil {
			return err
		}
		idx := findItem(o.Items, itemID)
		if idx < 0 {
			return errors.Wrapf(ErrItemNotFound, "item %s in order %s", itemID, orderID)
		}

		item := &o.Items[idx]
		if req.Quantity != nil {
			item.Quantity = *req.Quantity
		}
		if req.UnitPrice != nil {
			item.UnitPrice = *req.UnitPrice
		}
		if req.Notes != nil {
			item.Notes = *req.Notes
		}
		if req.LineDiscountTotal != nil {
			item.LineDiscountTotal = *req.LineDiscountTotal
		}
		if err := tx.UpdateItem(ctx, item); err != nil {
			return errors.Wrap(err, "update item")
		}

		if err := s.saveTotals(ctx, tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveItem deletes a line from an OPEN order.
func (s *Service) RemoveItem(ctx context.Context, orderID, itemID string) (*Order, error) {
	var out *Order
	err := s.run(ctx, "RemoveItem", orderID, func(ctx context.Context, tx Tx) error {
		o, err := s.lockMutable(ctx, tx, orderID)
		if err != nil {
			return err
		}
		idx := findItem(o.Items, itemID)
		if idx < 0 {
			return errors.Wrapf(ErrItemNotFound, "item %s in order %s", itemID, orderID)
		}
		if err := tx.DeleteItem(ctx, orderID, itemID); err != nil {
			return errors.Wrap(err, "delete item")
		}
		o.Items = append(o.Items[:idx], o.Items[idx+1:]...)

		if err := s.saveTotals(ctx, tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApplyDiscount adds an order-scoped discount. The amount is clamped to the
// remaining discountable base so a discount alone never drives the total
// below zero.
func (s *Service) ApplyDiscount(ctx context.Context, orderID string, req ApplyDiscountRequest) (*Order, error) {
	if req.DiscountTypeID == "" {
		return nil, validationf("discount type is required")
	}
	if req.AppliedByUserID == "" {
		return nil, validationf("applied by user is required")
	}

	var out *Order
	err := s.run(ctx, "ApplyDiscount", orderID, func(ctx context.Context, tx Tx) error {
		o, err := s.lockMutable(ctx, tx, orderID)
		if err != nil {
			return err
		}
		t, err := tx.GetDiscountType(ctx, req.DiscountTypeID)
		if err != nil {
			return errors.Wrapf(err, "get discount type %s", req.DiscountTypeID)
		}
		if t.Scope != discount.ScopeOrder {
			return forbiddenf("discount type %s has scope %s and cannot be applied to an order", t.ID, t.Scope)
		}
		if _, err := activeUser(ctx, tx, req.AppliedByUserID, "user"); err != nil {
			return err
		}
		if err := authorizeDiscount(ctx, tx, t, req.ApprovedByManagerID); err != nil {
			return err
		}

		amount, err := discountAmount(o, t, req.Amount)
		if err != nil {
			return err
		}

		d := Discount{
			ID:                  uuid.NewString(),
			OrderID:             o.ID,
			DiscountTypeID:      t.ID,
			Amount:              amount,
			AppliedByUserID:     req.AppliedByUserID,
			ApprovedByManagerID: req.ApprovedByManagerID,
			CreatedAt:           s.now(),
		}
		if err := tx.InsertDiscount(ctx, &d); err != nil {
			return errors.Wrap(err, "insert discount")
		}
		o.Discounts = append(o.Discounts, d)

		if err := s.saveTotals(ctx, tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateDiscount changes the amount or approver of an applied discount. A
// new approver is validated like on apply; the amount is not re-clamped.
func (s *Service) UpdateDiscount(ctx context.Context, orderID, discountID string, req UpdateDiscountRequest) (*Order, error) {
	newAmount, err := optionalNonNegative(req.Amount, "discount amount")
	if err != nil {
		return nil, err
	}

	var out *Order
	err = s.run(ctx, "UpdateDiscount", orderID, func(ctx context.Context, tx Tx) error {
		o, err := s.lockMutable(ctx, tx, orderID)
		if err != nil {
			return err
		}
		idx := findDiscount(o.Discounts, discountID)
		if idx < 0 {
			return errors.Wrapf(ErrDiscountNotFound, "discount %s in order %s", discountID, orderID)
		}

		d := &o.Discounts[idx]
		if req.ApprovedByManagerID != nil {
			t, err := tx.GetDiscountType(ctx, d.DiscountTypeID)
			if err != nil {
				return errors.Wrapf(err, "get discount type %s", d.DiscountTypeID)
			}
			if err := authorizeDiscount(ctx, tx, t, *req.ApprovedByManagerID); err != nil {
				return err
			}
			d.ApprovedByManagerID = *req.ApprovedByManagerID
		}
		if req.Amount != nil {
			d.Amount = newAmount
		}
		if err := tx.UpdateDiscount(ctx, d); err != nil {
			return errors.Wrap(err, "update discount")
		}

		if err := s.saveTotals(ctx, tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveDiscount deletes an order discount.
func (s *Service) RemoveDiscount(ctx context.Context, orderID, discountID string) (*Order, error) {
	var out *Order
	err := s.run(ctx, "RemoveDiscount", orderID, func(ctx context.Context, tx Tx) error {
		o, err := s.lockMutable(ctx, tx, orderID)
		if err != nil {
			return err
		}
		idx := findDiscount(o.Discounts, discountID)
		if idx < 0 {
			return errors.Wrapf(ErrDiscountNotFound, "discount %s in order %s", discountID, orderID)
		}
		if err := tx.DeleteDiscount(ctx, orderID, discountID); err != nil {
			return errors.Wrap(err, "delete discount")
		}
		o.Discounts = append(o.Discounts[:idx], o.Discounts[idx+1:]...)

		if err := s.saveTotals(ctx, tx, o); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Finalize settles an OPEN order: totals are recomputed, payments reconciled
// against the amount due, stock is decremented and the payment set replaced.
func (s *Service) Finalize(ctx context.Context, orderID string, req FinalizeRequest) (*Order, error) {
	var out *Order
	err := s.run(ctx, "Finalize", orderID, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return errors.Wrapf(err, "lock order %s", orderID)
		}
		next, err := o.Next(OpFinalize)
		if err != nil {
			return err
		}
		if len(o.Items) == 0 {
			return validationf("order %s has no items", orderID)
		}

		now := s.now()
		o.Recalculate()

		paid, err := PrepareFinalize(ctx, tx, o.ID, req.Payments, now)
		if err != nil {
			return err
		}
		if paid.TotalApplied.LessThan(o.TotalDue) {
			return validationf("payments %s do not cover total due %s", paid.TotalApplied, o.TotalDue)
		}

		plan, err := inventory.Plan(ctx, tx, itemLines(o.Items), inventory.Outbound)
		if err != nil {
			return err
		}
		if err := inventory.Apply(ctx, tx, plan); err != nil {
			return err
		}

		if err := tx.DeletePayments(ctx, o.ID); err != nil {
			return errors.Wrap(err, "delete payments")
		}
		for i := range paid.Payments {
			if err := tx.InsertPayment(ctx, &paid.Payments[i]); err != nil {
				return errors.Wrap(err, "insert payment")
			}
		}

		from := o.Status
		o.Payments = paid.Payments
		o.Status = next
		o.TotalPaid = paid.TotalApplied
		o.ChangeDue = money.Max(money.Zero, paid.TotalTendered.Sub(o.TotalDue))
		o.UpdatedAt = now
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}

		s.recordTransition(ctx, o, from)
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.OrderFinalized(ctx, *out)
	return out, nil
}

// Void cancels an OPEN order. Voiding a VOID order is a no-op.
func (s *Service) Void(ctx context.Context, orderID string) (*Order, error) {
	var out *Order
	err := s.run(ctx, "Void", orderID, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return errors.Wrapf(err, "lock order %s", orderID)
		}
		next, err := o.Next(OpVoid)
		if err != nil {
			return err
		}
		if o.Status == next {
			out = o
			return nil
		}

		if err := tx.DeletePayments(ctx, o.ID); err != nil {
			return errors.Wrap(err, "delete payments")
		}

		from := o.Status
		o.Payments = nil
		o.Status = next
		o.TotalPaid = money.Zero
		o.ChangeDue = money.Zero
		o.UpdatedAt = s.now()
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}

		s.recordTransition(ctx, o, from)
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Refund reverses a PAID order in full. The refund entries must add up to
// exactly the amount previously paid; partial refunds are rejected.
func (s *Service) Refund(ctx context.Context, orderID string, req RefundRequest) (*Order, error) {
	restock := s.restockOnRefund
	if req.Restock != nil {
		restock = *req.Restock
	}

	var out *Order
	err := s.run(ctx, "Refund", orderID, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return errors.Wrapf(err, "lock order %s", orderID)
		}
		next, err := o.Next(OpRefund)
		if err != nil {
			return err
		}

		now := s.now()
		refunds, total, err := PrepareRefund(ctx, tx, o.ID, req.Payments, now)
		if err != nil {
			return err
		}
		if !total.Equal(o.TotalPaid) {
			return validationf("refund total %s must equal amount paid %s", total, o.TotalPaid)
		}

		if restock {
			plan, err := inventory.Plan(ctx, tx, itemLines(o.Items), inventory.Inbound)
			if err != nil {
				return err
			}
			if err := inventory.Apply(ctx, tx, plan); err != nil {
				return err
			}
		}

		for i := range refunds {
			if err := tx.InsertPayment(ctx, &refunds[i]); err != nil {
				return errors.Wrap(err, "insert refund payment")
			}
		}

		from := o.Status
		o.Payments = append(o.Payments, refunds...)
		o.Status = next
		o.TotalPaid = money.Zero
		o.ChangeDue = money.Zero
		o.UpdatedAt = now
		if err := tx.UpdateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "update order")
		}

		s.recordTransition(ctx, o, from)
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetSummary returns the order with freshly computed totals and counts.
func (s *Service) GetSummary(ctx context.Context, orderID string) (*Summary, error) {
	var out *Summary
	err := s.run(ctx, "GetSummary", orderID, func(ctx context.Context, tx Tx) error {
		o, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return errors.Wrapf(err, "get order %s", orderID)
		}
		out = &Summary{
			Order:        o,
			Totals:       o.Totals(),
			ItemCount:    len(o.Items),
			PaymentCount: len(o.Payments),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Receipt returns the receipt view of an order.
func (s *Service) Receipt(ctx context.Context, orderID string) (*ReceiptDetails, error) {
	var out *ReceiptDetails
	err := s.run(ctx, "Receipt", orderID, func(ctx context.Context, tx Tx) error {
		o, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return errors.Wrapf(err, "get order %s", orderID)
		}
		r := BuildReceipt(o)
		out = &r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func checkQuantity(q int) error {
	switch {
	case q <= 0:
		return validationf("quantity must be greater than 0")
	case q > inventory.MaxQuantity:
		return validationf("quantity must not exceed %d", inventory.MaxQuantity)
	}
	return nil
}

func optionalNonNegative(v *money.Amount, what string) (money.Amount, error) {
	if v == nil {
		return money.Zero, nil
	}
	if v.IsNegative() {
		return money.Zero, validationf("%s must not be negative", what)
	}
	return *v, nil
}

func findItem(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func findDiscount(discounts []Discount, id string) int {
	for i := range discounts {
		if discounts[i].ID == id {
			return i
		}
	}
	return -1
}

func itemLines(items []Item) []inventory.Line {
	lines := make([]inventory.Line, len(items))
	for i, item := range items {
		lines[i] = inventory.Line{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return lines
}
