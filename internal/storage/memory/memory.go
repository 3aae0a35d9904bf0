// Package memory provides an in-process implementation of order.Store.
//
// Transactions are serialized by a single mutex and run against a private
// copy of the committed state, which replaces the committed state only when
// the transaction function succeeds.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-checkout/internal/domain/discount"
	"github.com/xenking/pos-checkout/internal/domain/inventory"
	"github.com/xenking/pos-checkout/internal/domain/order"
	"github.com/xenking/pos-checkout/internal/domain/user"
)

var _ order.Store = (*Store)(nil)

type state struct {
	users     map[string]user.User
	discounts map[string]discount.Type
	products  map[string]inventory.Product
	stock     map[string]inventory.Record // by inventory id
	orders    map[string]*order.Order
	seq       int64
}

func newState() *state {
	return &state{
		users:     make(map[string]user.User),
		discounts: make(map[string]discount.Type),
		products:  make(map[string]inventory.Product),
		stock:     make(map[string]inventory.Record),
		orders:    make(map[string]*order.Order),
	}
}

func (s *state) clone() *state {
	c := &state{
		users:     maps.Clone(s.users),
		discounts: maps.Clone(s.discounts),
		products:  maps.Clone(s.products),
		stock:     maps.Clone(s.stock),
		orders:    make(map[string]*order.Order, len(s.orders)),
		seq:       s.seq,
	}
	for id, o := range s.orders {
		c.orders[id] = cloneOrder(o)
	}
	return c
}

func cloneOrder(o *order.Order) *order.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	c.Discounts = slices.Clone(o.Discounts)
	c.Payments = slices.Clone(o.Payments)
	return &c
}

// Store is a transactional in-memory order.Store.
type Store struct {
	mu        sync.Mutex
	committed *state
	faults    map[string]error
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		committed: newState(),
		faults:    make(map[string]error),
	}
}

// InTx runs fn against a private snapshot and commits it if fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "begin")
	}

	t := &tx{st: s.committed.clone(), faults: s.faults}
	if err := fn(ctx, t); err != nil {
		return err
	}
	s.committed = t.st
	return nil
}

// FailOn makes every later call of the named Tx method return err. A nil err
// clears the fault.
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = err
}

// AddUser registers a staff member.
func (s *Store) AddUser(u user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.users[u.ID] = u
}

// AddDiscountType registers a discount definition.
func (s *Store) AddDiscountType(t discount.Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed.discounts[t.ID] = t
}

// AddProduct registers a product and, when it is tracked, its stock record.
func (s *Store) AddProduct(p inventory.Product, rec *inventory.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.committed.products[p.ID] = p
	if rec != nil {
		r := *rec
		r.ProductID = p.ID
		if r.ID == "" {
			r.ID = "inv-" + p.ID
		}
		s.committed.stock[r.ID] = r
	}
}

// Stock returns the committed quantity of productID.
func (s *Store) Stock(productID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.committed.stock {
		if rec.ProductID == productID {
			return rec.Quantity, true
		}
	}
	return 0, false
}

// Order returns a copy of the committed order aggregate.
func (s *Store) Order(id string) (*order.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.committed.orders[id]
	if !ok {
		return nil, false
	}
	return cloneOrder(o), true
}

type tx struct {
	st     *state
	faults map[string]error
}

func (t *tx) fault(method string) error {
	if err, ok := t.faults[method]; ok {
		return errors.Wrap(err, method)
	}
	return nil
}

func (t *tx) GetUser(_ context.Context, id string) (*user.User, error) {
	if err := t.fault("GetUser"); err != nil {
		return nil, err
	}
	u, ok := t.st.users[id]
	if !ok {
		return nil, errors.Wrapf(user.ErrNotFound, "user %s", id)
	}
	return &u, nil
}

func (t *tx) GetDiscountType(_ context.Context, id string) (*discount.Type, error) {
	if err := t.fault("GetDiscountType"); err != nil {
		return nil, err
	}
	d, ok := t.st.discounts[id]
	if !ok {
		return nil, errors.Wrapf(discount.ErrNotFound, "discount type %s", id)
	}
	return &d, nil
}

func (t *tx) GetProduct(_ context.Context, id string) (*inventory.Product, error) {
	if err := t.fault("GetProduct"); err != nil {
		return nil, err
	}
	p, ok := t.st.products[id]
	if !ok {
		return nil, errors.Wrapf(inventory.ErrProductNotFound, "product %s", id)
	}
	return &p, nil
}

func (t *tx) GetInventoryByProducts(_ context.Context, productIDs []string) (map[string]inventory.Record, error) {
	if err := t.fault("GetInventoryByProducts"); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		want[id] = struct{}{}
	}
	out := make(map[string]inventory.Record, len(productIDs))
	for _, rec := range t.st.stock {
		if _, ok := want[rec.ProductID]; ok {
			out[rec.ProductID] = rec
		}
	}
	return out, nil
}

func (t *tx) SetInventoryQuantity(_ context.Context, inventoryID string, quantity int) error {
	if err := t.fault("SetInventoryQuantity"); err != nil {
		return err
	}
	rec, ok := t.st.stock[inventoryID]
	if !ok {
		return errors.Wrapf(inventory.ErrNotFound, "inventory %s", inventoryID)
	}
	rec.Quantity = quantity
	rec.UpdatedAt = time.Now()
	t.st.stock[inventoryID] = rec
	return nil
}

func (t *tx) NextOrderSeq(context.Context) (int64, error) {
	if err := t.fault("NextOrderSeq"); err != nil {
		return 0, err
	}
	t.st.seq++
	return t.st.seq, nil
}

func (t *tx) GetOrder(_ context.Context, id string) (*order.Order, error) {
	if err := t.fault("GetOrder"); err != nil {
		return nil, err
	}
	o, ok := t.st.orders[id]
	if !ok {
		return nil, errors.Wrapf(order.ErrOrderNotFound, "order %s", id)
	}
	return cloneOrder(o), nil
}

// LockOrder is GetOrder: transactions are already serialized.
func (t *tx) LockOrder(ctx context.Context, id string) (*order.Order, error) {
	if err := t.fault("LockOrder"); err != nil {
		return nil, err
	}
	return t.GetOrder(ctx, id)
}

func (t *tx) CreateOrder(_ context.Context, o *order.Order) error {
	if err := t.fault("CreateOrder"); err != nil {
		return err
	}
	if _, ok := t.st.orders[o.ID]; ok {
		return errors.Errorf("order %s already exists", o.ID)
	}
	c := cloneOrder(o)
	c.Items, c.Discounts, c.Payments = nil, nil, nil
	t.st.orders[o.ID] = c
	return nil
}

func (t *tx) row(id string) (*order.Order, error) {
	o, ok := t.st.orders[id]
	if !ok {
		return nil, errors.Wrapf(order.ErrOrderNotFound, "order %s", id)
	}
	return o, nil
}

func (t *tx) UpdateOrder(_ context.Context, o *order.Order) error {
	if err := t.fault("UpdateOrder"); err != nil {
		return err
	}
	row, err := t.row(o.ID)
	if err != nil {
		return err
	}
	row.Status = o.Status
	row.Subtotal = o.Subtotal
	row.DiscountTotal = o.DiscountTotal
	row.TotalDue = o.TotalDue
	row.TotalPaid = o.TotalPaid
	row.ChangeDue = o.ChangeDue
	row.UpdatedAt = o.UpdatedAt
	return nil
}

func (t *tx) InsertItem(_ context.Context, item *order.Item) error {
	if err := t.fault("InsertItem"); err != nil {
		return err
	}
	row, err := t.row(item.OrderID)
	if err != nil {
		return err
	}
	row.Items = append(row.Items, *item)
	return nil
}

func (t *tx) UpdateItem(_ context.Context, item *order.Item) error {
	if err := t.fault("UpdateItem"); err != nil {
		return err
	}
	row, err := t.row(item.OrderID)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(row.Items, func(i order.Item) bool { return i.ID == item.ID })
	if idx < 0 {
		return errors.Wrapf(order.ErrItemNotFound, "item %s", item.ID)
	}
	row.Items[idx] = *item
	return nil
}

func (t *tx) DeleteItem(_ context.Context, orderID, itemID string) error {
	if err := t.fault("DeleteItem"); err != nil {
		return err
	}
	row, err := t.row(orderID)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(row.Items, func(i order.Item) bool { return i.ID == itemID })
	if idx < 0 {
		return errors.Wrapf(order.ErrItemNotFound, "item %s", itemID)
	}
	row.Items = slices.Delete(row.Items, idx, idx+1)
	return nil
}

func (t *tx) InsertDiscount(_ context.Context, d *order.Discount) error {
	if err := t.fault("InsertDiscount"); err != nil {
		return err
	}
	row, err := t.row(d.OrderID)
	if err != nil {
		return err
	}
	row.Discounts = append(row.Discounts, *d)
	return nil
}

func (t *tx) UpdateDiscount(_ context.Context, d *order.Discount) error {
	if err := t.fault("UpdateDiscount"); err != nil {
		return err
	}
	row, err := t.row(d.OrderID)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(row.Discounts, func(x order.Discount) bool { return x.ID == d.ID })
	if idx < 0 {
		return errors.Wrapf(order.ErrDiscountNotFound, "discount %s", d.ID)
	}
	row.Discounts[idx] = *d
	return nil
}

func (t *tx) DeleteDiscount(_ context.Context, orderID, discountID string) error {
	if err := t.fault("DeleteDiscount"); err != nil {
		return err
	}
	row, err := t.row(orderID)
	if err != nil {
		return err
	}
	idx := slices.IndexFunc(row.Discounts, func(x order.Discount) bool { return x.ID == discountID })
	if idx < 0 {
		return errors.Wrapf(order.ErrDiscountNotFound, "discount %s", discountID)
	}
	row.Discounts = slices.Delete(row.Discounts, idx, idx+1)
	return nil
}

func (t *tx) InsertPayment(_ context.Context, p *order.Payment) error {
	if err := t.fault("InsertPayment"); err != nil {
		return err
	}
	row, err := t.row(p.OrderID)
	if err != nil {
		return err
	}
	row.Payments = append(row.Payments, *p)
	return nil
}

func (t *tx) DeletePayments(_ context.Context, orderID string) error {
	if err := t.fault("DeletePayments"); err != nil {
		return err
	}
	row, err := t.row(orderID)
	if err != nil {
		return err
	}
	row.Payments = nil
	return nil
}
