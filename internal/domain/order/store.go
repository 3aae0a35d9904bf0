package order

import (
	"context"

	"github.com/xenking/pos-checkout/internal/domain/discount"
	"github.com/xenking/pos-checkout/internal/domain/inventory"
	"github.com/xenking/pos-checkout/internal/domain/user"
)

// Store opens transactional units of work.
//
// InTx runs fn inside one atomic transaction: if fn returns an error, every
// write made through tx is discarded; otherwise all of them are committed
// together. Implementations must provide at least read-committed isolation
// with row locking on LockOrder and GetInventoryByProducts so that concurrent
// operations on the same order or stock row serialize.
type Store interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of reads and writes available inside a transaction.
type Tx interface {
	user.Directory
	discount.Repository
	inventory.ProductRepository
	inventory.Reader
	inventory.Writer

	// NextOrderSeq returns the next value of the human order number sequence.
	NextOrderSeq(ctx context.Context) (int64, error)

	// GetOrder loads the aggregate without locking it.
	GetOrder(ctx context.Context, id string) (*Order, error)
	// LockOrder loads the aggregate and locks the order row until the
	// transaction ends.
	LockOrder(ctx context.Context, id string) (*Order, error)

	CreateOrder(ctx context.Context, o *Order) error
	// UpdateOrder persists the order row: status, totals and timestamps.
	UpdateOrder(ctx context.Context, o *Order) error

	InsertItem(ctx context.Context, item *Item) error
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, orderID, itemID string) error

	InsertDiscount(ctx context.Context, d *Discount) error
	UpdateDiscount(ctx context.Context, d *Discount) error
	DeleteDiscount(ctx context.Context, orderID, discountID string) error

	InsertPayment(ctx context.Context, p *Payment) error
	DeletePayments(ctx context.Context, orderID string) error
}
