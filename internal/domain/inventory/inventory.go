package inventory

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-checkout/internal/money"
)

// MaxQuantity is the largest quantity an order line or stock record may
// hold. Quantities are stored in INTEGER columns.
const MaxQuantity = math.MaxInt32

var (
	// ErrQuantityOutOfRange is returned when a line quantity, or the stock
	// that would result from a plan, exceeds MaxQuantity.
	ErrQuantityOutOfRange = errors.New("quantity out of range")
	// ErrNotFound is returned when a product or its stock record is missing.
	ErrNotFound = errors.New("inventory not found")
	// ErrProductNotFound is returned when a product id does not resolve.
	ErrProductNotFound = errors.New("product not found")
)

// Product is a catalog entry an order item may reference.
type Product struct {
	ID     string
	Name   string
	Price  money.Amount
	Active bool
}

// Record is the stock counter for one product.
type Record struct {
	ID                string
	ProductID         string
	Quantity          int
	LowStockThreshold int
	UpdatedAt         time.Time
}

// IsLow reports whether the quantity is at or below the low-stock threshold.
func (r Record) IsLow() bool {
	return r.LowStockThreshold > 0 && r.Quantity <= r.LowStockThreshold
}

// InsufficientStockError indicates that applying a plan would drive a
// product's stock below zero.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// RecordNotFoundError indicates that a product referenced by an order item
// has no stock record.
type RecordNotFoundError struct {
	ProductID string
}

func (e *RecordNotFoundError) Error() string {
	return fmt.Sprintf("inventory for product %s not found", e.ProductID)
}

func (e *RecordNotFoundError) Unwrap() error { return ErrNotFound }

// Reader loads stock records by product id. Implementations running inside a
// transaction must lock the returned rows until the transaction ends.
type Reader interface {
	GetInventoryByProducts(ctx context.Context, productIDs []string) (map[string]Record, error)
}

// Writer persists new stock quantities.
type Writer interface {
	SetInventoryQuantity(ctx context.Context, inventoryID string, quantity int) error
}

// ProductRepository resolves catalog products.
type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
}
