package discount

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-checkout/internal/money"
)

// Kind enumerates how a discount type derives its amount.
type Kind string

const (
	// KindPercent takes Value percent of the discountable base.
	KindPercent Kind = "PERCENT"
	// KindFixed takes Value as a flat currency amount.
	KindFixed Kind = "FIXED"
)

// Scope tells whether a discount type applies to a whole order or a single line.
type Scope string

const (
	ScopeOrder Scope = "ORDER"
	ScopeItem  Scope = "ITEM"
)

var (
	// ErrNotFound is returned when a discount type id does not resolve.
	ErrNotFound = errors.New("discount type not found")
	// ErrUnsupportedKind is returned for kinds other than PERCENT and FIXED.
	ErrUnsupportedKind = errors.New("unsupported discount kind")
)

// Type is a configured discount definition. It is owned by the back office;
// the checkout engine only reads it.
type Type struct {
	ID                 string
	Name               string
	Kind               Kind
	Value              decimal.Decimal
	Scope              Scope
	RequiresManagerPin bool
}

// Repository provides lookup of discount types.
type Repository interface {
	GetDiscountType(ctx context.Context, id string) (*Type, error)
}

// Compute returns the raw discount amount for t against base, before any
// clamping. PERCENT yields base × Value / 100; FIXED yields Value.
func Compute(t *Type, base money.Amount) (money.Amount, error) {
	switch t.Kind {
	case KindPercent:
		return base.Percent(t.Value), nil
	case KindFixed:
		return money.New(t.Value), nil
	default:
		return money.Zero, errors.Wrapf(ErrUnsupportedKind, "%q", t.Kind)
	}
}
