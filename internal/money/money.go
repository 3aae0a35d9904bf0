// Package money provides a two-decimal fixed-point currency amount.
//
// Every arithmetic operation rounds to cents at the point of computation, so
// totals built from many small steps never accumulate sub-cent drift.
package money

import (
	"math"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits kept for every amount.
const Scale = 2

// ErrInvalidAmount is returned when an amount cannot be constructed from its
// source: non-finite floats, unparsable strings, or negative values at call
// sites that forbid them.
var ErrInvalidAmount = errors.New("invalid amount")

var hundred = decimal.NewFromInt(100)

// Amount is a currency value rounded to two decimal places. The zero value is
// a valid amount of 0.00.
type Amount struct {
	d decimal.Decimal
}

// Zero is 0.00.
var Zero = Amount{}

// New rounds d to cents.
func New(d decimal.Decimal) Amount {
	return Amount{d: d.Round(Scale)}
}

// NewFromInt returns a whole-unit amount.
func NewFromInt(v int64) Amount {
	return Amount{d: decimal.NewFromInt(v)}
}

// NewFromCents returns the amount for the given number of cents.
func NewFromCents(cents int64) Amount {
	return Amount{d: decimal.New(cents, -Scale)}
}

// NewFromFloat converts f, rejecting NaN and infinities.
func NewFromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Zero, errors.Wrapf(ErrInvalidAmount, "non-finite value %v", f)
	}
	return New(decimal.NewFromFloat(f)), nil
}

// Parse parses a decimal string such as "12.50".
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, errors.Wrapf(ErrInvalidAmount, "parse %q", s)
	}
	return New(d), nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// NonNegative returns ErrInvalidAmount when a is below zero.
func NonNegative(a Amount) (Amount, error) {
	if a.IsNegative() {
		return Zero, errors.Wrapf(ErrInvalidAmount, "negative value %s", a)
	}
	return a, nil
}

// Positive returns ErrInvalidAmount unless a is strictly greater than zero.
func Positive(a Amount) (Amount, error) {
	if !a.IsPositive() {
		return Zero, errors.Wrapf(ErrInvalidAmount, "non-positive value %s", a)
	}
	return a, nil
}

// Decimal exposes the underlying decimal, e.g. for database drivers.
func (a Amount) Decimal() decimal.Decimal { return a.d }

func (a Amount) Add(b Amount) Amount { return New(a.d.Add(b.d)) }

func (a Amount) Sub(b Amount) Amount { return New(a.d.Sub(b.d)) }

// Mul multiplies by an integer quantity.
func (a Amount) Mul(qty int) Amount {
	return New(a.d.Mul(decimal.NewFromInt(int64(qty))))
}

// Percent returns value percent of a, i.e. a × value / 100.
func (a Amount) Percent(value decimal.Decimal) Amount {
	return New(a.d.Mul(value).Div(hundred))
}

func (a Amount) Neg() Amount { return Amount{d: a.d.Neg()} }

// Cmp compares normalized values: -1 if a < b, 0 if equal, +1 if a > b.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

func (a Amount) Equal(b Amount) bool       { return a.d.Equal(b.d) }
func (a Amount) LessThan(b Amount) bool    { return a.d.LessThan(b.d) }
func (a Amount) GreaterThan(b Amount) bool { return a.d.GreaterThan(b.d) }
func (a Amount) IsZero() bool              { return a.d.IsZero() }
func (a Amount) IsNegative() bool          { return a.d.IsNegative() }
func (a Amount) IsPositive() bool          { return a.d.IsPositive() }

// Clamp bounds a to [lo, hi]. If hi < lo the result is lo.
func (a Amount) Clamp(lo, hi Amount) Amount {
	if a.LessThan(lo) || hi.LessThan(lo) {
		return lo
	}
	if a.GreaterThan(hi) {
		return hi
	}
	return a
}

// Max returns the larger of a and b.
func Max(a, b Amount) Amount {
	if a.LessThan(b) {
		return b
	}
	return a
}

// Sum adds all amounts.
func Sum(amounts ...Amount) Amount {
	total := Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// String formats with exactly two decimals, e.g. "20.00".
func (a Amount) String() string { return a.d.StringFixed(Scale) }

// Float64 is for presentation only; never feed it back into arithmetic.
func (a Amount) Float64() float64 { return a.d.InexactFloat64() }
