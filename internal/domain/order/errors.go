package order

import (
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-checkout/internal/domain/discount"
	"github.com/xenking/pos-checkout/internal/domain/inventory"
	"github.com/xenking/pos-checkout/internal/domain/user"
	"github.com/xenking/pos-checkout/internal/money"
)

// Error kinds. Every error returned by Service matches exactly one of these
// with errors.Is, except unexpected store failures.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

// Lookup failures returned by Store implementations.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrItemNotFound     = errors.New("order item not found")
	ErrDiscountNotFound = errors.New("order discount not found")
)

// TransitionError indicates an operation that is illegal in the order's
// current status.
type TransitionError struct {
	OrderID   string
	From      Status
	Operation Operation
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s order %s in status %s", e.Operation, e.OrderID, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrConflict }

// kindError tags err with one of the error kinds while keeping err's own
// chain reachable for errors.As.
type kindError struct {
	kind error
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }

func (e *kindError) Unwrap() error { return e.err }

func (e *kindError) Is(target error) bool { return target == e.kind }

func withKind(kind, err error) error {
	return &kindError{kind: kind, err: err}
}

func validationf(format string, args ...any) error {
	return withKind(ErrValidation, errors.Errorf(format, args...))
}

func forbiddenf(format string, args ...any) error {
	return withKind(ErrForbidden, errors.Errorf(format, args...))
}

func hasKind(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrForbidden)
}

// classify maps collaborator errors onto the error kinds. Errors that already
// carry a kind, and unexpected store errors, are returned untouched.
func classify(err error) error {
	if err == nil || hasKind(err) {
		return err
	}

	var stockErr *inventory.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return withKind(ErrConflict, err)
	case errors.Is(err, money.ErrInvalidAmount),
		errors.Is(err, inventory.ErrQuantityOutOfRange):
		return withKind(ErrValidation, err)
	case errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrDiscountNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, discount.ErrNotFound),
		errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, inventory.ErrProductNotFound):
		return withKind(ErrNotFound, err)
	}
	return err
}
