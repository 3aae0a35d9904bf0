package order

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/xenking/pos-checkout/internal/domain/user"
	"github.com/xenking/pos-checkout/internal/money"
)

// PaymentInput is a tender entry as submitted by the caller.
type PaymentInput struct {
	Method            PaymentMethod
	Amount            money.Amount
	TenderedAmount    *money.Amount
	ChangeGiven       *money.Amount
	ExternalReference string
	ProcessedByUserID string
}

// FinalizePayments is the normalized result of reconciling finalize entries.
type FinalizePayments struct {
	Payments      []Payment
	TotalApplied  money.Amount
	TotalTendered money.Amount
}

// userCache resolves each processor id once per reconciliation.
type userCache struct {
	dir  user.Directory
	seen map[string]struct{}
}

func (c *userCache) resolve(ctx context.Context, id string) error {
	if id == "" {
		return validationf("processed by user is required")
	}
	if _, ok := c.seen[id]; ok {
		return nil
	}
	if _, err := activeUser(ctx, c.dir, id, "payment processor"); err != nil {
		return err
	}
	c.seen[id] = struct{}{}
	return nil
}

// PrepareFinalize validates and normalizes finalize payment entries:
// amount must be positive, tendered defaults to amount and may not be below
// it, change defaults to tendered − amount and must lie in [0, tendered].
func PrepareFinalize(ctx context.Context, dir user.Directory, orderID string, inputs []PaymentInput, now time.Time) (*FinalizePayments, error) {
	if len(inputs) == 0 {
		return nil, validationf("at least one payment is required")
	}

	users := &userCache{dir: dir, seen: make(map[string]struct{})}
	out := &FinalizePayments{Payments: make([]Payment, 0, len(inputs))}

	for i, in := range inputs {
		if !in.Method.Valid() {
			return nil, validationf("payment %d: unknown method %q", i, in.Method)
		}
		if !in.Amount.IsPositive() {
			return nil, validationf("payment %d: amount must be greater than 0", i)
		}

		tendered := in.Amount
		if in.TenderedAmount != nil {
			tendered = *in.TenderedAmount
		}
		if tendered.LessThan(in.Amount) {
			return nil, validationf("payment %d: tendered %s is less than amount %s", i, tendered, in.Amount)
		}

		change := tendered.Sub(in.Amount)
		if in.ChangeGiven != nil {
			change = *in.ChangeGiven
		}
		if change.IsNegative() || change.GreaterThan(tendered) {
			return nil, validationf("payment %d: change %s must be between 0 and tendered %s", i, change, tendered)
		}

		if err := users.resolve(ctx, in.ProcessedByUserID); err != nil {
			return nil, err
		}

		out.Payments = append(out.Payments, Payment{
			ID:                uuid.NewString(),
			OrderID:           orderID,
			Method:            in.Method,
			Amount:            in.Amount,
			TenderedAmount:    &tendered,
			ChangeGiven:       &change,
			ExternalReference: in.ExternalReference,
			ProcessedByUserID: in.ProcessedByUserID,
			CreatedAt:         now,
		})
		out.TotalApplied = out.TotalApplied.Add(in.Amount)
		out.TotalTendered = out.TotalTendered.Add(tendered)
	}

	return out, nil
}

// PrepareRefund validates refund entries and returns them with negated
// amounts, together with the positive refund total.
func PrepareRefund(ctx context.Context, dir user.Directory, orderID string, inputs []PaymentInput, now time.Time) ([]Payment, money.Amount, error) {
	if len(inputs) == 0 {
		return nil, money.Zero, validationf("at least one refund payment is required")
	}

	users := &userCache{dir: dir, seen: make(map[string]struct{})}
	payments := make([]Payment, 0, len(inputs))
	total := money.Zero

	for i, in := range inputs {
		if !in.Method.Valid() {
			return nil, money.Zero, validationf("refund %d: unknown method %q", i, in.Method)
		}
		if !in.Amount.IsPositive() {
			return nil, money.Zero, validationf("refund %d: amount must be greater than 0", i)
		}
		if err := users.resolve(ctx, in.ProcessedByUserID); err != nil {
			return nil, money.Zero, err
		}

		payments = append(payments, Payment{
			ID:                uuid.NewString(),
			OrderID:           orderID,
			Method:            in.Method,
			Amount:            in.Amount.Neg(),
			ExternalReference: in.ExternalReference,
			ProcessedByUserID: in.ProcessedByUserID,
			CreatedAt:         now,
		})
		total = total.Add(in.Amount)
	}

	return payments, total, nil
}
