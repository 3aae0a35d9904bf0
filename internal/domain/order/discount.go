package order

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/pos-checkout/internal/domain/discount"
	"github.com/xenking/pos-checkout/internal/domain/user"
	"github.com/xenking/pos-checkout/internal/money"
)

// activeUser resolves id and rejects deactivated staff. what names the role
// the user plays in the request and is used in error messages.
func activeUser(ctx context.Context, dir user.Directory, id, what string) (*user.User, error) {
	u, err := dir.GetUser(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s %s", what, id)
	}
	if !u.Active {
		return nil, forbiddenf("%s %s is not active", what, id)
	}
	return u, nil
}

// checkApprover verifies that approverID names a user allowed to approve
// manager-PIN discounts.
func checkApprover(ctx context.Context, dir user.Directory, approverID string) error {
	approver, err := activeUser(ctx, dir, approverID, "approver")
	if err != nil {
		return err
	}
	if !approver.Role.IsApprover() {
		return forbiddenf("user %s with role %s cannot approve discounts", approverID, approver.Role)
	}
	return nil
}

// authorizeDiscount enforces the manager approval policy of t.
func authorizeDiscount(ctx context.Context, dir user.Directory, t *discount.Type, approverID string) error {
	if !t.RequiresManagerPin {
		if approverID != "" {
			return checkApprover(ctx, dir, approverID)
		}
		return nil
	}
	if approverID == "" {
		return validationf("discount type %s requires manager approval", t.ID)
	}
	return checkApprover(ctx, dir, approverID)
}

// discountAmount computes the amount of a new order-level discount: explicit
// when given, otherwise derived from t, and always clamped to the remaining
// discountable base max(0, subtotal − discountTotal).
func discountAmount(o *Order, t *discount.Type, explicit *money.Amount) (money.Amount, error) {
	totals := o.Totals()
	base := money.Max(money.Zero, totals.Subtotal.Sub(totals.DiscountTotal))

	var amount money.Amount
	if explicit != nil {
		v, err := money.NonNegative(*explicit)
		if err != nil {
			return money.Zero, errors.Wrap(err, "discount amount")
		}
		amount = v
	} else {
		v, err := discount.Compute(t, base)
		if err != nil {
			return money.Zero, withKind(ErrValidation, err)
		}
		amount = v
	}

	return amount.Clamp(money.Zero, base), nil
}
