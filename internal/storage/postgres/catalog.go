package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/pos-checkout/internal/domain/discount"
	"github.com/xenking/pos-checkout/internal/domain/inventory"
	"github.com/xenking/pos-checkout/internal/domain/user"
	"github.com/xenking/pos-checkout/internal/money"
)

const (
	getUserSQL = `SELECT id, name, role, active FROM users WHERE id = $1`

	getDiscountTypeSQL = `SELECT id, name, kind, value, scope, requires_manager_pin
		FROM discount_types WHERE id = $1`

	getProductSQL = `SELECT id, name, price, active FROM products WHERE id = $1`

	lockInventorySQL = `SELECT id, product_id, quantity, low_stock_threshold, updated_at
		FROM inventory WHERE product_id = ANY($1) ORDER BY id FOR UPDATE`

	setInventorySQL = `UPDATE inventory SET quantity = $2, updated_at = now() WHERE id = $1`
)

func (t *tx) GetUser(ctx context.Context, id string) (*user.User, error) {
	rows, err := t.tx.Query(ctx, getUserSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get user %s", id)
	}
	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(user.ErrNotFound, "user %s", id)
		}
		return nil, errors.Wrapf(err, "get user %s", id)
	}
	return &u, nil
}

func (t *tx) GetDiscountType(ctx context.Context, id string) (*discount.Type, error) {
	rows, err := t.tx.Query(ctx, getDiscountTypeSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get discount type %s", id)
	}
	d, err := pgx.CollectExactlyOneRow(rows, scanDiscountType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(discount.ErrNotFound, "discount type %s", id)
		}
		return nil, errors.Wrapf(err, "get discount type %s", id)
	}
	return &d, nil
}

func (t *tx) GetProduct(ctx context.Context, id string) (*inventory.Product, error) {
	rows, err := t.tx.Query(ctx, getProductSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(inventory.ErrProductNotFound, "product %s", id)
		}
		return nil, errors.Wrapf(err, "get product %s", id)
	}
	return &p, nil
}

// GetInventoryByProducts locks the stock rows of productIDs in inventory id
// order until the transaction ends.
func (t *tx) GetInventoryByProducts(ctx context.Context, productIDs []string) (map[string]inventory.Record, error) {
	rows, err := t.tx.Query(ctx, lockInventorySQL, productIDs)
	if err != nil {
		return nil, errors.Wrap(err, "lock inventory")
	}
	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, errors.Wrap(err, "lock inventory")
	}

	out := make(map[string]inventory.Record, len(records))
	for _, rec := range records {
		out[rec.ProductID] = rec
	}
	return out, nil
}

func (t *tx) SetInventoryQuantity(ctx context.Context, inventoryID string, quantity int) error {
	tag, err := t.tx.Exec(ctx, setInventorySQL, inventoryID, quantity)
	if err != nil {
		return errors.Wrapf(err, "set inventory %s", inventoryID)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(inventory.ErrNotFound, "inventory %s", inventoryID)
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u    user.User
		role string
	)
	err := row.Scan(&u.ID, &u.Name, &role, &u.Active)
	u.Role = user.Role(role)
	return u, err
}

func scanDiscountType(row pgx.CollectableRow) (discount.Type, error) {
	var (
		d           discount.Type
		kind, scope string
	)
	err := row.Scan(&d.ID, &d.Name, &kind, &d.Value, &scope, &d.RequiresManagerPin)
	d.Kind = discount.Kind(kind)
	d.Scope = discount.Scope(scope)
	return d, err
}

func scanProduct(row pgx.CollectableRow) (inventory.Product, error) {
	var (
		p     inventory.Product
		price decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Name, &price, &p.Active)
	p.Price = money.New(price)
	return p, err
}

func scanRecord(row pgx.CollectableRow) (inventory.Record, error) {
	var r inventory.Record
	err := row.Scan(&r.ID, &r.ProductID, &r.Quantity, &r.LowStockThreshold, &r.UpdatedAt)
	return r, err
}
