package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/pos-checkout/internal/domain/discount"
	"github.com/xenking/pos-checkout/internal/domain/inventory"
	"github.com/xenking/pos-checkout/internal/domain/user"
)

const (
	upsertUserSQL = `INSERT INTO users (id, name, role, active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role, active = EXCLUDED.active`

	upsertDiscountTypeSQL = `INSERT INTO discount_types (id, name, kind, value, scope, requires_manager_pin)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, kind = EXCLUDED.kind,
			value = EXCLUDED.value, scope = EXCLUDED.scope,
			requires_manager_pin = EXCLUDED.requires_manager_pin`

	upsertProductSQL = `INSERT INTO products (id, name, price, active) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, active = EXCLUDED.active`

	upsertInventorySQL = `INSERT INTO inventory (id, product_id, quantity, low_stock_threshold)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id) DO UPDATE SET quantity = EXCLUDED.quantity,
			low_stock_threshold = EXCLUDED.low_stock_threshold, updated_at = now()`

	listProductIDsSQL = `SELECT product_id FROM inventory ORDER BY product_id`

	setStockCountSQL = `UPDATE inventory SET quantity = $2, updated_at = now() WHERE product_id = $1
		RETURNING id, product_id, quantity, low_stock_threshold, updated_at`
)

// UpsertUser creates or replaces a staff member.
func (s *Store) UpsertUser(ctx context.Context, u user.User) error {
	if _, err := s.pool.Exec(ctx, upsertUserSQL, u.ID, u.Name, string(u.Role), u.Active); err != nil {
		return errors.Wrapf(err, "upsert user %s", u.ID)
	}
	return nil
}

// UpsertDiscountType creates or replaces a discount definition.
func (s *Store) UpsertDiscountType(ctx context.Context, t discount.Type) error {
	_, err := s.pool.Exec(ctx, upsertDiscountTypeSQL,
		t.ID, t.Name, string(t.Kind), t.Value, string(t.Scope), t.RequiresManagerPin,
	)
	if err != nil {
		return errors.Wrapf(err, "upsert discount type %s", t.ID)
	}
	return nil
}

// UpsertProduct creates or replaces a product together with its stock record.
func (s *Store) UpsertProduct(ctx context.Context, p inventory.Product, rec inventory.Record) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price.Decimal(), p.Active); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		id := rec.ID
		if id == "" {
			id = "inv-" + p.ID
		}
		if _, err := tx.Exec(ctx, upsertInventorySQL, id, p.ID, rec.Quantity, rec.LowStockThreshold); err != nil {
			return errors.Wrapf(err, "upsert inventory of %s", p.ID)
		}
		return nil
	})
}

// ListProductIDs returns the ids of every product that has a stock record.
func (s *Store) ListProductIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, listProductIDsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list product ids")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, "list product ids")
	}
	return ids, nil
}

// SetStockCounts overwrites the stock quantity of each product in counts in
// one transaction and returns the updated records. Unknown products are
// skipped.
func (s *Store) SetStockCounts(ctx context.Context, counts map[string]int) ([]inventory.Record, error) {
	var out []inventory.Record
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for productID, qty := range counts {
			batch.Queue(setStockCountSQL, productID, qty)
		}

		results := tx.SendBatch(ctx, batch)
		defer func() { _ = results.Close() }()

		for range counts {
			rows, err := results.Query()
			if err != nil {
				return errors.Wrap(err, "set stock count")
			}
			records, err := pgx.CollectRows(rows, scanRecord)
			if err != nil {
				return errors.Wrap(err, "set stock count")
			}
			out = append(out, records...)
		}
		return results.Close()
	})
	if err != nil {
		return nil, mapError(err)
	}
	return out, nil
}
