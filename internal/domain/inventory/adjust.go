package inventory

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
)

// Multipliers used when planning stock movements.
const (
	// Outbound removes stock, used on finalize.
	Outbound = -1
	// Inbound returns stock, used on refund with restock.
	Inbound = 1
)

// Line is a quantity of a product leaving or entering stock. Lines without a
// product id (ad-hoc items) are ignored by Plan.
type Line struct {
	ProductID string
	Quantity  int
}

// Adjustment is one planned stock write.
type Adjustment struct {
	InventoryID string
	ProductID   string
	Previous    int
	Quantity    int
}

// Plan computes the resulting quantity for every product referenced by lines,
// as current + qty × multiplier. Lines for the same product are aggregated
// first. If any resulting quantity would be negative the whole batch fails
// with *InsufficientStockError and nothing is planned. A line or resulting
// quantity above MaxQuantity fails with ErrQuantityOutOfRange.
//
// The returned adjustments are ordered by inventory id.
func Plan(ctx context.Context, r Reader, lines []Line, multiplier int) ([]Adjustment, error) {
	// Totals saturate just above MaxQuantity so the sum cannot wrap.
	totals := make(map[string]int64, len(lines))
	for _, line := range lines {
		if line.ProductID == "" {
			continue
		}
		if line.Quantity < 0 || line.Quantity > MaxQuantity {
			return nil, errors.Wrapf(ErrQuantityOutOfRange, "product %s: quantity %d", line.ProductID, line.Quantity)
		}
		totals[line.ProductID] = min(totals[line.ProductID]+int64(line.Quantity), MaxQuantity+1)
	}
	if len(totals) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	records, err := r.GetInventoryByProducts(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load inventory")
	}

	plan := make([]Adjustment, 0, len(ids))
	for _, productID := range ids {
		rec, ok := records[productID]
		if !ok {
			return nil, &RecordNotFoundError{ProductID: productID}
		}
		total := totals[productID]
		next := int64(rec.Quantity) + total*int64(multiplier)
		switch {
		case next < 0:
			return nil, &InsufficientStockError{
				ProductID: productID,
				Available: rec.Quantity,
				Requested: int(total),
			}
		case next > MaxQuantity:
			return nil, errors.Wrapf(ErrQuantityOutOfRange, "product %s: stock %d + %d", productID, rec.Quantity, total)
		}
		plan = append(plan, Adjustment{
			InventoryID: rec.ID,
			ProductID:   productID,
			Previous:    rec.Quantity,
			Quantity:    int(next),
		})
	}

	sort.Slice(plan, func(i, j int) bool { return plan[i].InventoryID < plan[j].InventoryID })
	return plan, nil
}

// Apply writes every planned quantity. It must run in the same transaction
// as the order change the plan serves.
func Apply(ctx context.Context, w Writer, plan []Adjustment) error {
	for _, adj := range plan {
		if err := w.SetInventoryQuantity(ctx, adj.InventoryID, adj.Quantity); err != nil {
			return errors.Wrapf(err, "set inventory %s", adj.InventoryID)
		}
	}
	return nil
}
