package inventory

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStock struct {
	records map[string]Record
	getErr  error
	setErr  error
	loaded  []string
	written map[string]int
}

func (m *mockStock) GetInventoryByProducts(_ context.Context, ids []string) (map[string]Record, error) {
	m.loaded = ids
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make(map[string]Record)
	for _, id := range ids {
		if rec, ok := m.records[id]; ok {
			out[id] = rec
		}
	}
	return out, nil
}

func (m *mockStock) SetInventoryQuantity(_ context.Context, id string, qty int) error {
	if m.setErr != nil {
		return m.setErr
	}
	if m.written == nil {
		m.written = make(map[string]int)
	}
	m.written[id] = qty
	return nil
}

func newStock(records ...Record) *mockStock {
	m := &mockStock{records: make(map[string]Record, len(records))}
	for _, r := range records {
		m.records[r.ProductID] = r
	}
	return m
}

func TestPlan(t *testing.T) {
	tests := []struct {
		name       string
		stock      *mockStock
		lines      []Line
		multiplier int
		want       []Adjustment
		wantErr    error
	}{
		{
			name:       "outbound decrements stock",
			stock:      newStock(Record{ID: "inv-a", ProductID: "coffee", Quantity: 10}),
			lines:      []Line{{ProductID: "coffee", Quantity: 2}},
			multiplier: Outbound,
			want:       []Adjustment{{InventoryID: "inv-a", ProductID: "coffee", Previous: 10, Quantity: 8}},
		},
		{
			name:       "inbound restocks",
			stock:      newStock(Record{ID: "inv-a", ProductID: "coffee", Quantity: 8}),
			lines:      []Line{{ProductID: "coffee", Quantity: 2}},
			multiplier: Inbound,
			want:       []Adjustment{{InventoryID: "inv-a", ProductID: "coffee", Previous: 8, Quantity: 10}},
		},
		{
			name:       "lines for same product are aggregated",
			stock:      newStock(Record{ID: "inv-a", ProductID: "coffee", Quantity: 3}),
			lines:      []Line{{ProductID: "coffee", Quantity: 2}, {ProductID: "coffee", Quantity: 2}},
			multiplier: Outbound,
			wantErr:    &InsufficientStockError{},
		},
		{
			name:       "ad-hoc lines are skipped",
			stock:      newStock(),
			lines:      []Line{{Quantity: 5}},
			multiplier: Outbound,
			want:       nil,
		},
		{
			name:       "exact stock reaches zero",
			stock:      newStock(Record{ID: "inv-a", ProductID: "coffee", Quantity: 2}),
			lines:      []Line{{ProductID: "coffee", Quantity: 2}},
			multiplier: Outbound,
			want:       []Adjustment{{InventoryID: "inv-a", ProductID: "coffee", Previous: 2, Quantity: 0}},
		},
		{
			name:       "missing record",
			stock:      newStock(),
			lines:      []Line{{ProductID: "ghost", Quantity: 1}},
			multiplier: Outbound,
			wantErr:    ErrNotFound,
		},
		{
			name: "result ordered by inventory id",
			stock: newStock(
				Record{ID: "inv-b", ProductID: "apple", Quantity: 5},
				Record{ID: "inv-a", ProductID: "zucchini", Quantity: 5},
			),
			lines:      []Line{{ProductID: "apple", Quantity: 1}, {ProductID: "zucchini", Quantity: 1}},
			multiplier: Outbound,
			want: []Adjustment{
				{InventoryID: "inv-a", ProductID: "zucchini", Previous: 5, Quantity: 4},
				{InventoryID: "inv-b", ProductID: "apple", Previous: 5, Quantity: 4},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Plan(context.Background(), tt.stock, tt.lines, tt.multiplier)
			if tt.wantErr != nil {
				var stockErr *InsufficientStockError
				if errors.As(tt.wantErr, &stockErr) {
					require.ErrorAs(t, err, &stockErr)
				} else {
					require.ErrorIs(t, err, tt.wantErr)
				}
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlan_InsufficientStockDetails(t *testing.T) {
	stock := newStock(
		Record{ID: "inv-a", ProductID: "beans", Quantity: 50},
		Record{ID: "inv-b", ProductID: "milk", Quantity: 1},
	)

	_, err := Plan(context.Background(), stock, []Line{
		{ProductID: "beans", Quantity: 3},
		{ProductID: "milk", Quantity: 4},
	}, Outbound)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "milk", stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 4, stockErr.Requested)
}

func TestPlan_QuantityBounds(t *testing.T) {
	tests := []struct {
		name       string
		quantity   int
		lines      []Line
		multiplier int
		wantErr    error
	}{
		{
			name:       "line above max",
			quantity:   5,
			lines:      []Line{{ProductID: "beans", Quantity: 1 << 62}},
			multiplier: Outbound,
			wantErr:    ErrQuantityOutOfRange,
		},
		{
			name:       "negative line",
			quantity:   5,
			lines:      []Line{{ProductID: "beans", Quantity: -1}},
			multiplier: Outbound,
			wantErr:    ErrQuantityOutOfRange,
		},
		{
			name:     "aggregate above stock does not wrap",
			quantity: 5,
			lines: []Line{
				{ProductID: "beans", Quantity: MaxQuantity},
				{ProductID: "beans", Quantity: MaxQuantity},
				{ProductID: "beans", Quantity: MaxQuantity},
			},
			multiplier: Outbound,
			wantErr:    &InsufficientStockError{},
		},
		{
			name:       "restock past max",
			quantity:   MaxQuantity - 1,
			lines:      []Line{{ProductID: "beans", Quantity: 2}},
			multiplier: Inbound,
			wantErr:    ErrQuantityOutOfRange,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stock := newStock(Record{ID: "inv-a", ProductID: "beans", Quantity: tt.quantity})
			plan, err := Plan(context.Background(), stock, tt.lines, tt.multiplier)
			require.Error(t, err)
			assert.Nil(t, plan)

			var stockErr *InsufficientStockError
			if errors.As(tt.wantErr, &stockErr) {
				require.ErrorAs(t, err, &stockErr)
				assert.Equal(t, tt.quantity, stockErr.Available)
				assert.Equal(t, MaxQuantity+1, stockErr.Requested)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPlan_RestockUpToMax(t *testing.T) {
	stock := newStock(Record{ID: "inv-a", ProductID: "beans", Quantity: MaxQuantity - 2})
	plan, err := Plan(context.Background(), stock, []Line{
		{ProductID: "beans", Quantity: 1},
		{ProductID: "beans", Quantity: 1},
	}, Inbound)
	require.NoError(t, err)
	require.Len(t, plan, 1)
	assert.Equal(t, MaxQuantity, plan[0].Quantity)
}

func TestPlan_LoadsSortedProductIDs(t *testing.T) {
	stock := newStock(
		Record{ID: "1", ProductID: "b", Quantity: 5},
		Record{ID: "2", ProductID: "a", Quantity: 5},
	)

	_, err := Plan(context.Background(), stock, []Line{
		{ProductID: "b", Quantity: 1},
		{ProductID: "a", Quantity: 1},
	}, Outbound)

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, stock.loaded)
}

func TestPlan_ReaderError(t *testing.T) {
	stock := &mockStock{getErr: errors.New("db down")}

	_, err := Plan(context.Background(), stock, []Line{{ProductID: "a", Quantity: 1}}, Outbound)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load inventory")
}

func TestApply(t *testing.T) {
	stock := newStock()
	err := Apply(context.Background(), stock, []Adjustment{
		{InventoryID: "inv-a", Quantity: 8},
		{InventoryID: "inv-b", Quantity: 0},
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"inv-a": 8, "inv-b": 0}, stock.written)
}

func TestApply_WriterError(t *testing.T) {
	stock := &mockStock{setErr: errors.New("write failed")}

	err := Apply(context.Background(), stock, []Adjustment{{InventoryID: "inv-a", Quantity: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "set inventory inv-a")
}

func TestRecord_IsLow(t *testing.T) {
	assert.True(t, Record{Quantity: 2, LowStockThreshold: 5}.IsLow())
	assert.True(t, Record{Quantity: 5, LowStockThreshold: 5}.IsLow())
	assert.False(t, Record{Quantity: 6, LowStockThreshold: 5}.IsLow())
	assert.False(t, Record{Quantity: 0}.IsLow())
}
