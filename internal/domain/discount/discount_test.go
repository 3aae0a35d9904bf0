package discount

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-checkout/internal/money"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name    string
		typ     *Type
		base    money.Amount
		want    string
		wantErr error
	}{
		{
			name: "percent 10 of 400",
			typ:  &Type{Kind: KindPercent, Value: d("10")},
			base: money.NewFromInt(400),
			want: "40.00",
		},
		{
			name: "percent rounds to cents",
			typ:  &Type{Kind: KindPercent, Value: d("12.5")},
			base: money.MustParse("9.99"),
			want: "1.25",
		},
		{
			name: "fixed ignores base",
			typ:  &Type{Kind: KindFixed, Value: d("15")},
			base: money.NewFromInt(10),
			want: "15.00",
		},
		{
			name: "percent of zero base",
			typ:  &Type{Kind: KindPercent, Value: d("50")},
			base: money.Zero,
			want: "0.00",
		},
		{
			name:    "unknown kind",
			typ:     &Type{Kind: Kind("BOGO"), Value: d("1")},
			base:    money.NewFromInt(10),
			wantErr: ErrUnsupportedKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compute(tt.typ, tt.base)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
