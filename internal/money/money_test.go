package money

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromFloat_RejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := NewFromFloat(f)
		require.ErrorIs(t, err, ErrInvalidAmount)
	}

	a, err := NewFromFloat(12.345)
	require.NoError(t, err)
	assert.Equal(t, "12.35", a.String())
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "165", want: "165.00"},
		{in: "0.005", want: "0.01"},
		{in: "-200", want: "-200.00"},
		{in: "1.234", want: "1.23"},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestArithmetic(t *testing.T) {
	price := MustParse("165")
	assert.Equal(t, "330.00", price.Mul(2).String())
	assert.Equal(t, "20.00", MustParse("350").Sub(MustParse("330")).String())
	assert.Equal(t, "40.00", MustParse("400").Percent(decimal.NewFromInt(10)).String())
	assert.Equal(t, "0.33", MustParse("3.33").Percent(decimal.NewFromInt(10)).String())
	assert.Equal(t, "-200.00", NewFromInt(200).Neg().String())
	assert.Equal(t, "12.34", NewFromCents(1234).String())
	assert.Equal(t, "6.00", Sum(NewFromInt(1), NewFromInt(2), NewFromInt(3)).String())
}

func TestCompare(t *testing.T) {
	a := MustParse("10.00")
	b := MustParse("10")

	assert.True(t, a.Equal(b))
	assert.Equal(t, 0, a.Cmp(b))
	assert.True(t, MustParse("9.99").LessThan(a))
	assert.True(t, MustParse("10.01").GreaterThan(a))
	assert.Equal(t, a, Max(a, MustParse("1")))
}

func TestClamp(t *testing.T) {
	lo, hi := Zero, NewFromInt(100)

	assert.Equal(t, "100.00", NewFromInt(150).Clamp(lo, hi).String())
	assert.Equal(t, "0.00", NewFromInt(-5).Clamp(lo, hi).String())
	assert.Equal(t, "42.00", NewFromInt(42).Clamp(lo, hi).String())
	assert.Equal(t, "0.00", NewFromInt(42).Clamp(lo, NewFromInt(-1)).String())
}

func TestSignChecks(t *testing.T) {
	_, err := NonNegative(NewFromInt(-1))
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NonNegative(Zero)
	require.NoError(t, err)

	_, err = Positive(Zero)
	require.ErrorIs(t, err, ErrInvalidAmount)

	v, err := Positive(NewFromInt(1))
	require.NoError(t, err)
	assert.True(t, v.IsPositive())
}
