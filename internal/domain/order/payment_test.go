package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-checkout/internal/domain/user"
	"github.com/xenking/pos-checkout/internal/money"
)

type mockDirectory struct {
	users map[string]user.User
	calls int
}

func (m *mockDirectory) GetUser(_ context.Context, id string) (*user.User, error) {
	m.calls++
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

func newDirectory() *mockDirectory {
	return &mockDirectory{users: map[string]user.User{
		"c1": {ID: "c1", Role: user.RoleCashier},
		"m1": {ID: "m1", Role: user.RoleManager},
	}}
}

func ptr(s string) *money.Amount {
	a := money.MustParse(s)
	return &a
}

func TestPrepareFinalize(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	dir := newDirectory()

	got, err := PrepareFinalize(context.Background(), dir, "o1", []PaymentInput{
		{Method: MethodCash, Amount: money.MustParse("10"), TenderedAmount: ptr("20"), ProcessedByUserID: "c1"},
		{Method: MethodCard, Amount: money.MustParse("5.50"), ProcessedByUserID: "c1", ExternalReference: "ref"},
		{Method: MethodCash, Amount: money.MustParse("1"), TenderedAmount: ptr("5"), ChangeGiven: ptr("0"), ProcessedByUserID: "c1"},
	}, now)
	require.NoError(t, err)

	assert.Equal(t, "16.50", got.TotalApplied.String())
	assert.Equal(t, "30.50", got.TotalTendered.String())
	require.Len(t, got.Payments, 3)
	assert.Equal(t, "10.00", got.Payments[0].ChangeGiven.String())
	assert.Equal(t, "5.50", got.Payments[1].TenderedAmount.String())
	assert.Equal(t, "0.00", got.Payments[1].ChangeGiven.String())
	assert.Equal(t, "0.00", got.Payments[2].ChangeGiven.String())
	assert.Equal(t, "o1", got.Payments[0].OrderID)
	assert.Equal(t, now, got.Payments[0].CreatedAt)
	assert.NotEqual(t, got.Payments[0].ID, got.Payments[1].ID)
	assert.Equal(t, 1, dir.calls)
}

func TestPrepareFinalizeErrors(t *testing.T) {
	tests := []struct {
		name    string
		inputs  []PaymentInput
		wantErr error
	}{
		{"empty", nil, ErrValidation},
		{"zero amount", []PaymentInput{{Method: MethodCash, Amount: money.Zero, ProcessedByUserID: "c1"}}, ErrValidation},
		{"negative amount", []PaymentInput{{Method: MethodCash, Amount: money.MustParse("-1"), ProcessedByUserID: "c1"}}, ErrValidation},
		{"tendered below amount", []PaymentInput{{Method: MethodCash, Amount: money.MustParse("5"), TenderedAmount: ptr("4"), ProcessedByUserID: "c1"}}, ErrValidation},
		{"negative change", []PaymentInput{{Method: MethodCash, Amount: money.MustParse("5"), ChangeGiven: ptr("-1"), ProcessedByUserID: "c1"}}, ErrValidation},
		{"change above tendered", []PaymentInput{{Method: MethodCash, Amount: money.MustParse("5"), TenderedAmount: ptr("6"), ChangeGiven: ptr("7"), ProcessedByUserID: "c1"}}, ErrValidation},
		{"unknown method", []PaymentInput{{Method: "IOU", Amount: money.MustParse("5"), ProcessedByUserID: "c1"}}, ErrValidation},
		{"missing processor", []PaymentInput{{Method: MethodCash, Amount: money.MustParse("5")}}, ErrValidation},
		{"unknown processor", []PaymentInput{{Method: MethodCash, Amount: money.MustParse("5"), ProcessedByUserID: "x"}}, user.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PrepareFinalize(context.Background(), newDirectory(), "o1", tt.inputs, time.Now())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestPrepareRefund(t *testing.T) {
	payments, total, err := PrepareRefund(context.Background(), newDirectory(), "o1", []PaymentInput{
		{Method: MethodCash, Amount: money.MustParse("7.25"), ProcessedByUserID: "m1"},
		{Method: MethodCard, Amount: money.MustParse("2.75"), ProcessedByUserID: "c1"},
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "10.00", total.String())
	require.Len(t, payments, 2)
	assert.Equal(t, "-7.25", payments[0].Amount.String())
	assert.Equal(t, "-2.75", payments[1].Amount.String())
	assert.Nil(t, payments[0].TenderedAmount)
	assert.Nil(t, payments[0].ChangeGiven)

	_, _, err = PrepareRefund(context.Background(), newDirectory(), "o1", nil, time.Now())
	assert.True(t, errors.Is(err, ErrValidation))

	_, _, err = PrepareRefund(context.Background(), newDirectory(), "o1", []PaymentInput{
		{Method: MethodCash, Amount: money.MustParse("-1"), ProcessedByUserID: "c1"},
	}, time.Now())
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify(nil))
	assert.True(t, errors.Is(classify(errors.Wrap(user.ErrNotFound, "x")), ErrNotFound))
	assert.True(t, errors.Is(classify(errors.Wrap(ErrOrderNotFound, "x")), ErrNotFound))
	assert.True(t, errors.Is(classify(errors.Wrap(ErrOrderNotFound, "x")), ErrOrderNotFound))

	plain := errors.New("io")
	assert.Equal(t, plain, classify(plain))

	v := validationf("bad")
	assert.Equal(t, v, classify(v))
}
