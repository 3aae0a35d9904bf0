package main

import (
	"bytes"
	"testing"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/pos-checkout/db"
	"github.com/xenking/pos-checkout/internal/domain/discount"
	"github.com/xenking/pos-checkout/internal/domain/user"
)

func TestReadCatalog_Embedded(t *testing.T) {
	c, err := readCatalog(bytes.NewReader(db.Catalog))
	require.NoError(t, err)

	require.NotEmpty(t, c.Users)
	require.NotEmpty(t, c.DiscountTypes)
	require.NotEmpty(t, c.Products)

	for _, u := range c.Users {
		assert.True(t, u.Active, u.ID)
	}
	var approvers int
	for _, u := range c.Users {
		if u.Role.IsApprover() {
			approvers++
		}
	}
	assert.Positive(t, approvers)

	for _, p := range c.Products {
		assert.Equal(t, p.Product.ID, p.Stock.ProductID)
		assert.True(t, p.Product.Price.IsPositive(), p.Product.ID)
	}
}

func TestReadCatalog_Gzip(t *testing.T) {
	var buf bytes.Buffer
	gz := pgzip.NewWriter(&buf)
	_, err := gz.Write([]byte(`{"users":[{"id":"u1","name":"A","role":"manager","active":false}],
		"discountTypes":[{"id":"d1","name":"D","kind":"percent","value":12.5}],
		"products":[{"id":"p1","name":"P","price":"2.5","stock":4,"lowStockThreshold":5}]}`))
	require.NoError(t, err)
	require.NoError(t, gz.Close())

	c, err := readCatalog(&buf)
	require.NoError(t, err)

	require.Len(t, c.Users, 1)
	assert.Equal(t, user.RoleManager, c.Users[0].Role)
	assert.False(t, c.Users[0].Active)

	require.Len(t, c.DiscountTypes, 1)
	assert.Equal(t, discount.KindPercent, c.DiscountTypes[0].Kind)
	assert.Equal(t, discount.ScopeOrder, c.DiscountTypes[0].Scope)
	assert.Equal(t, "12.5", c.DiscountTypes[0].Value.String())

	require.Len(t, c.Products, 1)
	assert.Equal(t, "2.50", c.Products[0].Product.Price.String())
	assert.True(t, c.Products[0].Stock.IsLow())
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `users`},
		{"unknown role", `{"users":[{"id":"u1","role":"owner"}]}`},
		{"user without id", `{"users":[{"role":"cashier"}]}`},
		{"unknown kind", `{"discountTypes":[{"id":"d1","kind":"BOGO","value":"1"}]}`},
		{"bad value", `{"discountTypes":[{"id":"d1","kind":"FIXED","value":"ten"}]}`},
		{"negative price", `{"products":[{"id":"p1","price":"-1"}]}`},
		{"negative stock", `{"products":[{"id":"p1","price":"1","stock":-2}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCatalog([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}
