package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xenking/pos-checkout/internal/domain/discount"
	"github.com/xenking/pos-checkout/internal/domain/inventory"
	"github.com/xenking/pos-checkout/internal/domain/order"
	"github.com/xenking/pos-checkout/internal/domain/user"
	"github.com/xenking/pos-checkout/internal/money"
	"github.com/xenking/pos-checkout/internal/storage/memory"
)

// --- Helpers ---

func newTestServer(t *testing.T) (*memory.Store, http.Handler) {
	t.Helper()

	s := memory.New()
	s.AddUser(user.User{ID: "cashier", Name: "Cam", Role: user.RoleCashier, Active: true})
	s.AddUser(user.User{ID: "manager", Name: "Mia", Role: user.RoleManager, Active: true})
	s.AddDiscountType(discount.Type{ID: "pct10", Name: "10% off", Kind: discount.KindPercent,
		Value: decimal.NewFromInt(10), Scope: discount.ScopeOrder})
	s.AddDiscountType(discount.Type{ID: "staff", Name: "Staff", Kind: discount.KindPercent,
		Value: decimal.NewFromInt(20), Scope: discount.ScopeOrder, RequiresManagerPin: true})
	s.AddProduct(inventory.Product{ID: "latte", Name: "Latte", Price: money.MustParse("165.00"), Active: true},
		&inventory.Record{Quantity: 3})

	svc := order.NewService(s, order.WithClock(func() time.Time {
		return time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
	}))
	return s, NewHandler(svc).Router()
}

type response struct {
	Code int
	Body []byte
}

func do(t *testing.T, h http.Handler, method, path, body string) response {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return response{Code: w.Code, Body: w.Body.Bytes()}
}

// field extracts a top-level string or number field from a JSON object.
func field(t *testing.T, body []byte, name string) string {
	t.Helper()
	var out string
	err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if key != name {
			return d.Skip()
		}
		switch d.Next() {
		case jx.String:
			s, err := d.Str()
			out = s
			return err
		default:
			raw, err := d.Raw()
			out = raw.String()
			return err
		}
	})
	require.NoError(t, err)
	return out
}

// nested returns the raw JSON of a top-level field.
func nested(t *testing.T, body []byte, name string) []byte {
	t.Helper()
	var out []byte
	err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if key != name {
			return d.Skip()
		}
		raw, err := d.Raw()
		out = append([]byte(nil), raw...)
		return err
	})
	require.NoError(t, err)
	return out
}

func arrayLen(t *testing.T, raw []byte) int {
	t.Helper()
	n := 0
	require.NoError(t, jx.DecodeBytes(raw).Arr(func(d *jx.Decoder) error {
		n++
		return d.Skip()
	}))
	return n
}

func createOrder(t *testing.T, h http.Handler) string {
	t.Helper()
	resp := do(t, h, http.MethodPost, "/api/orders", `{"cashierId":"cashier"}`)
	require.Equal(t, http.StatusCreated, resp.Code, string(resp.Body))
	return field(t, resp.Body, "id")
}

// --- Tests ---

func TestHandler_CheckoutFlow(t *testing.T) {
	store, h := newTestServer(t)
	id := createOrder(t, h)
	base := "/api/orders/" + id

	resp := do(t, h, http.MethodPost, base+"/items", `{"productId":"latte","quantity":2}`)
	require.Equal(t, http.StatusCreated, resp.Code, string(resp.Body))
	assert.Equal(t, "330.00", field(t, resp.Body, "subtotal"))
	assert.Equal(t, "330.00", field(t, resp.Body, "totalDue"))

	resp = do(t, h, http.MethodPost, base+"/finalize",
		`{"payments":[{"method":"CASH","amount":"330","tenderedAmount":350,"processedByUserId":"cashier"}]}`)
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	assert.Equal(t, "PAID", field(t, resp.Body, "status"))
	assert.Equal(t, "330.00", field(t, resp.Body, "totalPaid"))
	assert.Equal(t, "20.00", field(t, resp.Body, "changeDue"))
	assert.Equal(t, 1, arrayLen(t, nested(t, resp.Body, "payments")))

	stock, ok := store.Stock("latte")
	require.True(t, ok)
	assert.Equal(t, 1, stock)

	resp = do(t, h, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "1", field(t, resp.Body, "itemCount"))
	assert.Equal(t, "1", field(t, resp.Body, "paymentCount"))
	assert.Equal(t, "PAID", field(t, nested(t, resp.Body, "order"), "status"))

	resp = do(t, h, http.MethodGet, base+"/receipt", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, id, field(t, resp.Body, "orderId"))
	assert.Equal(t, "POS-2025-000001", field(t, resp.Body, "orderNumber"))
	assert.Equal(t, 1, arrayLen(t, nested(t, resp.Body, "lines")))

	resp = do(t, h, http.MethodPost, base+"/refund",
		`{"payments":[{"method":"CASH","amount":"330.00","processedByUserId":"manager"}]}`)
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	assert.Equal(t, "REFUNDED", field(t, resp.Body, "status"))
	assert.Equal(t, "0.00", field(t, resp.Body, "totalPaid"))
	assert.Equal(t, 2, arrayLen(t, nested(t, resp.Body, "payments")))

	stock, _ = store.Stock("latte")
	assert.Equal(t, 3, stock)
}

func TestHandler_ItemsAndDiscounts(t *testing.T) {
	_, h := newTestServer(t)
	id := createOrder(t, h)
	base := "/api/orders/" + id

	resp := do(t, h, http.MethodPost, base+"/items",
		`{"nameSnapshot":"Cake","quantity":2,"unitPrice":"200.00","notes":null}`)
	require.Equal(t, http.StatusCreated, resp.Code, string(resp.Body))
	items := nested(t, resp.Body, "items")
	var itemID string
	require.NoError(t, jx.DecodeBytes(items).Arr(func(d *jx.Decoder) error {
		raw, err := d.Raw()
		if err != nil {
			return err
		}
		itemID = field(t, raw, "id")
		return nil
	}))
	require.NotEmpty(t, itemID)

	resp = do(t, h, http.MethodPost, base+"/discounts",
		`{"discountTypeId":"pct10","appliedByUserId":"cashier"}`)
	require.Equal(t, http.StatusCreated, resp.Code, string(resp.Body))
	assert.Equal(t, "40.00", field(t, resp.Body, "discountTotal"))
	assert.Equal(t, "360.00", field(t, resp.Body, "totalDue"))

	resp = do(t, h, http.MethodPatch, base+"/items/"+itemID, `{"quantity":1,"notes":"no nuts"}`)
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	assert.Equal(t, "200.00", field(t, resp.Body, "subtotal"))

	resp = do(t, h, http.MethodDelete, base+"/items/"+itemID, "")
	require.Equal(t, http.StatusOK, resp.Code, string(resp.Body))
	assert.Equal(t, "0.00", field(t, resp.Body, "subtotal"))
	assert.Equal(t, 0, arrayLen(t, nested(t, resp.Body, "items")))

	resp = do(t, h, http.MethodPost, base+"/void", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "VOID", field(t, resp.Body, "status"))
}

func TestHandler_Errors(t *testing.T) {
	_, h := newTestServer(t)
	id := createOrder(t, h)
	base := "/api/orders/" + id

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"unknown order", http.MethodGet, "/api/orders/nope", "", http.StatusNotFound},
		{"unknown cashier", http.MethodPost, "/api/orders", `{"cashierId":"ghost"}`, http.StatusNotFound},
		{"empty body", http.MethodPost, base + "/items", "", http.StatusBadRequest},
		{"malformed json", http.MethodPost, base + "/items", `{"quantity":`, http.StatusBadRequest},
		{"bad amount", http.MethodPost, base + "/items", `{"nameSnapshot":"x","quantity":1,"unitPrice":"abc"}`, http.StatusBadRequest},
		{"zero quantity", http.MethodPost, base + "/items", `{"productId":"latte","quantity":0}`, http.StatusBadRequest},
		{"quantity above int32", http.MethodPost, base + "/items", `{"productId":"latte","quantity":4611686018427387904}`, http.StatusBadRequest},
		{"unknown product", http.MethodPost, base + "/items", `{"productId":"tea","quantity":1}`, http.StatusNotFound},
		{"approval missing", http.MethodPost, base + "/discounts", `{"discountTypeId":"staff","appliedByUserId":"cashier"}`, http.StatusBadRequest},
		{"approver not a manager", http.MethodPost, base + "/discounts", `{"discountTypeId":"staff","appliedByUserId":"cashier","approvedByManagerId":"cashier"}`, http.StatusForbidden},
		{"finalize without items", http.MethodPost, base + "/finalize", `{"payments":[{"method":"CASH","amount":"1","processedByUserId":"cashier"}]}`, http.StatusBadRequest},
		{"refund open order", http.MethodPost, base + "/refund", `{"payments":[{"method":"CASH","amount":"1","processedByUserId":"cashier"}]}`, http.StatusConflict},
		{"unknown route", http.MethodGet, "/api/tills", "", http.StatusNotFound},
		{"method not allowed", http.MethodPut, base, "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.Code, string(resp.Body))
			assert.Equal(t, tt.status, mustAtoi(t, field(t, resp.Body, "code")))
			assert.NotEmpty(t, field(t, resp.Body, "message"))
		})
	}
}

func TestHandler_InsufficientStock(t *testing.T) {
	store, h := newTestServer(t)
	id := createOrder(t, h)
	base := "/api/orders/" + id

	resp := do(t, h, http.MethodPost, base+"/items", `{"productId":"latte","quantity":5}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = do(t, h, http.MethodPost, base+"/finalize",
		`{"payments":[{"method":"CARD","amount":"825.00","externalReference":"auth-1","processedByUserId":"cashier"}]}`)
	assert.Equal(t, http.StatusConflict, resp.Code, string(resp.Body))

	stock, _ := store.Stock("latte")
	assert.Equal(t, 3, stock)
	o, ok := store.Order(id)
	require.True(t, ok)
	assert.Equal(t, order.StatusOpen, o.Status)
	assert.Empty(t, o.Payments)
}

func TestFail_InternalErrorIsLoggedAndHidden(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(zctx.Base(context.Background(), zap.New(core)))
	w := httptest.NewRecorder()

	fail(w, req, errors.New("connection reset by peer"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", field(t, w.Body.Bytes(), "message"))
	assert.Equal(t, 1, logs.FilterMessage("Request failed").Len())
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.Wrap(order.ErrValidation, "qty"), http.StatusBadRequest},
		{errors.Wrap(money.ErrInvalidAmount, "price"), http.StatusBadRequest},
		{&badRequestError{err: errors.New("eof")}, http.StatusBadRequest},
		{errors.Wrap(order.ErrForbidden, "role"), http.StatusForbidden},
		{errors.Wrap(order.ErrNotFound, "order"), http.StatusNotFound},
		{&order.TransitionError{From: order.StatusPaid, Operation: order.OpVoid}, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	d := jx.DecodeStr(s)
	v, err := d.Int()
	require.NoError(t, err)
	return v
}
