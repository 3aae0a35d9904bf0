// Package handler exposes the order engine over HTTP.
package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/pos-checkout/internal/domain/order"
	"github.com/xenking/pos-checkout/internal/money"
	"github.com/xenking/pos-checkout/pkg/httpmiddleware"
)

const maxBodyBytes = 1 << 20

// Handler serves the checkout API backed by an order.Service.
type Handler struct {
	orders *order.Service
}

// NewHandler returns a Handler for svc.
func NewHandler(svc *order.Service) *Handler {
	return &Handler{orders: svc}
}

// Router returns the chi router with all order routes mounted under /api.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(httpmiddleware.LogRequests(), httpmiddleware.Labeler())

	r.Route("/api/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.getSummary)
			r.Get("/receipt", h.getReceipt)

			r.Post("/items", h.addItem)
			r.Patch("/items/{itemID}", h.updateItem)
			r.Delete("/items/{itemID}", h.removeItem)

			r.Post("/discounts", h.applyDiscount)
			r.Patch("/discounts/{discountID}", h.updateDiscount)
			r.Delete("/discounts/{discountID}", h.removeDiscount)

			r.Post("/finalize", h.finalize)
			r.Post("/void", h.void)
			r.Post("/refund", h.refund)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// badRequestError is a request that could not be decoded.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return "invalid request body: " + e.err.Error() }

func (e *badRequestError) Unwrap() error { return e.err }

// decodeBody reads the request body and hands it to fn as a jx decoder.
func decodeBody(r *http.Request, fn func(d *jx.Decoder) error) error {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		return &badRequestError{err: err}
	}
	if len(body) == 0 {
		return &badRequestError{err: errors.New("empty body")}
	}
	if err := fn(jx.DecodeBytes(body)); err != nil {
		return &badRequestError{err: err}
	}
	return nil
}

// statusOf maps an engine error to its HTTP status.
func statusOf(err error) int {
	var badReq *badRequestError
	switch {
	case errors.As(err, &badReq),
		errors.Is(err, order.ErrValidation),
		errors.Is(err, money.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, order.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail writes the error response for err. Unexpected errors are logged here
// and nowhere else, and their text is not exposed to the client.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeBody(w, status, e.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)
	writeBody(w, status, e.Bytes())
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
