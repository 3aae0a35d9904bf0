package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/pos-checkout/internal/domain/order"
)

func (h *Handler) respondOrder(w http.ResponseWriter, r *http.Request, status int, o *order.Order, err error) {
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, status, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var cashierID string
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "cashierId" {
				return d.Skip()
			}
			s, err := d.Str()
			cashierID = s
			return err
		})
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.CreateOrder(r.Context(), cashierID)
	h.respondOrder(w, r, http.StatusCreated, o, err)
}

func (h *Handler) getSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.orders.GetSummary(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeSummary(e, s) })
}

func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	rec, err := h.orders.Receipt(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeReceipt(e, rec) })
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req order.AddItemRequest
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "productId":
				req.ProductID, err = decodeNullableString(d)
			case "nameSnapshot":
				req.NameSnapshot, err = decodeNullableString(d)
			case "notes":
				req.Notes, err = decodeNullableString(d)
			case "quantity":
				req.Quantity, err = d.Int()
			case "unitPrice":
				req.UnitPrice, err = decodeOptAmount(d)
			case "lineDiscountTotal":
				req.LineDiscountTotal, err = decodeOptAmount(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrapf(err, "field %q", key)
			}
			return nil
		})
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.AddItem(r.Context(), chi.URLParam(r, "orderID"), req)
	h.respondOrder(w, r, http.StatusCreated, o, err)
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req order.UpdateItemRequest
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "notes":
				req.Notes, err = decodeOptString(d)
			case "quantity":
				if d.Next() == jx.Null {
					err = d.Null()
					break
				}
				var q int
				q, err = d.Int()
				req.Quantity = &q
			case "unitPrice":
				req.UnitPrice, err = decodeOptAmount(d)
			case "lineDiscountTotal":
				req.LineDiscountTotal, err = decodeOptAmount(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrapf(err, "field %q", key)
			}
			return nil
		})
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.UpdateItem(r.Context(), chi.URLParam(r, "orderID"), chi.URLParam(r, "itemID"), req)
	h.respondOrder(w, r, http.StatusOK, o, err)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.RemoveItem(r.Context(), chi.URLParam(r, "orderID"), chi.URLParam(r, "itemID"))
	h.respondOrder(w, r, http.StatusOK, o, err)
}

func (h *Handler) applyDiscount(w http.ResponseWriter, r *http.Request) {
	var req order.ApplyDiscountRequest
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "discountTypeId":
				req.DiscountTypeID, err = d.Str()
			case "appliedByUserId":
				req.AppliedByUserID, err = d.Str()
			case "approvedByManagerId":
				req.ApprovedByManagerID, err = decodeNullableString(d)
			case "amount":
				req.Amount, err = decodeOptAmount(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrapf(err, "field %q", key)
			}
			return nil
		})
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.ApplyDiscount(r.Context(), chi.URLParam(r, "orderID"), req)
	h.respondOrder(w, r, http.StatusCreated, o, err)
}

func (h *Handler) updateDiscount(w http.ResponseWriter, r *http.Request) {
	var req order.UpdateDiscountRequest
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "amount":
				req.Amount, err = decodeOptAmount(d)
			case "approvedByManagerId":
				req.ApprovedByManagerID, err = decodeOptString(d)
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrapf(err, "field %q", key)
			}
			return nil
		})
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.UpdateDiscount(r.Context(), chi.URLParam(r, "orderID"), chi.URLParam(r, "discountID"), req)
	h.respondOrder(w, r, http.StatusOK, o, err)
}

func (h *Handler) removeDiscount(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.RemoveDiscount(r.Context(), chi.URLParam(r, "orderID"), chi.URLParam(r, "discountID"))
	h.respondOrder(w, r, http.StatusOK, o, err)
}

func (h *Handler) finalize(w http.ResponseWriter, r *http.Request) {
	var req order.FinalizeRequest
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			if key != "payments" {
				return d.Skip()
			}
			p, err := decodePayments(d)
			req.Payments = p
			return err
		})
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.Finalize(r.Context(), chi.URLParam(r, "orderID"), req)
	h.respondOrder(w, r, http.StatusOK, o, err)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Void(r.Context(), chi.URLParam(r, "orderID"))
	h.respondOrder(w, r, http.StatusOK, o, err)
}

func (h *Handler) refund(w http.ResponseWriter, r *http.Request) {
	var req order.RefundRequest
	err := decodeBody(r, func(d *jx.Decoder) error {
		return d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "payments":
				req.Payments, err = decodePayments(d)
			case "restock":
				if d.Next() == jx.Null {
					err = d.Null()
					break
				}
				var b bool
				b, err = d.Bool()
				req.Restock = &b
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrapf(err, "field %q", key)
			}
			return nil
		})
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.Refund(r.Context(), chi.URLParam(r, "orderID"), req)
	h.respondOrder(w, r, http.StatusOK, o, err)
}
