package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/bharatbasket/checkout/internal/domain/order"
)

// getOrder returns one of the caller's orders with its items and tax detail.
// Orders belonging to other users are reported as not found rather than
// forbidden, so order ids cannot be probed.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticate(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	o, items, err := h.reads.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeInternal(w, r, err)
		return
	}
	if o.UserID != userID {
		writeError(w, http.StatusNotFound, order.ErrNotFound.Error())
		return
	}

	breakdownJSON, err := json.Marshal(o.Breakdown)
	if err != nil {
		writeInternal(w, r, err)
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("orderId", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("orderNumber", func(e *jx.Encoder) { e.Str(o.OrderNumber) })
		e.Field("status", func(e *jx.Encoder) { e.Str(o.Status) })
		e.Field("paymentStatus", func(e *jx.Encoder) { e.Str(o.PaymentStatus) })
		e.Field("paymentMethod", func(e *jx.Encoder) { e.Str(o.PaymentMethod) })
		e.Field("subtotal", func(e *jx.Encoder) { num(e, o.Subtotal) })
		e.Field("taxAmount", func(e *jx.Encoder) { num(e, o.TaxAmount) })
		e.Field("discountAmount", func(e *jx.Encoder) { num(e, o.DiscountAmount) })
		e.Field("shippingAmount", func(e *jx.Encoder) { num(e, o.ShippingAmount) })
		e.Field("totalAmount", func(e *jx.Encoder) { num(e, o.TotalAmount) })
		e.Field("shippingAddress", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("fullName", func(e *jx.Encoder) { e.Str(o.Shipping.FullName) })
				e.Field("phone", func(e *jx.Encoder) { e.Str(o.Shipping.Phone) })
				e.Field("line1", func(e *jx.Encoder) { e.Str(o.Shipping.Line1) })
				e.Field("line2", func(e *jx.Encoder) { e.Str(o.Shipping.Line2) })
				e.Field("city", func(e *jx.Encoder) { e.Str(o.Shipping.City) })
				e.Field("state", func(e *jx.Encoder) { e.Str(o.Shipping.State) })
				e.Field("postalCode", func(e *jx.Encoder) { e.Str(o.Shipping.PostalCode) })
				e.Field("country", func(e *jx.Encoder) { e.Str(o.Shipping.Country) })
			})
		})
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range items {
					e.Obj(func(e *jx.Encoder) {
						e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
						e.Field("productName", func(e *jx.Encoder) { e.Str(it.ProductName) })
						e.Field("productPrice", func(e *jx.Encoder) { num(e, it.ProductPrice) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
						e.Field("totalPrice", func(e *jx.Encoder) { num(e, it.TotalPrice) })
					})
				}
			})
		})
		e.Field("gstBreakdown", func(e *jx.Encoder) { e.Raw(breakdownJSON) })
	})
	writeJSON(w, http.StatusOK, &e)
}
