package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/bharatbasket/checkout/internal/domain/product"
)

// listProducts returns the full catalog.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeInternal(w, r, err)
		return
	}

	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for i := range products {
			encodeProduct(e, &products[i])
		}
	})
	writeJSON(w, http.StatusOK, &e)
}

// getProduct returns a single product by id.
func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeInternal(w, r, err)
		return
	}

	var e jx.Encoder
	encodeProduct(&e, p)
	writeJSON(w, http.StatusOK, &e)
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { num(e, p.Price) })
		e.Field("stockQuantity", func(e *jx.Encoder) { e.Int(p.StockQuantity) })
		e.Field("availabilityStatus", func(e *jx.Encoder) { e.Str(string(p.Availability)) })
		if p.GSTPercentage != nil {
			e.Field("gstPercentage", func(e *jx.Encoder) { num(e, *p.GSTPercentage) })
		}
	})
}
