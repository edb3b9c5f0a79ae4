// Package handler exposes the checkout HTTP API: order placement, payment
// verification, catalog reads, and order lookup. Handlers translate between
// the JSON wire format and the domain services; all domain errors are mapped
// to the {"error": message} envelope here and nothing propagates past the
// handler boundary.
package handler

import (
	"net/http"

	"github.com/bharatbasket/checkout/internal/domain/auth"
	"github.com/bharatbasket/checkout/internal/domain/order"
	"github.com/bharatbasket/checkout/internal/domain/payment"
	"github.com/bharatbasket/checkout/internal/domain/product"
)

// Handler holds the HTTP handlers and their domain dependencies.
type Handler struct {
	products product.Repository
	orders   *order.Service
	reads    order.Repository
	verifier *payment.Verifier
	auth     *auth.Authenticator
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	orders *order.Service,
	reads order.Repository,
	verifier *payment.Verifier,
	authn *auth.Authenticator,
) *Handler {
	return &Handler{
		products: products,
		orders:   orders,
		reads:    reads,
		verifier: verifier,
		auth:     authn,
	}
}

// Register wires all API routes onto the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/place-order", h.placeOrder)
	mux.HandleFunc("POST /api/verify-payment", h.verifyPayment)
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/orders/{id}", h.getOrder)
}
