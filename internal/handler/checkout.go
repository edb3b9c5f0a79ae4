package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/bharatbasket/checkout/internal/domain/address"
	"github.com/bharatbasket/checkout/internal/domain/auth"
	"github.com/bharatbasket/checkout/internal/domain/order"
	"github.com/bharatbasket/checkout/internal/domain/payment"
)

// paymentJSON is the payment block of a place-order request.
type paymentJSON struct {
	Method    string `json:"method"`
	Status    string `json:"status"`
	PaymentID string `json:"paymentId"`
}

// placeOrderRequest is the body of POST /api/place-order, discriminated by
// checkoutMode.
type placeOrderRequest struct {
	CheckoutMode   string          `json:"checkoutMode"`
	AddressID      string          `json:"addressId"`
	ProductID      string          `json:"productId"`
	Quantity       int             `json:"quantity"`
	PromoCodeID    string          `json:"promoCodeId"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Payment        paymentJSON     `json:"payment"`
}

// verifyPaymentRequest is the body of POST /api/verify-payment. The razorpay_*
// field names follow the gateway's callback payload.
type verifyPaymentRequest struct {
	RazorpayOrderID   string          `json:"razorpay_order_id"`
	RazorpayPaymentID string          `json:"razorpay_payment_id"`
	RazorpaySignature string          `json:"razorpay_signature"`
	CheckoutMode      string          `json:"checkoutMode"`
	AddressID         string          `json:"addressId"`
	ProductID         string          `json:"productId"`
	Quantity          int             `json:"quantity"`
	PromoCodeID       string          `json:"promoCodeId"`
	DiscountAmount    decimal.Decimal `json:"discountAmount"`
	BuyerGSTIN        string          `json:"buyerGstin"`
}

// authenticate resolves the Authorization bearer token to a user id.
func (h *Handler) authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return "", auth.ErrUnauthorized
	}
	return h.auth.Authenticate(r.Context(), strings.TrimSpace(token))
}

// placeOrder handles the COD / pre-confirmed payment path.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticate(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	mode, ok := parseMode(req.CheckoutMode)
	if !ok {
		writeError(w, http.StatusBadRequest, "checkoutMode must be \"cart\" or \"single\"")
		return
	}
	if req.AddressID == "" {
		writeError(w, http.StatusBadRequest, "addressId is required")
		return
	}
	method := req.Payment.Method
	if method == "" {
		method = payment.MethodCOD
	}
	if method != payment.MethodCOD && method != payment.MethodRazorpay {
		writeError(w, http.StatusBadRequest, "unsupported payment method")
		return
	}
	// This path never talks to the gateway, so a razorpay body must describe
	// an already-captured payment. Anything else goes through /verify-payment.
	if method == payment.MethodRazorpay {
		if req.Payment.PaymentID == "" {
			writeError(w, http.StatusBadRequest, "paymentId is required for razorpay orders")
			return
		}
		if req.Payment.Status != payment.StatusPaid {
			writeError(w, http.StatusBadRequest, "razorpay orders must have payment status \"paid\"")
			return
		}
	}

	result, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		UserID:         userID,
		Mode:           mode,
		AddressID:      req.AddressID,
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		PromoCodeID:    req.PromoCodeID,
		ClientDiscount: req.DiscountAmount,
		Payment: order.PaymentInfo{
			Method:    method,
			Status:    req.Payment.Status,
			PaymentID: req.Payment.PaymentID,
		},
	})
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeCheckoutResult(w, result)
}

// verifyPayment handles the online gateway path: it verifies the Razorpay
// signature before any order state is touched, then places the order with
// payment_status=paid. The endpoint is idempotent per gateway payment id.
func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	userID, err := h.authenticate(r)
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.RazorpayOrderID == "" || req.RazorpayPaymentID == "" || req.RazorpaySignature == "" {
		writeError(w, http.StatusBadRequest, "missing payment verification fields")
		return
	}
	mode, ok := parseMode(req.CheckoutMode)
	if !ok {
		writeError(w, http.StatusBadRequest, "checkoutMode must be \"cart\" or \"single\"")
		return
	}
	if req.AddressID == "" {
		writeError(w, http.StatusBadRequest, "addressId is required")
		return
	}

	if err := h.verifier.Verify(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature); err != nil {
		writeError(w, http.StatusBadRequest, "payment verification failed")
		return
	}

	result, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		UserID:         userID,
		Mode:           mode,
		AddressID:      req.AddressID,
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		PromoCodeID:    req.PromoCodeID,
		ClientDiscount: req.DiscountAmount,
		BuyerGSTIN:     req.BuyerGSTIN,
		Payment: order.PaymentInfo{
			Method:    payment.MethodRazorpay,
			Status:    payment.StatusPaid,
			PaymentID: req.RazorpayPaymentID,
		},
	})
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	writeCheckoutResult(w, result)
}

func parseMode(s string) (order.Mode, bool) {
	switch order.Mode(s) {
	case order.ModeCart:
		return order.ModeCart, true
	case order.ModeSingle:
		return order.ModeSingle, true
	default:
		return "", false
	}
}

func writeCheckoutResult(w http.ResponseWriter, result *order.CheckoutResult) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("orderId", func(e *jx.Encoder) { e.Str(result.OrderID) })
		e.Field("orderNumber", func(e *jx.Encoder) { e.Str(result.OrderNumber) })
		if result.AlreadyProcessed {
			e.Field("message", func(e *jx.Encoder) { e.Str("Order already processed") })
		}
	})
	writeJSON(w, http.StatusOK, &e)
}

// writeCheckoutError maps domain errors to the 400 envelope. Anything not
// recognized as a user-facing failure is logged and returned as a 500.
func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, address.ErrNotFound),
		errors.Is(err, order.ErrAddressNotOwned),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrProductRequired):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		iqErr *order.InvalidQuantityError
		pnErr *order.ProductNotFoundError
		osErr *order.OutOfStockError
		isErr *order.InsufficientStockError
	)
	switch {
	case errors.As(err, &iqErr):
		writeError(w, http.StatusBadRequest, iqErr.Error())
	case errors.As(err, &pnErr):
		writeError(w, http.StatusBadRequest, pnErr.Error())
	case errors.As(err, &osErr):
		writeError(w, http.StatusBadRequest, osErr.Error())
	case errors.As(err, &isErr):
		writeError(w, http.StatusBadRequest, isErr.Error())
	default:
		writeInternal(w, r, err)
	}
}
