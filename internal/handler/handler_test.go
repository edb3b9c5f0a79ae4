package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bharatbasket/checkout/internal/domain/address"
	"github.com/bharatbasket/checkout/internal/domain/auth"
	"github.com/bharatbasket/checkout/internal/domain/cart"
	"github.com/bharatbasket/checkout/internal/domain/order"
	"github.com/bharatbasket/checkout/internal/domain/payment"
	"github.com/bharatbasket/checkout/internal/domain/product"
	"github.com/bharatbasket/checkout/internal/domain/promo"
	"github.com/bharatbasket/checkout/internal/domain/settings"
	"github.com/bharatbasket/checkout/internal/domain/tax"
)

// --- Mock implementations ---

type mockProductRepo struct {
	products []product.Product
	byID     map[string]product.Product
	listErr  error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return m.products, m.listErr
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockCartRepo struct {
	items []cart.Item
}

func (m *mockCartRepo) ListByUser(_ context.Context, _ string) ([]cart.Item, error) {
	return m.items, nil
}

type mockAddressRepo struct {
	byID map[string]*address.Address
}

func (m *mockAddressRepo) GetByID(_ context.Context, id string) (*address.Address, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, address.ErrNotFound
	}
	return a, nil
}

type mockPromoRepo struct{}

func (m *mockPromoRepo) GetByID(_ context.Context, _ string) (*promo.Code, error) {
	return nil, promo.ErrNotFound
}

type mockSettingsRepo struct{}

func (m *mockSettingsRepo) Invoice(_ context.Context) (*settings.Invoice, error) {
	return &settings.Invoice{SellerState: "Maharashtra"}, nil
}

type mockOrderRepo struct {
	created   *order.Checkout
	byPayment map[string]*order.Order
	byID      map[string]*order.Order
	items     map[string][]order.Item
}

func (m *mockOrderRepo) CreateCheckout(_ context.Context, co *order.Checkout) error {
	m.created = co
	return nil
}

func (m *mockOrderRepo) FindByPaymentID(_ context.Context, paymentID string) (*order.Order, error) {
	o, ok := m.byPayment[paymentID]
	if !ok {
		return nil, order.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, []order.Item, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, nil, order.ErrNotFound
	}
	return o, m.items[id], nil
}

type mockTokenRepo struct {
	byHash map[string]*auth.TokenInfo
}

func (m *mockTokenRepo) FindByHash(_ context.Context, hash string) (*auth.TokenInfo, error) {
	info, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return info, nil
}

// --- Helpers ---

const (
	testToken  = "token-test-1"
	testSecret = "razorpay-test-secret"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type fixture struct {
	mux      *http.ServeMux
	verifier *payment.Verifier
	products *mockProductRepo
	carts    *mockCartRepo
	orders   *mockOrderRepo
}

func newFixture(products ...product.Product) *fixture {
	byID := make(map[string]product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	f := &fixture{
		products: &mockProductRepo{products: products, byID: byID},
		carts:    &mockCartRepo{},
		orders: &mockOrderRepo{
			byPayment: map[string]*order.Order{},
			byID:      map[string]*order.Order{},
			items:     map[string][]order.Item{},
		},
		verifier: payment.NewVerifier([]byte(testSecret)),
	}

	addresses := &mockAddressRepo{byID: map[string]*address.Address{
		"addr-1": {ID: "addr-1", UserID: "user-1", State: "Maharashtra"},
	}}

	tokens := &mockTokenRepo{byHash: map[string]*auth.TokenInfo{}}
	authn := auth.NewAuthenticator(tokens, []byte("pepper"))
	hash := authn.HashToken(testToken)
	tokens.byHash[hash] = &auth.TokenInfo{ID: "tok-1", TokenHash: hash, UserID: "user-1"}

	svc := order.NewService(
		f.products, f.carts, addresses, &mockPromoRepo{}, &mockSettingsRepo{}, f.orders, nil,
	)

	f.mux = http.NewServeMux()
	NewHandler(f.products, svc, f.orders, f.verifier, authn).Register(f.mux)
	return f
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func testProduct(id, name string, price decimal.Decimal, stock int) product.Product {
	return product.Product{
		ID:            id,
		Name:          name,
		Price:         price,
		StockQuantity: stock,
		Availability:  product.AvailabilityFor(stock),
	}
}

// --- Tests ---

func TestPlaceOrder_Unauthorized(t *testing.T) {
	f := newFixture()

	t.Run("no header", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/place-order", "", `{}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Unauthorized", decodeBody(t, rec)["error"])
	})

	t.Run("unknown token", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/api/place-order", "token-bogus", `{}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPlaceOrder_BadRequest(t *testing.T) {
	f := newFixture(testProduct("p1", "Widget", d("100"), 50))

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "malformed json",
			body: `{`,
			want: "invalid request body",
		},
		{
			name: "unknown mode",
			body: `{"checkoutMode": "bulk", "addressId": "addr-1"}`,
			want: `checkoutMode must be "cart" or "single"`,
		},
		{
			name: "missing address",
			body: `{"checkoutMode": "cart"}`,
			want: "addressId is required",
		},
		{
			name: "unsupported payment method",
			body: `{"checkoutMode": "cart", "addressId": "addr-1", "payment": {"method": "upi"}}`,
			want: "unsupported payment method",
		},
		{
			name: "razorpay without payment id",
			body: `{"checkoutMode": "cart", "addressId": "addr-1", "payment": {"method": "razorpay", "status": "paid"}}`,
			want: "paymentId is required for razorpay orders",
		},
		{
			name: "razorpay not captured",
			body: `{"checkoutMode": "cart", "addressId": "addr-1", "payment": {"method": "razorpay", "status": "pending", "paymentId": "pay_77"}}`,
			want: `razorpay orders must have payment status "paid"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/place-order", testToken, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.want, decodeBody(t, rec)["error"])
		})
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/place-order", testToken,
		`{"checkoutMode": "cart", "addressId": "addr-1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cart is empty", decodeBody(t, rec)["error"])
}

func TestPlaceOrder_InsufficientStock(t *testing.T) {
	f := newFixture(testProduct("p1", "Widget", d("100"), 2))
	f.carts.items = []cart.Item{{ProductID: "p1", Quantity: 5}}

	rec := f.do(t, http.MethodPost, "/api/place-order", testToken,
		`{"checkoutMode": "cart", "addressId": "addr-1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "insufficient stock for Widget")
}

func TestPlaceOrder_COD(t *testing.T) {
	f := newFixture(testProduct("p1", "Widget", d("100"), 50))
	f.carts.items = []cart.Item{{ProductID: "p1", Quantity: 2}}

	rec := f.do(t, http.MethodPost, "/api/place-order", testToken,
		`{"checkoutMode": "cart", "addressId": "addr-1"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["orderId"])
	assert.NotEmpty(t, body["orderNumber"])
	assert.NotContains(t, body, "message")

	require.NotNil(t, f.orders.created)
	o := f.orders.created.Order
	assert.Equal(t, payment.MethodCOD, o.PaymentMethod, "COD is the default method")
	assert.Equal(t, payment.StatusPending, o.PaymentStatus)
}

func TestPlaceOrder_SingleMode(t *testing.T) {
	f := newFixture(testProduct("p1", "Widget", d("100"), 50))

	rec := f.do(t, http.MethodPost, "/api/place-order", testToken,
		`{"checkoutMode": "single", "addressId": "addr-1", "productId": "p1", "quantity": 2}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, f.orders.created)
	assert.Empty(t, f.orders.created.ClearCartUser)
}

func TestVerifyPayment_MissingFields(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodPost, "/api/verify-payment", testToken,
		`{"razorpay_order_id": "order_9", "checkoutMode": "cart", "addressId": "addr-1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing payment verification fields", decodeBody(t, rec)["error"])
}

func TestVerifyPayment_BadSignature(t *testing.T) {
	f := newFixture(testProduct("p1", "Widget", d("100"), 50))
	f.carts.items = []cart.Item{{ProductID: "p1", Quantity: 1}}

	rec := f.do(t, http.MethodPost, "/api/verify-payment", testToken,
		`{"razorpay_order_id": "order_9", "razorpay_payment_id": "pay_9", "razorpay_signature": "deadbeef", "checkoutMode": "cart", "addressId": "addr-1"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "payment verification failed", decodeBody(t, rec)["error"])
	assert.Nil(t, f.orders.created, "no order state may change on a failed verification")
}

func TestVerifyPayment_OK(t *testing.T) {
	f := newFixture(testProduct("p1", "Widget", d("100"), 50))
	f.carts.items = []cart.Item{{ProductID: "p1", Quantity: 1}}

	sig := f.verifier.Sign("order_9", "pay_9")
	rec := f.do(t, http.MethodPost, "/api/verify-payment", testToken,
		`{"razorpay_order_id": "order_9", "razorpay_payment_id": "pay_9", "razorpay_signature": "`+sig+`", "checkoutMode": "cart", "addressId": "addr-1"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.NotEmpty(t, body["orderId"])

	require.NotNil(t, f.orders.created)
	o := f.orders.created.Order
	assert.Equal(t, payment.StatusPaid, o.PaymentStatus)
	assert.Equal(t, "pay_9", o.PaymentID)
}

func TestVerifyPayment_Replay(t *testing.T) {
	f := newFixture(testProduct("p1", "Widget", d("100"), 50))
	f.carts.items = []cart.Item{{ProductID: "p1", Quantity: 1}}
	f.orders.byPayment["pay_9"] = &order.Order{
		ID:          "order-prev",
		OrderNumber: "ORD-20250601-AB12CD",
	}

	sig := f.verifier.Sign("order_9", "pay_9")
	rec := f.do(t, http.MethodPost, "/api/verify-payment", testToken,
		`{"razorpay_order_id": "order_9", "razorpay_payment_id": "pay_9", "razorpay_signature": "`+sig+`", "checkoutMode": "cart", "addressId": "addr-1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "order-prev", body["orderId"])
	assert.Equal(t, "Order already processed", body["message"])
	assert.Nil(t, f.orders.created)
}

func TestListProducts(t *testing.T) {
	gst := d("5")
	f := newFixture(
		product.Product{ID: "p1", Name: "Widget", Price: d("100"), StockQuantity: 50, Availability: product.InStock, GSTPercentage: &gst},
		testProduct("p2", "Gadget", d("250.50"), 3),
	)

	rec := f.do(t, http.MethodGet, "/api/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	assert.Equal(t, "Widget", body[0]["name"])
	assert.Equal(t, float64(5), body[0]["gstPercentage"])
	assert.Equal(t, "low_stock", body[1]["availabilityStatus"])
	assert.NotContains(t, body[1], "gstPercentage")
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture()

	rec := f.do(t, http.MethodGet, "/api/products/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetOrder(t *testing.T) {
	f := newFixture()
	f.orders.byID["order-1"] = &order.Order{
		ID:          "order-1",
		OrderNumber: "ORD-20250601-AB12CD",
		UserID:      "user-1",
		Shipping:    address.Snapshot{City: "Pune", State: "Maharashtra"},
		Subtotal:    d("450"),
		TaxAmount:   d("81"),
		TotalAmount: d("531"),
		Status:      "pending",
		Breakdown:   tax.Breakdown{Subtotal: d("450"), TotalGST: d("81"), GrandTotal: d("531")},
		CreatedAt:   time.Now(),
	}
	f.orders.items["order-1"] = []order.Item{
		{ProductID: "p1", ProductName: "Widget", ProductPrice: d("100"), Quantity: 2, TotalPrice: d("200")},
	}

	t.Run("unauthorized", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/orders/order-1", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/orders/order-nope", testToken, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("other user's order looks identical to unknown", func(t *testing.T) {
		f.orders.byID["order-2"] = &order.Order{ID: "order-2", UserID: "someone-else"}
		rec := f.do(t, http.MethodGet, "/api/orders/order-2", testToken, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "order not found", decodeBody(t, rec)["error"])
	})

	t.Run("own order", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/api/orders/order-1", testToken, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decodeBody(t, rec)
		assert.Equal(t, "ORD-20250601-AB12CD", body["orderNumber"])
		assert.Equal(t, float64(531), body["totalAmount"])

		addr, ok := body["shippingAddress"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "Pune", addr["city"])

		items, ok := body["items"].([]any)
		require.True(t, ok)
		require.Len(t, items, 1)

		// Decimals inside the persisted breakdown marshal as strings.
		gst, ok := body["gstBreakdown"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "81", gst["total_gst"])
	})
}
