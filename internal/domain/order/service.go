package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bharatbasket/checkout/internal/domain/address"
	"github.com/bharatbasket/checkout/internal/domain/cart"
	"github.com/bharatbasket/checkout/internal/domain/payment"
	"github.com/bharatbasket/checkout/internal/domain/product"
	"github.com/bharatbasket/checkout/internal/domain/promo"
	"github.com/bharatbasket/checkout/internal/domain/settings"
	"github.com/bharatbasket/checkout/internal/domain/tax"
)

// Notifier dispatches post-commit side effects (invoice generation, order
// confirmation email). Implementations must not block and must never fail
// the checkout.
type Notifier interface {
	OrderPlaced(ctx context.Context, orderID string)
}

// PaymentInfo carries the payment state a checkout request was made with.
// For the online path the gateway signature has already been verified by the
// handler before this reaches the service.
type PaymentInfo struct {
	Method    string
	Status    string
	PaymentID string
}

// CheckoutRequest holds the input for placing an order.
type CheckoutRequest struct {
	UserID      string
	Mode        Mode
	AddressID   string
	ProductID   string
	Quantity    int
	PromoCodeID string
	// ClientDiscount is the untrusted client-suggested discount. It is used
	// only as an additional ceiling on the server-computed discount.
	ClientDiscount decimal.Decimal
	BuyerGSTIN     string
	Payment        PaymentInfo
}

// CheckoutResult is the outcome of a checkout: the created order, or the
// previously created one when a duplicate payment callback was detected.
type CheckoutResult struct {
	OrderID          string
	OrderNumber      string
	AlreadyProcessed bool
}

// Service encapsulates the order placement pipeline: replay guard, address
// resolution, inventory validation, tax and discount computation, and the
// atomic checkout write.
type Service struct {
	products  product.Repository
	carts     cart.Repository
	addresses address.Repository
	promos    promo.Repository
	settings  settings.Repository
	orders    Repository
	notifier  Notifier
	now       func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
// notifier may be nil when post-commit dispatch is disabled.
func NewService(
	products product.Repository,
	carts cart.Repository,
	addresses address.Repository,
	promos promo.Repository,
	settings settings.Repository,
	orders Repository,
	notifier Notifier,
) *Service {
	return &Service{
		products:  products,
		carts:     carts,
		addresses: addresses,
		promos:    promos,
		settings:  settings,
		orders:    orders,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Checkout places an order. The write set (header, items, stock decrements,
// promo usage, cart clear) commits atomically; a stock shortfall detected at
// write time rolls the whole order back.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	// Replay guard: a verified payment that already produced an order must
	// short-circuit to the prior result instead of double-charging stock.
	if req.Payment.Method == payment.MethodRazorpay && req.Payment.PaymentID != "" {
		existing, err := s.orders.FindByPaymentID(ctx, req.Payment.PaymentID)
		switch {
		case err == nil:
			return &CheckoutResult{
				OrderID:          existing.ID,
				OrderNumber:      existing.OrderNumber,
				AlreadyProcessed: true,
			}, nil
		case errors.Is(err, ErrNotFound):
		default:
			return nil, errors.Wrap(err, "lookup payment")
		}
	}

	addr, err := s.resolveAddress(ctx, req)
	if err != nil {
		return nil, err
	}

	items, err := s.resolveItems(ctx, req)
	if err != nil {
		return nil, err
	}

	products, err := s.loadProducts(ctx, items)
	if err != nil {
		return nil, err
	}
	if err := validateStock(items, products); err != nil {
		return nil, err
	}

	inv, err := s.settings.Invoice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load invoice settings")
	}

	lines := make([]tax.Line, len(items))
	subtotal := decimal.Zero
	for i, it := range items {
		p := products[it.ProductID]
		lines[i] = tax.Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			Price:       p.Price,
			Quantity:    it.Quantity,
			Rate:        p.GSTPercentage,
		}
		subtotal = subtotal.Add(p.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}

	now := s.now()
	promoCode, discount, err := s.resolvePromo(ctx, req, subtotal, now)
	if err != nil {
		return nil, err
	}

	breakdown := tax.Compute(lines, addr.State, inv.SellerState, discount, tax.FeeConfig{
		Percent: inv.PlatformFeePercent,
		Taxable: inv.PlatformFeeTaxable,
	})

	o := s.buildOrder(req, addr, breakdown, promoCode, now)

	co := &Checkout{
		Order:      o,
		Items:      buildItems(items, products),
		Decrements: buildDecrements(items),
	}
	if promoCode != "" {
		co.PromoCodeID = promoCode
	}
	if req.Mode == ModeCart {
		co.ClearCartUser = req.UserID
	}

	if err := s.orders.CreateCheckout(ctx, co); err != nil {
		// Two concurrent callbacks for one payment can both pass the lookup
		// above; the unique index on payment_id is the real guarantee. Map
		// the loser to the winner's order.
		if errors.Is(err, ErrDuplicatePayment) {
			existing, lookupErr := s.orders.FindByPaymentID(ctx, req.Payment.PaymentID)
			if lookupErr != nil {
				return nil, err
			}
			return &CheckoutResult{
				OrderID:          existing.ID,
				OrderNumber:      existing.OrderNumber,
				AlreadyProcessed: true,
			}, nil
		}
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.OrderPlaced(ctx, o.ID)
	}

	return &CheckoutResult{OrderID: o.ID, OrderNumber: o.OrderNumber}, nil
}

func (s *Service) resolveAddress(ctx context.Context, req CheckoutRequest) (*address.Address, error) {
	addr, err := s.addresses.GetByID(ctx, req.AddressID)
	if err != nil {
		if errors.Is(err, address.ErrNotFound) {
			return nil, address.ErrNotFound
		}
		return nil, errors.Wrap(err, "get address")
	}
	if addr.UserID != req.UserID {
		return nil, ErrAddressNotOwned
	}
	return addr, nil
}

// resolveItems produces the normalized line list for the chosen mode.
func (s *Service) resolveItems(ctx context.Context, req CheckoutRequest) ([]cart.Item, error) {
	switch req.Mode {
	case ModeSingle:
		if req.ProductID == "" {
			return nil, ErrProductRequired
		}
		if req.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: req.ProductID}
		}
		return []cart.Item{{ProductID: req.ProductID, Quantity: req.Quantity}}, nil
	case ModeCart:
		items, err := s.carts.ListByUser(ctx, req.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "list cart")
		}
		if len(items) == 0 {
			return nil, ErrEmptyCart
		}
		for _, it := range items {
			if it.Quantity <= 0 {
				return nil, &InvalidQuantityError{ProductID: it.ProductID}
			}
		}
		return items, nil
	default:
		return nil, errors.Errorf("unsupported checkout mode: %q", req.Mode)
	}
}

// loadProducts batch-fetches all referenced products into a lookup map.
func (s *Service) loadProducts(ctx context.Context, items []cart.Item) (map[string]product.Product, error) {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	m := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		m[p.ID] = p
	}
	return m, nil
}

// validateStock checks every line against live stock. Any single violation
// aborts the entire order; a multi-item order is never partially fulfilled.
// The repository re-checks with conditional decrements at write time, so a
// race between here and commit cannot oversell.
func validateStock(items []cart.Item, products map[string]product.Product) error {
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			return &ProductNotFoundError{ProductID: it.ProductID}
		}
		if p.Availability == product.OutOfStock {
			return &OutOfStockError{ProductID: p.ID, ProductName: p.Name}
		}
		if p.StockQuantity < it.Quantity {
			return &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   it.Quantity,
				Available:   p.StockQuantity,
			}
		}
	}
	return nil
}

// resolvePromo loads and validates the promo code, returning the applied
// promo id (empty when none applied) and the final discount. Stale, expired,
// exhausted, or below-minimum promos are silently dropped: a failed promo
// must never block checkout.
func (s *Service) resolvePromo(ctx context.Context, req CheckoutRequest, subtotal decimal.Decimal, now time.Time) (string, decimal.Decimal, error) {
	if req.PromoCodeID == "" {
		return "", decimal.Zero, nil
	}

	code, err := s.promos.GetByID(ctx, req.PromoCodeID)
	if err != nil {
		if errors.Is(err, promo.ErrNotFound) {
			return "", decimal.Zero, nil
		}
		return "", decimal.Zero, errors.Wrap(err, "get promo code")
	}

	discount := promo.Resolve(code, subtotal, req.ClientDiscount, now)
	if !discount.IsPositive() {
		return "", decimal.Zero, nil
	}
	return code.ID, discount, nil
}

func (s *Service) buildOrder(req CheckoutRequest, addr *address.Address, b tax.Breakdown, promoID string, now time.Time) *Order {
	o := &Order{
		ID:             uuid.New().String(),
		OrderNumber:    NewOrderNumber(now),
		UserID:         req.UserID,
		Shipping:       addr.Snapshot(),
		Subtotal:       b.Subtotal,
		TaxAmount:      b.TotalGST,
		DiscountAmount: b.Discount,
		ShippingAmount: decimal.Zero,
		TotalAmount:    b.GrandTotal,
		Status:         "pending",
		PaymentMethod:  req.Payment.Method,
		Breakdown:      b,
		PromoCodeID:    promoID,
		BuyerGSTIN:     req.BuyerGSTIN,
		CreatedAt:      now,
	}

	if req.Payment.Method == payment.MethodCOD {
		o.PaymentStatus = payment.StatusPending
		o.PaymentID = "COD-" + o.OrderNumber
	} else {
		o.PaymentStatus = payment.StatusPaid
		o.PaymentID = req.Payment.PaymentID
	}

	return o
}

func buildItems(items []cart.Item, products map[string]product.Product) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		p := products[it.ProductID]
		qty := decimal.NewFromInt(int64(it.Quantity))
		out[i] = Item{
			ProductID:    p.ID,
			ProductName:  p.Name,
			ProductPrice: p.Price,
			Quantity:     it.Quantity,
			TotalPrice:   p.Price.Mul(qty).Round(2),
		}
	}
	return out
}

func buildDecrements(items []cart.Item) []Decrement {
	out := make([]Decrement, len(items))
	for i, it := range items {
		out[i] = Decrement{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return out
}
