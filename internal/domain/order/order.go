package order

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/bharatbasket/checkout/internal/domain/address"
	"github.com/bharatbasket/checkout/internal/domain/tax"
)

// Sentinel errors for checkout validation.
var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyCart is returned for a cart-mode checkout with no cart items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrAddressNotOwned is returned when the shipping address belongs to a
	// different user than the authenticated caller.
	ErrAddressNotOwned = errors.New("address does not belong to user")
	// ErrProductRequired is returned for a single-mode checkout without a
	// product id.
	ErrProductRequired = errors.New("product id is required")
	// ErrDuplicatePayment is returned by the repository when an order for the
	// same gateway payment id already exists. The service resolves it to the
	// prior order instead of surfacing it.
	ErrDuplicatePayment = errors.New("payment already processed")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// OutOfStockError indicates a product is currently unavailable.
type OutOfStockError struct {
	ProductID   string
	ProductName string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("%s is out of stock", e.ProductName)
}

// InsufficientStockError indicates a product has less stock than requested.
type InsufficientStockError struct {
	ProductID   string
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		name, e.Requested, e.Available)
}

// Mode discriminates the two checkout entry paths.
type Mode string

const (
	// ModeCart checks out all of the caller's current cart items.
	ModeCart Mode = "cart"
	// ModeSingle is the "buy now" path: one product with an explicit quantity.
	ModeSingle Mode = "single"
)

// Order is the persisted order header. It is created exactly once per
// successful checkout and never mutated by this service afterwards.
type Order struct {
	ID             string
	OrderNumber    string
	UserID         string
	Shipping       address.Snapshot
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	Status         string
	PaymentStatus  string
	PaymentMethod  string
	// PaymentID is the gateway transaction id, or a "COD-" sentinel for
	// cash-on-delivery orders. Unique across non-COD orders.
	PaymentID   string
	Breakdown   tax.Breakdown
	PromoCodeID string
	BuyerGSTIN  string
	CreatedAt   time.Time
}

// Item is a persisted order line with the product name and price captured at
// purchase time, insulating historical orders from later product edits.
type Item struct {
	ProductID    string
	ProductName  string
	ProductPrice decimal.Decimal
	Quantity     int
	TotalPrice   decimal.Decimal
}

// Decrement is one conditional stock reduction executed inside the checkout
// transaction.
type Decrement struct {
	ProductID string
	Quantity  int
}

// Checkout is the complete write set of one order placement. Repositories
// apply it atomically: header, items, stock decrements, promo usage and cart
// clear all commit or roll back together.
type Checkout struct {
	Order      *Order
	Items      []Item
	Decrements []Decrement
	// PromoCodeID, when set, has its used_count incremented as part of the
	// transaction.
	PromoCodeID string
	// ClearCartUser, when set, deletes that user's cart items as the final
	// step of the transaction.
	ClearCartUser string
}

// Repository defines persistence operations for orders.
type Repository interface {
	// CreateCheckout atomically applies the full checkout write set.
	// It returns ErrDuplicatePayment when the order's payment id is already
	// taken, and *InsufficientStockError when a conditional decrement matched
	// no row.
	CreateCheckout(ctx context.Context, co *Checkout) error
	// FindByPaymentID returns the order created from the given gateway
	// payment id, or ErrNotFound.
	FindByPaymentID(ctx context.Context, paymentID string) (*Order, error)
	// GetByID returns an order header with its items, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*Order, []Item, error)
}

// NewOrderNumber generates a human-readable, non-guessable order number of
// the form ORD-YYYYMMDD-XXXXXX. Uniqueness is enforced by the database; the
// 24-bit random suffix makes collisions within a day vanishingly rare at
// this system's scale.
func NewOrderNumber(now time.Time) string {
	var buf [3]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), strings.ToUpper(hex.EncodeToString(buf[:])))
}
