package cart

import "context"

// Item is a single product/quantity entry in a user's cart.
type Item struct {
	ProductID string
	Quantity  int
}

// Repository defines the cart operations the checkout flow needs. The cart is
// written by the storefront; checkout only reads it and clears it wholesale
// after a successful cart-mode order.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]Item, error)
}
