package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Availability enumerates the derived stock tiers of a product.
type Availability string

const (
	InStock    Availability = "in_stock"
	LowStock   Availability = "low_stock"
	OutOfStock Availability = "out_of_stock"
)

// lowStockThreshold is the stock quantity below which a product is
// considered low on stock.
const lowStockThreshold = 10

// AvailabilityFor derives the availability tier from a stock quantity.
// It is the single source of truth for the tier rule: out_of_stock iff 0,
// low_stock iff 0 < qty < 10, in_stock otherwise.
func AvailabilityFor(quantity int) Availability {
	switch {
	case quantity <= 0:
		return OutOfStock
	case quantity < lowStockThreshold:
		return LowStock
	default:
		return InStock
	}
}

// Product represents a catalog item available for purchase.
type Product struct {
	ID            string
	Name          string
	Price         decimal.Decimal
	StockQuantity int
	Availability  Availability
	// GSTPercentage is the product's tax rate. Nil means the seller default
	// (18%) applies.
	GSTPercentage *decimal.Decimal
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
