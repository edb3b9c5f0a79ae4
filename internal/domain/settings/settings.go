package settings

import (
	"context"

	"github.com/shopspring/decimal"
)

// Invoice holds the seller-side tax configuration loaded per checkout.
type Invoice struct {
	SellerState        string
	PlatformFeePercent decimal.Decimal
	PlatformFeeTaxable bool
}

// Repository provides the invoice settings singleton. Implementations return
// sensible defaults when the row has not been configured yet.
type Repository interface {
	Invoice(ctx context.Context) (*Invoice, error)
}
