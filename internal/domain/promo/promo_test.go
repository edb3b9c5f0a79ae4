package promo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func dp(v string) *decimal.Decimal {
	dec := decimal.RequireFromString(v)
	return &dec
}

func tp(t time.Time) *time.Time {
	return &t
}

func TestResolve(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	percent10 := &Code{
		ID:           "promo-1",
		Code:         "SAVE10",
		DiscountType: DiscountPercentage,
		Value:        d("10"),
		Active:       true,
	}

	tests := []struct {
		name      string
		code      *Code
		subtotal  string
		clientCap string
		want      string
	}{
		{
			name:      "percentage",
			code:      percent10,
			subtotal:  "1000",
			clientCap: "0",
			want:      "100",
		},
		{
			name: "percentage capped by max discount",
			code: &Code{
				DiscountType: DiscountPercentage,
				Value:        d("50"),
				MaxDiscount:  dp("100"),
				Active:       true,
			},
			subtotal:  "1000",
			clientCap: "0",
			want:      "100",
		},
		{
			name: "fixed",
			code: &Code{
				DiscountType: DiscountFixed,
				Value:        d("150"),
				Active:       true,
			},
			subtotal:  "1000",
			clientCap: "0",
			want:      "150",
		},
		{
			name: "fixed clamped to subtotal",
			code: &Code{
				DiscountType: DiscountFixed,
				Value:        d("500"),
				Active:       true,
			},
			subtotal:  "300",
			clientCap: "0",
			want:      "300",
		},
		{
			name:      "client cap lowers the discount",
			code:      percent10,
			subtotal:  "1000",
			clientCap: "60",
			want:      "60",
		},
		{
			name:      "client cap above computed is ignored",
			code:      percent10,
			subtotal:  "1000",
			clientCap: "500",
			want:      "100",
		},
		{
			name:      "negative client cap is ignored",
			code:      percent10,
			subtotal:  "1000",
			clientCap: "-50",
			want:      "100",
		},
		{
			name:      "nil code",
			code:      nil,
			subtotal:  "1000",
			clientCap: "0",
			want:      "0",
		},
		{
			name: "below minimum order",
			code: &Code{
				DiscountType: DiscountPercentage,
				Value:        d("10"),
				MinOrder:     dp("500"),
				Active:       true,
			},
			subtotal:  "499.99",
			clientCap: "0",
			want:      "0",
		},
		{
			name: "expired",
			code: &Code{
				DiscountType: DiscountPercentage,
				Value:        d("10"),
				ExpiresAt:    tp(now.Add(-time.Hour)),
				Active:       true,
			},
			subtotal:  "1000",
			clientCap: "0",
			want:      "0",
		},
		{
			name: "exhausted",
			code: &Code{
				DiscountType: DiscountPercentage,
				Value:        d("10"),
				MaxUses:      100,
				UsedCount:    100,
				Active:       true,
			},
			subtotal:  "1000",
			clientCap: "0",
			want:      "0",
		},
		{
			name: "inactive",
			code: &Code{
				DiscountType: DiscountPercentage,
				Value:        d("10"),
				Active:       false,
			},
			subtotal:  "1000",
			clientCap: "0",
			want:      "0",
		},
		{
			name: "unlimited uses when max is zero",
			code: &Code{
				DiscountType: DiscountPercentage,
				Value:        d("10"),
				MaxUses:      0,
				UsedCount:    9999,
				Active:       true,
			},
			subtotal:  "1000",
			clientCap: "0",
			want:      "100",
		},
		{
			name: "unknown discount type",
			code: &Code{
				DiscountType: DiscountType("bogus"),
				Value:        d("10"),
				Active:       true,
			},
			subtotal:  "1000",
			clientCap: "0",
			want:      "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.code, d(tt.subtotal), d(tt.clientCap), now)
			assert.True(t, d(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestEligible_MinOrderBoundary(t *testing.T) {
	c := &Code{
		DiscountType: DiscountPercentage,
		Value:        d("10"),
		MinOrder:     dp("500"),
		Active:       true,
	}
	now := time.Now()

	assert.True(t, c.Eligible(d("500"), now), "subtotal equal to the floor applies")
	assert.False(t, c.Eligible(d("499.99"), now))
}
