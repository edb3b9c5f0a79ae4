// Package tax implements India's dual GST scheme for order totals.
//
// Intra-state sales split the tax evenly between the Central (CGST) and State
// (SGST) components; inter-state sales apply a single Integrated tax (IGST)
// at the same combined rate. The split is a fixed two-branch rule on the
// buyer and seller states, there are no partial splits.
package tax

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	// DefaultRate is the GST rate applied when a product carries none.
	DefaultRate = decimal.NewFromInt(18)
	// feeTaxRate is the fixed 18% GST applied to a taxable platform fee.
	feeTaxRate = decimal.RequireFromString("0.18")
)

// Line is one order line entering the calculation.
type Line struct {
	ProductID   string
	ProductName string
	Price       decimal.Decimal
	Quantity    int
	// Rate is the product's GST percentage. Nil applies DefaultRate.
	Rate *decimal.Decimal
}

// LineTax is the persisted per-line tax detail.
type LineTax struct {
	ProductID    string          `json:"product_id"`
	ProductName  string          `json:"product_name"`
	TaxableValue decimal.Decimal `json:"taxable_value"`
	GSTRate      decimal.Decimal `json:"gst_rate"`
	GSTAmount    decimal.Decimal `json:"gst_amount"`
	CGST         decimal.Decimal `json:"cgst_amount"`
	SGST         decimal.Decimal `json:"sgst_amount"`
	IGST         decimal.Decimal `json:"igst_amount"`
}

// FeeConfig is the platform fee configuration from invoice settings.
type FeeConfig struct {
	Percent decimal.Decimal
	Taxable bool
}

// Breakdown is the full tax detail of an order: per-line splits plus the
// aggregate totals persisted on the order header.
type Breakdown struct {
	Lines          []LineTax       `json:"lines"`
	InterState     bool            `json:"inter_state"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount_amount"`
	TotalCGST      decimal.Decimal `json:"total_cgst"`
	TotalSGST      decimal.Decimal `json:"total_sgst"`
	TotalIGST      decimal.Decimal `json:"total_igst"`
	TotalGST       decimal.Decimal `json:"total_gst"`
	PlatformFee    decimal.Decimal `json:"platform_fee"`
	PlatformFeeTax decimal.Decimal `json:"platform_fee_tax"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
}

// SameState reports whether buyer and seller are in the same state,
// ignoring case. It decides the CGST/SGST vs IGST branch.
func SameState(buyerState, sellerState string) bool {
	return strings.EqualFold(strings.TrimSpace(buyerState), strings.TrimSpace(sellerState))
}

// Compute calculates the per-line GST split and aggregate totals for an
// order. discount is the already-resolved discount amount (see promo.Resolve)
// and is assumed to be non-negative and no larger than the subtotal.
func Compute(lines []Line, buyerState, sellerState string, discount decimal.Decimal, fee FeeConfig) Breakdown {
	interState := !SameState(buyerState, sellerState)

	b := Breakdown{
		Lines:      make([]LineTax, 0, len(lines)),
		InterState: interState,
		Discount:   discount.Round(2),
	}

	two := decimal.NewFromInt(2)
	for _, ln := range lines {
		rate := DefaultRate
		if ln.Rate != nil {
			rate = *ln.Rate
		}

		taxable := ln.Price.Mul(decimal.NewFromInt(int64(ln.Quantity)))
		gst := taxable.Mul(rate).Div(hundred).Round(2)

		lt := LineTax{
			ProductID:    ln.ProductID,
			ProductName:  ln.ProductName,
			TaxableValue: taxable.Round(2),
			GSTRate:      rate,
			GSTAmount:    gst,
			CGST:         decimal.Zero,
			SGST:         decimal.Zero,
			IGST:         decimal.Zero,
		}
		if interState {
			lt.IGST = gst
		} else {
			// Round one half and give the remainder to the other so the
			// two components always sum back to the line's GST amount.
			lt.CGST = gst.Div(two).Round(2)
			lt.SGST = gst.Sub(lt.CGST)
		}

		b.Subtotal = b.Subtotal.Add(taxable)
		b.TotalCGST = b.TotalCGST.Add(lt.CGST)
		b.TotalSGST = b.TotalSGST.Add(lt.SGST)
		b.TotalIGST = b.TotalIGST.Add(lt.IGST)
		b.Lines = append(b.Lines, lt)
	}

	b.Subtotal = b.Subtotal.Round(2)
	b.TotalGST = b.TotalCGST.Add(b.TotalSGST).Add(b.TotalIGST).Round(2)

	afterDiscount := b.Subtotal.Sub(b.Discount)
	if afterDiscount.IsNegative() {
		afterDiscount = decimal.Zero
	}

	if fee.Percent.IsPositive() {
		b.PlatformFee = afterDiscount.Mul(fee.Percent).Div(hundred).Round(2)
		if fee.Taxable {
			b.PlatformFeeTax = b.PlatformFee.Mul(feeTaxRate).Round(2)
		}
	}

	b.GrandTotal = afterDiscount.
		Add(b.TotalGST).
		Add(b.PlatformFee).
		Add(b.PlatformFeeTax).
		Round(2)

	return b
}
