package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bharatbasket/checkout/internal/domain/settings"
)

const getInvoiceSettingsSQL = `SELECT seller_state, platform_fee_percent, platform_fee_taxable
	FROM invoice_settings WHERE id = 1`

// defaultSellerState applies when the settings row has not been configured.
const defaultSellerState = "Maharashtra"

var _ settings.Repository = (*SettingsRepository)(nil)

// SettingsRepository implements settings.Repository backed by PostgreSQL.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a SettingsRepository that uses the given pool.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// Invoice returns the invoice settings singleton, falling back to defaults
// (no platform fee) when the row is absent.
func (r *SettingsRepository) Invoice(ctx context.Context) (*settings.Invoice, error) {
	rows, err := r.pool.Query(ctx, getInvoiceSettingsSQL)
	if err != nil {
		return nil, fmt.Errorf("getting invoice settings: %w", err)
	}

	inv, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (settings.Invoice, error) {
		var (
			inv settings.Invoice
			pct decimal.Decimal
		)
		err := row.Scan(&inv.SellerState, &pct, &inv.PlatformFeeTaxable)
		inv.PlatformFeePercent = pct
		return inv, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &settings.Invoice{
				SellerState:        defaultSellerState,
				PlatformFeePercent: decimal.Zero,
			}, nil
		}
		return nil, fmt.Errorf("getting invoice settings: %w", err)
	}
	return &inv, nil
}
