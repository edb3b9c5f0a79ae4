package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bharatbasket/checkout/internal/domain/promo"
)

const getPromoByIDSQL = `SELECT id, code, discount_type, discount_value, max_discount_amount,
		min_order_amount, max_uses, used_count, expires_at, is_active
	FROM promo_codes WHERE id = $1`

var _ promo.Repository = (*PromoRepository)(nil)

// PromoRepository implements promo.Repository backed by PostgreSQL.
type PromoRepository struct {
	pool *pgxpool.Pool
}

// NewPromoRepository returns a PromoRepository that uses the given pool.
func NewPromoRepository(pool *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{pool: pool}
}

// GetByID returns a promo code by its identifier.
// Returns promo.ErrNotFound when no such code exists.
func (r *PromoRepository) GetByID(ctx context.Context, id string) (*promo.Code, error) {
	rows, err := r.pool.Query(ctx, getPromoByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting promo code %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanPromoCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, fmt.Errorf("getting promo code %q: %w", id, err)
	}
	return &c, nil
}

func scanPromoCode(row pgx.CollectableRow) (promo.Code, error) {
	var (
		c            promo.Code
		discountType string
		value        decimal.Decimal
		maxDiscount  *decimal.Decimal
		minOrder     *decimal.Decimal
		expiresAt    *time.Time
	)
	err := row.Scan(&c.ID, &c.Code, &discountType, &value, &maxDiscount,
		&minOrder, &c.MaxUses, &c.UsedCount, &expiresAt, &c.Active)
	c.DiscountType = promo.DiscountType(discountType)
	c.Value = value
	c.MaxDiscount = maxDiscount
	c.MinOrder = minOrder
	c.ExpiresAt = expiresAt
	return c, err
}
