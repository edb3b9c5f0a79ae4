package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bharatbasket/checkout/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (
		id, order_number, user_id,
		ship_full_name, ship_phone, ship_line1, ship_line2, ship_city, ship_state, ship_postal_code, ship_country,
		subtotal, tax_amount, discount_amount, shipping_amount, total_amount,
		status, payment_status, payment_method, payment_id, gst_breakdown, promo_code_id, buyer_gstin, created_at
	) VALUES (
		$1, $2, $3,
		$4, $5, $6, $7, $8, $9, $10, $11,
		$12, $13, $14, $15, $16,
		$17, $18, $19, $20, $21, $22, $23, $24
	)`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, product_name, product_price, quantity, total_price)
		VALUES ($1, $2, $3, $4, $5, $6)`

	// Conditional decrement: recomputes the availability tier in the same
	// statement and matches no row when stock is short, so two concurrent
	// checkouts can never drive stock negative.
	decrementStockSQL = `UPDATE products SET
		stock_quantity = stock_quantity - $2,
		availability_status = CASE
			WHEN stock_quantity - $2 <= 0 THEN 'out_of_stock'
			WHEN stock_quantity - $2 < 10 THEN 'low_stock'
			ELSE 'in_stock'
		END
		WHERE id = $1 AND stock_quantity >= $2`

	// Conditional increment: the counter can never exceed max_uses.
	incrementPromoUsesSQL = `UPDATE promo_codes SET used_count = used_count + 1
		WHERE id = $1 AND (max_uses <= 0 OR used_count < max_uses)`

	clearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`

	findOrderByPaymentIDSQL = orderColumnsSQL + ` WHERE payment_id = $1`
	getOrderByIDSQL         = orderColumnsSQL + ` WHERE id = $1`

	orderColumnsSQL = `SELECT id, order_number, user_id,
		ship_full_name, ship_phone, ship_line1, ship_line2, ship_city, ship_state, ship_postal_code, ship_country,
		subtotal, tax_amount, discount_amount, shipping_amount, total_amount,
		status, payment_status, payment_method, COALESCE(payment_id, ''), gst_breakdown,
		COALESCE(promo_code_id, ''), buyer_gstin, created_at
	FROM orders`

	listOrderItemsSQL = `SELECT product_id, product_name, product_price, quantity, total_price
		FROM order_items WHERE order_id = $1 ORDER BY id`
)

// paymentIDUniqueConstraint is the partial unique index enforcing one order
// per gateway payment.
const paymentIDUniqueConstraint = "orders_payment_id_uniq"

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// CreateCheckout applies the full checkout write set in one transaction:
// order header, order items, conditional stock decrements, promo usage, and
// cart clear. The writes are ordered header-first so every later failure
// rolls back to a clean slate.
func (r *OrderRepository) CreateCheckout(ctx context.Context, co *order.Checkout) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin checkout tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertOrder(ctx, tx, co.Order); err != nil {
		return err
	}

	// Batch the line inserts into a single round-trip.
	batch := &pgx.Batch{}
	for _, it := range co.Items {
		batch.Queue(insertOrderItemSQL,
			co.Order.ID, it.ProductID, it.ProductName, it.ProductPrice, it.Quantity, it.TotalPrice)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("creating order items for %q: %w", co.Order.ID, err)
	}

	for _, d := range co.Decrements {
		tag, err := tx.Exec(ctx, decrementStockSQL, d.ProductID, d.Quantity)
		if err != nil {
			return fmt.Errorf("decrementing stock for product %q: %w", d.ProductID, err)
		}
		if tag.RowsAffected() == 0 {
			// Stock changed between validation and commit; abort the whole order.
			return &order.InsufficientStockError{
				ProductID: d.ProductID,
				Requested: d.Quantity,
			}
		}
	}

	if co.PromoCodeID != "" {
		// Best-effort: the code was validated moments ago. A concurrent
		// exhaustion is tolerated rather than failing the order.
		if _, err := tx.Exec(ctx, incrementPromoUsesSQL, co.PromoCodeID); err != nil {
			return fmt.Errorf("incrementing uses for promo %q: %w", co.PromoCodeID, err)
		}
	}

	if co.ClearCartUser != "" {
		if _, err := tx.Exec(ctx, clearCartSQL, co.ClearCartUser); err != nil {
			return fmt.Errorf("clearing cart for user %q: %w", co.ClearCartUser, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit checkout tx: %w", err)
	}
	return nil
}

func insertOrder(ctx context.Context, tx pgx.Tx, o *order.Order) error {
	breakdownJSON, err := json.Marshal(o.Breakdown)
	if err != nil {
		return fmt.Errorf("marshaling gst breakdown: %w", err)
	}

	var paymentID *string
	if o.PaymentID != "" {
		paymentID = &o.PaymentID
	}
	var promoID *string
	if o.PromoCodeID != "" {
		promoID = &o.PromoCodeID
	}

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.OrderNumber, o.UserID,
		o.Shipping.FullName, o.Shipping.Phone, o.Shipping.Line1, o.Shipping.Line2,
		o.Shipping.City, o.Shipping.State, o.Shipping.PostalCode, o.Shipping.Country,
		o.Subtotal, o.TaxAmount, o.DiscountAmount, o.ShippingAmount, o.TotalAmount,
		o.Status, o.PaymentStatus, o.PaymentMethod, paymentID, breakdownJSON, promoID, o.BuyerGSTIN, o.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == paymentIDUniqueConstraint {
			return order.ErrDuplicatePayment
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// FindByPaymentID returns the order created from the given gateway payment id.
// Returns order.ErrNotFound when no such order exists.
func (r *OrderRepository) FindByPaymentID(ctx context.Context, paymentID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, findOrderByPaymentIDSQL, paymentID)
	if err != nil {
		return nil, fmt.Errorf("finding order by payment id: %w", err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order by payment id: %w", err)
	}
	return &o, nil
}

// GetByID returns an order header with its items.
// Returns order.ErrNotFound when no such order exists.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, []order.Item, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, order.ErrNotFound
		}
		return nil, nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	itemRows, err := r.pool.Query(ctx, listOrderItemsSQL, id)
	if err != nil {
		return nil, nil, fmt.Errorf("listing items for order %q: %w", id, err)
	}
	items, err := pgx.CollectRows(itemRows, func(row pgx.CollectableRow) (order.Item, error) {
		var it order.Item
		err := row.Scan(&it.ProductID, &it.ProductName, &it.ProductPrice, &it.Quantity, &it.TotalPrice)
		return it, err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("listing items for order %q: %w", id, err)
	}

	return &o, items, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		breakdownJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID,
		&o.Shipping.FullName, &o.Shipping.Phone, &o.Shipping.Line1, &o.Shipping.Line2,
		&o.Shipping.City, &o.Shipping.State, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.Subtotal, &o.TaxAmount, &o.DiscountAmount, &o.ShippingAmount, &o.TotalAmount,
		&o.Status, &o.PaymentStatus, &o.PaymentMethod, &o.PaymentID, &breakdownJSON,
		&o.PromoCodeID, &o.BuyerGSTIN, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	if len(breakdownJSON) > 0 {
		if err := json.Unmarshal(breakdownJSON, &o.Breakdown); err != nil {
			return o, fmt.Errorf("unmarshaling gst breakdown: %w", err)
		}
	}
	return o, nil
}
