// Command seed-db populates a fresh database with a demo catalog, invoice
// settings, and a demo user (address + API token) for local development and
// integration tests.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bharatbasket/checkout/internal/postgres"
)

const demoUserID = "demo-user"

type seedProduct struct {
	id      string
	name    string
	price   string
	stock   int
	gstRate string // empty means seller default
}

var seedProducts = []seedProduct{
	{id: "p-masala-tea", name: "Masala Chai 250g", price: "249.00", stock: 120, gstRate: "5"},
	{id: "p-basmati-5kg", name: "Basmati Rice 5kg", price: "799.00", stock: 60, gstRate: "5"},
	{id: "p-pressure-cooker", name: "Steel Pressure Cooker 5L", price: "2499.00", stock: 25, gstRate: ""},
	{id: "p-mixer-grinder", name: "Mixer Grinder 750W", price: "3999.00", stock: 8, gstRate: ""},
	{id: "p-ghee-1l", name: "Pure Cow Ghee 1L", price: "649.00", stock: 45, gstRate: "12"},
	{id: "p-led-bulb", name: "LED Bulb 9W (Pack of 4)", price: "399.00", stock: 200, gstRate: ""},
	{id: "p-silk-saree", name: "Kanchipuram Silk Saree", price: "8999.00", stock: 3, gstRate: "5"},
	{id: "p-trimmer", name: "Cordless Trimmer", price: "1499.00", stock: 0, gstRate: ""},
	{id: "p-copper-bottle", name: "Copper Water Bottle 1L", price: "899.00", stock: 12, gstRate: ""},
}

func main() {
	var (
		databaseURL string
		apiToken    string
		tokenPepper string
		cartSpec    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&apiToken, "api-token", "", "API token to seed for the demo user (or CHECKOUT_SEED_TOKEN env)")
	flag.StringVar(&tokenPepper, "token-pepper", "", "HMAC pepper for token hashing (or CHECKOUT_TOKEN_PEPPER env)")
	flag.StringVar(&cartSpec, "cart", "", `cart items for the demo user as "productID:qty,..." (replaces the current cart)`)
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiToken == "" {
		apiToken = os.Getenv("CHECKOUT_SEED_TOKEN")
	}
	if apiToken == "" {
		slog.Error("API token is required: set --api-token or CHECKOUT_SEED_TOKEN")
		os.Exit(1)
	}
	if tokenPepper == "" {
		tokenPepper = os.Getenv("CHECKOUT_TOKEN_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, apiToken, tokenPepper, cartSpec); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, apiToken, pepper, cartSpec string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCatalog(ctx, pool); err != nil {
		return errors.Wrap(err, "seed catalog")
	}
	if err := seedInvoiceSettings(ctx, pool); err != nil {
		return errors.Wrap(err, "seed invoice settings")
	}
	if err := seedDemoUser(ctx, pool, apiToken, pepper); err != nil {
		return errors.Wrap(err, "seed demo user")
	}
	if err := seedDemoCart(ctx, pool, cartSpec); err != nil {
		return errors.Wrap(err, "seed demo cart")
	}

	return nil
}

func seedCatalog(ctx context.Context, pool *pgxpool.Pool) error {
	const upsertProduct = `INSERT INTO products (id, name, price, stock_quantity, availability_status, gst_percentage)
		VALUES ($1, $2, $3, $4,
			CASE WHEN $4 <= 0 THEN 'out_of_stock' WHEN $4 < 10 THEN 'low_stock' ELSE 'in_stock' END,
			$5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			stock_quantity = EXCLUDED.stock_quantity,
			availability_status = EXCLUDED.availability_status,
			gst_percentage = EXCLUDED.gst_percentage`

	for _, p := range seedProducts {
		price, err := decimal.NewFromString(p.price)
		if err != nil {
			return errors.Wrapf(err, "parse price for %s", p.id)
		}

		var gstRate *decimal.Decimal
		if p.gstRate != "" {
			rate, err := decimal.NewFromString(p.gstRate)
			if err != nil {
				return errors.Wrapf(err, "parse gst rate for %s", p.id)
			}
			gstRate = &rate
		}

		if _, err := pool.Exec(ctx, upsertProduct, p.id, p.name, price, p.stock, gstRate); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.id)
		}
	}

	slog.Info("catalog seeded", slog.Int("products", len(seedProducts)))
	return nil
}

func seedInvoiceSettings(ctx context.Context, pool *pgxpool.Pool) error {
	const upsertSettings = `INSERT INTO invoice_settings (id, seller_state, platform_fee_percent, platform_fee_taxable)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			seller_state = EXCLUDED.seller_state,
			platform_fee_percent = EXCLUDED.platform_fee_percent,
			platform_fee_taxable = EXCLUDED.platform_fee_taxable`

	_, err := pool.Exec(ctx, upsertSettings, "Maharashtra", decimal.NewFromInt(2), true)
	return err
}

func seedDemoUser(ctx context.Context, pool *pgxpool.Pool, apiToken, pepper string) error {
	const upsertAddress = `INSERT INTO user_addresses (id, user_id, full_name, phone, line1, line2, city, state, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	_, err := pool.Exec(ctx, upsertAddress,
		"addr-demo-1", demoUserID, "Asha Demo", "+91-9800000000",
		"14 MG Road", "", "Pune", "Maharashtra", "411001", "India")
	if err != nil {
		return errors.Wrap(err, "upsert address")
	}

	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(apiToken))
	hash := hex.EncodeToString(mac.Sum(nil))

	const upsertToken = `INSERT INTO api_tokens (id, token_hash, user_id, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token_hash) DO NOTHING`

	if _, err := pool.Exec(ctx, upsertToken, "token-demo-1", hash, demoUserID, "demo"); err != nil {
		return errors.Wrap(err, "upsert api token")
	}

	slog.Info("demo user seeded", slog.String("user_id", demoUserID))
	return nil
}

// seedDemoCart replaces the demo user's cart with the items from spec.
// An empty spec leaves the cart untouched.
func seedDemoCart(ctx context.Context, pool *pgxpool.Pool, spec string) error {
	if spec == "" {
		return nil
	}

	if _, err := pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, demoUserID); err != nil {
		return errors.Wrap(err, "clear cart")
	}

	const insertItem = `INSERT INTO cart_items (user_id, product_id, quantity) VALUES ($1, $2, $3)`

	entries := strings.Split(spec, ",")
	for _, entry := range entries {
		productID, qtyStr, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok {
			return errors.Errorf("malformed cart entry %q, want productID:qty", entry)
		}
		qty, err := strconv.Atoi(qtyStr)
		if err != nil || qty < 1 {
			return errors.Errorf("invalid quantity in cart entry %q", entry)
		}
		if _, err := pool.Exec(ctx, insertItem, demoUserID, productID, qty); err != nil {
			return errors.Wrapf(err, "insert cart item %s", productID)
		}
	}

	slog.Info("demo cart seeded", slog.Int("items", len(entries)))
	return nil
}
