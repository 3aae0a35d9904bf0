// Command seed-db loads staff, discount types, products and opening stock
// into the checkout database.
package main

import (
	"bytes"
	"context"
	"flag"
	"io"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/pos-checkout/db"
	"github.com/xenking/pos-checkout/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog", "", "path to a JSON catalog, optionally gzip-compressed (default: embedded catalog)")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, catalogFile); err != nil {
		lg.Fatal("Seed failed", zap.Error(err))
	}
	lg.Info("Seed completed")
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, catalogFile string) error {
	var src io.Reader = bytes.NewReader(db.Catalog)
	if catalogFile != "" {
		f, err := os.Open(catalogFile)
		if err != nil {
			return errors.Wrap(err, "open catalog")
		}
		defer func() { _ = f.Close() }()
		src = f
	}
	c, err := readCatalog(src)
	if err != nil {
		return err
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	store := postgres.NewStore(pool)
	for _, u := range c.Users {
		if err := store.UpsertUser(ctx, u); err != nil {
			return err
		}
	}
	lg.Info("Users seeded", zap.Int("count", len(c.Users)))

	for _, t := range c.DiscountTypes {
		if err := store.UpsertDiscountType(ctx, t); err != nil {
			return err
		}
	}
	lg.Info("Discount types seeded", zap.Int("count", len(c.DiscountTypes)))

	for _, p := range c.Products {
		if err := store.UpsertProduct(ctx, p.Product, p.Stock); err != nil {
			return err
		}
		if p.Stock.IsLow() {
			lg.Warn("Product seeded with low stock",
				zap.String("product_id", p.Product.ID),
				zap.Int("quantity", p.Stock.Quantity),
			)
		}
	}
	lg.Info("Products seeded", zap.Int("count", len(c.Products)))
	return nil
}
