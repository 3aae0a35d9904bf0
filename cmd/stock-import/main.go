// Command stock-import applies a stocktake to the inventory table.
//
// Each input is a gzip-compressed file of "<productID>,<quantity>" lines, for
// example one file per storage area. Counts for the same product are summed
// across files and replace the stored quantity.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/pos-checkout/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		pattern     string
		dryRun      bool
	)
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&pattern, "files", "stocktake/*.gz", "glob of gzip stocktake files")
	flag.BoolVar(&dryRun, "dry-run", false, "parse and report without writing")
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

	if err := run(ctx, lg, databaseURL, pattern, dryRun); err != nil {
		lg.Fatal("Stock import failed", zap.Error(err))
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, pattern string, dryRun bool) error {
	files, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrap(err, "match files")
	}
	if len(files) == 0 {
		return errors.Errorf("no files match %q", pattern)
	}

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()
	store := postgres.NewStore(pool)

	ids, err := store.ListProductIDs(ctx)
	if err != nil {
		return err
	}
	lg.Info("Scanning stocktake", zap.Int("files", len(files)), zap.Int("products", len(ids)))

	t := newTally(ids)
	if err := t.scanFiles(ctx, files); err != nil {
		return errors.Wrap(err, "scan files")
	}
	lg.Info("Scan complete",
		zap.Int("lines", t.stats.Lines),
		zap.Int("products", len(t.counts)),
		zap.Int("unknown", t.stats.Unknown),
		zap.Int("malformed", t.stats.Malformed),
	)
	if dryRun || len(t.counts) == 0 {
		return nil
	}

	records, err := store.SetStockCounts(ctx, t.counts)
	if err != nil {
		return errors.Wrap(err, "write stock counts")
	}
	low := 0
	for _, r := range records {
		if r.IsLow() {
			low++
			lg.Warn("Low stock",
				zap.String("product_id", r.ProductID),
				zap.Int("quantity", r.Quantity),
				zap.Int("threshold", r.LowStockThreshold),
			)
		}
	}
	lg.Info("Stock updated", zap.Int("updated", len(records)), zap.Int("low", low))
	return nil
}
