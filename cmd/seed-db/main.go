// Command seed-db loads the product catalog and shopper accounts into
// PostgreSQL. Input files may be gzip-compressed (".gz").
package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/kart-checkout/internal/storage/postgres"
)

type options struct {
	databaseURL      string
	productsFile     string
	accountFiles     []string
	expectedAccounts uint
	bcryptCost       int
	workers          int
}

func main() {
	var (
		opts     options
		accounts string
	)

	flag.StringVar(&opts.databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&opts.productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&accounts, "accounts-files", "db/seed/accounts.jsonl", "comma-separated account JSON lines files")
	flag.UintVar(&opts.expectedAccounts, "expected-accounts", 1_000_000, "expected number of account lines, sizes the duplicate filter")
	flag.IntVar(&opts.bcryptCost, "bcrypt-cost", bcrypt.DefaultCost, "bcrypt cost for account secrets")
	flag.IntVar(&opts.workers, "workers", runtime.NumCPU(), "concurrent account hashing workers")
	flag.Parse()

	if opts.databaseURL == "" {
		opts.databaseURL = os.Getenv("DATABASE_URL")
	}
	for f := range strings.SplitSeq(accounts, ",") {
		if f = strings.TrimSpace(f); f != "" {
			opts.accountFiles = append(opts.accountFiles, f)
		}
	}

	app.Run(func(ctx context.Context, lg *zap.Logger, _ *app.Telemetry) error {
		if opts.databaseURL == "" {
			return errors.New("database URL is required: set --database-url or DATABASE_URL")
		}
		if err := run(ctx, lg, opts); err != nil {
			return errors.Wrap(err, "seed")
		}
		lg.Info("Seed completed")
		return nil
	})
}

func run(ctx context.Context, lg *zap.Logger, opts options) error {
	lg.Info("Connecting to database")

	pool, err := postgres.NewPool(ctx, opts.databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	lg.Info("Running migrations")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	n, err := seedProducts(ctx, lg, postgres.NewProductRepository(pool), opts.productsFile)
	if err != nil {
		return errors.Wrap(err, "seed products")
	}
	lg.Info("Products seeded", zap.Int("count", n))

	if len(opts.accountFiles) == 0 {
		return nil
	}
	res, err := seedAccounts(ctx, lg, postgres.NewAccountRepository(pool), accountsConfig{
		Files:    opts.accountFiles,
		Capacity: opts.expectedAccounts,
		Cost:     opts.bcryptCost,
		Workers:  opts.workers,
	})
	if err != nil {
		return errors.Wrap(err, "seed accounts")
	}
	lg.Info("Accounts seeded",
		zap.Int64("upserted", res.Upserted),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("invalid", res.Invalid),
	)
	return nil
}
