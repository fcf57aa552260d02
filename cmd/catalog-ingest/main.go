// Command catalog-ingest bulk-imports gzipped JSONL product feeds into the
// catalog. Feeds from different suppliers overlap; a shared bloom filter
// dedupes SKUs across files so the first feed to mention a SKU wins within a
// run. SKUs already in the catalog are refreshed in place.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/commerceflow/backend/internal/repository"
)

const (
	bloomCapacity = 10_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
)

// feedLine is one product record in a supplier feed.
type feedLine struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Category string          `json:"category"`
	Price    decimal.Decimal `json:"price"`
	Quantity int32           `json:"quantity"`
}

func main() {
	var (
		dataDir     string
		databaseURL string
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz feed files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL); err != nil {
		slog.Error("catalog ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "glob feed files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz feed files in %s", dataDir)
	}

	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	ing := newIngester(pool)
	slog.Info("ingesting feeds", slog.Int("files", len(files)))

	g, ctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(ing.ingestFile(ctx, f))
	}
	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("ingest summary",
		slog.Uint64("upserted", ing.upserted),
		slog.Uint64("duplicates", ing.duplicates),
		slog.Uint64("invalid", ing.invalid),
	)
	return nil
}

// ingester holds the state shared between concurrent feed readers: the
// cross-file SKU filter, the category name cache, and the counters. All of
// it is guarded by mu; feed parsing and decompression run outside the lock.
type ingester struct {
	pool *pgxpool.Pool

	mu         sync.Mutex
	seen       *bloom.BloomFilter
	categories map[string]string // lower(name) -> id

	upserted   uint64
	duplicates uint64
	invalid    uint64
}

func newIngester(pool *pgxpool.Pool) *ingester {
	return &ingester{
		pool:       pool,
		seen:       bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		categories: make(map[string]string),
	}
}

func (ing *ingester) ingestFile(ctx context.Context, path string) func() error {
	return func() error {
		var lines uint64

		err := streamGzLines(ctx, path, func(raw string) error {
			lines++
			if lines%progressEvery == 0 {
				slog.Info("ingest progress", slog.String("file", filepath.Base(path)), slog.Uint64("lines", lines))
			}

			var line feedLine
			if err := json.Unmarshal([]byte(raw), &line); err != nil || !line.valid() {
				ing.count(&ing.invalid)
				return nil
			}
			return ing.upsertLine(ctx, line)
		})
		if err != nil {
			return errors.Wrapf(err, "ingest %s", path)
		}

		slog.Info("feed complete", slog.String("file", filepath.Base(path)), slog.Uint64("lines", lines))
		return nil
	}
}

func (l feedLine) valid() bool {
	return l.SKU != "" && l.Name != "" && l.Category != "" &&
		!l.Price.IsNegative() && l.Quantity >= 0
}

func (ing *ingester) count(counter *uint64) {
	ing.mu.Lock()
	*counter++
	ing.mu.Unlock()
}

const upsertProductSQL = `
INSERT INTO products (id, sku, name, category_id, price, quantity)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (sku) DO UPDATE SET
    name = EXCLUDED.name,
    category_id = EXCLUDED.category_id,
    price = EXCLUDED.price,
    quantity = EXCLUDED.quantity`

// upsertLine writes one feed record, skipping SKUs another feed already
// claimed this run. The bloom filter trades a small false-positive rate for
// bounded memory on large feeds; a falsely skipped SKU lands on the next run.
func (ing *ingester) upsertLine(ctx context.Context, line feedLine) error {
	ing.mu.Lock()
	if ing.seen.TestString(line.SKU) {
		ing.duplicates++
		ing.mu.Unlock()
		return nil
	}
	ing.seen.AddString(line.SKU)
	ing.mu.Unlock()

	categoryID, err := ing.resolveCategory(ctx, line.Category)
	if err != nil {
		return errors.Wrapf(err, "resolve category %q", line.Category)
	}

	if _, err := ing.pool.Exec(ctx, upsertProductSQL,
		uuid.NewString(), line.SKU, line.Name, categoryID, line.Price, line.Quantity,
	); err != nil {
		return errors.Wrapf(err, "upsert product %s", line.SKU)
	}

	ing.count(&ing.upserted)
	return nil
}

const (
	selectCategoryIDSQL = `SELECT id FROM category WHERE LOWER(name) = LOWER($1)`
	insertCategorySQL   = `
INSERT INTO category (id, name)
VALUES ($1, $2)
ON CONFLICT DO NOTHING`
)

// resolveCategory maps a feed category name to a category id, creating the
// category on first sight. Results are cached for the run.
func (ing *ingester) resolveCategory(ctx context.Context, name string) (string, error) {
	key := strings.ToLower(name)

	ing.mu.Lock()
	id, ok := ing.categories[key]
	ing.mu.Unlock()
	if ok {
		return id, nil
	}

	err := ing.pool.QueryRow(ctx, selectCategoryIDSQL, name).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		id = uuid.NewString()
		if _, err := ing.pool.Exec(ctx, insertCategorySQL, id, name); err != nil {
			return "", errors.Wrap(err, "insert category")
		}
		// Another feed may have inserted it first; re-read the winning id.
		if err := ing.pool.QueryRow(ctx, selectCategoryIDSQL, name).Scan(&id); err != nil {
			return "", errors.Wrap(err, "reread category")
		}
	} else if err != nil {
		return "", errors.Wrap(err, "select category")
	}

	ing.mu.Lock()
	ing.categories[key] = id
	ing.mu.Unlock()
	return id, nil
}

// streamGzLines opens a gzip-compressed file and calls fn for each line.
func streamGzLines(ctx context.Context, path string, fn func(line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", path)
	}
	defer func() { _ = gz.Close() }()

	scanner := bufio.NewScanner(gz)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<20)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(scanner.Text()); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}

	return nil
}
