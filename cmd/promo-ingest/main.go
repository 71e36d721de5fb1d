// Command promo-ingest bulk-loads promotion definitions from gzip-compressed
// JSON-lines files into PostgreSQL.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/go-faster/errors"

	"github.com/xenking/fairway-promos/internal/storage/postgres"
)

func main() {
	var (
		dataDir     string
		databaseURL string
		batchSize   int
		dryRun      bool
	)

	flag.StringVar(&dataDir, "data-dir", "data", "directory containing *.jsonl.gz definition files")
	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.IntVar(&batchSize, "batch-size", 500, "definitions per insert batch")
	flag.BoolVar(&dryRun, "dry-run", false, "parse and validate without writing")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if batchSize <= 0 {
		slog.Error("batch size must be positive", slog.Int("batch_size", batchSize))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, dataDir, databaseURL, batchSize, dryRun); err != nil {
		slog.Error("promotion ingest failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("promotion ingest completed successfully")
}

func run(ctx context.Context, dataDir, databaseURL string, batchSize int, dryRun bool) error {
	files, err := filepath.Glob(filepath.Join(dataDir, "*.jsonl.gz"))
	if err != nil {
		return errors.Wrap(err, "list data files")
	}
	if len(files) == 0 {
		return errors.Errorf("no *.jsonl.gz files in %s", dataDir)
	}
	slices.Sort(files)

	slog.Info("parsing files", slog.Int("files", len(files)))

	results, err := parseFiles(ctx, files)
	if err != nil {
		return errors.Wrap(err, "parse files")
	}

	candidates, err := findCandidates(ctx, results)
	if err != nil {
		return errors.Wrap(err, "find duplicate candidates")
	}
	slog.Info("duplicate candidates found", slog.Int("count", len(candidates)))

	defs, stats := collect(results, candidates)
	slog.Info("parsed definitions",
		slog.Int("lines", stats.lines),
		slog.Int("invalid", stats.invalid),
		slog.Int("duplicates", stats.duplicates),
		slog.Int("unique", len(defs)),
	)

	if dryRun || len(defs) == 0 {
		slog.Info("nothing to write", slog.Bool("dry_run", dryRun))
		return nil
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	inserted, err := writeDefinitions(ctx, postgres.New(pool), defs, batchSize)
	if err != nil {
		return errors.Wrap(err, "write definitions")
	}

	slog.Info("write complete",
		slog.Int("inserted", inserted),
		slog.Int("skipped", len(defs)-inserted),
	)
	return nil
}
