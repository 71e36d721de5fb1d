package main

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"maps"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/fairway-promos/internal/domain/promotion"
	"github.com/xenking/fairway-promos/internal/wire"
)

const (
	bloomCapacity = 1_000_000
	bloomFPR      = 0.001
	progressEvery = 100_000
	maxLineBytes  = 1 << 20
)

// fileResult holds the valid definitions of one file in line order.
type fileResult struct {
	defs    []promotion.Definition
	lines   int
	invalid int
	// codes is a bloom filter over the upper-cased codes of defs.
	codes *bloom.BloomFilter
	// repeated holds codes the filter reported as already seen in this file.
	repeated map[string]struct{}
}

type ingestStats struct {
	lines      int
	invalid    int
	duplicates int
}

// parseFiles decodes every file concurrently. Results keep file order.
func parseFiles(ctx context.Context, files []string) ([]fileResult, error) {
	results := make([]fileResult, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			r, err := parseFile(ctx, f)
			if err != nil {
				return errors.Wrapf(err, "parse %s", f)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// parseFile reads one definition per line and adds every code to the file's
// bloom filter. Lines that fail to decode or validate are logged and
// counted, not fatal. Definitions without an id get a fresh one.
func parseFile(ctx context.Context, path string) (fileResult, error) {
	r := fileResult{
		codes:    bloom.NewWithEstimates(bloomCapacity, bloomFPR),
		repeated: make(map[string]struct{}),
	}
	err := streamGzFile(ctx, path, func(line []byte) {
		r.lines++
		if r.lines%progressEvery == 0 {
			slog.Info("parse progress", slog.String("file", path), slog.Int("lines", r.lines))
		}

		def, err := wire.DecodeDefinition(jx.DecodeBytes(line))
		if err == nil {
			if def.ID == "" {
				def.ID = uuid.NewString()
			}
			def.Code = strings.TrimSpace(def.Code)
			err = def.Validate()
		}
		if err != nil {
			r.invalid++
			slog.Warn("skipping invalid definition",
				slog.String("file", path),
				slog.Int("line", r.lines),
				slog.String("error", err.Error()),
			)
			return
		}
		if key := codeKey(def.Code); r.codes.TestAndAddString(key) {
			r.repeated[key] = struct{}{}
		}
		r.defs = append(r.defs, def)
	})
	if err == nil {
		slog.Info("parse complete",
			slog.String("file", path),
			slog.Int("lines", r.lines),
			slog.Int("repeated", len(r.repeated)),
		)
	}
	return r, err
}

// streamGzFile opens a gzip-compressed file and calls fn for each non-blank
// line. The slice passed to fn is only valid until fn returns.
func streamGzFile(ctx context.Context, path string, fn func(line []byte)) error {
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
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		fn(line)
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

func codeKey(code string) string {
	return strings.ToUpper(code)
}

// findCandidates returns the codes that may occur more than once across all
// files: repeats within a file plus codes another file's bloom filter
// reports. Bloom filters have no false negatives, so a code outside the set
// occurs exactly once and needs no exact tracking.
func findCandidates(ctx context.Context, results []fileResult) (map[string]struct{}, error) {
	perFile := make([]map[string]struct{}, len(results))

	g, ctx := errgroup.WithContext(ctx)
	for i := range results {
		g.Go(func() error {
			found := make(map[string]struct{}, len(results[i].repeated))
			maps.Copy(found, results[i].repeated)

			for n, def := range results[i].defs {
				if n%progressEvery == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				key := codeKey(def.Code)
				for j := range results {
					if j != i && results[j].codes != nil && results[j].codes.TestString(key) {
						found[key] = struct{}{}
						break
					}
				}
			}
			perFile[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make(map[string]struct{})
	for _, found := range perFile {
		maps.Copy(candidates, found)
	}
	return candidates, nil
}

// collect merges file results in order, keeping the first definition for
// each code and each id. Only candidate codes are tracked exactly.
func collect(results []fileResult, candidates map[string]struct{}) ([]promotion.Definition, ingestStats) {
	var (
		stats ingestStats
		total int
	)
	for _, r := range results {
		total += len(r.defs)
	}
	ids := make(map[string]struct{}, total)
	seen := make(map[string]struct{}, len(candidates))

	out := make([]promotion.Definition, 0, total)
	for _, r := range results {
		stats.lines += r.lines
		stats.invalid += r.invalid
		for _, def := range r.defs {
			if _, dup := ids[def.ID]; dup {
				stats.duplicates++
				continue
			}
			key := codeKey(def.Code)
			if _, maybe := candidates[key]; maybe {
				if _, dup := seen[key]; dup {
					stats.duplicates++
					continue
				}
				seen[key] = struct{}{}
			}
			ids[def.ID] = struct{}{}
			out = append(out, def)
		}
	}
	return out, stats
}

// importer is the storage the ingest writes to.
type importer interface {
	ImportDefinitions(ctx context.Context, defs []promotion.Definition) (int, error)
}

// writeDefinitions imports defs in batches and returns how many were new.
func writeDefinitions(ctx context.Context, store importer, defs []promotion.Definition, batchSize int) (int, error) {
	slog.Info("writing definitions to database", slog.Int("count", len(defs)))

	var inserted int
	for start := 0; start < len(defs); start += batchSize {
		end := min(start+batchSize, len(defs))
		n, err := store.ImportDefinitions(ctx, defs[start:end])
		if err != nil {
			return inserted, errors.Wrapf(err, "import batch at %d", start)
		}
		inserted += n
		slog.Info("write progress", slog.Int("written", end), slog.Int("total", len(defs)))
	}
	return inserted, nil
}
