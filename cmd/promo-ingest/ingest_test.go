package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pgzip "github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/fairway-promos/internal/domain/promotion"
)

func definitionLine(id, code string) string {
	return `{"id": "` + id + `", "code": "` + code + `", "name": "Promo ` + code + `",` +
		`"mechanism": {"kind": "percentage", "amount": 10},` +
		`"productType": "pro_shop", "validFrom": "2025-01-01", "validUntil": "2025-12-31",` +
		`"audience": "all", "channels": ["Online"]}`
}

func writeGz(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(strings.Join(lines, "\n") + "\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func TestParseFiles(t *testing.T) {
	dir := t.TempDir()
	first := writeGz(t, dir, "a.jsonl.gz",
		definitionLine("d1", "SHOP10"),
		"",
		`{"id": "broken"`,
		definitionLine("d2", "SHOP20"),
	)
	second := writeGz(t, dir, "b.jsonl.gz",
		definitionLine("", "shop10"),
		`{"code": "NOMECH", "name": "x", "productType": "pro_shop", "audience": "all", "channels": ["POS"]}`,
		definitionLine("d3", "SHOP30"),
	)

	results, err := parseFiles(context.Background(), []string{first, second})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, 3, results[0].lines)
	assert.Equal(t, 1, results[0].invalid)
	require.Len(t, results[0].defs, 2)
	assert.Equal(t, "d1", results[0].defs[0].ID)

	assert.Equal(t, 3, results[1].lines)
	assert.Equal(t, 1, results[1].invalid)
	require.Len(t, results[1].defs, 2)
	assert.NotEmpty(t, results[1].defs[0].ID, "missing id is generated")

	candidates, err := findCandidates(context.Background(), results)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"SHOP10": {}}, candidates)

	defs, stats := collect(results, candidates)
	assert.Equal(t, ingestStats{lines: 6, invalid: 2, duplicates: 1}, stats)
	codes := make([]string, len(defs))
	for i, def := range defs {
		codes[i] = def.Code
	}
	assert.Equal(t, []string{"SHOP10", "SHOP20", "SHOP30"}, codes)
}

func TestParseFiles_NotGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.jsonl.gz")
	require.NoError(t, os.WriteFile(path, []byte(definitionLine("d1", "SHOP10")), 0o600))

	_, err := parseFiles(context.Background(), []string{path})
	require.Error(t, err)
}

func TestFindCandidates(t *testing.T) {
	dir := t.TempDir()
	first := writeGz(t, dir, "a.jsonl.gz",
		definitionLine("d1", "TWILIGHT49"),
		definitionLine("d2", "apparel15"),
		definitionLine("d3", "APPAREL15"),
		definitionLine("d4", "SHOP10"),
	)
	second := writeGz(t, dir, "b.jsonl.gz",
		definitionLine("d5", "twilight49"),
		definitionLine("d6", "MEMBER199"),
	)

	results, err := parseFiles(context.Background(), []string{first, second})
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"APPAREL15": {}}, results[0].repeated)
	assert.Empty(t, results[1].repeated)

	candidates, err := findCandidates(context.Background(), results)
	require.NoError(t, err)
	assert.Contains(t, candidates, "TWILIGHT49")
	assert.Contains(t, candidates, "APPAREL15")
	assert.NotContains(t, candidates, "SHOP10")
	assert.NotContains(t, candidates, "MEMBER199")

	defs, stats := collect(results, candidates)
	assert.Equal(t, 2, stats.duplicates)
	ids := make([]string, len(defs))
	for i, def := range defs {
		ids[i] = def.ID
	}
	assert.Equal(t, []string{"d1", "d2", "d4", "d6"}, ids)
}

func TestParseFiles_ZeroTotalLimitIsUnlimited(t *testing.T) {
	line := strings.Replace(definitionLine("d1", "SHOP10"), `"audience"`, `"totalLimit": 0, "audience"`, 1)
	path := writeGz(t, t.TempDir(), "a.jsonl.gz", line)

	results, err := parseFiles(context.Background(), []string{path})
	require.NoError(t, err)
	require.Len(t, results[0].defs, 1)

	def := results[0].defs[0]
	assert.Nil(t, def.TotalLimit)
	assert.Equal(t, promotion.StatusActive, def.StatusAt(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)))
}

func TestCollect_DuplicateIDs(t *testing.T) {
	defs, stats := collect([]fileResult{{
		lines: 2,
		defs: []promotion.Definition{
			{ID: "d1", Code: "ONE"},
			{ID: "d1", Code: "TWO"},
		},
	}}, nil)
	require.Len(t, defs, 1)
	assert.Equal(t, "ONE", defs[0].Code)
	assert.Equal(t, 1, stats.duplicates)
}

type recordingImporter struct {
	batches [][]promotion.Definition
}

func (r *recordingImporter) ImportDefinitions(_ context.Context, defs []promotion.Definition) (int, error) {
	r.batches = append(r.batches, defs)
	// Pretend the first definition of each batch already existed.
	return len(defs) - 1, nil
}

func TestWriteDefinitions_Batches(t *testing.T) {
	defs := make([]promotion.Definition, 5)
	imp := &recordingImporter{}

	inserted, err := writeDefinitions(context.Background(), imp, defs, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
	require.Len(t, imp.batches, 3)
	assert.Len(t, imp.batches[2], 1)
}
