// Tests for catalog export and import.
package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

func TestReadRecords_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.jsonl")
	content := `{"type":"category","name":"可燃ごみ","color":"#ff0000"}

not json
{"type":"crumb","name":"ignored"}
{"type":"item","name":"生ごみ","category":"可燃ごみ"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	records, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, RecordCategory, records[0].Type)
	assert.Equal(t, RecordItem, records[1].Type)
	assert.Equal(t, "可燃ごみ", records[1].Category)
}

func TestReadRecords_MissingFile(t *testing.T) {
	_, err := ReadRecords(filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.Error(t, err)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := setupBackend(t)
	cat := mustCategory(t, src, "資源ごみ", "#00ff00")
	mustItem(t, src, types.ItemInput{Name: "空き缶", CategoryID: cat.ID, Note: "すすぐ", SearchAliases: "あきかん"})

	path := filepath.Join(t.TempDir(), "export.jsonl")
	require.NoError(t, src.Export(ctx, path))

	records, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	dst := setupBackend(t)
	var stats ImportStats
	v, err := dst.Mutate(ctx, func(tx *Tx) error {
		var err error
		stats, err = tx.Import(ctx, records)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v, "an import is one mutation")
	assert.Equal(t, ImportStats{CategoriesCreated: 1, ItemsCreated: 1}, stats)

	views, err := dst.ItemViews(ctx)
	require.NoError(t, err)
	require.Len(t, views.Rows, 1)
	assert.Equal(t, "空き缶", views.Rows[0].Name)
	assert.Equal(t, "資源ごみ", views.Rows[0].GarbageCategory)
	assert.Equal(t, "すすぐ", views.Rows[0].Note)
	assert.Equal(t, "あきかん", views.Rows[0].SearchAliases)
}

func TestImport_UpdatesExistingByName(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)
	cat := mustCategory(t, b, "資源ごみ", "#00ff00")
	mustItem(t, b, types.ItemInput{Name: "空き缶", CategoryID: cat.ID})

	var stats ImportStats
	_, err := b.Mutate(ctx, func(tx *Tx) error {
		var err error
		stats, err = tx.Import(ctx, []Record{
			{Type: RecordCategory, Name: "資源ごみ", Color: "#11ff11"},
			{Type: RecordItem, Name: "空き缶", Category: "資源ごみ", Note: "つぶす"},
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, ImportStats{CategoriesUpdated: 1, ItemsUpdated: 1}, stats)

	got, err := b.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "#11ff11", got.Color)
}

func TestImport_UnknownCategoryRollsBack(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	_, err := b.Mutate(ctx, func(tx *Tx) error {
		_, err := tx.Import(ctx, []Record{
			{Type: RecordCategory, Name: "可燃ごみ", Color: "#ff0000"},
			{Type: RecordItem, Name: "空き缶", Category: "資源ごみ"},
		})
		return err
	})
	assert.ErrorIs(t, err, types.ErrInvalidCategory)

	cats, err := b.Categories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats.Rows)
	assert.Equal(t, int64(0), cats.Version)
}

func TestImport_UnknownTypeRejected(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	_, err := b.Mutate(ctx, func(tx *Tx) error {
		_, err := tx.Import(ctx, []Record{
			{Type: RecordCategory, Name: "可燃ごみ", Color: "#ff0000"},
			{Type: "crumb", Name: "x"},
		})
		return err
	})
	assert.ErrorIs(t, err, types.ErrInvalidData)

	v, err := b.CurrentVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestSeedRecords_Import(t *testing.T) {
	ctx := context.Background()
	b := setupBackend(t)

	_, err := b.Mutate(ctx, func(tx *Tx) error {
		_, err := tx.Import(ctx, SeedRecords())
		return err
	})
	require.NoError(t, err)

	cats, err := b.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats.Rows, len(seedCategories))
	views, err := b.ItemViews(ctx)
	require.NoError(t, err)
	assert.Len(t, views.Rows, len(seedItems))
}

func TestWriteJSONL_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")
	require.NoError(t, writeJSONL(path, nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.jsonl", entries[0].Name())
}
