// Unit tests for item reads, writes, and the flattened item view.
package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

func TestItems(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		check func(t *testing.T, b *Backend)
	}{
		{
			name: "create and get item",
			check: func(t *testing.T, b *Backend) {
				cat := mustCategory(t, b, "資源ごみ", "#00ff00")
				item := mustItem(t, b, types.ItemInput{
					Name:          "ペットボトル",
					CategoryID:    cat.ID,
					Note:          "キャップは外す",
					SearchAliases: "PET",
				})
				got, err := b.GetItem(ctx, item.ID)
				require.NoError(t, err)
				assert.Equal(t, "ペットボトル", got.Name)
				assert.Equal(t, cat.ID, got.CategoryID)
				assert.Equal(t, "キャップは外す", got.Note)
				assert.Equal(t, "PET", got.SearchAliases)
			},
		},
		{
			name: "create with unknown category returns ErrInvalidCategory",
			check: func(t *testing.T, b *Backend) {
				_, err := b.Mutate(ctx, func(tx *Tx) error {
					_, err := tx.CreateItem(ctx, types.ItemInput{Name: "x", CategoryID: 77})
					return err
				})
				assert.ErrorIs(t, err, types.ErrInvalidCategory)
			},
		},
		{
			name: "duplicate item name returns ErrDuplicateName",
			check: func(t *testing.T, b *Backend) {
				cat := mustCategory(t, b, "資源ごみ", "#00ff00")
				mustItem(t, b, types.ItemInput{Name: "空き缶", CategoryID: cat.ID})
				_, err := b.Mutate(ctx, func(tx *Tx) error {
					_, err := tx.CreateItem(ctx, types.ItemInput{Name: "空き缶", CategoryID: cat.ID})
					return err
				})
				assert.ErrorIs(t, err, types.ErrDuplicateName)
			},
		},
		{
			name: "update moves item to another category",
			check: func(t *testing.T, b *Backend) {
				a := mustCategory(t, b, "可燃ごみ", "#ff0000")
				c := mustCategory(t, b, "プラスチック", "#ffaa00")
				item := mustItem(t, b, types.ItemInput{Name: "食品トレイ", CategoryID: a.ID})
				_, err := b.Mutate(ctx, func(tx *Tx) error {
					_, err := tx.UpdateItem(ctx, item.ID, types.ItemInput{Name: "食品トレイ", CategoryID: c.ID, Note: "洗って出す"})
					return err
				})
				require.NoError(t, err)

				views, err := b.ItemViews(ctx)
				require.NoError(t, err)
				require.Len(t, views.Rows, 1)
				assert.Equal(t, "プラスチック", views.Rows[0].GarbageCategory)
				assert.Equal(t, "#ffaa00", views.Rows[0].CategoryColor)
				assert.Equal(t, "洗って出す", views.Rows[0].Note)
			},
		},
		{
			name: "update missing item returns ErrNotFound",
			check: func(t *testing.T, b *Backend) {
				cat := mustCategory(t, b, "可燃ごみ", "#ff0000")
				_, err := b.Mutate(ctx, func(tx *Tx) error {
					_, err := tx.UpdateItem(ctx, 5, types.ItemInput{Name: "x", CategoryID: cat.ID})
					return err
				})
				assert.ErrorIs(t, err, types.ErrNotFound)
			},
		},
		{
			name: "delete item and delete again",
			check: func(t *testing.T, b *Backend) {
				cat := mustCategory(t, b, "可燃ごみ", "#ff0000")
				item := mustItem(t, b, types.ItemInput{Name: "生ごみ", CategoryID: cat.ID})
				del := func() error {
					_, err := b.Mutate(ctx, func(tx *Tx) error { return tx.DeleteItem(ctx, item.ID) })
					return err
				}
				require.NoError(t, del())
				assert.ErrorIs(t, del(), types.ErrNotFound)

				_, err := b.GetItem(ctx, item.ID)
				assert.ErrorIs(t, err, types.ErrNotFound)
			},
		},
		{
			name: "item views are ordered by ID and carry the version",
			check: func(t *testing.T, b *Backend) {
				cat := mustCategory(t, b, "可燃ごみ", "#ff0000")
				mustItem(t, b, types.ItemInput{Name: "紙くず", CategoryID: cat.ID})
				mustItem(t, b, types.ItemInput{Name: "生ごみ", CategoryID: cat.ID})

				views, err := b.ItemViews(ctx)
				require.NoError(t, err)
				assert.Equal(t, int64(3), views.Version)
				require.Len(t, views.Rows, 2)
				assert.Equal(t, "紙くず", views.Rows[0].Name)
				assert.Equal(t, "生ごみ", views.Rows[1].Name)
				assert.Less(t, views.Rows[0].ID, views.Rows[1].ID)
				assert.Equal(t, "可燃ごみ", views.Rows[0].GarbageCategory)
			},
		},
		{
			name: "item views by category filters and keeps version for empty category",
			check: func(t *testing.T, b *Backend) {
				a := mustCategory(t, b, "可燃ごみ", "#ff0000")
				c := mustCategory(t, b, "粗大ごみ", "#aa00aa")
				mustItem(t, b, types.ItemInput{Name: "生ごみ", CategoryID: a.ID})

				views, err := b.ItemViewsByCategory(ctx, a.ID)
				require.NoError(t, err)
				require.Len(t, views.Rows, 1)
				assert.Equal(t, "生ごみ", views.Rows[0].Name)

				empty, err := b.ItemViewsByCategory(ctx, c.ID)
				require.NoError(t, err)
				assert.Empty(t, empty.Rows)
				assert.Equal(t, int64(3), empty.Version)

				_, err = b.ItemViewsByCategory(ctx, 999)
				assert.ErrorIs(t, err, types.ErrNotFound)
			},
		},
		{
			name: "reset removes everything in one bump",
			check: func(t *testing.T, b *Backend) {
				cat := mustCategory(t, b, "可燃ごみ", "#ff0000")
				mustItem(t, b, types.ItemInput{Name: "生ごみ", CategoryID: cat.ID})
				v, err := b.Mutate(ctx, func(tx *Tx) error { return tx.Reset(ctx) })
				require.NoError(t, err)
				assert.Equal(t, int64(3), v)

				views, err := b.ItemViews(ctx)
				require.NoError(t, err)
				assert.Empty(t, views.Rows)
				cats, err := b.Categories(ctx)
				require.NoError(t, err)
				assert.Empty(t, cats.Rows)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, setupBackend(t))
		})
	}
}
