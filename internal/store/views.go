package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

// itemViewSQL joins every item with its category. The version is selected in
// the same statement so rows and version share a snapshot; the LEFT JOIN keeps
// the version row when the catalog is empty. Callers append the join
// condition.
const itemViewSQL = `SELECT v.value, iv.item_id, iv.name, iv.category_name, iv.category_color,
       iv.note, iv.search_aliases, iv.created_at, iv.updated_at
FROM (` + currentVersionSQL + ` AS value) v
LEFT JOIN (
    SELECT i.item_id, i.name, c.name AS category_name, c.color AS category_color,
           i.note, i.search_aliases, i.created_at, i.updated_at, i.category_id
    FROM items i
    JOIN categories c ON c.category_id = i.category_id
) iv ON `

// ItemViews returns every item flattened with its category name and color,
// in ascending item ID order, together with the catalog version.
func (b *Backend) ItemViews(ctx context.Context) (types.Snapshot[types.ItemView], error) {
	return b.itemViews(ctx, itemViewSQL+"1 = 1\nORDER BY iv.item_id")
}

// ItemViewsByCategory is ItemViews restricted to one category. It returns
// ErrNotFound if the category does not exist.
func (b *Backend) ItemViewsByCategory(ctx context.Context, categoryID int64) (types.Snapshot[types.ItemView], error) {
	if _, err := b.GetCategory(ctx, categoryID); err != nil {
		return types.Snapshot[types.ItemView]{}, err
	}
	// The filter sits in the join condition so an empty category still
	// yields the version row.
	return b.itemViews(ctx, itemViewSQL+"iv.category_id = ?\nORDER BY iv.item_id", categoryID)
}

func (b *Backend) itemViews(ctx context.Context, q string, args ...any) (types.Snapshot[types.ItemView], error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.Snapshot[types.ItemView]{}, types.ErrDetached
	}

	rows, err := b.query(ctx, q, args...)
	if err != nil {
		return types.Snapshot[types.ItemView]{}, fmt.Errorf("querying item views: %w", err)
	}
	defer rows.Close()

	snap := types.Snapshot[types.ItemView]{Rows: []types.ItemView{}}
	for rows.Next() {
		var id sql.NullInt64
		var name, category, color, note, aliases, created, updated sql.NullString
		if err := rows.Scan(&snap.Version, &id, &name, &category, &color, &note, &aliases, &created, &updated); err != nil {
			return types.Snapshot[types.ItemView]{}, fmt.Errorf("scanning item view: %w", err)
		}
		if !id.Valid {
			continue
		}
		snap.Rows = append(snap.Rows, types.ItemView{
			ID:              id.Int64,
			Name:            name.String,
			GarbageCategory: category.String,
			CategoryColor:   color.String,
			Note:            note.String,
			SearchAliases:   aliases.String,
			CreatedAt:       parseTime(created.String),
			UpdatedAt:       parseTime(updated.String),
		})
	}
	if err := rows.Err(); err != nil {
		return types.Snapshot[types.ItemView]{}, fmt.Errorf("iterating item views: %w", err)
	}
	return snap, nil
}
