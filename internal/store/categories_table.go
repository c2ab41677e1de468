// This file implements category reads and category writes inside a Tx.
// Name uniqueness is checked before writing and enforced again by the UNIQUE
// constraint for writers that race past the pre-check.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

const categoryColumns = "category_id, name, color, created_at, updated_at"

// GetCategory retrieves a category by ID.
// Returns ErrNotFound if no category exists with that ID.
func (b *Backend) GetCategory(ctx context.Context, id int64) (types.Category, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.Category{}, types.ErrDetached
	}
	if id <= 0 {
		return types.Category{}, types.ErrInvalidID
	}
	cat, err := hydrateCategory(b.queryRow(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE category_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Category{}, types.ErrNotFound
	}
	if err != nil {
		return types.Category{}, fmt.Errorf("getting category %d: %w", id, err)
	}
	return cat, nil
}

// Categories returns every category in ascending ID order together with the
// catalog version, read in a single statement so both come from the same
// database snapshot.
func (b *Backend) Categories(ctx context.Context) (types.Snapshot[types.Category], error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.Snapshot[types.Category]{}, types.ErrDetached
	}

	rows, err := b.query(ctx, `SELECT v.value, c.category_id, c.name, c.color, c.created_at, c.updated_at
FROM (`+currentVersionSQL+` AS value) v
LEFT JOIN categories c ON 1 = 1
ORDER BY c.category_id`)
	if err != nil {
		return types.Snapshot[types.Category]{}, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	snap := types.Snapshot[types.Category]{Rows: []types.Category{}}
	for rows.Next() {
		var id sql.NullInt64
		var name, color, created, updated sql.NullString
		if err := rows.Scan(&snap.Version, &id, &name, &color, &created, &updated); err != nil {
			return types.Snapshot[types.Category]{}, fmt.Errorf("scanning category: %w", err)
		}
		if !id.Valid {
			continue
		}
		snap.Rows = append(snap.Rows, types.Category{
			ID:        id.Int64,
			Name:      name.String,
			Color:     color.String,
			CreatedAt: parseTime(created.String),
			UpdatedAt: parseTime(updated.String),
		})
	}
	if err := rows.Err(); err != nil {
		return types.Snapshot[types.Category]{}, fmt.Errorf("iterating categories: %w", err)
	}
	return snap, nil
}

// CreateCategory inserts a new category.
// Returns ErrDuplicateName if another category already has the name.
func (t *Tx) CreateCategory(ctx context.Context, in types.CategoryInput) (types.Category, error) {
	dup, err := t.exists(ctx, "SELECT COUNT(*) FROM categories WHERE name = ?", in.Name)
	if err != nil {
		return types.Category{}, fmt.Errorf("checking category name uniqueness: %w", err)
	}
	if dup {
		return types.Category{}, fmt.Errorf("category %q: %w", in.Name, types.ErrDuplicateName)
	}

	ts := t.timestamp()
	var id int64
	err = t.queryRow(ctx,
		"INSERT INTO categories (name, color, created_at, updated_at) VALUES (?, ?, ?, ?) RETURNING category_id",
		in.Name, in.Color, ts, ts,
	).Scan(&id)
	if isUniqueViolation(err) {
		return types.Category{}, fmt.Errorf("category %q: %w", in.Name, types.ErrDuplicateName)
	}
	if err != nil {
		return types.Category{}, fmt.Errorf("inserting category: %w", err)
	}
	return types.Category{ID: id, Name: in.Name, Color: in.Color, CreatedAt: t.now, UpdatedAt: t.now}, nil
}

// UpdateCategory replaces the name and color of an existing category.
// Returns ErrNotFound if the category does not exist and ErrDuplicateName if
// a different category already has the new name.
func (t *Tx) UpdateCategory(ctx context.Context, id int64, in types.CategoryInput) (types.Category, error) {
	if id <= 0 {
		return types.Category{}, types.ErrInvalidID
	}
	current, err := hydrateCategory(t.queryRow(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE category_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Category{}, fmt.Errorf("category %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return types.Category{}, fmt.Errorf("getting category %d: %w", id, err)
	}

	dup, err := t.exists(ctx,
		"SELECT COUNT(*) FROM categories WHERE name = ? AND category_id != ?", in.Name, id)
	if err != nil {
		return types.Category{}, fmt.Errorf("checking category name uniqueness: %w", err)
	}
	if dup {
		return types.Category{}, fmt.Errorf("category %q: %w", in.Name, types.ErrDuplicateName)
	}

	_, err = t.exec(ctx,
		"UPDATE categories SET name = ?, color = ?, updated_at = ? WHERE category_id = ?",
		in.Name, in.Color, t.timestamp(), id)
	if isUniqueViolation(err) {
		return types.Category{}, fmt.Errorf("category %q: %w", in.Name, types.ErrDuplicateName)
	}
	if err != nil {
		return types.Category{}, fmt.Errorf("updating category %d: %w", id, err)
	}

	current.Name = in.Name
	current.Color = in.Color
	current.UpdatedAt = t.now
	return current, nil
}

// DeleteCategory removes a category and every item assigned to it. It
// returns the number of items removed.
// Returns ErrNotFound if the category does not exist.
func (t *Tx) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	if id <= 0 {
		return 0, types.ErrInvalidID
	}
	found, err := t.exists(ctx, "SELECT COUNT(*) FROM categories WHERE category_id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("checking category %d: %w", id, err)
	}
	if !found {
		return 0, fmt.Errorf("category %d: %w", id, types.ErrNotFound)
	}

	res, err := t.exec(ctx, "DELETE FROM items WHERE category_id = ?", id)
	if err != nil {
		return 0, fmt.Errorf("deleting items of category %d: %w", id, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted items: %w", err)
	}
	if _, err := t.exec(ctx, "DELETE FROM categories WHERE category_id = ?", id); err != nil {
		return 0, fmt.Errorf("deleting category %d: %w", id, err)
	}
	return removed, nil
}

// CategoryIDByName returns the ID of the category with the given name, or 0
// when none exists.
func (t *Tx) CategoryIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := t.queryRow(ctx, "SELECT category_id FROM categories WHERE name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("looking up category %q: %w", name, err)
	}
	return id, nil
}

func hydrateCategory(row *sql.Row) (types.Category, error) {
	var (
		cat              types.Category
		created, updated string
	)
	if err := row.Scan(&cat.ID, &cat.Name, &cat.Color, &created, &updated); err != nil {
		return types.Category{}, err
	}
	cat.CreatedAt = parseTime(created)
	cat.UpdatedAt = parseTime(updated)
	return cat, nil
}
