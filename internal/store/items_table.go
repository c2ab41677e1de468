// This file implements item reads and item writes inside a Tx.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

const itemColumns = "item_id, name, category_id, note, search_aliases, created_at, updated_at"

// GetItem retrieves an item by ID.
// Returns ErrNotFound if no item exists with that ID.
func (b *Backend) GetItem(ctx context.Context, id int64) (types.Item, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.Item{}, types.ErrDetached
	}
	if id <= 0 {
		return types.Item{}, types.ErrInvalidID
	}
	item, err := hydrateItem(b.queryRow(ctx,
		"SELECT "+itemColumns+" FROM items WHERE item_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Item{}, types.ErrNotFound
	}
	if err != nil {
		return types.Item{}, fmt.Errorf("getting item %d: %w", id, err)
	}
	return item, nil
}

// CreateItem inserts a new item.
// Returns ErrInvalidCategory if the referenced category does not exist and
// ErrDuplicateName if another item already has the name.
func (t *Tx) CreateItem(ctx context.Context, in types.ItemInput) (types.Item, error) {
	if err := t.checkCategory(ctx, in.CategoryID); err != nil {
		return types.Item{}, err
	}
	dup, err := t.exists(ctx, "SELECT COUNT(*) FROM items WHERE name = ?", in.Name)
	if err != nil {
		return types.Item{}, fmt.Errorf("checking item name uniqueness: %w", err)
	}
	if dup {
		return types.Item{}, fmt.Errorf("item %q: %w", in.Name, types.ErrDuplicateName)
	}

	ts := t.timestamp()
	var id int64
	err = t.queryRow(ctx,
		`INSERT INTO items (name, category_id, note, search_aliases, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?) RETURNING item_id`,
		in.Name, in.CategoryID, in.Note, in.SearchAliases, ts, ts,
	).Scan(&id)
	if isUniqueViolation(err) {
		return types.Item{}, fmt.Errorf("item %q: %w", in.Name, types.ErrDuplicateName)
	}
	if err != nil {
		return types.Item{}, fmt.Errorf("inserting item: %w", err)
	}
	return types.Item{
		ID:            id,
		Name:          in.Name,
		CategoryID:    in.CategoryID,
		Note:          in.Note,
		SearchAliases: in.SearchAliases,
		CreatedAt:     t.now,
		UpdatedAt:     t.now,
	}, nil
}

// UpdateItem replaces the writable fields of an existing item.
// Returns ErrNotFound, ErrInvalidCategory, or ErrDuplicateName.
func (t *Tx) UpdateItem(ctx context.Context, id int64, in types.ItemInput) (types.Item, error) {
	if id <= 0 {
		return types.Item{}, types.ErrInvalidID
	}
	current, err := hydrateItem(t.queryRow(ctx,
		"SELECT "+itemColumns+" FROM items WHERE item_id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Item{}, fmt.Errorf("item %d: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return types.Item{}, fmt.Errorf("getting item %d: %w", id, err)
	}
	if err := t.checkCategory(ctx, in.CategoryID); err != nil {
		return types.Item{}, err
	}

	dup, err := t.exists(ctx, "SELECT COUNT(*) FROM items WHERE name = ? AND item_id != ?", in.Name, id)
	if err != nil {
		return types.Item{}, fmt.Errorf("checking item name uniqueness: %w", err)
	}
	if dup {
		return types.Item{}, fmt.Errorf("item %q: %w", in.Name, types.ErrDuplicateName)
	}

	_, err = t.exec(ctx,
		`UPDATE items SET name = ?, category_id = ?, note = ?, search_aliases = ?, updated_at = ?
WHERE item_id = ?`,
		in.Name, in.CategoryID, in.Note, in.SearchAliases, t.timestamp(), id)
	if isUniqueViolation(err) {
		return types.Item{}, fmt.Errorf("item %q: %w", in.Name, types.ErrDuplicateName)
	}
	if err != nil {
		return types.Item{}, fmt.Errorf("updating item %d: %w", id, err)
	}

	current.Name = in.Name
	current.CategoryID = in.CategoryID
	current.Note = in.Note
	current.SearchAliases = in.SearchAliases
	current.UpdatedAt = t.now
	return current, nil
}

// DeleteItem removes an item.
// Returns ErrNotFound if the item does not exist.
func (t *Tx) DeleteItem(ctx context.Context, id int64) error {
	if id <= 0 {
		return types.ErrInvalidID
	}
	res, err := t.exec(ctx, "DELETE FROM items WHERE item_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting item %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("counting deleted items: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", id, types.ErrNotFound)
	}
	return nil
}

// ItemIDByName returns the ID of the item with the given name, or 0 when
// none exists.
func (t *Tx) ItemIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := t.queryRow(ctx, "SELECT item_id FROM items WHERE name = ?", name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("looking up item %q: %w", name, err)
	}
	return id, nil
}

func (t *Tx) checkCategory(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("category %d: %w", id, types.ErrInvalidCategory)
	}
	found, err := t.exists(ctx, "SELECT COUNT(*) FROM categories WHERE category_id = ?", id)
	if err != nil {
		return fmt.Errorf("checking category %d: %w", id, err)
	}
	if !found {
		return fmt.Errorf("category %d: %w", id, types.ErrInvalidCategory)
	}
	return nil
}

func hydrateItem(row *sql.Row) (types.Item, error) {
	var (
		item             types.Item
		created, updated string
	)
	err := row.Scan(&item.ID, &item.Name, &item.CategoryID, &item.Note, &item.SearchAliases, &created, &updated)
	if err != nil {
		return types.Item{}, err
	}
	item.CreatedAt = parseTime(created)
	item.UpdatedAt = parseTime(updated)
	return item, nil
}
