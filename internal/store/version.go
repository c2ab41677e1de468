package store

import (
	"context"
	"fmt"

	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

// DefaultVersion is reported when the version row has never been written.
const DefaultVersion int64 = 1

// bumpVersionSQL increments the counter atomically and returns the new value.
// The upsert recreates the row at 1 if it was ever removed.
const bumpVersionSQL = `INSERT INTO catalog_version (version_id, value) VALUES (1, 1)
ON CONFLICT (version_id) DO UPDATE SET value = catalog_version.value + 1
RETURNING value`

const currentVersionSQL = `SELECT COALESCE((SELECT value FROM catalog_version WHERE version_id = 1), 1)`

// CurrentVersion returns the catalog version. The version is monotonically
// non-decreasing; readers compare it for equality only.
func (b *Backend) CurrentVersion(ctx context.Context) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return 0, types.ErrDetached
	}
	var v int64
	if err := b.queryRow(ctx, currentVersionSQL).Scan(&v); err != nil {
		return 0, fmt.Errorf("reading catalog version: %w", err)
	}
	return v, nil
}
