package store

// Timestamps are stored as RFC 3339 text in both dialects.
//
// items.category_id carries no ON DELETE action: DeleteCategory removes the
// category's items explicitly in the same transaction.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
    category_id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    color TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS items (
    item_id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL UNIQUE,
    category_id INTEGER NOT NULL REFERENCES categories(category_id),
    note TEXT NOT NULL DEFAULT '',
    search_aliases TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_items_category_id ON items(category_id)`,
	`CREATE TABLE IF NOT EXISTS catalog_version (
    version_id INTEGER PRIMARY KEY CHECK (version_id = 1),
    value INTEGER NOT NULL
)`,
	`INSERT INTO catalog_version (version_id, value) VALUES (1, 0)
ON CONFLICT (version_id) DO NOTHING`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
    category_id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    color TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS items (
    item_id BIGSERIAL PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    category_id BIGINT NOT NULL REFERENCES categories(category_id),
    note TEXT NOT NULL DEFAULT '',
    search_aliases TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_items_category_id ON items(category_id)`,
	`CREATE TABLE IF NOT EXISTS catalog_version (
    version_id INTEGER PRIMARY KEY CHECK (version_id = 1),
    value BIGINT NOT NULL
)`,
	`INSERT INTO catalog_version (version_id, value) VALUES (1, 0)
ON CONFLICT (version_id) DO NOTHING`,
}
