package store

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dialect captures the differences between the supported databases.
// Statements are written once with ? placeholders and rebound per dialect.
type dialect struct {
	name   string
	driver string
	schema []string
	// positional reports whether placeholders are $1, $2, ... instead of ?.
	positional bool
}

var sqliteDialect = dialect{
	name:   "sqlite",
	driver: "sqlite",
	schema: sqliteSchema,
}

var postgresDialect = dialect{
	name:       "postgres",
	driver:     "pgx",
	schema:     postgresSchema,
	positional: true,
}

// sqliteDSN enables foreign keys and WAL on every pooled connection and makes
// BEGIN take the write lock up front, so concurrent mutations queue on the
// busy timeout instead of failing on lock upgrade.
func sqliteDSN(path string) string {
	return "file:" + path +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_txlock=immediate"
}

// rebind rewrites ? placeholders to $n for positional dialects. Statements in
// this package never contain ? inside string literals.
func (d dialect) rebind(q string) string {
	if !d.positional {
		return q
	}
	var sb strings.Builder
	sb.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(q[i])
	}
	return sb.String()
}

// isUniqueViolation reports whether err is a unique constraint failure from
// either driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
