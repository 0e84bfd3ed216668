package dialects

// SQLiteDialect is the standard dialect: it accepts the same backtick
// quoted INSERT and REPLACE statements but has no ON DUPLICATE KEY UPDATE,
// so upserts fall back to a plain INSERT.
type SQLiteDialect struct{}

func init() {
	RegisterDialect("sqlite", &SQLiteDialect{})
	RegisterDialect("sqlite3", &SQLiteDialect{})
}

// Name returns "sqlite".
func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

// QuoteIdentifier quotes an identifier using backticks, which SQLite
// accepts for MySQL compatibility.
func (d *SQLiteDialect) QuoteIdentifier(s string) string {
	return quoteBacktick(s)
}

// SupportsUpsert returns false.
func (d *SQLiteDialect) SupportsUpsert() bool {
	return false
}

// MaxPlaceholders returns SQLITE_MAX_VARIABLE_NUMBER for SQLite >= 3.32.
func (d *SQLiteDialect) MaxPlaceholders() int {
	return 32766
}
