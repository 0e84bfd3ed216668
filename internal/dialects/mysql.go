package dialects

// MySQLDialect implements the MySQL dialect, the only one with
// ON DUPLICATE KEY UPDATE support.
type MySQLDialect struct{}

// Name returns "mysql".
func (d *MySQLDialect) Name() string {
	return "mysql"
}

// QuoteIdentifier quotes a MySQL identifier using backticks.
func (d *MySQLDialect) QuoteIdentifier(s string) string {
	return quoteBacktick(s)
}

// SupportsUpsert returns true.
func (d *MySQLDialect) SupportsUpsert() bool {
	return true
}

// MaxPlaceholders returns the prepared statement parameter limit of the
// MySQL client/server protocol.
func (d *MySQLDialect) MaxPlaceholders() int {
	return 65535
}

func init() {
	RegisterDialect("mysql", &MySQLDialect{})
	RegisterDialect("mariadb", &MySQLDialect{})
}
