// Package dialects provides the SQL dialects a bulk statement can target,
// handling identifier quoting, upsert capability and bind-parameter limits.
package dialects

import (
	"errors"
	"sort"
	"strings"
)

// ErrUnsupportedDialect is returned when no dialect is registered under a name.
var ErrUnsupportedDialect = errors.New("unsupported database dialect")

// Dialect defines database-specific behaviors.
type Dialect interface {
	// Name returns the registry name of the dialect.
	Name() string
	// QuoteIdentifier quotes a table or column name.
	QuoteIdentifier(string) string
	// SupportsUpsert reports whether ON DUPLICATE KEY UPDATE is available.
	SupportsUpsert() bool
	// MaxPlaceholders is the largest number of bind parameters a single
	// statement may carry.
	MaxPlaceholders() int
}

var dialects = make(map[string]Dialect)

// RegisterDialect registers a database dialect by driver name.
func RegisterDialect(name string, d Dialect) {
	dialects[name] = d
}

// GetDialect retrieves a registered dialect by driver name.
func GetDialect(name string) (Dialect, error) {
	if d, ok := dialects[name]; ok {
		return d, nil
	}
	return nil, errors.Join(ErrUnsupportedDialect, errors.New("no dialect registered for "+name))
}

// MustGetDialect is like GetDialect but panics if the dialect is unknown.
func MustGetDialect(name string) Dialect {
	d, err := GetDialect(name)
	if err != nil {
		panic(err)
	}
	return d
}

// Names returns the registered dialect names in sorted order.
func Names() []string {
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// quoteBacktick wraps s in backticks, doubling any embedded backtick.
func quoteBacktick(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}
