//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/coregx/bulkupsert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"
	"github.com/testcontainers/testcontainers-go/wait"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO required)
)

// DatabaseSetup encapsulates database connection and cleanup.
type DatabaseSetup struct {
	DB        *bulkupsert.DB
	Container testcontainers.Container
	Dialect   string
}

// Close cleans up database resources.
func (ds *DatabaseSetup) Close() {
	if ds.DB != nil {
		ds.DB.Close() //nolint:errcheck
	}
	if ds.Container != nil {
		ds.Container.Terminate(context.Background()) //nolint:errcheck
	}
}

// SetupMySQLTestDB creates a MySQL test database.
// Uses testcontainers if available, falls back to env DSN.
func SetupMySQLTestDB(t *testing.T, opts ...bulkupsert.Option) *DatabaseSetup {
	ctx := context.Background()

	// Check for manual DSN first (allows testing without Docker)
	if dsn := os.Getenv("MYSQL_TEST_DSN"); dsn != "" {
		db, err := bulkupsert.Open("mysql", withParseTime(dsn), opts...)
		require.NoError(t, err)
		return &DatabaseSetup{DB: db, Dialect: "mysql"}
	}

	// Start MySQL in Docker via testcontainers
	mysqlContainer, err := mysql.Run(
		ctx,
		"mysql:8.0",
		mysql.WithDatabase("testdb"),
		mysql.WithUsername("user"),
		mysql.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Skip("Docker not available for MySQL integration tests: " + err.Error())
	}

	dsn, err := mysqlContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := bulkupsert.Open("mysql", withParseTime(dsn), opts...)
	require.NoError(t, err)

	return &DatabaseSetup{
		DB:        db,
		Container: mysqlContainer,
		Dialect:   "mysql",
	}
}

// SetupSQLiteTestDB creates an in-memory SQLite database.
// Always works, no external dependencies.
func SetupSQLiteTestDB(t *testing.T, opts ...bulkupsert.Option) *DatabaseSetup {
	db, err := bulkupsert.Open("sqlite", ":memory:", opts...)
	require.NoError(t, err)
	// One connection, one in-memory database.
	db.SQLDB().SetMaxOpenConns(1)

	return &DatabaseSetup{
		DB:      db,
		Dialect: "sqlite",
	}
}

// withParseTime makes DATETIME columns scan into time.Time.
func withParseTime(dsn string) string {
	if strings.Contains(dsn, "parseTime=true") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}

// CreateCountersTable creates the page_counters table used by the upsert tests.
func CreateCountersTable(t *testing.T, ds *DatabaseSetup) {
	var createSQL string

	switch ds.Dialect {
	case "mysql":
		createSQL = `
			CREATE TABLE IF NOT EXISTS page_counters (
				id INT PRIMARY KEY,
				path VARCHAR(255) NOT NULL,
				hits INT NOT NULL DEFAULT 0,
				updated_at DATETIME NULL,
				UNIQUE KEY uniq_path (path)
			)
		`
	case "sqlite":
		createSQL = `
			CREATE TABLE IF NOT EXISTS page_counters (
				id INTEGER PRIMARY KEY,
				path TEXT NOT NULL UNIQUE,
				hits INTEGER NOT NULL DEFAULT 0,
				updated_at TIMESTAMP NULL
			)
		`
	}

	_, err := ds.DB.SQLDB().ExecContext(context.Background(), createSQL)
	require.NoError(t, err)
	t.Cleanup(func() {
		ds.DB.SQLDB().ExecContext(context.Background(), "DROP TABLE IF EXISTS page_counters") //nolint:errcheck
	})
}

// CountRows returns the number of rows in page_counters.
func CountRows(t *testing.T, ds *DatabaseSetup) int {
	var n int
	err := ds.DB.SQLDB().QueryRowContext(context.Background(), "SELECT COUNT(*) FROM page_counters").Scan(&n)
	require.NoError(t, err)
	return n
}

// Hits returns the hits column of the row with the given id.
func Hits(t *testing.T, ds *DatabaseSetup, id int) int {
	var n int
	err := ds.DB.SQLDB().QueryRowContext(context.Background(), "SELECT hits FROM page_counters WHERE id = ?", id).Scan(&n)
	require.NoError(t, err)
	return n
}
