package cache

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"sync/atomic"
)

// mockDriver counts Prepare calls and accepts every statement.
type mockDriver struct {
	prepares *atomic.Int64
}

type mockConn struct {
	prepares *atomic.Int64
}

type mockStmt struct {
	query string
}

func (d *mockDriver) Open(_ string) (driver.Conn, error) {
	return &mockConn{prepares: d.prepares}, nil
}

func (c *mockConn) Prepare(query string) (driver.Stmt, error) {
	c.prepares.Add(1)
	return &mockStmt{query: query}, nil
}

func (c *mockConn) Close() error { return nil }

func (c *mockConn) Begin() (driver.Tx, error) {
	return nil, driver.ErrSkip
}

func (s *mockStmt) Close() error { return nil }

func (s *mockStmt) NumInput() int { return -1 }

func (s *mockStmt) Exec(_ []driver.Value) (driver.Result, error) {
	return driver.RowsAffected(0), nil
}

func (s *mockStmt) Query(_ []driver.Value) (driver.Rows, error) {
	return nil, driver.ErrSkip
}

var driverCounter atomic.Uint64

// registerMockDriver registers a uniquely named mock driver and opens it.
func registerMockDriver() (*sql.DB, *atomic.Int64, error) {
	name := fmt.Sprintf("cache-mock-%d", driverCounter.Add(1))
	prepares := new(atomic.Int64)
	sql.Register(name, &mockDriver{prepares: prepares})
	db, err := sql.Open(name, "")
	return db, prepares, err
}
