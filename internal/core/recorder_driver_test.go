package core

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"
	"testing"
)

// execCall is one statement execution seen by the recorder driver.
type execCall struct {
	query string
	args  []driver.Value
	inTx  bool
}

// recorder is a database/sql driver that records prepares and executions
// and reports one affected row per bound row group. It stands in for a
// MySQL server.
type recorder struct {
	mu       sync.Mutex
	prepares []string
	execs    []execCall
	// affected overrides the reported row count when non-negative.
	affected int64
	// execErr is returned by every Exec when set.
	execErr error
}

func newRecorder() *recorder {
	return &recorder{affected: -1}
}

// openRecorder returns a *sql.DB backed by a fresh recorder.
func openRecorder(t *testing.T) (*sql.DB, *recorder) {
	t.Helper()
	rec := newRecorder()
	sqlDB := sql.OpenDB(rec)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB, rec
}

func (r *recorder) Connect(context.Context) (driver.Conn, error) {
	return &recorderConn{rec: r}, nil
}

func (r *recorder) Driver() driver.Driver {
	return recorderDriver{rec: r}
}

func (r *recorder) calls() []execCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]execCall, len(r.execs))
	copy(out, r.execs)
	return out
}

func (r *recorder) prepareCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prepares)
}

type recorderDriver struct {
	rec *recorder
}

func (d recorderDriver) Open(string) (driver.Conn, error) {
	return &recorderConn{rec: d.rec}, nil
}

type recorderConn struct {
	rec  *recorder
	inTx bool
}

func (c *recorderConn) Prepare(query string) (driver.Stmt, error) {
	c.rec.mu.Lock()
	c.rec.prepares = append(c.rec.prepares, query)
	c.rec.mu.Unlock()
	return &recorderStmt{conn: c, query: query}, nil
}

func (c *recorderConn) Close() error { return nil }

func (c *recorderConn) Begin() (driver.Tx, error) {
	c.inTx = true
	return &recorderTx{conn: c}, nil
}

type recorderTx struct {
	conn *recorderConn
}

func (tx *recorderTx) Commit() error {
	tx.conn.inTx = false
	return nil
}

func (tx *recorderTx) Rollback() error {
	tx.conn.inTx = false
	return nil
}

type recorderStmt struct {
	conn  *recorderConn
	query string
}

func (s *recorderStmt) Close() error { return nil }

func (s *recorderStmt) NumInput() int { return -1 }

func (s *recorderStmt) Exec(args []driver.Value) (driver.Result, error) {
	rec := s.conn.rec
	rec.mu.Lock()
	defer rec.mu.Unlock()

	rec.execs = append(rec.execs, execCall{query: s.query, args: args, inTx: s.conn.inTx})
	if rec.execErr != nil {
		return nil, rec.execErr
	}
	if rec.affected >= 0 {
		return driver.RowsAffected(rec.affected), nil
	}
	return driver.RowsAffected(countGroups(s.query)), nil
}

func (s *recorderStmt) Query([]driver.Value) (driver.Rows, error) {
	return nil, driver.ErrSkip
}

// countGroups counts the row groups of a bulk statement.
func countGroups(query string) int64 {
	var n int64
	depth := 0
	inValues := false
	for i := 0; i < len(query); i++ {
		switch query[i] {
		case '\n':
			if !inValues {
				inValues = true
			} else {
				return n
			}
		case '(':
			if inValues && depth == 0 {
				n++
			}
			if inValues {
				depth++
			}
		case ')':
			if inValues {
				depth--
			}
		}
	}
	return n
}
