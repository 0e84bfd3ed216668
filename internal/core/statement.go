package core

import (
	"context"
	"database/sql"
	"time"

	"github.com/coregx/bulkupsert/internal/security"
	"github.com/coregx/bulkupsert/internal/tracer"
)

// Statement is a built bulk statement: SQL text plus the parameters bound
// to its ? placeholders, in order. It is immutable.
type Statement struct {
	sql          string
	params       []any
	paramColumns []string
	kind         Kind
	table        string
	rows         int
	dialect      string
}

// SQL returns the statement text.
func (s *Statement) SQL() string {
	return s.sql
}

// Params returns a copy of the bound parameters. len(Params()) equals the
// number of bind placeholders in SQL(); inlined Raw or unescaped values
// may contain a literal ? that is not a placeholder.
func (s *Statement) Params() []any {
	out := make([]any, len(s.params))
	copy(out, s.params)
	return out
}

// ParamColumns returns the column each parameter belongs to.
func (s *Statement) ParamColumns() []string {
	out := make([]string, len(s.paramColumns))
	copy(out, s.paramColumns)
	return out
}

// Kind returns the statement variant.
func (s *Statement) Kind() Kind {
	return s.kind
}

// Table returns the unquoted, prefixed table name.
func (s *Statement) Table() string {
	return s.table
}

// RowCount returns the number of rows the statement writes.
func (s *Statement) RowCount() int {
	return s.rows
}

// Dialect returns the name of the dialect the statement was built for.
func (s *Statement) Dialect() string {
	return s.dialect
}

// String returns the statement text.
func (s *Statement) String() string {
	return s.sql
}

// prepareStatement prepares query on the transaction or through the
// statement cache. Transactions bypass the cache. The caller must call
// release once it is done with the statement.
func (db *DB) prepareStatement(ctx context.Context, tx *sql.Tx, query string) (stmt *sql.Stmt, release func(), err error) {
	if tx != nil {
		stmt, err = tx.PrepareContext(ctx, query)
		if err != nil {
			return nil, nil, err
		}
		return stmt, func() { _ = stmt.Close() }, nil
	}

	return db.stmtCache.GetOrPrepare(ctx, db.sqlDB, query)
}

// execute runs stmt and returns the number of affected rows. Every
// execution is logged, traced, handed to the hook and audited.
func (db *DB) execute(ctx context.Context, tx *sql.Tx, stmt *Statement) (int64, error) {
	if stmt == nil {
		return 0, WrapError(ErrInvalidShape, "nil statement")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := db.tracer.StartSpan(ctx, "bulkupsert."+stmt.kind.String())
	defer span.End()

	start := time.Now()
	affected, err := db.run(ctx, tx, stmt)
	elapsed := time.Since(start)

	db.logExecutionResult(stmt, affected, err, elapsed)

	tracer.AddStatementAttributes(span, &tracer.StatementMetadata{
		SQL:          stmt.sql,
		ParamCount:   len(stmt.params),
		BatchRows:    stmt.rows,
		Duration:     elapsed,
		RowsAffected: affected,
		Error:        err,
		Database:     stmt.dialect,
		Operation:    tracer.DetectOperation(stmt.sql),
		Kind:         stmt.kind.String(),
		Table:        stmt.table,
	})

	db.invokeHook(ctx, StatementEvent{
		SQL:          stmt.sql,
		Params:       stmt.Params(),
		ParamColumns: stmt.ParamColumns(),
		Kind:         stmt.kind,
		Table:        stmt.table,
		Rows:         stmt.rows,
		Duration:     elapsed,
		RowsAffected: affected,
		Error:        err,
	})

	db.auditor.LogWrite(ctx, security.WriteRecord{
		Kind:         stmt.kind.String(),
		Table:        stmt.table,
		SQL:          stmt.sql,
		Params:       stmt.params,
		BatchRows:    stmt.rows,
		AffectedRows: affected,
		Err:          err,
		Duration:     elapsed,
	})

	return affected, err
}

func (db *DB) run(ctx context.Context, tx *sql.Tx, stmt *Statement) (int64, error) {
	prepared, release, err := db.prepareStatement(ctx, tx, stmt.sql)
	if err != nil {
		return 0, err
	}
	defer release()

	result, err := prepared.ExecContext(ctx, stmt.params...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// logExecutionResult logs the outcome with sensitive parameters masked.
func (db *DB) logExecutionResult(stmt *Statement, affected int64, err error, elapsed time.Duration) {
	maskedParams := db.sanitizer.FormatParams(db.sanitizer.MaskColumns(stmt.paramColumns, stmt.params))

	if err != nil {
		db.logger.Error("bulk statement failed",
			"kind", stmt.kind.String(),
			"table", stmt.table,
			"sql", stmt.sql,
			"params", maskedParams,
			"rows", stmt.rows,
			"duration_ms", elapsed.Milliseconds(),
			"database", db.driverName,
			"error", err,
		)
		return
	}

	db.logger.Info("bulk statement executed",
		"kind", stmt.kind.String(),
		"table", stmt.table,
		"sql", stmt.sql,
		"params", maskedParams,
		"rows", stmt.rows,
		"duration_ms", elapsed.Milliseconds(),
		"rows_affected", affected,
		"database", db.driverName,
	)
}
