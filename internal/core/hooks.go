package core

import (
	"context"
	"time"
)

// StatementEvent describes one executed bulk statement. It is passed to a
// StatementHook for logging, metrics, or debugging.
type StatementEvent struct {
	// SQL is the executed statement text.
	SQL string
	// Params are the bound values, unmasked. Hooks that log them should
	// mask sensitive columns themselves (see ParamColumns).
	Params []any
	// ParamColumns holds the column of each value in Params.
	ParamColumns []string
	Kind         Kind
	Table        string
	// Rows is the number of rows in the batch.
	Rows     int
	Duration time.Duration
	// RowsAffected as reported by the driver. MySQL counts an updated row
	// twice for ON DUPLICATE KEY UPDATE and a replaced row twice for REPLACE.
	RowsAffected int64
	// Error is the preparation or execution error (nil on success).
	Error error
}

// StatementHook is invoked after each statement execution.
//
// Example:
//
//	db, _ := bulkupsert.Open("mysql", dsn,
//	    bulkupsert.WithStatementHook(func(ctx context.Context, e bulkupsert.StatementEvent) {
//	        slog.Info("bulk write", "kind", e.Kind, "rows", e.Rows, "err", e.Error)
//	    }))
type StatementHook func(ctx context.Context, event StatementEvent)

// invokeHook calls the statement hook if set.
func (db *DB) invokeHook(ctx context.Context, event StatementEvent) {
	if db.hook != nil {
		db.hook(ctx, event)
	}
}
